package alert

import (
	"context"
	"time"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/repository"
)

// QueryService is the read side over the alert store. All methods are
// simple predicate filters; callers wanting bounded results pass a limit.
type QueryService struct {
	alerts repository.AlertRepository
	notifs repository.NotificationRepository
}

func NewQueryService(alerts repository.AlertRepository, notifs repository.NotificationRepository) *QueryService {
	return &QueryService{alerts: alerts, notifs: notifs}
}

// UserAlerts returns the user's full alert history, newest first.
func (q *QueryService) UserAlerts(ctx context.Context, userID string, limit int) ([]models.Alert, error) {
	return q.alerts.ListByUser(ctx, userID, limit)
}

// ActiveAlerts returns every ACTIVE/CRITICAL alert, for responder
// dashboards.
func (q *QueryService) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return q.alerts.ListOpen(ctx)
}

// AlertsInWindow returns alerts triggered in [start, end).
func (q *QueryService) AlertsInWindow(ctx context.Context, start, end time.Time, limit int) ([]models.Alert, error) {
	if !end.After(start) {
		return nil, errs.Validationf("window end must be after start")
	}
	return q.alerts.ListInWindow(ctx, start, end, limit)
}

// AlertsInArea returns alerts inside a coordinate bounding box.
func (q *QueryService) AlertsInArea(ctx context.Context, latMin, latMax, lonMin, lonMax float64, limit int) ([]models.Alert, error) {
	if _, err := models.NewLocation(latMin, lonMin, ""); err != nil {
		return nil, err
	}
	if _, err := models.NewLocation(latMax, lonMax, ""); err != nil {
		return nil, err
	}
	if latMin > latMax || lonMin > lonMax {
		return nil, errs.Validationf("bounding box minimums must not exceed maximums")
	}
	return q.alerts.ListInArea(ctx, latMin, latMax, lonMin, lonMax, limit)
}

// NotificationsForAlert returns the delivery audit trail of one alert.
func (q *QueryService) NotificationsForAlert(ctx context.Context, alertID string) ([]models.AlertNotification, error) {
	return q.notifs.ListByAlert(ctx, alertID)
}
