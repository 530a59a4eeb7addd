package alert

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/notification"
)

// In-memory, ID-keyed stand-ins for the Postgres repositories.

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]models.Alert
	order  []string
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]models.Alert)}
}

func (r *fakeAlertRepo) Create(_ context.Context, alert models.Alert) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = alert
	r.order = append(r.order, alert.ID)
	return alert, nil
}

func (r *fakeAlertRepo) GetByID(_ context.Context, alertID string) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[alertID]
	if !ok {
		return models.Alert{}, sql.ErrNoRows
	}
	return alert, nil
}

func (r *fakeAlertRepo) LatestOpenForUser(_ context.Context, userID string, since time.Time) (models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Alert
	for _, id := range r.order {
		alert := r.alerts[id]
		if alert.UserID != userID || !alert.Status.IsOpen() || alert.TriggeredAt.Before(since) {
			continue
		}
		if found == nil || alert.TriggeredAt.After(found.TriggeredAt) {
			a := alert
			found = &a
		}
	}
	if found == nil {
		return models.Alert{}, sql.ErrNoRows
	}
	return *found, nil
}

func (r *fakeAlertRepo) Transition(_ context.Context, alertID string, from []models.AlertStatus, to models.AlertStatus, stampCanceled, stampResolved *time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[alertID]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, status := range from {
		if alert.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	alert.Status = to
	if stampCanceled != nil {
		alert.CanceledAt = stampCanceled
	}
	if stampResolved != nil {
		alert.ResolvedAt = stampResolved
	}
	r.alerts[alertID] = alert
	return 1, nil
}

func (r *fakeAlertRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []models.Alert
	for i := len(r.order) - 1; i >= 0; i-- {
		if alert := r.alerts[r.order[i]]; alert.UserID == userID {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (r *fakeAlertRepo) ListOpen(_ context.Context) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []models.Alert
	for _, id := range r.order {
		if alert := r.alerts[id]; alert.Status.IsOpen() {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (r *fakeAlertRepo) ListInWindow(_ context.Context, start, end time.Time, _ int) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []models.Alert
	for _, id := range r.order {
		alert := r.alerts[id]
		if !alert.TriggeredAt.Before(start) && alert.TriggeredAt.Before(end) {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (r *fakeAlertRepo) ListInArea(_ context.Context, latMin, latMax, lonMin, lonMax float64, _ int) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []models.Alert
	for _, id := range r.order {
		alert := r.alerts[id]
		if alert.Location.Latitude >= latMin && alert.Location.Latitude <= latMax &&
			alert.Location.Longitude >= lonMin && alert.Location.Longitude <= lonMax {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

func (r *fakeAlertRepo) ListOpenOlderThan(_ context.Context, cutoff time.Time) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []models.Alert
	for _, id := range r.order {
		alert := r.alerts[id]
		if alert.Status.IsOpen() && alert.TriggeredAt.Before(cutoff) {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

type fakeNotifRepo struct {
	mu    sync.Mutex
	rows  map[string]models.AlertNotification
	order []string
	seq   int
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{rows: make(map[string]models.AlertNotification)}
}

func (r *fakeNotifRepo) Create(_ context.Context, notif models.AlertNotification) (models.AlertNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notif.ID == "" {
		r.seq++
		notif.ID = fmt.Sprintf("notif-%d", r.seq)
	}
	if notif.NotifiedAt.IsZero() {
		notif.NotifiedAt = time.Now().UTC()
	}
	r.rows[notif.ID] = notif
	r.order = append(r.order, notif.ID)
	return notif, nil
}

func (r *fakeNotifRepo) SetDeliveryStatus(_ context.Context, notificationID string, status models.DeliveryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[notificationID]
	if !ok {
		return sql.ErrNoRows
	}
	row.DeliveryStatus = status
	r.rows[notificationID] = row
	return nil
}

func (r *fakeNotifRepo) ListByAlert(_ context.Context, alertID string) ([]models.AlertNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.AlertNotification
	for _, id := range r.order {
		if row := r.rows[id]; row.AlertID == alertID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (r *fakeNotifRepo) ResponderRow(_ context.Context, alertID, responderID string) (models.AlertNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		row := r.rows[r.order[i]]
		if row.AlertID == alertID && row.ResponderID != nil && *row.ResponderID == responderID && row.ResponderStatus != nil {
			return row, nil
		}
	}
	return models.AlertNotification{}, sql.ErrNoRows
}

func (r *fakeNotifRepo) AcquireAssignment(_ context.Context, alertID, responderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		row := r.rows[id]
		if row.AlertID == alertID && row.ResponderStatus != nil && row.ResponderStatus.Holding() {
			return 0, nil
		}
	}
	for i := len(r.order) - 1; i >= 0; i-- {
		row := r.rows[r.order[i]]
		if row.AlertID != alertID || row.ResponderID == nil || *row.ResponderID != responderID || row.ResponderStatus == nil {
			continue
		}
		if *row.ResponderStatus == models.ResponderPending || *row.ResponderStatus == models.ResponderRejected {
			accepted := models.ResponderAccepted
			row.ResponderStatus = &accepted
			r.rows[r.order[i]] = row
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (r *fakeNotifRepo) SetResponderStatus(_ context.Context, alertID, responderID string, from []models.ResponderStatus, to models.ResponderStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		row := r.rows[r.order[i]]
		if row.AlertID != alertID || row.ResponderID == nil || *row.ResponderID != responderID || row.ResponderStatus == nil {
			continue
		}
		for _, status := range from {
			if *row.ResponderStatus == status {
				s := to
				row.ResponderStatus = &s
				r.rows[r.order[i]] = row
				return 1, nil
			}
		}
		return 0, nil
	}
	return 0, nil
}

func (r *fakeNotifRepo) HoldingResponder(_ context.Context, alertID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		row := r.rows[id]
		if row.AlertID == alertID && row.ResponderStatus != nil && row.ResponderStatus.Holding() && row.ResponderID != nil {
			return *row.ResponderID, nil
		}
	}
	return "", sql.ErrNoRows
}

func (r *fakeNotifRepo) addResponderRow(alertID, responderID string, status models.ResponderStatus) models.AlertNotification {
	row, _ := r.Create(context.Background(), models.AlertNotification{
		AlertID:         alertID,
		ResponderID:     &responderID,
		RecipientType:   models.RecipientResponder,
		RecipientName:   responderID,
		DeliveryStatus:  models.DeliveryNotified,
		ResponderStatus: &status,
	})
	return row
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (r *fakeUserRepo) Get(_ context.Context, userID string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) DeleteUnverifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, user := range r.users {
		if !user.Verified && user.CreatedAt.Before(cutoff) {
			delete(r.users, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeResponderRepo struct {
	mu         sync.Mutex
	responders map[string]models.Responder
}

func newFakeResponderRepo() *fakeResponderRepo {
	return &fakeResponderRepo{responders: make(map[string]models.Responder)}
}

func (r *fakeResponderRepo) Get(_ context.Context, responderID string) (models.Responder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	responder, ok := r.responders[responderID]
	if !ok {
		return models.Responder{}, sql.ErrNoRows
	}
	return responder, nil
}

func (r *fakeResponderRepo) ListAvailable(_ context.Context) ([]models.Responder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var available []models.Responder
	for _, responder := range r.responders {
		if responder.Active && responder.Status == models.AvailabilityAvailable {
			available = append(available, responder)
		}
	}
	return available, nil
}

func (r *fakeResponderRepo) SetAvailability(_ context.Context, responderID string, status models.AvailabilityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	responder, ok := r.responders[responderID]
	if !ok {
		return sql.ErrNoRows
	}
	responder.Status = status
	r.responders[responderID] = responder
	return nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []models.Alert
	notified []string
	result   notification.DispatchResult
}

func (d *fakeDispatcher) Dispatch(_ context.Context, alert models.Alert) (notification.DispatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, alert)
	return d.result, nil
}

func (d *fakeDispatcher) NotifyResponder(_ context.Context, alert models.Alert, responder models.Responder) (models.AlertNotification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notified = append(d.notified, responder.ID)
	pending := models.ResponderPending
	return models.AlertNotification{
		AlertID:         alert.ID,
		ResponderID:     &responder.ID,
		RecipientType:   models.RecipientResponder,
		RecipientName:   responder.Name,
		DeliveryStatus:  models.DeliveryNotified,
		ResponderStatus: &pending,
	}, nil
}
