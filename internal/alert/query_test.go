package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
)

func newQueryFixture(t *testing.T) (*QueryService, *serviceFixture) {
	t.Helper()
	base := newServiceFixture(t, ServiceConfig{DedupWindow: time.Second})
	return NewQueryService(base.alerts, base.notifs), base
}

func TestActiveAlertsExcludesClosed(t *testing.T) {
	q, fx := newQueryFixture(t)
	ctx := context.Background()

	open, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	fx.clock.Advance(5 * time.Second)
	closed, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-2", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)
	_, err = fx.service.Cancel(ctx, closed.ID, "user-2")
	require.NoError(t, err)

	active, err := q.ActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}

func TestAlertsInWindowValidatesBounds(t *testing.T) {
	q, fx := newQueryFixture(t)
	ctx := context.Background()
	start := fx.clock.Now()

	_, err := q.AlertsInWindow(ctx, start, start, 10)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
	_, err = q.AlertsInWindow(ctx, start, start.Add(-time.Hour), 10)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	inside, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	fx.clock.Advance(2 * time.Hour)
	_, _, err = fx.service.Create(ctx, CreateParams{UserID: "user-2", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	got, err := q.AlertsInWindow(ctx, start, start.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside.ID, got[0].ID)
}

func TestAlertsInAreaValidatesBox(t *testing.T) {
	q, _ := newQueryFixture(t)
	ctx := context.Background()

	_, err := q.AlertsInArea(ctx, 95, 96, 0, 1, 10)
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	// Inverted box.
	_, err = q.AlertsInArea(ctx, 24, 23, 90, 91, 10)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestAlertsInAreaFiltersByBoundingBox(t *testing.T) {
	q, fx := newQueryFixture(t)
	ctx := context.Background()

	inDhaka, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	elsewhere, err := models.NewLocation(22.3569, 91.7832, "Chattogram")
	require.NoError(t, err)
	_, _, err = fx.service.Create(ctx, CreateParams{UserID: "user-2", Location: elsewhere, TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	got, err := q.AlertsInArea(ctx, 23.5, 24.0, 90.0, 90.6, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inDhaka.ID, got[0].ID)
}

func TestNotificationsForAlert(t *testing.T) {
	q, fx := newQueryFixture(t)
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)
	fx.notifs.addResponderRow(alert.ID, "resp-1", models.ResponderPending)
	fx.notifs.addResponderRow("other-alert", "resp-2", models.ResponderPending)

	rows, err := q.NotificationsForAlert(ctx, alert.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, alert.ID, rows[0].AlertID)
}
