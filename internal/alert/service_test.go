package alert

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
)

type serviceFixture struct {
	service *Service
	alerts  *fakeAlertRepo
	notifs  *fakeNotifRepo
	clock   *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newServiceFixture(t *testing.T, cfg ServiceConfig) *serviceFixture {
	t.Helper()
	alerts := newFakeAlertRepo()
	notifs := newFakeNotifRepo()
	service := NewService(alerts, notifs, cfg, zerolog.Nop())

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	service.now = clock.Now

	seq := 0
	service.newID = func() string {
		seq++
		return fmt.Sprintf("alert-%d", seq)
	}
	return &serviceFixture{service: service, alerts: alerts, notifs: notifs, clock: clock}
}

func mustLocation(t *testing.T) models.Location {
	t.Helper()
	loc, err := models.NewLocation(23.7269, 90.3916, "Dhanmondi, Dhaka")
	require.NoError(t, err)
	return loc
}

func TestCreateReusesOpenAlertInsideDedupWindow(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{DedupWindow: 60 * time.Second})
	ctx := context.Background()
	params := CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual}

	first, created, err := fx.service.Create(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AlertStatusActive, first.Status)
	assert.Equal(t, models.VerificationPending, first.VerificationStatus)

	fx.clock.Advance(10 * time.Second)
	second, created, err := fx.service.Create(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateOutsideDedupWindowMakesNewAlert(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{DedupWindow: 60 * time.Second})
	ctx := context.Background()
	params := CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerText}

	first, _, err := fx.service.Create(ctx, params)
	require.NoError(t, err)

	fx.clock.Advance(70 * time.Second)
	second, created, err := fx.service.Create(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateIgnoresClosedAlertsForDedup(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()
	params := CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual}

	first, _, err := fx.service.Create(ctx, params)
	require.NoError(t, err)
	_, err = fx.service.Cancel(ctx, first.ID, "user-1")
	require.NoError(t, err)

	fx.clock.Advance(5 * time.Second)
	second, created, err := fx.service.Create(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRequiresUserID(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	_, _, err := fx.service.Create(context.Background(), CreateParams{Location: mustLocation(t)})
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestCancelStampsTimestamp(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	fx.clock.Advance(2 * time.Minute)
	canceled, err := fx.service.Cancel(ctx, alert.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, fx.clock.Now(), *canceled.CanceledAt)
	assert.Nil(t, canceled.ResolvedAt)
}

func TestCancelByNonOwnerForbidden(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	_, err = fx.service.Cancel(ctx, alert.ID, "user-2")
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	got, err := fx.service.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, got.Status)
}

func TestCancelResolvedAlertConflicts(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)
	fx.notifs.addResponderRow(alert.ID, "resp-1", models.ResponderAccepted)

	fx.clock.Advance(time.Minute)
	resolved, err := fx.service.Resolve(ctx, alert.ID, "resp-1")
	require.NoError(t, err)
	resolvedAt := *resolved.ResolvedAt

	_, err = fx.service.Cancel(ctx, alert.ID, "user-1")
	assert.True(t, errs.IsKind(err, errs.KindConflict))

	got, err := fx.service.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, resolvedAt, *got.ResolvedAt)
	assert.Nil(t, got.CanceledAt)
}

func TestCancelUnknownAlertNotFound(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	_, err := fx.service.Cancel(context.Background(), "missing", "user-1")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))
}

func TestResolveRequiresHoldingResponder(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	// Never notified.
	_, err = fx.service.Resolve(ctx, alert.ID, "resp-1")
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	// Notified but only PENDING.
	fx.notifs.addResponderRow(alert.ID, "resp-1", models.ResponderPending)
	_, err = fx.service.Resolve(ctx, alert.ID, "resp-1")
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestResolveByHolderClosesAlertAndAssignment(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)
	fx.notifs.addResponderRow(alert.ID, "resp-1", models.ResponderEnRoute)

	fx.clock.Advance(30 * time.Minute)
	resolved, err := fx.service.Resolve(ctx, alert.ID, "resp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, fx.clock.Now(), *resolved.ResolvedAt)

	row, err := fx.notifs.ResponderRow(ctx, alert.ID, "resp-1")
	require.NoError(t, err)
	require.NotNil(t, row.ResponderStatus)
	assert.Equal(t, models.ResponderResolved, *row.ResponderStatus)
}

func TestMarkCriticalByNotifiedResponder(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerVoice})
	require.NoError(t, err)

	_, err = fx.service.MarkCritical(ctx, alert.ID, "resp-1")
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	fx.notifs.addResponderRow(alert.ID, "resp-1", models.ResponderPending)
	escalated, err := fx.service.MarkCritical(ctx, alert.ID, "resp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusCritical, escalated.Status)

	// Re-marking an already-critical alert is a no-op.
	again, err := fx.service.MarkCritical(ctx, alert.ID, "resp-1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusCritical, again.Status)
}

func TestExpireIsIdempotentOnTerminalAlerts(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)
	_, err = fx.service.Cancel(ctx, alert.ID, "user-1")
	require.NoError(t, err)

	got, err := fx.service.Expire(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusCanceled, got.Status)
}

func TestExpireOpenAlert(t *testing.T) {
	fx := newServiceFixture(t, ServiceConfig{})
	ctx := context.Background()

	alert, _, err := fx.service.Create(ctx, CreateParams{UserID: "user-1", Location: mustLocation(t), TriggerMethod: models.TriggerManual})
	require.NoError(t, err)

	got, err := fx.service.Expire(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusExpired, got.Status)
	assert.Nil(t, got.CanceledAt)
	assert.Nil(t, got.ResolvedAt)
}
