package alert

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/repository"
)

// ServiceConfig carries the state-machine tunables.
type ServiceConfig struct {
	// DedupWindow is the span within which a repeated trigger from the
	// same user reuses the existing open alert instead of creating a
	// duplicate.
	DedupWindow time.Duration
}

const defaultDedupWindow = 60 * time.Second

// Service owns the alert lifecycle. Every status mutation goes through one
// of its transition methods so the state-machine guards are enforced in a
// single place.
type Service struct {
	alerts repository.AlertRepository
	notifs repository.NotificationRepository
	cfg    ServiceConfig
	logger zerolog.Logger

	newID func() string
	now   func() time.Time
}

func NewService(alerts repository.AlertRepository, notifs repository.NotificationRepository, cfg ServiceConfig, logger zerolog.Logger) *Service {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = defaultDedupWindow
	}
	return &Service{
		alerts: alerts,
		notifs: notifs,
		cfg:    cfg,
		logger: logger.With().Str("component", "alert_service").Logger(),
		newID:  func() string { return uuid.NewString() },
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateParams struct {
	UserID         string
	Location       models.Location
	TriggerMethod  models.TriggerMethod
	Message        string
	AudioRecording string
}

// Create inserts a new ACTIVE alert, unless the user already has an open
// alert inside the dedup window, in which case that alert is returned and
// created is false. Rapid re-triggers from flaky mobile connections collapse
// onto one incident this way.
func (s *Service) Create(ctx context.Context, params CreateParams) (models.Alert, bool, error) {
	if params.UserID == "" {
		return models.Alert{}, false, errs.Validationf("user id is required")
	}

	since := s.now().Add(-s.cfg.DedupWindow)
	existing, err := s.alerts.LatestOpenForUser(ctx, params.UserID, since)
	if err == nil {
		s.logger.Info().
			Str("alert_id", existing.ID).
			Str("user_id", params.UserID).
			Msg("reusing open alert inside dedup window")
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, false, err
	}

	alert := models.Alert{
		ID:                 s.newID(),
		UserID:             params.UserID,
		Location:           params.Location,
		TriggerMethod:      params.TriggerMethod,
		Message:            params.Message,
		AudioRecording:     params.AudioRecording,
		TriggeredAt:        s.now(),
		Status:             models.AlertStatusActive,
		VerificationStatus: models.VerificationPending,
	}
	created, err := s.alerts.Create(ctx, alert)
	if err != nil {
		return models.Alert{}, false, err
	}
	s.logger.Info().
		Str("alert_id", created.ID).
		Str("user_id", created.UserID).
		Str("trigger_method", string(created.TriggerMethod)).
		Msg("alert created")
	return created, true, nil
}

// Cancel moves an open alert to CANCELED. Only the owning user may cancel;
// a cancel against an already-terminal alert surfaces the double-submission
// as a conflict.
func (s *Service) Cancel(ctx context.Context, alertID, requesterID string) (models.Alert, error) {
	alert, err := s.get(ctx, alertID)
	if err != nil {
		return models.Alert{}, err
	}
	if alert.UserID != requesterID {
		return models.Alert{}, errs.Forbiddenf("alert %s does not belong to requester", alertID)
	}
	if alert.Status.IsTerminal() {
		return models.Alert{}, errs.Conflictf("alert %s is already %s", alertID, alert.Status)
	}

	stamp := s.now()
	n, err := s.alerts.Transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusCritical},
		models.AlertStatusCanceled, &stamp, nil)
	if err != nil {
		return models.Alert{}, err
	}
	if n == 0 {
		// Lost a race against another terminal transition.
		return models.Alert{}, errs.Conflictf("alert %s was concurrently closed", alertID)
	}
	return s.get(ctx, alertID)
}

// Resolve closes an open alert as RESOLVED. Only the responder currently
// holding the assignment (ACCEPTED, EN_ROUTE, or ARRIVED) may resolve.
func (s *Service) Resolve(ctx context.Context, alertID, responderID string) (models.Alert, error) {
	alert, err := s.get(ctx, alertID)
	if err != nil {
		return models.Alert{}, err
	}
	if alert.Status.IsTerminal() {
		return models.Alert{}, errs.Conflictf("alert %s is already %s", alertID, alert.Status)
	}

	row, err := s.notifs.ResponderRow(ctx, alertID, responderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, errs.Forbiddenf("responder %s has no assignment on alert %s", responderID, alertID)
	}
	if err != nil {
		return models.Alert{}, err
	}
	if row.ResponderStatus == nil || !row.ResponderStatus.Holding() {
		return models.Alert{}, errs.Forbiddenf("responder %s does not hold the assignment on alert %s", responderID, alertID)
	}

	stamp := s.now()
	n, err := s.alerts.Transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusCritical},
		models.AlertStatusResolved, nil, &stamp)
	if err != nil {
		return models.Alert{}, err
	}
	if n == 0 {
		return models.Alert{}, errs.Conflictf("alert %s was concurrently closed", alertID)
	}

	holding := []models.ResponderStatus{models.ResponderAccepted, models.ResponderEnRoute, models.ResponderArrived}
	if _, err := s.notifs.SetResponderStatus(ctx, alertID, responderID, holding, models.ResponderResolved); err != nil {
		s.logger.Error().Err(err).Str("alert_id", alertID).Msg("failed to mark assignment resolved")
	}

	s.logger.Info().Str("alert_id", alertID).Str("responder_id", responderID).Msg("alert resolved")
	return s.get(ctx, alertID)
}

// MarkCritical escalates an open alert. Any responder who was notified of
// the alert may flag it; timestamps are untouched and marking an
// already-critical alert is a no-op.
func (s *Service) MarkCritical(ctx context.Context, alertID, responderID string) (models.Alert, error) {
	alert, err := s.get(ctx, alertID)
	if err != nil {
		return models.Alert{}, err
	}
	if alert.Status.IsTerminal() {
		return models.Alert{}, errs.Conflictf("alert %s is already %s", alertID, alert.Status)
	}

	if _, err := s.notifs.ResponderRow(ctx, alertID, responderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Alert{}, errs.Forbiddenf("responder %s was not notified of alert %s", responderID, alertID)
		}
		return models.Alert{}, err
	}

	if alert.Status == models.AlertStatusCritical {
		return alert, nil
	}
	if _, err := s.alerts.Transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive},
		models.AlertStatusCritical, nil, nil); err != nil {
		return models.Alert{}, err
	}
	return s.get(ctx, alertID)
}

// Expire is the scheduler's transition for stale open alerts. Re-invocation
// against an already-terminal alert is a silent no-op.
func (s *Service) Expire(ctx context.Context, alertID string) (models.Alert, error) {
	if _, err := s.alerts.Transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusCritical},
		models.AlertStatusExpired, nil, nil); err != nil {
		return models.Alert{}, err
	}
	return s.get(ctx, alertID)
}

// ClearCritical drops the escalation flag back to plain ACTIVE, used when a
// responder takes over an escalated alert. No-op unless currently CRITICAL.
func (s *Service) ClearCritical(ctx context.Context, alertID string) error {
	_, err := s.alerts.Transition(ctx, alertID,
		[]models.AlertStatus{models.AlertStatusCritical},
		models.AlertStatusActive, nil, nil)
	return err
}

func (s *Service) get(ctx context.Context, alertID string) (models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, errs.NotFoundf("alert %s not found", alertID)
	}
	if err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

// Get is the exported read used by handlers and collaborating services.
func (s *Service) Get(ctx context.Context, alertID string) (models.Alert, error) {
	return s.get(ctx, alertID)
}
