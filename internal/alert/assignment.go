package alert

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/repository"
)

// ResponderNotifier re-dispatches an alert to a single responder, used when
// an assignment is forwarded after the initial fan-out.
type ResponderNotifier interface {
	NotifyResponder(ctx context.Context, alert models.Alert, responder models.Responder) (models.AlertNotification, error)
}

// AssignmentService tracks per-alert responder assignments. At most one
// responder holds the active assignment (ACCEPTED/EN_ROUTE/ARRIVED) on an
// alert at a time; the acquire step is atomic at the store so concurrent
// accepts cannot both succeed.
type AssignmentService struct {
	service    *Service
	notifs     repository.NotificationRepository
	responders repository.ResponderRepository
	notifier   ResponderNotifier
	logger     zerolog.Logger
}

func NewAssignmentService(
	service *Service,
	notifs repository.NotificationRepository,
	responders repository.ResponderRepository,
	notifier ResponderNotifier,
	logger zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		service:    service,
		notifs:     notifs,
		responders: responders,
		notifier:   notifier,
		logger:     logger.With().Str("component", "assignment").Logger(),
	}
}

// Accept claims the active assignment on an alert. Conflict when another
// responder already holds it; re-accept by the current holder is a no-op.
// Accepting an escalated alert drops its CRITICAL flag.
func (a *AssignmentService) Accept(ctx context.Context, alertID, responderID string) (models.AlertNotification, error) {
	alert, err := a.service.Get(ctx, alertID)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if alert.Status.IsTerminal() {
		return models.AlertNotification{}, errs.Conflictf("alert %s is already %s", alertID, alert.Status)
	}

	row, err := a.responderRow(ctx, alertID, responderID)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if row.ResponderStatus != nil && row.ResponderStatus.Holding() {
		return row, nil
	}

	n, err := a.notifs.AcquireAssignment(ctx, alertID, responderID)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if n == 0 {
		holder, err := a.notifs.HoldingResponder(ctx, alertID)
		if err == nil && holder == responderID {
			return a.responderRow(ctx, alertID, responderID)
		}
		return models.AlertNotification{}, errs.Conflictf("alert %s already has an active responder", alertID)
	}

	if alert.Status == models.AlertStatusCritical {
		if err := a.service.ClearCritical(ctx, alertID); err != nil {
			a.logger.Error().Err(err).Str("alert_id", alertID).Msg("failed to clear critical flag on accept")
		}
	}
	if err := a.responders.SetAvailability(ctx, responderID, models.AvailabilityBusy); err != nil {
		a.logger.Warn().Err(err).Str("responder_id", responderID).Msg("failed to mark responder busy")
	}

	a.logger.Info().Str("alert_id", alertID).Str("responder_id", responderID).Msg("assignment accepted")
	return a.responderRow(ctx, alertID, responderID)
}

// Reject marks the responder's assignment REJECTED. The alert itself is
// untouched and other responders remain free to accept; a holder rejecting
// releases the assignment.
func (a *AssignmentService) Reject(ctx context.Context, alertID, responderID string) (models.AlertNotification, error) {
	row, err := a.responderRow(ctx, alertID, responderID)
	if err != nil {
		return models.AlertNotification{}, err
	}

	wasHolding := row.ResponderStatus != nil && row.ResponderStatus.Holding()
	from := []models.ResponderStatus{
		models.ResponderPending,
		models.ResponderAccepted,
		models.ResponderEnRoute,
		models.ResponderArrived,
	}
	n, err := a.notifs.SetResponderStatus(ctx, alertID, responderID, from, models.ResponderRejected)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if n == 0 {
		// Already rejected or forwarded; treat as settled.
		return a.responderRow(ctx, alertID, responderID)
	}

	if wasHolding {
		if err := a.responders.SetAvailability(ctx, responderID, models.AvailabilityAvailable); err != nil {
			a.logger.Warn().Err(err).Str("responder_id", responderID).Msg("failed to mark responder available")
		}
	}

	a.logger.Info().Str("alert_id", alertID).Str("responder_id", responderID).Msg("assignment rejected")
	return a.responderRow(ctx, alertID, responderID)
}

// Forward transfers the active assignment. Only the responder currently
// holding ACCEPTED may forward; the origin row becomes FORWARDED and the
// target gets a fresh PENDING assignment plus a notification.
func (a *AssignmentService) Forward(ctx context.Context, alertID, fromResponderID, toResponderID string) (models.AlertNotification, error) {
	alert, err := a.service.Get(ctx, alertID)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if alert.Status.IsTerminal() {
		return models.AlertNotification{}, errs.Conflictf("alert %s is already %s", alertID, alert.Status)
	}

	origin, err := a.responderRow(ctx, alertID, fromResponderID)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if origin.ResponderStatus == nil || *origin.ResponderStatus != models.ResponderAccepted {
		return models.AlertNotification{}, errs.Conflictf("responder %s does not hold ACCEPTED on alert %s", fromResponderID, alertID)
	}

	targetResponder, err := a.responders.Get(ctx, toResponderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AlertNotification{}, errs.NotFoundf("responder %s not found", toResponderID)
	}
	if err != nil {
		return models.AlertNotification{}, err
	}

	n, err := a.notifs.SetResponderStatus(ctx, alertID, fromResponderID,
		[]models.ResponderStatus{models.ResponderAccepted}, models.ResponderForwarded)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if n == 0 {
		return models.AlertNotification{}, errs.Conflictf("assignment on alert %s changed concurrently", alertID)
	}

	if err := a.responders.SetAvailability(ctx, fromResponderID, models.AvailabilityAvailable); err != nil {
		a.logger.Warn().Err(err).Str("responder_id", fromResponderID).Msg("failed to mark responder available")
	}

	target, err := a.notifier.NotifyResponder(ctx, alert, targetResponder)
	if err != nil {
		return models.AlertNotification{}, err
	}

	a.logger.Info().
		Str("alert_id", alertID).
		Str("from", fromResponderID).
		Str("to", toResponderID).
		Msg("assignment forwarded")
	return target, nil
}

// UpdateProgress advances the holder's status to EN_ROUTE or ARRIVED.
func (a *AssignmentService) UpdateProgress(ctx context.Context, alertID, responderID string, to models.ResponderStatus) (models.AlertNotification, error) {
	var from []models.ResponderStatus
	switch to {
	case models.ResponderEnRoute:
		from = []models.ResponderStatus{models.ResponderAccepted}
	case models.ResponderArrived:
		from = []models.ResponderStatus{models.ResponderAccepted, models.ResponderEnRoute}
	default:
		return models.AlertNotification{}, errs.Validationf("invalid progress status %s", to)
	}

	if _, err := a.responderRow(ctx, alertID, responderID); err != nil {
		return models.AlertNotification{}, err
	}

	n, err := a.notifs.SetResponderStatus(ctx, alertID, responderID, from, to)
	if err != nil {
		return models.AlertNotification{}, err
	}
	if n == 0 {
		return models.AlertNotification{}, errs.Conflictf("responder %s cannot move to %s on alert %s", responderID, to, alertID)
	}
	return a.responderRow(ctx, alertID, responderID)
}

// StatusFor returns the responder's current assignment status on the alert.
func (a *AssignmentService) StatusFor(ctx context.Context, alertID, responderID string) (models.ResponderStatus, error) {
	row, err := a.responderRow(ctx, alertID, responderID)
	if err != nil {
		return "", err
	}
	if row.ResponderStatus == nil {
		return "", errs.NotFoundf("responder %s has no assignment on alert %s", responderID, alertID)
	}
	return *row.ResponderStatus, nil
}

func (a *AssignmentService) responderRow(ctx context.Context, alertID, responderID string) (models.AlertNotification, error) {
	row, err := a.notifs.ResponderRow(ctx, alertID, responderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AlertNotification{}, errs.NotFoundf("responder %s was never notified of alert %s", responderID, alertID)
	}
	if err != nil {
		return models.AlertNotification{}, err
	}
	return row, nil
}
