package notification

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
	"github.com/cse408-project/secureherai-api/internal/repository"
)

// DispatcherConfig bounds fan-out latency. Zero values fall back to the
// defaults below.
type DispatcherConfig struct {
	PerRecipientTimeout time.Duration
	OverallTimeout      time.Duration
	MaxParallel         int
	// ProximityRadiusKm limits responder fan-out to responders within this
	// distance of the alert; responders without a known location are
	// always included. Zero disables the filter.
	ProximityRadiusKm float64
}

const (
	defaultPerRecipientTimeout = 5 * time.Second
	defaultOverallTimeout      = 15 * time.Second
	defaultMaxParallel         = 8
)

// DispatchResult summarizes one fan-out. Pending counts deliveries still in
// flight when the overall deadline fired; their rows settle to notified or
// failed in the background.
type DispatchResult struct {
	Recipients int `json:"recipients"`
	Notified   int `json:"notified"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}

// Dispatcher fans an alert out to the owner's shareable trusted contacts and
// the available responders, recording one alert_recipients row per delivery
// attempt. Per-recipient failures are recorded, never propagated.
type Dispatcher struct {
	contacts   repository.ContactRepository
	responders repository.ResponderRepository
	users      repository.UserRepository
	notifs     repository.NotificationRepository
	email      Channel
	sms        Channel
	push       Channel
	cfg        DispatcherConfig
	logger     zerolog.Logger

	newID func() string
	now   func() time.Time
}

func NewDispatcher(
	contacts repository.ContactRepository,
	responders repository.ResponderRepository,
	users repository.UserRepository,
	notifs repository.NotificationRepository,
	email, sms, push Channel,
	cfg DispatcherConfig,
	logger zerolog.Logger,
) *Dispatcher {
	if cfg.PerRecipientTimeout <= 0 {
		cfg.PerRecipientTimeout = defaultPerRecipientTimeout
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = defaultOverallTimeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	return &Dispatcher{
		contacts:   contacts,
		responders: responders,
		users:      users,
		notifs:     notifs,
		email:      email,
		sms:        sms,
		push:       push,
		cfg:        cfg,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		newID:      func() string { return uuid.NewString() },
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type target struct {
	row       models.AlertNotification
	recipient Recipient
}

// Dispatch resolves recipients and delivers to each of them with bounded
// parallelism. It returns once every delivery settled or the overall
// deadline fired, whichever comes first; zero recipients is a successful
// dispatch, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) (DispatchResult, error) {
	recipients, err := d.resolveRecipients(ctx, alert)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(recipients) == 0 {
		d.logger.Info().Str("alert_id", alert.ID).Msg("no recipients for alert; dispatch complete")
		return DispatchResult{}, nil
	}

	msg := d.buildMessage(ctx, alert)

	targets := make([]target, 0, len(recipients))
	for _, recipient := range recipients {
		row, err := d.createRow(ctx, alert.ID, recipient)
		if err != nil {
			return DispatchResult{}, err
		}
		targets = append(targets, target{row: row, recipient: recipient})
	}

	var notified, failed atomic.Int64

	// Deliveries outlive the overall deadline so stragglers can still
	// settle their rows; only the wait below is bounded.
	detached := context.WithoutCancel(ctx)

	g, _ := errgroup.WithContext(detached)
	g.SetLimit(d.cfg.MaxParallel)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			d.deliver(detached, t, msg, &notified, &failed)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait() //nolint:errcheck // deliver never returns an error
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d.cfg.OverallTimeout):
		d.logger.Warn().
			Str("alert_id", alert.ID).
			Msg("dispatch deadline reached; remaining deliveries settle in background")
	}

	result := DispatchResult{
		Recipients: len(targets),
		Notified:   int(notified.Load()),
		Failed:     int(failed.Load()),
	}
	result.Pending = result.Recipients - result.Notified - result.Failed

	d.logger.Info().
		Str("alert_id", alert.ID).
		Int("recipients", result.Recipients).
		Int("notified", result.Notified).
		Int("failed", result.Failed).
		Int("pending", result.Pending).
		Msg("alert dispatched")
	return result, nil
}

// NotifyResponder creates a fresh PENDING assignment row for the responder
// and delivers a push notification. Used for forwarding an alert to a new
// responder after the initial fan-out.
func (d *Dispatcher) NotifyResponder(ctx context.Context, alert models.Alert, responder models.Responder) (models.AlertNotification, error) {
	recipient := responderRecipient(responder)
	row, err := d.createRow(ctx, alert.ID, recipient)
	if err != nil {
		return models.AlertNotification{}, err
	}

	msg := d.buildMessage(ctx, alert)
	var notified, failed atomic.Int64
	d.deliver(ctx, target{row: row, recipient: recipient}, msg, &notified, &failed)

	return d.notifs.ResponderRow(ctx, alert.ID, responder.ID)
}

func (d *Dispatcher) deliver(ctx context.Context, t target, msg Message, notified, failed *atomic.Int64) {
	cctx, cancel := context.WithTimeout(ctx, d.cfg.PerRecipientTimeout)
	defer cancel()

	channel, err := d.route(t.recipient)
	if err == nil {
		err = channel.Send(cctx, t.recipient, msg)
	}

	status := models.DeliveryNotified
	if err != nil {
		status = models.DeliveryFailed
		logSendError(d.logger, err, channelName(channel), t.recipient, msg)
		failed.Add(1)
	} else {
		notified.Add(1)
	}

	if err := d.notifs.SetDeliveryStatus(ctx, t.row.ID, status); err != nil {
		d.logger.Error().
			Err(err).
			Str("notification_id", t.row.ID).
			Msg("failed to record delivery outcome")
	}
}

func (d *Dispatcher) route(recipient Recipient) (Channel, error) {
	switch recipient.Kind {
	case models.RecipientResponder:
		if d.push == nil {
			return nil, errs.Dependencyf("no push channel configured for responder %s", recipient.Name)
		}
		return d.push, nil
	default:
		if recipient.Phone != "" && d.sms != nil {
			return d.sms, nil
		}
		if recipient.Email != "" && d.email != nil {
			return d.email, nil
		}
		return nil, errs.Dependencyf("no reachable channel for recipient %s", recipient.Name)
	}
}

func (d *Dispatcher) resolveRecipients(ctx context.Context, alert models.Alert) ([]Recipient, error) {
	contacts, err := d.contacts.ListShareable(ctx, alert.UserID)
	if err != nil {
		return nil, err
	}
	responders, err := d.responders.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	recipients := make([]Recipient, 0, len(contacts)+len(responders))
	for _, contact := range contacts {
		recipients = append(recipients, Recipient{
			Kind:      models.RecipientTrustedContact,
			ContactID: contact.ID,
			Name:      contact.Name,
			Email:     contact.Email,
			Phone:     contact.Phone,
		})
	}
	for _, responder := range responders {
		if d.cfg.ProximityRadiusKm > 0 && responder.Location != nil {
			if alert.Location.DistanceKm(*responder.Location) > d.cfg.ProximityRadiusKm {
				continue
			}
		}
		recipients = append(recipients, responderRecipient(responder))
	}
	return recipients, nil
}

func (d *Dispatcher) createRow(ctx context.Context, alertID string, recipient Recipient) (models.AlertNotification, error) {
	row := models.AlertNotification{
		ID:             d.newID(),
		AlertID:        alertID,
		RecipientType:  recipient.Kind,
		RecipientName:  recipient.Name,
		DeliveryStatus: models.DeliveryPending,
		NotifiedAt:     d.now(),
	}
	if recipient.ContactID != "" {
		id := recipient.ContactID
		row.ContactID = &id
	}
	if recipient.ResponderID != "" {
		id := recipient.ResponderID
		row.ResponderID = &id
		pending := models.ResponderPending
		row.ResponderStatus = &pending
	}
	return d.notifs.Create(ctx, row)
}

func (d *Dispatcher) buildMessage(ctx context.Context, alert models.Alert) Message {
	ownerName := alert.UserID
	if owner, err := d.users.Get(ctx, alert.UserID); err == nil && owner.FullName != "" {
		ownerName = owner.FullName
	}

	where := alert.Location.Address
	if where == "" {
		where = fmt.Sprintf("%.5f, %.5f", alert.Location.Latitude, alert.Location.Longitude)
	}

	body := fmt.Sprintf("%s needs help near %s (triggered %s via %s).",
		ownerName, where, alert.TriggeredAt.Format("15:04 MST"), alert.TriggerMethod)
	if alert.Message != "" {
		body += " Message: " + alert.Message
	}

	return Message{
		AlertID: alert.ID,
		Title:   "SOS Alert",
		Body:    body,
	}
}

func responderRecipient(responder models.Responder) Recipient {
	return Recipient{
		Kind:        models.RecipientResponder,
		ResponderID: responder.ID,
		Name:        responder.Name,
		PushToken:   responder.PushToken,
	}
}
