package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/models"
)

// Recipient is one delivery target resolved at dispatch time.
type Recipient struct {
	Kind        models.RecipientType
	ContactID   string
	ResponderID string
	Name        string
	Email       string
	Phone       string
	PushToken   string
}

// Message is the channel-independent alert payload.
type Message struct {
	AlertID string
	Title   string
	Body    string
}

// Channel delivers one message to one recipient. Channel-internal retries,
// if any, belong to the implementation; the dispatcher records exactly one
// outcome per attempt.
type Channel interface {
	Send(ctx context.Context, recipient Recipient, msg Message) error
}

func channelName(c Channel) string {
	type named interface {
		String() string
	}
	if v, ok := c.(named); ok {
		return v.String()
	}
	return "unknown"
}

func logSendError(logger zerolog.Logger, err error, channel string, recipient Recipient, msg Message) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Str("alert_id", msg.AlertID).
		Str("channel", channel).
		Str("recipient", recipient.Name).
		Str("recipient_type", string(recipient.Kind)).
		Msg("failed to deliver alert notification")
}
