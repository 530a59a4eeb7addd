package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/errs"
)

// PushChannel delivers responder notifications over Firebase Cloud
// Messaging. The actual FCM call is behind a small client interface so the
// SDK wiring stays outside the core.
type PushChannel struct {
	enabled   bool
	projectID string
	client    PushClient
	logger    zerolog.Logger
}

type PushClient interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

func NewPushChannel(cfg config.PushConfig, client PushClient, logger zerolog.Logger) *PushChannel {
	enabled := cfg.Enabled && cfg.ProjectID != "" && client != nil
	return &PushChannel{
		enabled:   enabled,
		projectID: cfg.ProjectID,
		client:    client,
		logger:    logger.With().Str("channel", "push").Logger(),
	}
}

func (c *PushChannel) Send(ctx context.Context, recipient Recipient, msg Message) error {
	if !c.enabled {
		return errs.Dependencyf("push channel is not configured")
	}
	if recipient.PushToken == "" {
		return errs.Dependencyf("recipient %s has no push token", recipient.Name)
	}
	data := map[string]string{"alert_id": msg.AlertID}
	if err := c.client.Push(ctx, recipient.PushToken, msg.Title, msg.Body, data); err != nil {
		return errs.Wrap(errs.KindDependency, err, "fcm push")
	}
	c.logger.Info().
		Str("alert_id", msg.AlertID).
		Str("recipient", recipient.Name).
		Msg("push notification dispatched")
	return nil
}

func (c *PushChannel) String() string {
	if !c.enabled {
		return "PushChannel(disabled)"
	}
	return fmt.Sprintf("PushChannel(project=%s)", c.projectID)
}
