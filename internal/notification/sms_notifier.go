package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/errs"
)

// SMSChannel posts messages to an SMS gateway service.
type SMSChannel struct {
	gatewayURL string
	apiKey     string
	sender     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewSMSChannel(cfg config.SMSConfig, logger zerolog.Logger) *SMSChannel {
	return &SMSChannel{
		gatewayURL: strings.TrimSpace(cfg.GatewayURL),
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
		httpClient: &http.Client{},
		logger:     logger.With().Str("channel", "sms").Logger(),
	}
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (c *SMSChannel) Send(ctx context.Context, recipient Recipient, msg Message) error {
	if c.gatewayURL == "" {
		return errs.Dependencyf("sms channel is not configured")
	}
	phone := strings.TrimSpace(recipient.Phone)
	if phone == "" {
		return errs.Dependencyf("recipient %s has no phone number", recipient.Name)
	}

	payload, err := json.Marshal(smsRequest{To: phone, From: c.sender, Message: msg.Title + ": " + msg.Body})
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "marshal sms payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "build sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "sms gateway call")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errs.Dependencyf("sms gateway returned %d", resp.StatusCode)
	}

	c.logger.Info().
		Str("alert_id", msg.AlertID).
		Str("recipient", recipient.Name).
		Msg("sms notification sent")
	return nil
}

func (c *SMSChannel) String() string {
	return fmt.Sprintf("SMSChannel(gateway=%s)", c.gatewayURL)
}
