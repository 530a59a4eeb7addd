package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/errs"
)

type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   zerolog.Logger
}

func NewEmailChannel(cfg config.EmailConfig, logger zerolog.Logger) (*EmailChannel, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email channel")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email channel")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailChannel{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		logger:   logger.With().Str("channel", "email").Logger(),
	}, nil
}

func (c *EmailChannel) Send(_ context.Context, recipient Recipient, msg Message) error {
	to := strings.TrimSpace(recipient.Email)
	if to == "" {
		return errs.Dependencyf("recipient %s has no email address", recipient.Name)
	}

	subject := fmt.Sprintf("[SecureHerAI] %s", strings.TrimSpace(msg.Title))

	body := strings.Builder{}
	body.WriteString(strings.TrimSpace(msg.Body))
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Alert: %s\n", msg.AlertID))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		c.from, to, subject)

	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	if err := smtp.SendMail(addr, auth, c.from, []string{to}, message); err != nil {
		return errs.Wrap(errs.KindDependency, err, "smtp send")
	}

	c.logger.Info().
		Str("alert_id", msg.AlertID).
		Str("recipient", recipient.Name).
		Msg("email notification sent")
	return nil
}

func (c *EmailChannel) String() string {
	return "EmailChannel"
}
