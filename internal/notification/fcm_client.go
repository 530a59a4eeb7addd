package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/errs"
)

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// fcmClient talks to the FCM HTTP API with a server key.
type fcmClient struct {
	serverKey  string
	httpClient *http.Client
}

func NewFCMClient(cfg config.PushConfig) PushClient {
	return &fcmClient{
		serverKey:  cfg.ServerKey,
		httpClient: &http.Client{},
	}
}

type fcmMessage struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (c *fcmClient) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(fcmMessage{
		To:           token,
		Priority:     "high",
		Notification: fcmNotification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "marshal fcm payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmSendURL, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "build fcm request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindDependency, err, "fcm call")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errs.Dependencyf("fcm returned %d", resp.StatusCode)
	}
	return nil
}
