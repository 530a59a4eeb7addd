// Package transcribe wraps the external speech-to-text service the voice
// trigger paths depend on. Audio format conversion and the actual
// recognition are entirely the remote service's concern.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/cse408-project/secureherai-api/internal/config"
	"github.com/cse408-project/secureherai-api/internal/errs"
)

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type Client interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string) (Result, error)
	TranscribeURL(ctx context.Context, audioURL, languageCode string) (Result, error)
}

type httpClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(cfg config.TranscriptionConfig) (Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("transcription base_url is required")
	}
	return &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *httpClient) Transcribe(ctx context.Context, audio []byte, languageCode string) (Result, error) {
	url := fmt.Sprintf("%s/v1/transcribe?lang=%s", c.baseURL, languageCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return Result{}, errs.Wrap(errs.KindDependency, err, "build transcribe request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req)
}

func (c *httpClient) TranscribeURL(ctx context.Context, audioURL, languageCode string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"url": audioURL, "lang": languageCode})
	if err != nil {
		return Result{}, errs.Wrap(errs.KindDependency, err, "marshal transcribe payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcribe-url", bytes.NewReader(payload))
	if err != nil {
		return Result{}, errs.Wrap(errs.KindDependency, err, "build transcribe request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindDependency, err, "transcription service call")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, errs.Dependencyf("transcription service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, errs.Wrap(errs.KindDependency, err, "decode transcription response")
	}
	return result, nil
}
