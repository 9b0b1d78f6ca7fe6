package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"preuvio/internal/platform/config"
	dErrors "preuvio/pkg/domain-errors"
)

// ResendMailer delivers email through the Resend HTTP API.
type ResendMailer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
}

func NewResendMailer(cfg config.EmailConfig) *ResendMailer {
	return &ResendMailer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(resendRequest{
		From:    m.sender,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "email provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", dErrors.New(dErrors.CodeUpstream,
			fmt.Sprintf("email provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var out resendResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "decode email provider response")
	}
	return out.ID, nil
}
