// Package analysis calls the vision-LM gateway that extracts structured
// fields from uploaded documents. Extraction results are advisory; intake
// succeeds even when the gateway is down.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"preuvio/internal/platform/config"
	dErrors "preuvio/pkg/domain-errors"
)

// Extraction holds the fields the gateway reads off a document. Dates use
// YYYY-MM-DD; empty means the field was not found.
type Extraction struct {
	DocType       string  `json:"doc_type"`
	NameOrCompany string  `json:"name_or_company"`
	SiretSiren    string  `json:"siret_siren"`
	IssueDate     string  `json:"issue_date"`
	ExpiryDate    string  `json:"expiry_date"`
	Confidence    float64 `json:"confidence"`
}

// PlaceholderExtraction marks an evidence whose analysis failed so a human
// reviewer fills the fields in.
func PlaceholderExtraction(docType string) Extraction {
	return Extraction{DocType: docType, Confidence: 0}
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg config.AnalysisConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// Configured reports whether a gateway URL is set. An unconfigured client
// must not be called; intake substitutes a placeholder instead.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

type extractRequest struct {
	DocumentType string `json:"document_type"`
	ContentType  string `json:"content_type"`
	Content      string `json:"content"`
}

// Extract submits document bytes for field extraction.
func (c *Client) Extract(ctx context.Context, docType, contentType string, content []byte) (Extraction, error) {
	payload, err := json.Marshal(extractRequest{
		DocumentType: docType,
		ContentType:  contentType,
		Content:      base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return Extraction{}, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Extraction{}, dErrors.Wrap(err, dErrors.CodeUpstream, "analysis gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Extraction{}, dErrors.New(dErrors.CodeUpstream,
			fmt.Sprintf("analysis gateway returned %d: %s", resp.StatusCode, string(body)))
	}

	var out Extraction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Extraction{}, dErrors.Wrap(err, dErrors.CodeUpstream, "decode extraction")
	}
	return out, nil
}
