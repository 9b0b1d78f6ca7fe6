// Package evidence holds uploaded verification documents and the public
// intake flow that accepts them.
package evidence

import (
	"encoding/json"
	"time"

	"preuvio/pkg/domain"
)

// Status is the document lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusValid    Status = "valid"
	StatusRejected Status = "rejected"
)

// ReviewStatus tracks the human decision. Approved and rejected are terminal;
// a provider resubmits by uploading a new evidence.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Evidence is one uploaded document.
type Evidence struct {
	ID           domain.EvidenceID `json:"id"`
	PlatformID   domain.PlatformID `json:"platform_id"`
	ProfileID    domain.ProfileID  `json:"profile_id"`
	LinkID       domain.LinkID     `json:"link_id"`
	DocumentType string            `json:"document_type"`
	DocumentName string            `json:"document_name"`
	ObjectKey    string            `json:"object_key"`
	ContentType  string            `json:"content_type"`
	SizeBytes    int64             `json:"size_bytes"`
	Status       Status            `json:"status"`
	ReviewStatus ReviewStatus      `json:"review_status"`
	ReviewedBy   string            `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	RejectReason string            `json:"reject_reason,omitempty"`
	IssuedAt     *time.Time        `json:"issued_at,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	Analysis     json.RawMessage   `json:"analysis,omitempty"`
	Confidence   float64           `json:"confidence"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// AllowedContentTypes maps accepted MIME types to object key extensions.
var AllowedContentTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// MaxUploadBytes is the intake size ceiling.
const MaxUploadBytes = 10 << 20
