// Package notification queues and dispatches transactional email to
// providers: deposit confirmations and tiered expiration warnings.
package notification

import (
	"time"

	"preuvio/pkg/domain"
)

// Type names a notification template.
type Type string

const (
	TypeDepositConfirmation Type = "deposit_confirmation"
	TypeExpiration30d       Type = "expiration_30d"
	TypeExpiration7d        Type = "expiration_7d"
	TypeExpiration1d        Type = "expiration_1d"
	TypeExpired             Type = "expired"
)

// Status tracks a queue entry through dispatch.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// QueueEntry is one email waiting to be, or already, dispatched.
// DocumentType and ExpiryDate are captured at enqueue time so dispatch does
// not reach back into the evidence tables.
type QueueEntry struct {
	ID           domain.NotificationID `json:"id"`
	PlatformID   domain.PlatformID     `json:"platform_id"`
	ProfileID    domain.ProfileID      `json:"profile_id"`
	EvidenceID   domain.EvidenceID     `json:"evidence_id"`
	Type         Type                  `json:"type"`
	Recipient    string                `json:"recipient"`
	DocumentType string                `json:"document_type"`
	ExpiryDate   string                `json:"expiry_date,omitempty"`
	Status       Status                `json:"status"`
	Error        string                `json:"error,omitempty"`
	// ProviderMessageID is the id the email provider assigned on delivery.
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
}
