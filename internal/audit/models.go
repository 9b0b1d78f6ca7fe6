// Package audit provides the append-only trail behind every state-changing
// operation. Entries are never mutated or deleted.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"preuvio/pkg/domain"
)

// Action names a state-changing operation.
type Action string

const (
	ActionMagicLinkIssued       Action = "magic_link_issued"
	ActionMagicLinkRevoked      Action = "magic_link_revoked"
	ActionEvidenceSubmitted     Action = "evidence_submitted"
	ActionEvidenceApproved      Action = "evidence_approved"
	ActionEvidenceRejected      Action = "evidence_rejected"
	ActionProfileStatusChanged  Action = "profile_status_changed"
	ActionProfileBlocked        Action = "profile_blocked"
	ActionNotificationEnqueued  Action = "notification_enqueued"
	ActionNotificationRetried   Action = "notification_retried"
	ActionPlatformCreated       Action = "platform_created"
	ActionProfileCreated        Action = "profile_created"
)

// ReasonExpiredRequiredDocument is recorded when the sweep auto-blocks a
// profile over a lapsed required document.
const ReasonExpiredRequiredDocument = "expired_required_document"

// Entry is one audit record. Before/After carry entity snapshots as raw JSON
// so the trail survives model changes.
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	PlatformID domain.PlatformID `json:"platform_id"`
	Actor      string            `json:"actor"`
	Action     Action            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Before     json.RawMessage   `json:"before,omitempty"`
	After      json.RawMessage   `json:"after,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
