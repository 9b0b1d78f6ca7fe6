// Package profile holds the end-user provider aggregate. A profile's status
// is the single value the dashboard surfaces to platforms, so every state
// change flows through the transition table below.
package profile

import (
	"time"

	"preuvio/pkg/domain"
	dErrors "preuvio/pkg/domain-errors"
)

// Status enumerates the provider verification lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusNeedsDocs Status = "needs_docs"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusBlocked   Status = "blocked"
)

// validTransitions captures which status changes the system performs.
// Blocked is terminal for automated flows; only an operator unblock (new
// evidence approval) leaves it.
var validTransitions = map[Status][]Status{
	StatusActive:    {StatusNeedsDocs, StatusInReview, StatusBlocked},
	StatusNeedsDocs: {StatusInReview, StatusBlocked},
	StatusInReview:  {StatusApproved, StatusNeedsDocs, StatusRejected, StatusBlocked},
	StatusApproved:  {StatusNeedsDocs, StatusInReview, StatusBlocked},
	StatusRejected:  {StatusInReview, StatusNeedsDocs, StatusBlocked},
	StatusBlocked:   {StatusNeedsDocs, StatusInReview},
}

// CanTransitionTo reports whether the automated flows may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return false
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Profile is a provider registered under a platform. Never hard-deleted.
type Profile struct {
	ID           domain.ProfileID  `json:"id"`
	PlatformID   domain.PlatformID `json:"platform_id"`
	BusinessName string            `json:"business_name"`
	ContactEmail string            `json:"contact_email"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	Status       Status            `json:"status"`
	TrustScore   int               `json:"trust_score"`
	ExternalRef  string            `json:"external_ref,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func New(id domain.ProfileID, platformID domain.PlatformID, businessName, contactEmail string, now time.Time) (*Profile, error) {
	if businessName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "business name cannot be empty")
	}
	if contactEmail == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact email cannot be empty")
	}
	return &Profile{
		ID:           id,
		PlatformID:   platformID,
		BusinessName: businessName,
		ContactEmail: contactEmail,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
