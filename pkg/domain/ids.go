// Package domain holds typed identifiers shared across features. Typed UUIDs
// prevent cross-entity assignment at compile time, and parsing enforces the
// "valid, non-empty, non-nil" invariant at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "preuvio/pkg/domain-errors"
)

type (
	// PlatformID identifies a tenant platform.
	PlatformID uuid.UUID
	// ProfileID identifies an end-user provider profile.
	ProfileID uuid.UUID
	// EvidenceID identifies one uploaded document.
	EvidenceID uuid.UUID
	// LinkID identifies a magic link row.
	LinkID uuid.UUID
	// NotificationID identifies a notification queue entry.
	NotificationID uuid.UUID
	// RulesPackageID identifies a versioned required-documents checklist.
	RulesPackageID uuid.UUID
)

func parse(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" id cannot be the nil UUID")
	}
	return u, nil
}

func ParsePlatformID(s string) (PlatformID, error) {
	u, err := parse(s, "platform")
	return PlatformID(u), err
}

func ParseProfileID(s string) (ProfileID, error) {
	u, err := parse(s, "profile")
	return ProfileID(u), err
}

func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parse(s, "evidence")
	return EvidenceID(u), err
}

func ParseLinkID(s string) (LinkID, error) {
	u, err := parse(s, "link")
	return LinkID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parse(s, "notification")
	return NotificationID(u), err
}

func ParseRulesPackageID(s string) (RulesPackageID, error) {
	u, err := parse(s, "rules package")
	return RulesPackageID(u), err
}

func (id PlatformID) String() string     { return uuid.UUID(id).String() }
func (id ProfileID) String() string      { return uuid.UUID(id).String() }
func (id EvidenceID) String() string     { return uuid.UUID(id).String() }
func (id LinkID) String() string         { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id RulesPackageID) String() string { return uuid.UUID(id).String() }

func (id PlatformID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LinkID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RulesPackageID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewPlatformID returns a fresh random platform ID.
func NewPlatformID() PlatformID { return PlatformID(uuid.New()) }

// NewProfileID returns a fresh random profile ID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewEvidenceID returns a fresh random evidence ID.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// NewLinkID returns a fresh random link ID.
func NewLinkID() LinkID { return LinkID(uuid.New()) }

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// NewRulesPackageID returns a fresh random rules package ID.
func NewRulesPackageID() RulesPackageID { return RulesPackageID(uuid.New()) }
