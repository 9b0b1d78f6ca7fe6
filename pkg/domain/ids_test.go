package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "preuvio/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseProfileID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProfileID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePlatformID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseEvidenceID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, EvidenceID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	profileID := NewProfileID()
	platformID := NewPlatformID()

	// These would fail to compile if types were interchangeable:
	// var _ ProfileID = platformID   // compile error
	// var _ PlatformID = profileID   // compile error

	assert.NotEqual(t, uuid.UUID(profileID), uuid.UUID(platformID))
}
