package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	data := TemplateData{
		PlatformName: "Acme Marketplace",
		BusinessName: "Plomberie Dupont",
		DocumentType: "urssaf_attestation",
		ExpiryDate:   "2026-04-09",
		UploadURL:    "https://app.preuvio.example/upload",
	}

	t.Run("each known type gets a distinct subject", func(t *testing.T) {
		subjects := map[string]bool{}
		for _, typ := range []Type{
			TypeDepositConfirmation, TypeExpiration30d, TypeExpiration7d, TypeExpiration1d, TypeExpired,
		} {
			msg := Render(typ, "a@b.example", data)
			assert.Equal(t, "a@b.example", msg.To)
			assert.Contains(t, msg.Subject, "Acme Marketplace")
			subjects[msg.Subject] = true
		}
		assert.Len(t, subjects, 5)
	})

	t.Run("expiration messages carry the upload link", func(t *testing.T) {
		for _, typ := range []Type{TypeExpiration30d, TypeExpiration7d, TypeExpiration1d, TypeExpired} {
			msg := Render(typ, "a@b.example", data)
			assert.Contains(t, msg.HTML, data.UploadURL)
			assert.Contains(t, msg.HTML, data.ExpiryDate)
		}
	})

	t.Run("unknown types fall back to a generic reminder", func(t *testing.T) {
		msg := Render(Type("mystery"), "a@b.example", data)
		assert.Contains(t, msg.Subject, "Rappel")
		assert.Contains(t, msg.HTML, "Plomberie Dupont")
	})
}
