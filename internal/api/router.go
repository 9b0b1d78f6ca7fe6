// Package api wires every HTTP endpoint onto a chi router.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/analysis"
	"preuvio/internal/audit"
	"preuvio/internal/evidence"
	"preuvio/internal/expiration"
	"preuvio/internal/export"
	"preuvio/internal/magiclink"
	"preuvio/internal/notification"
	"preuvio/internal/platform/middleware"
	"preuvio/internal/profile"
	"preuvio/internal/review"
	"preuvio/internal/rules"
	tenantstore "preuvio/internal/tenant/store"
)

// Deps collects everything the router serves.
type Deps struct {
	Logger *slog.Logger

	JWTValidator middleware.JWTValidator
	JobCredHash  string

	MagicLinks   *magiclink.Service
	Evidences    *evidence.Service
	Reviews      *review.Service
	Scanner      *expiration.Scanner
	Dispatcher   *notification.Dispatcher
	Analyzer     *analysis.Client
	Exporter     *export.Exporter
	Audit        *audit.Publisher
	Platforms    tenantstore.PlatformStore
	Profiles     profile.Store
	Rules        rules.Store
	MaxUploadMem int64
}

// NewRouter builds the full route tree. Public routes (validate, upload,
// health) sit outside the JWT gate; job routes use the shared credential.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Timeout(60 * time.Second))

	h := &handlers{deps: d}

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		// Public, token-authenticated by the magic link itself.
		r.Post("/magic-links/validate", h.validateMagicLink)
		r.Post("/evidences", h.submitEvidence)

		// Scheduled jobs, shared service credential.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJobCredential(d.JobCredHash, d.Logger))
			r.Post("/jobs/daily-expirations", h.runExpirationSweep)
		})

		// Dashboard, JWT-gated.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.JWTValidator, d.Logger))

			r.Post("/magic-links", h.issueMagicLink)

			r.Get("/evidences/{id}", h.getEvidence)
			r.Get("/evidences/{id}/download", h.downloadEvidence)
			r.Post("/evidences/{id}/approve", h.approveEvidence)
			r.Post("/evidences/{id}/reject", h.rejectEvidence)

			r.Post("/platforms", h.createPlatform)
			r.Get("/platforms/{id}", h.getPlatform)
			r.Get("/platforms/{id}/rules", h.getRules)

			r.Post("/profiles", h.createProfile)
			r.Get("/profiles/{id}", h.getProfile)
			r.Get("/profiles/{id}/evidences", h.listProfileEvidences)
			r.Get("/platforms/{id}/profiles", h.listProfiles)

			r.Post("/notifications/send", h.sendNotification)
			r.Post("/notifications/{id}/retry", h.retryNotification)
			r.Post("/emails/demo", h.sendDemoEmail)

			r.Post("/analysis/extract", h.extractDocument)
			r.Get("/export/audit", h.exportAudit)
			r.Post("/audit", h.appendAudit)
		})
	})

	return r
}

type handlers struct {
	deps Deps
}
