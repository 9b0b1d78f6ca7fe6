package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"preuvio/internal/analysis"
	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/magiclink"
	"preuvio/internal/notification"
	"preuvio/internal/objectstore"
	"preuvio/internal/platform/metrics"
	"preuvio/internal/profile"
	"preuvio/internal/ratelimit"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	"preuvio/pkg/requestcontext"
)

// Service handles the public intake flow and reviewer-side reads.
type Service struct {
	evidences  Store
	links      *magiclink.Service
	profiles   profile.Store
	objects    objectstore.Store
	limiter    ratelimit.Limiter
	analyzer   *analysis.Client
	dispatcher *notification.Dispatcher
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	maxBytes   int64
	logger     *slog.Logger
}

func NewService(
	evidences Store,
	links *magiclink.Service,
	profiles profile.Store,
	objects objectstore.Store,
	limiter ratelimit.Limiter,
	analyzer *analysis.Client,
	dispatcher *notification.Dispatcher,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	maxBytes int64,
	logger *slog.Logger,
) *Service {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	return &Service{
		evidences:  evidences,
		links:      links,
		profiles:   profiles,
		objects:    objects,
		limiter:    limiter,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		audit:      auditPub,
		metrics:    m,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// SubmitParams is one intake upload.
type SubmitParams struct {
	RawToken     string
	DocumentType string
	DocumentName string
	Content      []byte
	ContentType  string
	IssuedAt     *time.Time
	ExpiresAt    *time.Time
}

// Submit accepts one document through a magic link. Validation runs before
// any storage write; the deposit confirmation is best-effort and never fails
// the upload.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (Evidence, error) {
	if allowed, err := s.limiter.Allow(ctx, requestcontext.ClientIP(ctx)); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit check")
	} else if !allowed {
		s.metrics.IncEvidenceRejected("rate_limited")
		return Evidence{}, dErrors.New(dErrors.CodeRateLimited, "too many submissions, slow down")
	}

	link, err := s.links.Authorize(ctx, p.RawToken)
	if err != nil {
		s.metrics.IncEvidenceRejected("token")
		return Evidence{}, err
	}

	if p.DocumentType == "" {
		s.metrics.IncEvidenceRejected("document_type")
		return Evidence{}, dErrors.New(dErrors.CodeValidation, "document type is required")
	}
	if int64(len(p.Content)) > s.maxBytes {
		s.metrics.IncEvidenceRejected("too_large")
		return Evidence{}, dErrors.New(dErrors.CodePayloadTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}
	if len(p.Content) == 0 {
		s.metrics.IncEvidenceRejected("empty")
		return Evidence{}, dErrors.New(dErrors.CodeValidation, "file is empty")
	}
	ext, ok := AllowedContentTypes[p.ContentType]
	if !ok {
		s.metrics.IncEvidenceRejected("content_type")
		return Evidence{}, dErrors.New(dErrors.CodeUnsupportedMedia,
			"only jpeg, png, webp and pdf documents are accepted")
	}

	now := requestcontext.Now(ctx)

	extraction := analysis.PlaceholderExtraction(p.DocumentType)
	if s.analyzer.Configured() {
		if out, err := s.analyzer.Extract(ctx, p.DocumentType, p.ContentType, p.Content); err == nil {
			extraction = out
		} else {
			s.logger.WarnContext(ctx, "document analysis failed",
				"document_type", p.DocumentType, "error", err)
		}
	}

	issuedAt, expiresAt := p.IssuedAt, p.ExpiresAt
	if issuedAt == nil {
		issuedAt = parseExtractionDate(extraction.IssueDate)
	}
	if expiresAt == nil {
		expiresAt = parseExtractionDate(extraction.ExpiryDate)
	}

	key := fmt.Sprintf("%s/%s/%s_%d.%s",
		link.PlatformID.String(), link.ProfileID.String(), p.DocumentType, now.UnixNano(), ext)
	if err := s.objects.Put(ctx, key, bytes.NewReader(p.Content), int64(len(p.Content)), p.ContentType); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeUpstream, "store document")
	}

	ev := Evidence{
		ID:           domain.NewEvidenceID(),
		PlatformID:   link.PlatformID,
		ProfileID:    link.ProfileID,
		LinkID:       link.ID,
		DocumentType: p.DocumentType,
		DocumentName: p.DocumentName,
		ObjectKey:    key,
		ContentType:  p.ContentType,
		SizeBytes:    int64(len(p.Content)),
		Status:       StatusPending,
		ReviewStatus: ReviewPending,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		Analysis:     marshalExtraction(extraction),
		Confidence:   extraction.Confidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.evidences.Create(ctx, ev); err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "record evidence")
	}

	prof, err := s.profiles.FindByID(ctx, link.ProfileID)
	if err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	if prof.Status == profile.StatusActive || prof.Status == profile.StatusNeedsDocs {
		if err := s.profiles.UpdateStatus(ctx, prof.ID, profile.StatusInReview, now); err != nil {
			return Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "update profile status")
		}
	}

	s.audit.EmitBestEffort(ctx, audit.Entry{
		PlatformID: link.PlatformID,
		Actor:      "provider",
		Action:     audit.ActionEvidenceSubmitted,
		EntityType: "evidence",
		EntityID:   ev.ID.String(),
		After:      audit.Snapshot(ev),
	})
	s.metrics.IncEvidenceSubmitted()

	s.confirmDeposit(ctx, ev, prof.ContactEmail)

	return ev, nil
}

// confirmDeposit enqueues and immediately pushes the deposit confirmation.
// Any failure here is logged and swallowed.
func (s *Service) confirmDeposit(ctx context.Context, ev Evidence, recipient string) {
	entry, err := s.dispatcher.Enqueue(ctx, notification.EnqueueParams{
		PlatformID:   ev.PlatformID,
		ProfileID:    ev.ProfileID,
		EvidenceID:   ev.ID,
		Type:         notification.TypeDepositConfirmation,
		Recipient:    recipient,
		DocumentType: ev.DocumentType,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "deposit confirmation enqueue failed",
			"evidence_id", ev.ID.String(), "error", err)
		return
	}
	if recipient == "" {
		return
	}
	if err := s.dispatcher.Send(ctx, entry.ID); err != nil {
		s.logger.WarnContext(ctx, "deposit confirmation delivery failed",
			"evidence_id", ev.ID.String(), "error", err)
	}
}

// Get returns one evidence for reviewers of its platform.
func (s *Service) Get(ctx context.Context, id domain.EvidenceID) (Evidence, error) {
	ev, err := s.evidences.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Evidence{}, dErrors.New(dErrors.CodeNotFound, "evidence not found")
	}
	if err != nil {
		return Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "load evidence")
	}
	if err := authn.RequirePlatformRole(ctx, ev.PlatformID,
		authn.RoleOwner, authn.RoleAdmin, authn.RoleReviewer); err != nil {
		return Evidence{}, err
	}
	return ev, nil
}

// ListByProfile returns a profile's evidences for platform members.
func (s *Service) ListByProfile(ctx context.Context, profileID domain.ProfileID) ([]Evidence, error) {
	prof, err := s.profiles.FindByID(ctx, profileID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	if err := authn.RequirePlatformRole(ctx, prof.PlatformID,
		authn.RoleOwner, authn.RoleAdmin, authn.RoleReviewer); err != nil {
		return nil, err
	}
	return s.evidences.ListByProfile(ctx, profileID)
}

// DownloadURL returns a short-lived presigned URL for the stored document.
func (s *Service) DownloadURL(ctx context.Context, id domain.EvidenceID) (string, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.objects.PresignGet(ctx, ev.ObjectKey, objectstore.PresignTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "presign document url")
	}
	return url, nil
}

func parseExtractionDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func marshalExtraction(e analysis.Extraction) json.RawMessage {
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}
