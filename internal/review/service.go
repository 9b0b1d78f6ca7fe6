// Package review applies reviewer decisions to submitted evidences and keeps
// profile status in step with them.
package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/evidence"
	"preuvio/internal/profile"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	txcontext "preuvio/pkg/platform/tx"
	"preuvio/pkg/requestcontext"
)

// Service applies approve and reject decisions. Each decision and its profile
// cascade run in one transaction.
type Service struct {
	evidences evidence.Store
	profiles  profile.Store
	runner    txcontext.Runner
	audit     *audit.Publisher
	logger    *slog.Logger
}

func NewService(
	evidences evidence.Store,
	profiles profile.Store,
	runner txcontext.Runner,
	auditPub *audit.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		evidences: evidences,
		profiles:  profiles,
		runner:    runner,
		audit:     auditPub,
		logger:    logger,
	}
}

// Approve marks an evidence approved. The profile is promoted to approved
// only once every one of its evidences is approved.
func (s *Service) Approve(ctx context.Context, evidenceID domain.EvidenceID) (evidence.Evidence, error) {
	return s.decide(ctx, evidenceID, decision{
		status:       evidence.StatusValid,
		reviewStatus: evidence.ReviewApproved,
		action:       audit.ActionEvidenceApproved,
	})
}

// Reject marks an evidence rejected with a reason and demotes the profile to
// needs_docs immediately, regardless of its other evidences.
func (s *Service) Reject(ctx context.Context, evidenceID domain.EvidenceID, reason string) (evidence.Evidence, error) {
	if reason == "" {
		return evidence.Evidence{}, dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	return s.decide(ctx, evidenceID, decision{
		status:       evidence.StatusRejected,
		reviewStatus: evidence.ReviewRejected,
		action:       audit.ActionEvidenceRejected,
		reason:       reason,
	})
}

type decision struct {
	status       evidence.Status
	reviewStatus evidence.ReviewStatus
	action       audit.Action
	reason       string
}

func (s *Service) decide(ctx context.Context, evidenceID domain.EvidenceID, d decision) (evidence.Evidence, error) {
	ev, err := s.evidences.FindByID(ctx, evidenceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return evidence.Evidence{}, dErrors.New(dErrors.CodeNotFound, "evidence not found")
	}
	if err != nil {
		return evidence.Evidence{}, dErrors.Wrap(err, dErrors.CodeInternal, "load evidence")
	}

	if err := authn.RequirePlatformRole(ctx, ev.PlatformID,
		authn.RoleOwner, authn.RoleAdmin, authn.RoleReviewer); err != nil {
		return evidence.Evidence{}, err
	}

	if ev.ReviewStatus != evidence.ReviewPending {
		return evidence.Evidence{}, dErrors.New(dErrors.CodeConflict,
			"evidence has already been reviewed; resubmission creates a new one")
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	before := ev

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.evidences.UpdateReview(ctx, evidenceID, evidence.ReviewUpdate{
			Status:       d.status,
			ReviewStatus: d.reviewStatus,
			ReviewedBy:   actor,
			ReviewedAt:   now,
			RejectReason: d.reason,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "update evidence")
		}

		if err := s.cascade(ctx, ev.ProfileID, d, now); err != nil {
			return err
		}

		ev.Status = d.status
		ev.ReviewStatus = d.reviewStatus
		ev.ReviewedBy = actor
		ev.ReviewedAt = &now
		ev.RejectReason = d.reason
		ev.UpdatedAt = now

		return s.audit.Emit(ctx, audit.Entry{
			PlatformID: ev.PlatformID,
			Action:     d.action,
			EntityType: "evidence",
			EntityID:   ev.ID.String(),
			Before:     audit.Snapshot(before),
			After:      audit.Snapshot(ev),
			Reason:     d.reason,
		})
	})
	if err != nil {
		return evidence.Evidence{}, err
	}
	return ev, nil
}

// cascade updates the profile after a decision. Approval promotes only when
// the whole file is clean; rejection demotes on the spot.
func (s *Service) cascade(ctx context.Context, profileID domain.ProfileID, d decision, now time.Time) error {
	prof, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}

	if d.reviewStatus == evidence.ReviewRejected {
		if prof.Status == profile.StatusNeedsDocs {
			return nil
		}
		return s.profiles.UpdateStatus(ctx, profileID, profile.StatusNeedsDocs, now)
	}

	all, err := s.evidences.ListByProfile(ctx, profileID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list evidences")
	}
	for _, other := range all {
		if other.ReviewStatus != evidence.ReviewApproved {
			return nil
		}
	}
	if prof.Status == profile.StatusApproved {
		return nil
	}
	return s.profiles.UpdateStatus(ctx, profileID, profile.StatusApproved, now)
}
