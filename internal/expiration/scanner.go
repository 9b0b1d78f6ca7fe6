// Package expiration implements the daily sweep over approved evidences:
// tiered expiry warnings, auto-blocking on lapsed required documents, and a
// drain of the notification queue.
package expiration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"preuvio/internal/audit"
	"preuvio/internal/evidence"
	"preuvio/internal/notification"
	"preuvio/internal/platform/metrics"
	"preuvio/internal/profile"
	"preuvio/internal/rules"
	"preuvio/pkg/requestcontext"
)

// Result summarizes one sweep invocation.
type Result struct {
	Checked              int `json:"checked"`
	NotificationsCreated int `json:"notifications_created"`
	Blocked              int `json:"blocked"`
	Drained              int `json:"drained"`
	Errors               int `json:"errors"`
}

// thresholds maps days-until-expiry to the notification fired at that mark.
var thresholds = map[int]notification.Type{
	30: notification.TypeExpiration30d,
	7:  notification.TypeExpiration7d,
	1:  notification.TypeExpiration1d,
	0:  notification.TypeExpired,
}

type Scanner struct {
	evidences  evidence.Store
	profiles   profile.Store
	rules      rules.Store
	notifs     notification.Store
	dispatcher *notification.Dispatcher
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	drainBatch int
	logger     *slog.Logger
}

func NewScanner(
	evidences evidence.Store,
	profiles profile.Store,
	rulesStore rules.Store,
	notifs notification.Store,
	dispatcher *notification.Dispatcher,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	drainBatch int,
	logger *slog.Logger,
) *Scanner {
	if drainBatch <= 0 {
		drainBatch = 50
	}
	return &Scanner{
		evidences:  evidences,
		profiles:   profiles,
		rules:      rulesStore,
		notifs:     notifs,
		dispatcher: dispatcher,
		audit:      auditPub,
		metrics:    m,
		drainBatch: drainBatch,
		logger:     logger,
	}
}

// Run walks every approved evidence with an expiry date. A failure on one row
// is counted and the sweep moves on; repeated runs on the same day create no
// duplicate notifications.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)
	var res Result

	evidences, err := s.evidences.ListApprovedWithExpiry(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list evidences for sweep: %w", err)
	}

	for _, ev := range evidences {
		res.Checked++
		created, blocked, err := s.process(ctx, ev, now)
		if err != nil {
			res.Errors++
			s.logger.ErrorContext(ctx, "sweep row failed",
				"evidence_id", ev.ID.String(), "error", err)
			continue
		}
		res.NotificationsCreated += created
		if blocked {
			res.Blocked++
		}
	}

	drained, err := s.dispatcher.Dispatch(ctx, s.drainBatch)
	if err != nil {
		res.Errors++
		s.logger.ErrorContext(ctx, "sweep drain failed", "error", err)
	}
	res.Drained = drained

	s.metrics.ObserveSweep(time.Since(start), res.Errors)
	s.logger.InfoContext(ctx, "expiration sweep finished",
		"checked", res.Checked,
		"notifications_created", res.NotificationsCreated,
		"blocked", res.Blocked,
		"drained", res.Drained,
		"errors", res.Errors,
	)
	return res, nil
}

func (s *Scanner) process(ctx context.Context, ev evidence.Evidence, now time.Time) (created int, blocked bool, err error) {
	days := daysUntilExpiry(*ev.ExpiresAt, now)
	typ, ok := thresholds[days]
	if !ok {
		return 0, false, nil
	}

	exists, err := s.notifs.ExistsForDay(ctx, ev.ID, typ, now)
	if err != nil {
		return 0, false, fmt.Errorf("dedup check: %w", err)
	}

	prof, err := s.profiles.FindByID(ctx, ev.ProfileID)
	if err != nil {
		return 0, false, fmt.Errorf("load profile: %w", err)
	}

	if !exists {
		_, err := s.dispatcher.Enqueue(ctx, notification.EnqueueParams{
			PlatformID:   ev.PlatformID,
			ProfileID:    ev.ProfileID,
			EvidenceID:   ev.ID,
			Type:         typ,
			Recipient:    prof.ContactEmail,
			DocumentType: ev.DocumentType,
			ExpiryDate:   ev.ExpiresAt.Format("2006-01-02"),
		})
		if err != nil {
			return 0, false, fmt.Errorf("enqueue %s: %w", typ, err)
		}
		created = 1
	}

	if days == 0 {
		blocked, err = s.blockIfRequired(ctx, ev, prof, now)
		if err != nil {
			return created, false, err
		}
	}
	return created, blocked, nil
}

// blockIfRequired blocks the profile when a required document has lapsed.
// Already-blocked profiles are left alone so the sweep stays idempotent.
func (s *Scanner) blockIfRequired(ctx context.Context, ev evidence.Evidence, prof *profile.Profile, now time.Time) (bool, error) {
	if prof.Status == profile.StatusBlocked {
		return false, nil
	}

	pkg, err := rules.ForPlatform(ctx, s.rules, ev.PlatformID)
	if err != nil {
		return false, fmt.Errorf("load rules: %w", err)
	}
	item, ok := pkg.RequiredItem(ev.DocumentType)
	if !ok || !item.Required {
		return false, nil
	}

	if err := s.profiles.UpdateStatus(ctx, prof.ID, profile.StatusBlocked, now); err != nil {
		return false, fmt.Errorf("block profile: %w", err)
	}
	s.metrics.IncProfilesBlocked()
	// The block record is a compliance artifact; a row that blocked without
	// a trail entry counts as errored.
	if err := s.audit.Emit(ctx, audit.Entry{
		PlatformID: ev.PlatformID,
		Actor:      "scheduler",
		Action:     audit.ActionProfileBlocked,
		EntityType: "profile",
		EntityID:   prof.ID.String(),
		Reason:     audit.ReasonExpiredRequiredDocument,
	}); err != nil {
		return true, fmt.Errorf("record block: %w", err)
	}
	return true, nil
}

// daysUntilExpiry compares calendar days at UTC midnight, so "expires in one
// day" means tomorrow regardless of the hour the sweep runs.
func daysUntilExpiry(expiresAt, now time.Time) int {
	expiry := midnightUTC(expiresAt)
	today := midnightUTC(now)
	return int(expiry.Sub(today) / (24 * time.Hour))
}

func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
