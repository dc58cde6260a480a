package application

import (
	"context"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// HandlePageView applies the background scheduling policy to one qualifying
// page view. It never runs a slow synchronous path for callers without edit
// rights; the worst they get is a sub-10ms cron nudge.
func (s *Service) HandlePageView(ctx context.Context, pageID int64, actor Actor) (ViewResult, error) {
	payload, err := s.GetPagePayload(ctx, pageID)
	if err != nil {
		// A failed read is equivalent to an absent payload: due for refresh.
		s.logger.WarnContext(ctx, "payload resolution failed during page view",
			"module", "application", "layer", "service", "operation", "page_view",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
		payload = nil
	}

	if payload != nil && !payload.NeedsRefresh(s.nowFn()) {
		return ViewResult{Decision: DecisionNotDue, Payload: payload}, nil
	}

	if s.cfg.CronDisabled {
		return s.handleDegradedView(ctx, pageID, actor, payload)
	}

	pending, err := s.queue.Pending(ctx, pageID)
	if err != nil {
		return ViewResult{}, err
	}
	if pending {
		return ViewResult{Decision: DecisionInProgress, Payload: payload}, nil
	}
	acquired, err := s.locks.Acquire(ctx, pageID, s.cfg.RefreshLockTTL)
	if err != nil {
		return ViewResult{}, err
	}
	if !acquired {
		return ViewResult{Decision: DecisionInProgress, Payload: payload}, nil
	}
	queued, err := s.queue.Enqueue(ctx, pageID)
	if err != nil {
		_ = s.locks.Release(ctx, pageID)
		return ViewResult{}, err
	}
	if !queued {
		// Raced with another enqueue; its task owns the refresh.
		_ = s.locks.Release(ctx, pageID)
		return ViewResult{Decision: DecisionInProgress, Payload: payload}, nil
	}
	s.logger.InfoContext(ctx, "refresh scheduled",
		"module", "application", "layer", "service", "operation", "page_view",
		"outcome", "success", "page_id", pageID,
	)
	return ViewResult{Decision: DecisionScheduled, Payload: payload}, nil
}

// handleDegradedView covers the disabled-runner paths. Authorized viewers
// accept a slower page load for a working inline refresh; everyone else
// gets a best-effort nudge of the runner.
func (s *Service) handleDegradedView(ctx context.Context, pageID int64, actor Actor, payload *domain.Payload) (ViewResult, error) {
	acquired, err := s.locks.Acquire(ctx, pageID, s.cfg.RefreshLockTTL)
	if err != nil {
		return ViewResult{}, err
	}
	if !acquired {
		return ViewResult{Decision: DecisionInProgress, Payload: payload}, nil
	}

	if actor.CanEdit() {
		if err := s.RunScheduledRefresh(ctx, pageID); err != nil {
			return ViewResult{Decision: DecisionFailed, Payload: payload}, nil
		}
		fresh, err := s.GetPagePayload(ctx, pageID)
		if err != nil {
			fresh = payload
		}
		return ViewResult{Decision: DecisionRefreshed, Payload: fresh}, nil
	}

	// The lock stays held: the nudged runner owns the attempt now, and the
	// TTL self-heals if it never picks the work up.
	s.cron.Ping(ctx)
	return ViewResult{Decision: DecisionPinged, Payload: payload}, nil
}

// RunScheduledRefresh executes one refresh attempt and always releases the
// page's lock, success or not. The global last-processed marker is only
// advanced on success.
func (s *Service) RunScheduledRefresh(ctx context.Context, pageID int64) error {
	defer func() {
		if err := s.locks.Release(ctx, pageID); err != nil {
			s.logger.WarnContext(ctx, "lock release failed",
				"module", "application", "layer", "service", "operation", "run_refresh",
				"outcome", "degraded", "page_id", pageID, "error", err,
			)
		}
	}()

	if _, err := s.processPageAs(ctx, pageID, domain.SourceBackground); err != nil {
		return err
	}
	if err := s.settings.SetLastProcessedAt(ctx, s.nowFn()); err != nil {
		s.logger.WarnContext(ctx, "last-processed marker update failed",
			"module", "application", "layer", "service", "operation", "run_refresh",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}
	return nil
}
