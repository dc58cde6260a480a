package application

import (
	"context"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// GetPagePayload resolves a page's payload through the fallback chain:
// volatile store, optimized read cache, durable row. Staleness is the
// caller's concern; a stale hit is still a hit. Both fallback paths
// backfill the volatile store so it self-heals after a flush.
func (s *Service) GetPagePayload(ctx context.Context, pageID int64) (*domain.Payload, error) {
	cached, err := s.payloads.Get(ctx, pageID)
	if err != nil {
		s.logger.WarnContext(ctx, "payload cache read failed, falling through",
			"module", "application", "layer", "service", "operation", "get_payload",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	} else if cached != nil {
		return cached, nil
	}

	value, found, err := s.emissionsRead.Get(ctx, pageID)
	if err == nil && found {
		payload := s.synthesizePayload(ctx, pageID, value)
		if setErr := s.payloads.Set(ctx, pageID, payload); setErr != nil {
			s.logger.WarnContext(ctx, "payload backfill failed",
				"module", "application", "layer", "service", "operation", "get_payload",
				"outcome", "degraded", "page_id", pageID, "error", setErr,
			)
		}
		return &payload, nil
	}

	record, err := s.emissions.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	payload := domain.Payload{
		Emissions: &record.Emissions,
		PageSize:  record.PageSize,
		UpdatedAt: record.LastUpdated.Unix(),
		Source:    domain.SourceMeta,
		Stale:     false,
	}
	if setErr := s.payloads.Set(ctx, pageID, payload); setErr != nil {
		s.logger.WarnContext(ctx, "payload backfill failed",
			"module", "application", "layer", "service", "operation", "get_payload",
			"outcome", "degraded", "page_id", pageID, "error", setErr,
		)
	}
	return &payload, nil
}

// synthesizePayload builds a payload around an optimized-cache hit. The
// timestamp comes from the durable row when one exists, defaulting to now
// so a value without provenance is treated as just measured rather than
// instantly stale.
func (s *Service) synthesizePayload(ctx context.Context, pageID int64, emissions float64) domain.Payload {
	payload := domain.Payload{
		Emissions: &emissions,
		UpdatedAt: s.nowFn().Unix(),
		Source:    domain.SourceMeta,
		Stale:     false,
	}
	if record, err := s.emissions.Get(ctx, pageID); err == nil && record != nil {
		payload.UpdatedAt = record.LastUpdated.Unix()
		payload.PageSize = record.PageSize
	}
	return payload
}
