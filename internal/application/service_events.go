package application

import (
	"context"
	"fmt"

	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// HandleContentEvent reacts to a content save or status transition: the
// page's payload is flagged stale (timestamp preserved), the optimized read
// key is dropped and the site-wide views are invalidated. No re-measurement
// happens here; the next qualifying page view decides that.
func (s *Service) HandleContentEvent(ctx context.Context, event contracts.ContentEvent) error {
	if event.Autosave || event.Revision || !event.Public {
		return nil
	}
	if event.PageID <= 0 {
		return fmt.Errorf("%w: content event without page id", domain.ErrInvalidInput)
	}

	if err := s.payloads.MarkStale(ctx, event.PageID); err != nil {
		return err
	}
	if err := s.emissionsRead.Delete(ctx, event.PageID); err != nil {
		return err
	}
	if err := s.siteCache.ClearAll(ctx); err != nil {
		return err
	}
	if err := s.settings.ClearStatsMirror(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "content change invalidated caches",
		"module", "application", "layer", "service", "operation", "handle_content_event",
		"outcome", "success", "page_id", event.PageID, "event_type", event.EventType,
	)
	return nil
}
