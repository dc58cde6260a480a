package application

import (
	"context"
	"fmt"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// GetSiteStats serves the site-wide aggregate through both cache tiers,
// recomputing from durable rows only on a full miss and writing the result
// back to both tiers.
func (s *Service) GetSiteStats(ctx context.Context) (*domain.SiteStats, error) {
	if cached, err := s.siteCache.Stats(ctx); err == nil && cached != nil {
		return cached, nil
	}
	if mirror, err := s.settings.StatsMirror(ctx); err == nil && mirror != nil {
		if setErr := s.siteCache.SetStats(ctx, *mirror, s.cfg.StatsCacheTTL); setErr != nil {
			s.logger.WarnContext(ctx, "stats cache backfill failed",
				"module", "application", "layer", "service", "operation", "get_site_stats",
				"outcome", "degraded", "error", setErr,
			)
		}
		return mirror, nil
	}

	stats, err := s.emissions.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	green, err := s.settings.GreenHost(ctx)
	if err != nil {
		return nil, err
	}
	stats.GreenHost = green

	if err := s.siteCache.SetStats(ctx, *stats, s.cfg.StatsCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "stats cache write failed",
			"module", "application", "layer", "service", "operation", "get_site_stats",
			"outcome", "degraded", "error", err,
		)
	}
	if err := s.settings.SetStatsMirror(ctx, *stats, s.cfg.StatsMirrorTTL); err != nil {
		s.logger.WarnContext(ctx, "stats mirror write failed",
			"module", "application", "layer", "service", "operation", "get_site_stats",
			"outcome", "degraded", "error", err,
		)
	}
	return stats, nil
}

// heaviestLimits are the only listing sizes served and cached.
var heaviestLimits = map[int]bool{10: true, 20: true, 50: true}

// HeaviestPages serves the heaviest-pages listing at one of the known sizes.
func (s *Service) HeaviestPages(ctx context.Context, limit int) ([]domain.PageWeight, error) {
	if !heaviestLimits[limit] {
		return nil, fmt.Errorf("%w: unsupported listing size %d", domain.ErrInvalidInput, limit)
	}
	if rows, found, err := s.siteCache.Heaviest(ctx, limit); err == nil && found {
		return rows, nil
	}
	rows, err := s.emissions.Heaviest(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.siteCache.SetHeaviest(ctx, limit, rows, s.cfg.ListingCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "heaviest listing cache write failed",
			"module", "application", "layer", "service", "operation", "heaviest_pages",
			"outcome", "degraded", "limit", limit, "error", err,
		)
	}
	return rows, nil
}

// UntestedPages lists published pages without any emissions row.
func (s *Service) UntestedPages(ctx context.Context) ([]domain.Page, error) {
	if pages, found, err := s.siteCache.Untested(ctx); err == nil && found {
		return pages, nil
	}
	pages, err := s.emissions.Untested(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.siteCache.SetUntested(ctx, pages, s.cfg.ListingCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "untested listing cache write failed",
			"module", "application", "layer", "service", "operation", "untested_pages",
			"outcome", "degraded", "error", err,
		)
	}
	return pages, nil
}
