package application

import (
	"context"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// ClearAllData removes every durable emissions row, flushes both cache
// tiers and resets the green-host flag. Returns the number of deleted rows
// for user-facing confirmation. Safe to invoke repeatedly.
func (s *Service) ClearAllData(ctx context.Context) (int64, error) {
	deleted, err := s.emissions.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.payloads.FlushAll(ctx); err != nil {
		return deleted, err
	}
	if err := s.siteCache.ClearAll(ctx); err != nil {
		return deleted, err
	}
	if err := s.settings.ClearStatsMirror(ctx); err != nil {
		return deleted, err
	}
	if err := s.settings.SetGreenHost(ctx, false); err != nil {
		return deleted, err
	}
	s.logger.InfoContext(ctx, "all emissions data cleared",
		"module", "application", "layer", "service", "operation", "clear_all",
		"outcome", "success", "deleted_entries", deleted,
	)
	return deleted, nil
}

// ExportData serializes every measured page with its capped history.
func (s *Service) ExportData(ctx context.Context) ([]domain.ExportEntry, error) {
	return s.emissions.Export(ctx)
}
