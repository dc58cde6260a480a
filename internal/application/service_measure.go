package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

const historyDateLayout = "2006-01-02 15:04:05"

// ProcessPage runs one full measurement for a page: feature-flag check, URL
// resolution, the external call, durable persistence, cache writes and
// dependent-cache invalidation. Returns the measured emissions value.
func (s *Service) ProcessPage(ctx context.Context, pageID int64) (float64, error) {
	return s.processPageAs(ctx, pageID, domain.SourceAPI)
}

func (s *Service) processPageAs(ctx context.Context, pageID int64, source domain.Source) (float64, error) {
	enabled, err := s.settings.CollectionEnabled(ctx)
	if err != nil {
		return 0, err
	}
	if !enabled {
		return 0, domain.ErrCollectionDisabled
	}

	permalink, err := s.content.PermalinkByID(ctx, pageID)
	if err != nil {
		s.logger.WarnContext(ctx, "page url resolution failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "failure", "page_id", pageID, "error", err,
		)
		return 0, err
	}
	target := forceHTTPS(permalink)

	measurement, err := s.measurement.Measure(ctx, target, pageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "measurement failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "failure", "page_id", pageID, "target", target, "error", err,
		)
		return 0, err
	}

	now := s.nowFn()
	record, err := s.emissions.Get(ctx, pageID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		record = &domain.PageEmissions{PageID: pageID}
	}
	record.Emissions = measurement.Emissions
	record.PageSize = measurement.PageSize
	record.Resources = measurement.Resources
	record.LastUpdated = now
	record.AppendHistory(domain.HistoryEntry{Date: now.Format(historyDateLayout), Value: measurement.Emissions})
	if err := s.emissions.Save(ctx, *record); err != nil {
		return 0, fmt.Errorf("persist measurement for page %d: %w", pageID, err)
	}

	if err := s.settings.SetGreenHost(ctx, measurement.GreenHost); err != nil {
		return 0, err
	}

	payload := domain.Payload{
		Emissions: &measurement.Emissions,
		PageSize:  measurement.PageSize,
		UpdatedAt: now.Unix(),
		Source:    source,
		Stale:     false,
	}
	if err := s.payloads.Set(ctx, pageID, payload); err != nil {
		s.logger.WarnContext(ctx, "payload cache write failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}
	if err := s.emissionsRead.Set(ctx, pageID, measurement.Emissions); err != nil {
		s.logger.WarnContext(ctx, "optimized read cache write failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}

	// Derived views are stale now; drop both tiers and rewarm eagerly so
	// the next dashboard read stays cheap.
	if err := s.siteCache.ClearAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "site cache invalidation failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}
	if err := s.settings.ClearStatsMirror(ctx); err != nil {
		s.logger.WarnContext(ctx, "stats mirror invalidation failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}
	if _, err := s.GetSiteStats(ctx); err != nil {
		s.logger.WarnContext(ctx, "stats rewarm failed",
			"module", "application", "layer", "service", "operation", "process_page",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}

	s.publishMeasurementCompleted(ctx, pageID, measurement.Emissions, measurement.GreenHost, source)

	s.logger.InfoContext(ctx, "page measured",
		"module", "application", "layer", "service", "operation", "process_page",
		"outcome", "success", "page_id", pageID, "emissions", measurement.Emissions,
		"green_host", measurement.GreenHost, "source", string(source),
	)
	return measurement.Emissions, nil
}

func (s *Service) publishMeasurementCompleted(ctx context.Context, pageID int64, emissions float64, greenHost bool, source domain.Source) {
	if s.events == nil {
		return
	}
	event := contracts.MeasurementCompletedEvent{
		PageID:     pageID,
		Emissions:  emissions,
		GreenHost:  greenHost,
		Source:     string(source),
		MeasuredAt: s.nowFn().Format("2006-01-02T15:04:05Z07:00"),
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, contracts.EventMeasurementCompleted, raw, fmt.Sprintf("%d", pageID)); err != nil {
		s.logger.WarnContext(ctx, "measurement event publish failed",
			"module", "application", "layer", "service", "operation", "publish_event",
			"outcome", "degraded", "page_id", pageID, "error", err,
		)
	}
}

// forceHTTPS rewrites the permalink to the secure scheme; the measurement
// service only scores public HTTPS URLs.
func forceHTTPS(permalink string) string {
	if strings.HasPrefix(permalink, "http://") {
		return "https://" + strings.TrimPrefix(permalink, "http://")
	}
	return permalink
}
