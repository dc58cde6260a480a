package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// EmissionsRepository is the durable per-page emissions store.
type EmissionsRepository struct {
	db *gorm.DB
}

func NewEmissionsRepository(db *gorm.DB) *EmissionsRepository {
	return &EmissionsRepository{db: db}
}

func (r *EmissionsRepository) Get(ctx context.Context, pageID int64) (*domain.PageEmissions, error) {
	var model pageEmissionsModel
	err := r.db.WithContext(ctx).First(&model, "page_id = ?", pageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	record, err := toDomainEmissions(model)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Save upserts the current fields. History arrives already capped by the
// domain type; the row stores it verbatim.
func (r *EmissionsRepository) Save(ctx context.Context, record domain.PageEmissions) error {
	resources, err := json.Marshal(orEmptyMap(record.Resources))
	if err != nil {
		return err
	}
	history, err := json.Marshal(orEmptyHistory(record.History))
	if err != nil {
		return err
	}
	model := pageEmissionsModel{
		PageID:      record.PageID,
		Emissions:   record.Emissions,
		PageSize:    record.PageSize,
		Resources:   string(resources),
		History:     string(history),
		LastUpdated: record.LastUpdated.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}},
		UpdateAll: true,
	}).Create(&model).Error
}

func (r *EmissionsRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&pageEmissionsModel{})
	return result.RowsAffected, result.Error
}

// Aggregate walks all rows and derives the site-wide stats. The green-host
// flag is a settings concern and stays zero here.
func (r *EmissionsRepository) Aggregate(ctx context.Context) (*domain.SiteStats, error) {
	var models []pageEmissionsModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}

	stats := domain.SiteStats{ResourceBreakdown: map[string]float64{}}
	var latest time.Time
	for _, m := range models {
		stats.MeasuredPages++
		stats.TotalEmissions += m.Emissions
		if m.LastUpdated.After(latest) {
			latest = m.LastUpdated
		}
		var resources map[string]float64
		if err := json.Unmarshal([]byte(m.Resources), &resources); err == nil {
			for kind, bytes := range resources {
				stats.ResourceBreakdown[kind] += bytes
			}
		}
	}
	if stats.MeasuredPages > 0 {
		stats.AverageEmissions = stats.TotalEmissions / float64(stats.MeasuredPages)
		stats.LastMeasuredAt = latest.Unix()
	}
	return &stats, nil
}

func (r *EmissionsRepository) Heaviest(ctx context.Context, limit int) ([]domain.PageWeight, error) {
	type row struct {
		PageID    int64
		Title     string
		Emissions float64
		PageSize  *int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("page_emissions").
		Select("page_emissions.page_id, pages.title, page_emissions.emissions, page_emissions.page_size").
		Joins("JOIN pages ON pages.page_id = page_emissions.page_id").
		Order("page_emissions.emissions DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.PageWeight, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.PageWeight{PageID: r.PageID, Title: r.Title, Emissions: r.Emissions, PageSize: r.PageSize})
	}
	return out, nil
}

func (r *EmissionsRepository) Untested(ctx context.Context) ([]domain.Page, error) {
	var models []pageModel
	err := r.db.WithContext(ctx).
		Table("pages").
		Joins("LEFT JOIN page_emissions ON page_emissions.page_id = pages.page_id").
		Where("pages.status = ? AND page_emissions.page_id IS NULL", "publish").
		Order("pages.page_id ASC").
		Scan(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Page, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainPage(m))
	}
	return out, nil
}

func (r *EmissionsRepository) Export(ctx context.Context) ([]domain.ExportEntry, error) {
	type row struct {
		PageID    int64
		Title     string
		Emissions *float64
		History   *string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("pages").
		Select("pages.page_id, pages.title, page_emissions.emissions, page_emissions.history").
		Joins("JOIN page_emissions ON page_emissions.page_id = pages.page_id").
		Order("pages.page_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExportEntry, 0, len(rows))
	for _, r := range rows {
		entry := domain.ExportEntry{ID: r.PageID, Title: r.Title, CurrentEmissions: r.Emissions, History: []domain.HistoryEntry{}}
		if r.History != nil {
			_ = json.Unmarshal([]byte(*r.History), &entry.History)
		}
		out = append(out, entry)
	}
	return out, nil
}

func toDomainEmissions(m pageEmissionsModel) (domain.PageEmissions, error) {
	record := domain.PageEmissions{
		PageID:      m.PageID,
		Emissions:   m.Emissions,
		PageSize:    m.PageSize,
		LastUpdated: m.LastUpdated,
	}
	if m.Resources != "" {
		if err := json.Unmarshal([]byte(m.Resources), &record.Resources); err != nil {
			return domain.PageEmissions{}, err
		}
	}
	if m.History != "" {
		if err := json.Unmarshal([]byte(m.History), &record.History); err != nil {
			return domain.PageEmissions{}, err
		}
	}
	return record, nil
}

func orEmptyMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return map[string]float64{}
	}
	return in
}

func orEmptyHistory(in []domain.HistoryEntry) []domain.HistoryEntry {
	if in == nil {
		return []domain.HistoryEntry{}
	}
	return in
}
