package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// ContentRepository reads the pages table.
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) PageByID(ctx context.Context, pageID int64) (*domain.Page, error) {
	var model pageModel
	err := r.db.WithContext(ctx).First(&model, "page_id = ?", pageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: page %d", domain.ErrNotFound, pageID)
		}
		return nil, err
	}
	page := toDomainPage(model)
	return &page, nil
}

func (r *ContentRepository) PermalinkByID(ctx context.Context, pageID int64) (string, error) {
	page, err := r.PageByID(ctx, pageID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(page.Permalink) == "" {
		return "", fmt.Errorf("%w: page %d", domain.ErrNoResolvableURL, pageID)
	}
	return page.Permalink, nil
}

func (r *ContentRepository) ListPublished(ctx context.Context) ([]domain.Page, error) {
	var models []pageModel
	err := r.db.WithContext(ctx).
		Where("status = ?", "publish").
		Order("page_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Page, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainPage(m))
	}
	return out, nil
}

func toDomainPage(m pageModel) domain.Page {
	return domain.Page{
		PageID:      m.PageID,
		Title:       m.Title,
		Permalink:   m.Permalink,
		ContentType: m.ContentType,
		Status:      m.Status,
		UpdatedAt:   m.UpdatedAt,
	}
}
