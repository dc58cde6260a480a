package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

const (
	settingCollectionEnabled = "carbonfooter_collection_enabled"
	settingGreenHost         = "carbonfooter_green_host"
	settingLastProcessedAt   = "carbonfooter_last_processed_at"
	settingStatsMirror       = "carbonfooter_stats_mirror"
)

// SettingsRepository is the durable site-wide key-value settings store.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) get(ctx context.Context, key string) (string, bool, error) {
	var model settingModel
	err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, true, nil
}

func (r *SettingsRepository) set(ctx context.Context, key, value string) error {
	model := settingModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&model).Error
}

func (r *SettingsRepository) delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&settingModel{}).Error
}

// CollectionEnabled defaults to true when the setting was never written.
func (r *SettingsRepository) CollectionEnabled(ctx context.Context) (bool, error) {
	value, found, err := r.get(ctx, settingCollectionEnabled)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return value == "1" || value == "true", nil
}

func (r *SettingsRepository) GreenHost(ctx context.Context) (bool, error) {
	value, _, err := r.get(ctx, settingGreenHost)
	if err != nil {
		return false, err
	}
	return value == "1" || value == "true", nil
}

func (r *SettingsRepository) SetGreenHost(ctx context.Context, green bool) error {
	value := "0"
	if green {
		value = "1"
	}
	return r.set(ctx, settingGreenHost, value)
}

func (r *SettingsRepository) LastProcessedAt(ctx context.Context) (time.Time, error) {
	value, found, err := r.get(ctx, settingLastProcessedAt)
	if err != nil || !found {
		return time.Time{}, err
	}
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.Unix(unix, 0).UTC(), nil
}

func (r *SettingsRepository) SetLastProcessedAt(ctx context.Context, at time.Time) error {
	return r.set(ctx, settingLastProcessedAt, strconv.FormatInt(at.Unix(), 10))
}

// statsMirrorEnvelope carries its own expiry so the mirror behaves as a
// longer-lived cache tier, not a source of truth.
type statsMirrorEnvelope struct {
	Stats     domain.SiteStats `json:"stats"`
	ExpiresAt int64            `json:"expires_at"`
}

func (r *SettingsRepository) StatsMirror(ctx context.Context) (*domain.SiteStats, error) {
	value, found, err := r.get(ctx, settingStatsMirror)
	if err != nil || !found {
		return nil, err
	}
	var envelope statsMirrorEnvelope
	if err := json.Unmarshal([]byte(value), &envelope); err != nil {
		return nil, nil
	}
	if envelope.ExpiresAt <= time.Now().Unix() {
		return nil, nil
	}
	stats := envelope.Stats
	return &stats, nil
}

func (r *SettingsRepository) SetStatsMirror(ctx context.Context, stats domain.SiteStats, ttl time.Duration) error {
	raw, err := json.Marshal(statsMirrorEnvelope{Stats: stats, ExpiresAt: time.Now().Add(ttl).Unix()})
	if err != nil {
		return err
	}
	return r.set(ctx, settingStatsMirror, string(raw))
}

func (r *SettingsRepository) ClearStatsMirror(ctx context.Context) error {
	return r.delete(ctx, settingStatsMirror)
}
