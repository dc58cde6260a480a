package postgres

import "time"

type pageModel struct {
	PageID      int64     `gorm:"column:page_id;primaryKey"`
	Title       string    `gorm:"column:title"`
	Permalink   string    `gorm:"column:permalink"`
	ContentType string    `gorm:"column:content_type"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (pageModel) TableName() string { return "pages" }

type pageEmissionsModel struct {
	PageID      int64     `gorm:"column:page_id;primaryKey"`
	Emissions   float64   `gorm:"column:emissions"`
	PageSize    *int64    `gorm:"column:page_size"`
	Resources   string    `gorm:"column:resources;type:jsonb"`
	History     string    `gorm:"column:history;type:jsonb"`
	LastUpdated time.Time `gorm:"column:last_updated"`
}

func (pageEmissionsModel) TableName() string { return "page_emissions" }

type settingModel struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (settingModel) TableName() string { return "settings" }
