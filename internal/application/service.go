// Package application orchestrates the emissions measurement flow: the
// layered payload cache, the staleness policy, the background refresh
// scheduling and the site-wide aggregates.
package application

import (
	"log/slog"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

type Service struct {
	cfg           Config
	logger        *slog.Logger
	payloads      ports.PayloadStore
	emissionsRead ports.EmissionsReadCache
	siteCache     ports.SiteCache
	locks         ports.RefreshLockStore
	queue         ports.RefreshQueue
	cron          ports.CronPinger
	content       ports.ContentRepository
	emissions     ports.EmissionsRepository
	settings      ports.SettingsStore
	measurement   ports.MeasurementClient
	events        ports.EventPublisher
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Logger        *slog.Logger
	Payloads      ports.PayloadStore
	EmissionsRead ports.EmissionsReadCache
	SiteCache     ports.SiteCache
	Locks         ports.RefreshLockStore
	Queue         ports.RefreshQueue
	Cron          ports.CronPinger
	Content       ports.ContentRepository
	Emissions     ports.EmissionsRepository
	Settings      ports.SettingsStore
	Measurement   ports.MeasurementClient
	// Events is optional; a nil publisher disables domain event emission.
	Events ports.EventPublisher
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           deps.Config.withDefaults(),
		logger:        logger,
		payloads:      deps.Payloads,
		emissionsRead: deps.EmissionsRead,
		siteCache:     deps.SiteCache,
		locks:         deps.Locks,
		queue:         deps.Queue,
		cron:          deps.Cron,
		content:       deps.Content,
		emissions:     deps.Emissions,
		settings:      deps.Settings,
		measurement:   deps.Measurement,
		events:        deps.Events,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
