package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/cache"
	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/carbonapi"
	eventadapter "github.com/pixeltoplanet/carbonfooter-service/internal/adapters/events"
	httpadapter "github.com/pixeltoplanet/carbonfooter-service/internal/adapters/http"
	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/postgres"
	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/scheduler"
	"github.com/pixeltoplanet/carbonfooter-service/internal/adapters/security"
	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

type Runtime struct {
	cfg           Config
	logger        *slog.Logger
	httpServer    *http.Server
	refreshWorker *scheduler.RefreshWorker
	contentWorker *eventadapter.ContentWorker
	cleanupFn     func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var verifier *security.JWTVerifier
	if cfg.JWTPublicKeyPEM != "" {
		verifier, err = security.NewJWTVerifier(cfg.JWTKeyID, cfg.JWTPublicKeyPEM)
	} else {
		verifier, err = security.NewEphemeralJWTVerifier(cfg.JWTKeyID)
	}
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	var measurement ports.MeasurementClient
	if cfg.Environment == "local" {
		measurement = carbonapi.NewSyntheticClient(logger)
	} else {
		measurement = carbonapi.NewClient(carbonapi.Config{
			BaseURL:        cfg.CarbonAPIBaseURL,
			SiteURL:        cfg.SiteURL,
			ServiceVersion: cfg.ServiceVersion,
		}, logger)
	}

	publisher := ports.EventPublisher(nil)
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			contracts.EventMeasurementCompleted: cfg.KafkaTopicMeasurementDone,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}
	}

	queue := cache.NewRedisRefreshQueue(redisClient)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			CronDisabled:    cfg.CronDisabled,
			RefreshLockTTL:  cfg.RefreshLockTTL,
			StatsCacheTTL:   cfg.StatsCacheTTL,
			StatsMirrorTTL:  cfg.StatsMirrorTTL,
			ListingCacheTTL: cfg.ListingCacheTTL,
		},
		Logger:        logger,
		Payloads:      cache.NewRedisPayloadStore(redisClient),
		EmissionsRead: cache.NewRedisEmissionsReadCache(redisClient),
		SiteCache:     cache.NewRedisSiteCache(redisClient),
		Locks:         cache.NewRedisRefreshLockStore(redisClient),
		Queue:         queue,
		Cron: scheduler.NewHTTPCronPinger(scheduler.PingConfig{
			CronURL:            cfg.CronURL,
			Timeout:            cfg.CronPingTimeout,
			InsecureSkipVerify: cfg.CronPingInsecure,
		}, logger),
		Content:     postgres.NewContentRepository(db),
		Emissions:   postgres.NewEmissionsRepository(db),
		Settings:    postgres.NewSettingsRepository(db),
		Measurement: measurement,
		Events:      publisher,
	})

	handler := httpadapter.NewHandler(service)
	metrics := httpadapter.NewMetrics()
	router := httpadapter.NewRouter(handler, verifier, metrics)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	refreshWorker := scheduler.NewRefreshWorker(logger, queue, service, cfg.RefreshInterval, cfg.RefreshBatchSize)

	var contentWorker *eventadapter.ContentWorker
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.KafkaTopicContentSaved, cfg.KafkaTopicStatusChanged},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled", "error", conErr)
		} else {
			contentWorker = eventadapter.NewContentWorker(logger, kafkaConsumer, service, cfg.ConsumerPollInterval, 50)
			closers = append(closers, kafkaConsumer)
		}
	}

	return &Runtime{
		cfg:           cfg,
		logger:        logger,
		httpServer:    httpServer,
		refreshWorker: refreshWorker,
		contentWorker: contentWorker,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.refreshWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	if r.contentWorker != nil {
		go func() {
			if err := r.contentWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
