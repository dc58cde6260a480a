package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID      string
	ServiceVersion string
	Environment    string

	HTTPPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns int32

	KafkaConsumerGroup        string
	KafkaTopicContentSaved    string
	KafkaTopicStatusChanged   string
	KafkaTopicMeasurementDone string
	ConsumerPollInterval      time.Duration

	CarbonAPIBaseURL string
	SiteURL          string

	RefreshInterval  time.Duration
	RefreshBatchSize int

	CronDisabled     bool
	CronURL          string
	CronPingTimeout  time.Duration
	CronPingInsecure bool

	RefreshLockTTL  time.Duration
	StatsCacheTTL   time.Duration
	StatsMirrorTTL  time.Duration
	ListingCacheTTL time.Duration

	JWTKeyID          string
	JWTPublicKeyPEM   string
	AllowEphemeralJWT bool
}

type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Version     string `yaml:"version"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		CarbonAPIBaseURL   string   `yaml:"carbon_api_base_url"`
		SiteURL            string   `yaml:"site_url"`
		CronURL            string   `yaml:"cron_url"`
	} `yaml:"dependencies"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "carbonfooter-service",
		ServiceVersion:            "1.0.0",
		Environment:               "local",
		HTTPPort:                  8080,
		MaxDBConns:                20,
		KafkaConsumerGroup:        "carbonfooter-service",
		KafkaTopicContentSaved:    "content.saved",
		KafkaTopicStatusChanged:   "content.status_changed",
		KafkaTopicMeasurementDone: "emissions.measurement.completed",
		ConsumerPollInterval:      2 * time.Second,
		CarbonAPIBaseURL:          "https://api.websitecarbon.com",
		RefreshInterval:           5 * time.Second,
		RefreshBatchSize:          20,
		CronPingTimeout:           10 * time.Millisecond,
		RefreshLockTTL:            5 * time.Minute,
		StatsCacheTTL:             time.Hour,
		StatsMirrorTTL:            12 * time.Hour,
		ListingCacheTTL:           time.Hour,
		JWTKeyID:                  "carbonfooter-dev",
		AllowEphemeralJWT:         true,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.Version != "" {
			cfg.ServiceVersion = f.Service.Version
		}
		if f.Service.Environment != "" {
			cfg.Environment = f.Service.Environment
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.CarbonAPIBaseURL != "" {
			cfg.CarbonAPIBaseURL = f.Dependencies.CarbonAPIBaseURL
		}
		if f.Dependencies.SiteURL != "" {
			cfg.SiteURL = f.Dependencies.SiteURL
		}
		if f.Dependencies.CronURL != "" {
			cfg.CronURL = f.Dependencies.CronURL
		}
	}

	cfg.ServiceVersion = envOrDefault("SERVICE_VERSION", cfg.ServiceVersion)
	cfg.Environment = envOrDefault("ENVIRONMENT", cfg.Environment)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicContentSaved = envOrDefault("KAFKA_TOPIC_CONTENT_SAVED", cfg.KafkaTopicContentSaved)
	cfg.KafkaTopicStatusChanged = envOrDefault("KAFKA_TOPIC_STATUS_CHANGED", cfg.KafkaTopicStatusChanged)
	cfg.KafkaTopicMeasurementDone = envOrDefault("KAFKA_TOPIC_MEASUREMENT_COMPLETED", cfg.KafkaTopicMeasurementDone)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.CarbonAPIBaseURL = envOrDefault("CARBON_API_BASE_URL", cfg.CarbonAPIBaseURL)
	cfg.SiteURL = envOrDefault("SITE_URL", cfg.SiteURL)
	cfg.RefreshInterval = time.Duration(envInt("REFRESH_INTERVAL_SECONDS", int(cfg.RefreshInterval.Seconds()))) * time.Second
	cfg.RefreshBatchSize = envInt("REFRESH_BATCH_SIZE", cfg.RefreshBatchSize)
	cfg.CronDisabled = envBool("CRON_DISABLED", cfg.CronDisabled)
	cfg.CronURL = envOrDefault("CRON_URL", cfg.CronURL)
	cfg.CronPingTimeout = time.Duration(envInt("CRON_PING_TIMEOUT_MS", int(cfg.CronPingTimeout.Milliseconds()))) * time.Millisecond
	cfg.CronPingInsecure = envBool("CRON_PING_INSECURE", cfg.CronPingInsecure)
	cfg.RefreshLockTTL = time.Duration(envInt("REFRESH_LOCK_TTL_SECONDS", int(cfg.RefreshLockTTL.Seconds()))) * time.Second
	cfg.StatsCacheTTL = time.Duration(envInt("STATS_CACHE_SECONDS", int(cfg.StatsCacheTTL.Seconds()))) * time.Second
	cfg.StatsMirrorTTL = time.Duration(envInt("STATS_MIRROR_SECONDS", int(cfg.StatsMirrorTTL.Seconds()))) * time.Second
	cfg.ListingCacheTTL = time.Duration(envInt("LISTING_CACHE_SECONDS", int(cfg.ListingCacheTTL.Seconds()))) * time.Second
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.AllowEphemeralJWT = envBool("ALLOW_EPHEMERAL_JWT", cfg.AllowEphemeralJWT)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.SiteURL == "" {
		return Config{}, fmt.Errorf("missing SITE_URL")
	}
	if cfg.JWTPublicKeyPEM == "" && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PUBLIC_KEY_PEM")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
