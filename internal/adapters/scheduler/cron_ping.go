package scheduler

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// PingConfig tunes the degraded-mode cron nudge.
type PingConfig struct {
	CronURL string
	// Timeout defaults to 10ms: the ping must never meaningfully delay the
	// triggering page view.
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// HTTPCronPinger sends a fire-and-forget wake-up to the host's scheduled
// task runner. The contract is send-and-ignore: the near-certain timeout
// error is expected and dropped, and there is no retry.
type HTTPCronPinger struct {
	cfg    PingConfig
	client *http.Client
	logger *slog.Logger
}

func NewHTTPCronPinger(cfg PingConfig, logger *slog.Logger) *HTTPCronPinger {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Millisecond
	}
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &HTTPCronPinger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger: logger,
	}
}

func (p *HTTPCronPinger) Ping(ctx context.Context) {
	if p.cfg.CronURL == "" {
		return
	}
	// Cache-busting parameter so intermediaries never serve a stale hit.
	pingURL := p.cfg.CronURL + "?carbonfooter_nudge=" + strconv.FormatInt(time.Now().UnixNano(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		// Timeouts are the normal case with a 10ms budget.
		p.logger.DebugContext(ctx, "cron ping returned early",
			"module", "scheduler.cron_ping", "layer", "adapter",
			"operation", "ping", "outcome", "ignored", "error", err,
		)
		return
	}
	_ = resp.Body.Close()
}
