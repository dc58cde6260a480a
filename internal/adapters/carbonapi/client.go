// Package carbonapi talks to the external carbon-measurement service.
package carbonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// Config carries the request parameters the measurement service expects
// alongside the target URL.
type Config struct {
	BaseURL        string
	SiteURL        string
	ServiceVersion string
	Timeout        time.Duration
}

// Client issues measurement calls over HTTP. All failure reasons (transport,
// status, body, parse, missing field) are logged distinctly but collapse to
// domain.ErrMeasurementFailed for the caller.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// apiResponse mirrors the measurement service's JSON schema. Only
// emissions.emissionsPerVisit is required.
type apiResponse struct {
	Emissions struct {
		EmissionsPerVisit *float64 `json:"emissionsPerVisit"`
		IsGreenHost       bool     `json:"isGreenHost"`
	} `json:"emissions"`
	Metrics struct {
		TotalByteWeight struct {
			NumericValue *float64 `json:"numericValue"`
		} `json:"totalByteWeight"`
	} `json:"metrics"`
	ResourceData map[string]json.RawMessage `json:"resourceData"`
}

func (c *Client) Measure(ctx context.Context, targetURL string, pageID int64) (*domain.Measurement, error) {
	now := c.nowFn()
	params := url.Values{}
	params.Set("target", targetURL)
	params.Set("post_id", strconv.FormatInt(pageID, 10))
	params.Set("site_url", c.cfg.SiteURL)
	params.Set("plugin_version", c.cfg.ServiceVersion)
	params.Set("ts", strconv.FormatInt(now.Unix(), 10))
	requestURL := c.cfg.BaseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrMeasurementFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "measurement transport failure",
			"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "failure",
			"page_id", pageID, "target", targetURL, "error", err,
		)
		return nil, fmt.Errorf("%w: transport: %v", domain.ErrMeasurementFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "measurement returned non-200 status",
			"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "failure",
			"page_id", pageID, "target", targetURL, "status", resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: status %d", domain.ErrMeasurementFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrMeasurementFailed, err)
	}
	if len(body) == 0 {
		c.logger.ErrorContext(ctx, "measurement returned empty body",
			"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "failure",
			"page_id", pageID, "target", targetURL,
		)
		return nil, fmt.Errorf("%w: empty body", domain.ErrMeasurementFailed)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.ErrorContext(ctx, "measurement returned invalid json",
			"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "failure",
			"page_id", pageID, "target", targetURL, "error", err,
		)
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrMeasurementFailed, err)
	}
	if parsed.Emissions.EmissionsPerVisit == nil {
		c.logger.ErrorContext(ctx, "measurement response missing emissionsPerVisit",
			"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "failure",
			"page_id", pageID, "target", targetURL,
		)
		return nil, fmt.Errorf("%w: missing emissionsPerVisit", domain.ErrMeasurementFailed)
	}

	out := &domain.Measurement{
		Emissions:  *parsed.Emissions.EmissionsPerVisit,
		GreenHost:  parsed.Emissions.IsGreenHost,
		Resources:  normalizeResources(parsed.ResourceData),
		MeasuredAt: now,
	}
	if parsed.Metrics.TotalByteWeight.NumericValue != nil {
		size := int64(*parsed.Metrics.TotalByteWeight.NumericValue)
		out.PageSize = &size
	}
	return out, nil
}

// normalizeResources flattens the opaque resourceData breakdown into bytes
// by resource type. Entries may be bare numbers or {transferSize: n}.
func normalizeResources(raw map[string]json.RawMessage) map[string]float64 {
	out := map[string]float64{}
	for kind, value := range raw {
		var number float64
		if err := json.Unmarshal(value, &number); err == nil {
			out[kind] = number
			continue
		}
		var nested struct {
			TransferSize float64 `json:"transferSize"`
		}
		if err := json.Unmarshal(value, &nested); err == nil {
			out[kind] = nested.TransferSize
		}
	}
	return out
}
