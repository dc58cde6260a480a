package carbonapi

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// SyntheticClient returns randomized measurements without touching the
// network. It exists only so local development works offline and must never
// be wired in production runtimes.
type SyntheticClient struct {
	logger *slog.Logger
}

func NewSyntheticClient(logger *slog.Logger) *SyntheticClient {
	return &SyntheticClient{logger: logger}
}

func (c *SyntheticClient) Measure(ctx context.Context, targetURL string, pageID int64) (*domain.Measurement, error) {
	c.logger.WarnContext(ctx, "serving synthetic measurement (local environment)",
		"module", "carbonapi", "layer", "adapter", "operation", "measure", "outcome", "success",
		"page_id", pageID, "target", targetURL,
	)
	size := int64(200_000 + rand.Intn(2_000_000))
	return &domain.Measurement{
		Emissions: 0.1 + rand.Float64()*2.9,
		PageSize:  &size,
		GreenHost: rand.Intn(2) == 1,
		Resources: map[string]float64{
			"document": float64(10_000 + rand.Intn(90_000)),
			"script":   float64(50_000 + rand.Intn(500_000)),
			"image":    float64(100_000 + rand.Intn(1_000_000)),
		},
		MeasuredAt: time.Now().UTC(),
	}, nil
}
