package ports

import (
	"context"

	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

// MeasurementClient performs the external carbon-measurement call.
// Every failure reason collapses to a single error; details live in logs.
type MeasurementClient interface {
	Measure(ctx context.Context, targetURL string, pageID int64) (*domain.Measurement, error)
}
