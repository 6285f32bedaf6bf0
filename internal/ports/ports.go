package ports

import (
	"context"
	"time"

	"ProviderDirectory/internal/domain"
)

// RegistrySource pulls raw records from the upstream provider registry
// for one seed locality. Fetch failures collapse to an empty slice;
// the source never surfaces an error to the pipeline.
type RegistrySource interface {
	FetchSeed(ctx context.Context, city string) []domain.RawRecord
}

// Geocoder resolves free-text addresses to coordinates through the
// persistent cache, spending the per-run budget on cache misses. A nil
// result means the address could not be resolved this run.
type Geocoder interface {
	Geocode(ctx context.Context, address string, budget *domain.GeocodeBudget) *domain.Coordinate
	HomeCoordinate(ctx context.Context, budget *domain.GeocodeBudget) domain.Coordinate
}

// SnapshotStore persists the last successfully produced payload and
// supplies it back on stale runs. Load returns (nil, nil) when no
// snapshot exists yet.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Payload, error)
	Save(ctx context.Context, payload domain.Payload) error
}

// RunRepository records one summary row per build run for history.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
}

// Renderer writes the payload into the HTML artifact.
type Renderer interface {
	Render(ctx context.Context, payload domain.Payload) error
}

// Notifier publishes a short run summary to an ops channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when builds execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
