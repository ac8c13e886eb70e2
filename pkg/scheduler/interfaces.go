package scheduler

//go:generate mockgen -destination=mock_scheduler.go -package=scheduler github.com/routerwatch/routerwatch/pkg/scheduler Clock,Ticker

import (
	"context"
	"time"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Collector is the per-device work the loops dispatch.
type Collector interface {
	Collect(ctx context.Context, device *models.Device) (*models.DeviceSnapshot, error)
	CollectNeighbors(ctx context.Context, device *models.Device) ([]*models.Neighbor, error)
	Identify(ctx context.Context, device *models.Device) error
}

// Sweeper probes a subnet for unregistered devices.
type Sweeper interface {
	Sweep(ctx context.Context, subnet string) ([]*models.Device, error)
}

// Sink receives successful collection snapshots for fan-out.
type Sink interface {
	Publish(topic string, payload any)
}
