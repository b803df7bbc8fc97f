package api

import (
	"context"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/metrics"
)

// Storage defines the interface for persisting and querying datapoint history
type Storage interface {
	// SaveDatapoint upserts the series identity and appends the reconciled value
	SaveDatapoint(ctx context.Context, key string, namespace string, name string, tags string, value float64, recordedAt int64) error

	// GetLatestDatapoints returns the single latest stored value for every known series
	GetLatestDatapoints(ctx context.Context) ([]common.DatapointHistory, error)

	// GetSeriesHistory returns the series identity and all retained values
	GetSeriesHistory(ctx context.Context, key string) (*common.DatapointHistory, error)

	// DeleteSeries removes a series and all associated datapoints
	DeleteSeries(ctx context.Context, key string) error

	// Close shuts down the database connection
	Close() error

	IsInterfaceNil() bool
}

// Resolver defines the read side of the series registry
type Resolver interface {
	// ResolveAll reconciles every known series as of the provided instant
	ResolveAll(asOf time.Time) map[string]metrics.ResolvedSeries

	// Len returns the number of tracked series
	Len() int

	IsInterfaceNil() bool
}
