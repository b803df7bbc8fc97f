package engine

import (
	"context"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/metrics"
)

// Poller defines the interface for fetching raw samples from a telemetry source
type Poller interface {
	// Poll queries the category's source once per configured metric. Metrics that
	// fail to fetch are omitted from the returned slice.
	Poll(ctx context.Context, category metrics.Category) []common.PolledSample

	IsInterfaceNil() bool
}

// Registry defines the per-series reconciliation state holder
type Registry interface {
	Record(meta metrics.Metadata, sample metrics.Sample, at time.Time)
	MarkMissed(key string)
	Resolve(key string, asOf time.Time) (metrics.Sample, bool)
	ResolveAll(asOf time.Time) map[string]metrics.ResolvedSeries
	KeysForNamespace(namespace string) []string
	IsInterfaceNil() bool
}

// Store defines the interface for persisting reconciled datapoints
type Store interface {
	SaveDatapoint(ctx context.Context, key string, namespace string, name string, tags string, value float64, recordedAt int64) error
	IsInterfaceNil() bool
}
