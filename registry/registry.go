package registry

import (
	"sync"
	"time"

	"github.com/dataspine/metrics-monitoring/metrics"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("registry")

// SeriesRegistry keeps the reconciliation state of every observed series.
// Each entry is an immutable *metrics.MetricData replaced as a whole on every
// poll cycle, so readers never see a torn mix of previous/current/lastUpdate.
type SeriesRegistry struct {
	mut    sync.RWMutex
	series map[string]*metrics.MetricData
}

// NewSeriesRegistry creates an empty series registry
func NewSeriesRegistry() *SeriesRegistry {
	return &SeriesRegistry{
		series: make(map[string]*metrics.MetricData),
	}
}

// Record installs the polled sample as the new current value of the series,
// shifting the old current into previous. First observation creates the series.
func (r *SeriesRegistry) Record(meta metrics.Metadata, sample metrics.Sample, at time.Time) {
	key := meta.SeriesKey()

	r.mut.Lock()
	defer r.mut.Unlock()

	old, found := r.series[key]
	if !found {
		log.Debug("discovered new series", "key", key)
		r.series[key] = &metrics.MetricData{
			Metadata:   meta,
			Current:    &sample,
			LastUpdate: at,
		}
		return
	}

	r.series[key] = &metrics.MetricData{
		Metadata:   old.Metadata,
		Previous:   old.Current,
		Current:    &sample,
		LastUpdate: at,
	}
}

// MarkMissed records that a poll cycle completed without a sample for the
// series. The old current shifts to previous, current becomes absent and the
// last update time is kept so staleness keeps accruing.
func (r *SeriesRegistry) MarkMissed(key string) {
	r.mut.Lock()
	defer r.mut.Unlock()

	old, found := r.series[key]
	if !found {
		return
	}

	r.series[key] = &metrics.MetricData{
		Metadata:   old.Metadata,
		Previous:   old.Current,
		Current:    nil,
		LastUpdate: old.LastUpdate,
	}
}

// Resolve applies the reconciliation policy to one series as of the provided
// instant. The second return is false when the series is unknown.
func (r *SeriesRegistry) Resolve(key string, asOf time.Time) (metrics.Sample, bool) {
	r.mut.RLock()
	data, found := r.series[key]
	r.mut.RUnlock()

	if !found {
		return metrics.Sample{}, false
	}

	return metrics.Resolve(*data, asOf), true
}

// ResolveAll reconciles every known series as of the provided instant
func (r *SeriesRegistry) ResolveAll(asOf time.Time) map[string]metrics.ResolvedSeries {
	r.mut.RLock()
	snapshot := make([]*metrics.MetricData, 0, len(r.series))
	for _, data := range r.series {
		snapshot = append(snapshot, data)
	}
	r.mut.RUnlock()

	results := make(map[string]metrics.ResolvedSeries, len(snapshot))
	for _, data := range snapshot {
		results[data.Metadata.SeriesKey()] = metrics.ResolvedSeries{
			Metadata: data.Metadata,
			Value:    metrics.Resolve(*data, asOf),
		}
	}

	return results
}

// KeysForNamespace returns the keys of all series belonging to a namespace
func (r *SeriesRegistry) KeysForNamespace(namespace string) []string {
	r.mut.RLock()
	defer r.mut.RUnlock()

	keys := make([]string, 0)
	for key, data := range r.series {
		if data.Metadata.Category.Namespace == namespace {
			keys = append(keys, key)
		}
	}

	return keys
}

// Remove drops a series from the registry
func (r *SeriesRegistry) Remove(key string) {
	r.mut.Lock()
	defer r.mut.Unlock()

	delete(r.series, key)
}

// Len returns the number of tracked series
func (r *SeriesRegistry) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()

	return len(r.series)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *SeriesRegistry) IsInterfaceNil() bool {
	return r == nil
}
