package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/dataspine/metrics-monitoring/metrics"
	"github.com/google/uuid"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("engine")

const pollHardTimeout = 30 * time.Second
const persistTimeout = 10 * time.Second

// categoryEngine runs the poll cycle for one category: fetch raw samples,
// shift them into the series registry, then resolve and persist the
// reportable datapoints
type categoryEngine struct {
	category metrics.Category
	poller   Poller
	registry Registry
	store    Store
}

// NewCategoryEngine creates a new engine instance for one polling category
func NewCategoryEngine(category metrics.Category, p Poller, r Registry, s Store) (*categoryEngine, error) {
	if check.IfNil(p) {
		return nil, errors.New("nil poller")
	}
	if check.IfNil(r) {
		return nil, errors.New("nil registry")
	}
	if check.IfNil(s) {
		return nil, errors.New("nil store")
	}

	return &categoryEngine{
		category: category,
		poller:   p,
		registry: r,
		store:    s,
	}, nil
}

// Process runs one poll cycle for the category
func (e *categoryEngine) Process(ctx context.Context) {
	cycleID := uuid.NewString()
	log.Debug("waking up to poll category",
		"cycle", cycleID, "namespace", e.category.Namespace, "metrics", len(e.category.Metrics))

	pollCtx, cancelPoll := context.WithTimeout(ctx, pollHardTimeout)
	defer cancelPoll()
	samples := e.poller.Poll(pollCtx, e.category)

	pollTime := time.Now()
	seen := make(map[string]struct{}, len(samples))
	for _, polled := range samples {
		e.registry.Record(polled.Metadata, polled.Sample, pollTime)
		seen[polled.Metadata.SeriesKey()] = struct{}{}
	}

	// every already-known series of this category that produced nothing this
	// cycle shifts to an absent current, its last update time is retained
	missed := 0
	for _, key := range e.registry.KeysForNamespace(e.category.Namespace) {
		_, polled := seen[key]
		if !polled {
			e.registry.MarkMissed(key)
			missed++
		}
	}

	log.Debug("finished polling category",
		"cycle", cycleID, "namespace", e.category.Namespace, "samples", len(samples), "missed", missed)

	persistCtx, cancelPersist := context.WithTimeout(ctx, persistTimeout)
	defer cancelPersist()
	e.persistResolved(persistCtx, pollTime)
}

// persistResolved stores the reconciled value of every series of the category.
// NaN resolutions signal "no valid value" and are never published downstream.
func (e *categoryEngine) persistResolved(ctx context.Context, asOf time.Time) {
	resolved := e.registry.ResolveAll(asOf)
	recordedAt := asOf.Unix()

	for key, series := range resolved {
		if series.Metadata.Category.Namespace != e.category.Namespace {
			continue
		}
		if math.IsNaN(series.Value.Sum) {
			continue
		}

		err := e.store.SaveDatapoint(
			ctx,
			key,
			series.Metadata.Category.Namespace,
			series.Metadata.DisplayName(),
			series.Metadata.FormatTags(),
			series.Value.Sum,
			recordedAt,
		)
		if err != nil {
			log.Warn("failed to persist datapoint, it will be discarded", "key", key, "error", err)
		}
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *categoryEngine) IsInterfaceNil() bool {
	return e == nil
}
