package factory

import (
	"context"
	"sync"
	"time"

	"github.com/dataspine/metrics-monitoring/api"
	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/config"
	"github.com/dataspine/metrics-monitoring/engine"
	"github.com/dataspine/metrics-monitoring/metrics"
	"github.com/dataspine/metrics-monitoring/poller"
	"github.com/dataspine/metrics-monitoring/registry"
	"github.com/dataspine/metrics-monitoring/storage"
)

const defaultRequestTimeout = 10 * time.Second

type categoryRunner struct {
	engine Engine
	period time.Duration
}

type componentsHandler struct {
	registry  *registry.SeriesRegistry
	store     api.Storage
	webServer WebServer
	runners   []categoryRunner
	mutCancel sync.Mutex
	cancel    func()
}

// NewComponentsHandler creates all service components from the configuration
func NewComponentsHandler(
	dbPath string,
	serviceKeyApi string,
	cfg config.Config,
) (*componentsHandler, error) {
	store, err := storage.NewSQLiteStorage(dbPath, cfg.General.RetentionSeconds)
	if err != nil {
		return nil, err
	}

	reg := registry.NewSeriesRegistry()
	poll := poller.NewHTTPPoller(defaultRequestTimeout)

	runners := make([]categoryRunner, 0, len(cfg.Categories))
	for _, catCfg := range cfg.Categories {
		category := buildCategory(catCfg)

		eng, errEngine := engine.NewCategoryEngine(category, poll, reg, store)
		if errEngine != nil {
			_ = store.Close()
			return nil, errEngine
		}

		runners = append(runners, categoryRunner{
			engine: eng,
			period: category.PollPeriod,
		})
	}

	webServer, err := api.NewServer(api.ArgsWebServer{
		ServiceKeyApi: serviceKeyApi,
		ListenAddress: cfg.General.ListenAddress,
		Storage:       store,
		Resolver:      reg,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &componentsHandler{
		registry:  reg,
		store:     store,
		webServer: webServer,
		runners:   runners,
	}, nil
}

func buildCategory(cfg config.CategoryConfig) metrics.Category {
	definitions := make([]metrics.Definition, 0, len(cfg.Metrics))
	for _, m := range cfg.Metrics {
		definitions = append(definitions, metrics.Definition{
			Name:           m.Name,
			Alias:          m.Alias,
			Conversion:     m.Conversion,
			MonotonicValue: m.MonotonicValue,
			Tags:           m.Tags,
		})
	}

	return metrics.Category{
		Namespace:   cfg.Namespace,
		SourceURL:   cfg.SourceURL,
		PollPeriod:  time.Duration(cfg.PollPeriodInSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutInSeconds) * time.Second,
		Size:        cfg.Size,
		Parallelism: cfg.Parallelism,
		Dimensions:  cfg.Dimensions,
		Query:       cfg.Query,
		Metrics:     definitions,
	}
}

// GetRegistry returns the series registry component
func (ch *componentsHandler) GetRegistry() *registry.SeriesRegistry {
	return ch.registry
}

// GetServer returns the web server component
func (ch *componentsHandler) GetServer() WebServer {
	return ch.webServer
}

// Start starts the inner components: one poll loop per category plus the web server
func (ch *componentsHandler) Start() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, ch.cancel = context.WithCancel(context.Background())

	for _, runner := range ch.runners {
		common.CronJobStarter(ctx, runner.engine.Process, runner.period)
	}

	ch.webServer.Start()
}

// Close closes the inner components
func (ch *componentsHandler) Close() error {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		ch.cancel()
		ch.cancel = nil
	}

	// the web server owns the storage and closes it on shutdown
	return ch.webServer.Close()
}
