package factory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dataspine/metrics-monitoring/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() config.Config {
	return config.Config{
		General: config.GeneralConfig{
			Name:             "test-monitor",
			ListenAddress:    "127.0.0.1:0",
			RetentionSeconds: 3600,
		},
		Categories: []config.CategoryConfig{
			{
				Namespace:           "druid",
				SourceURL:           "http://127.0.0.1:8082/druid/v2",
				PollPeriodInSeconds: 60,
				TimeoutInSeconds:    120,
				Parallelism:         2,
				Dimensions:          []string{"dataSource"},
				Query:               "events",
				Metrics: []config.MetricConfig{
					{Name: "query/count", MonotonicValue: true},
				},
			},
		},
	}
}

func TestNewComponentsHandler(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "datapoints.db")

	handler, err := NewComponentsHandler(dbPath, "service-key", createTestConfig())

	require.NoError(t, err)
	require.NotNil(t, handler)

	assert.NotNil(t, handler.GetRegistry())
	assert.NotNil(t, handler.GetServer())

	require.NoError(t, handler.Close())
}

func TestComponentsHandler_StartAndClose(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "datapoints.db")

	handler, err := NewComponentsHandler(dbPath, "service-key", createTestConfig())
	require.NoError(t, err)

	handler.Start()
	// Start is idempotent
	handler.Start()

	assert.NotEmpty(t, handler.GetServer().Address())

	require.NoError(t, handler.Close())
}

func TestBuildCategory(t *testing.T) {
	t.Parallel()

	catCfg := createTestConfig().Categories[0]
	category := buildCategory(catCfg)

	assert.Equal(t, "druid", category.Namespace)
	assert.Equal(t, time.Minute, category.PollPeriod)
	assert.Equal(t, 2*time.Minute, category.Timeout)
	assert.Equal(t, 2, category.Parallelism)
	require.Len(t, category.Metrics, 1)
	assert.True(t, category.Metrics[0].MonotonicValue)
}
