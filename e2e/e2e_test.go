package e2e_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/config"
	"github.com/dataspine/metrics-monitoring/factory"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/stretchr/testify/require"
)

var log = logger.GetOrCreate("e2e-test")

func TestE2EFlow(t *testing.T) {
	log.Info("======== 1. Start a mock telemetry source with a raw counter increasing by 5 per poll")
	var rawCounter atomic.Int64
	mockSource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := rawCounter.Add(5)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w,
			`{"rows": [{"dimensions": {"dataSource": "events"}, "sum": %d, "count": 1, "unit": "Count"}]}`,
			value)
	}))
	defer mockSource.Close()

	log.Info("======== 2. Prepare the SQLite path and the configuration")
	dbPath := filepath.Join(t.TempDir(), "e2e_datapoints.db")

	cfg := config.Config{
		General: config.GeneralConfig{
			Name:             "e2e-monitor",
			ListenAddress:    "127.0.0.1:0",
			RetentionSeconds: 3600,
		},
		Categories: []config.CategoryConfig{
			{
				Namespace:           "druid",
				SourceURL:           mockSource.URL,
				PollPeriodInSeconds: 1,
				TimeoutInSeconds:    10,
				Parallelism:         1,
				Dimensions:          []string{"dataSource"},
				Query:               "events",
				Metrics: []config.MetricConfig{
					{Name: "queryCount", Alias: "QueryCount", MonotonicValue: true},
				},
			},
		},
	}

	log.Info("======== 3. Start the service via componentsHandler")
	handler, err := factory.NewComponentsHandler(dbPath, "e2e-service-key", cfg)
	require.NoError(t, err)

	handler.Start()
	defer func() {
		_ = handler.Close()
	}()

	_, port, err := net.SplitHostPort(handler.GetServer().Address())
	require.NoError(t, err)
	baseURL := fmt.Sprintf("http://127.0.0.1:%s", port)

	log.Info("======== 4. Wait for at least two poll cycles so the monotonic delta is computable")
	time.Sleep(2500 * time.Millisecond)

	log.Info("======== 5. Query the reconciled snapshot")
	snapshot := struct {
		Metrics []common.DatapointPayload `json:"metrics"`
	}{}
	fetchJSON(t, baseURL+"/api/metrics", &snapshot)

	require.Len(t, snapshot.Metrics, 1)
	require.Equal(t, "QueryCount", snapshot.Metrics[0].Name)
	// the raw counter grows by 5 per cycle, so the reconciled delta is 5
	require.Equal(t, 5.0, snapshot.Metrics[0].Sum)

	log.Info("======== 6. Verify the datapoint history reached the database")
	hist := common.DatapointHistory{}
	fetchJSON(t, baseURL+"/api/metrics/"+snapshot.Metrics[0].Key+"/history", &hist)
	require.NotEmpty(t, hist.History)
	for _, dp := range hist.History {
		require.Equal(t, 5.0, dp.Value)
	}

	log.Info("======== 7. Check the stats dump")
	stats := struct {
		NumSeries          int            `json:"numSeries"`
		SeriesPerNamespace map[string]int `json:"seriesPerNamespace"`
	}{}
	fetchJSON(t, baseURL+"/api/stats", &stats)
	require.Equal(t, 1, stats.NumSeries)
	require.Equal(t, 1, stats.SeriesPerNamespace["druid"])

	log.Info("======== 8. Requests without the API key are rejected")
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/metrics", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func fetchJSON(t *testing.T, url string, dest interface{}) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "e2e-service-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, dest))
}
