package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/metrics"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetOrCreate("poller")

type httpPoller struct {
	client *http.Client
}

// metricQuery is the request body sent to the telemetry source, one query per
// metric definition
type metricQuery struct {
	Namespace  string   `json:"namespace"`
	Metric     string   `json:"metric"`
	Filter     string   `json:"filter,omitempty"`
	Dimensions []string `json:"dimensions,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// NewHTTPPoller creates a new HTTP-based poller with a default request timeout
func NewHTTPPoller(timeout time.Duration) *httpPoller {
	return &httpPoller{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Poll queries the category's source once per configured metric, bounded by
// the category's parallelism. Metrics that fail to fetch are logged and
// omitted from the result so the engine can mark their series as missed.
func (p *httpPoller) Poll(ctx context.Context, category metrics.Category) []common.PolledSample {
	var mu sync.Mutex
	results := make([]common.PolledSample, 0, len(category.Metrics))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(category.Parallelism)

	for _, def := range category.Metrics {
		definition := def
		g.Go(func() error {
			samples, err := p.pollMetric(gCtx, category, definition)
			if err != nil {
				log.Warn("metric poll failed",
					"namespace", category.Namespace, "metric", definition.Name, "error", err)
				return nil // other metrics of the category still get polled
			}

			mu.Lock()
			results = append(results, samples...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (p *httpPoller) pollMetric(
	ctx context.Context,
	category metrics.Category,
	definition metrics.Definition,
) ([]common.PolledSample, error) {
	query := metricQuery{
		Namespace:  category.Namespace,
		Metric:     definition.Name,
		Filter:     category.Query,
		Dimensions: category.Dimensions,
		Limit:      category.Size,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metric query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, category.SourceURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errStatusNotOK(resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseRows(payload, category, definition)
}

// parseRows extracts one sample per returned row. Expected shape:
// [{"dimensions": {...}, "sum": 1, "count": 1, "min": 1, "max": 1, "unit": "Count"}, ...]
func parseRows(payload []byte, category metrics.Category, definition metrics.Definition) ([]common.PolledSample, error) {
	rows := gjson.GetBytes(payload, "rows")
	if !rows.Exists() || !rows.IsArray() {
		return nil, errMalformedResponse("rows")
	}

	samples := make([]common.PolledSample, 0)
	rows.ForEach(func(_, row gjson.Result) bool {
		sum := row.Get("sum")
		if !sum.Exists() {
			log.Trace("skipping row without a sum", "metric", definition.Name)
			return true
		}

		tagValues := make(map[string]string)
		for k, v := range definition.Tags {
			tagValues[k] = v
		}
		for _, dim := range category.Dimensions {
			dimVal := row.Get("dimensions." + dim)
			if dimVal.Exists() {
				tagValues[dim] = dimVal.String()
			}
		}

		samples = append(samples, common.PolledSample{
			Metadata: metrics.Metadata{
				Category:   category,
				Definition: definition,
				TagValues:  tagValues,
			},
			Sample: metrics.Sample{
				Sum:         sum.Float(),
				SampleCount: row.Get("count").Float(),
				Min:         row.Get("min").Float(),
				Max:         row.Get("max").Float(),
				Unit:        row.Get("unit").String(),
			},
		})
		return true
	})

	return samples, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (p *httpPoller) IsInterfaceNil() bool {
	return p == nil
}
