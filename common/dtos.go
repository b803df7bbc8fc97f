package common

import "github.com/dataspine/metrics-monitoring/metrics"

// PolledSample holds one sample fetched from a telemetry source together with
// the series it belongs to
type PolledSample struct {
	Metadata metrics.Metadata
	Sample   metrics.Sample
}

// DatapointPayload is a reconciled value as served over the API
type DatapointPayload struct {
	Key        string            `json:"key"`
	Namespace  string            `json:"namespace"`
	Name       string            `json:"name"`
	Tags       map[string]string `json:"tags,omitempty"`
	Sum        float64           `json:"sum"`
	Count      float64           `json:"sampleCount"`
	Unit       string            `json:"unit,omitempty"`
	ResolvedAt int64             `json:"resolvedAt"`
}

// DatapointValue represents a single stored data point
type DatapointValue struct {
	Value      float64 `json:"value"`
	RecordedAt int64   `json:"recordedAt"`
}

// DatapointHistory encapsulates a series' identity and its recent stored values
type DatapointHistory struct {
	Key       string           `json:"key"`
	Namespace string           `json:"namespace"`
	Name      string           `json:"name"`
	Tags      string           `json:"tags,omitempty"`
	History   []DatapointValue `json:"history"`
}
