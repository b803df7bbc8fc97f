package testsCommon

import (
	"time"

	"github.com/dataspine/metrics-monitoring/metrics"
)

// RegistryStub -
type RegistryStub struct {
	RecordHandler           func(meta metrics.Metadata, sample metrics.Sample, at time.Time)
	MarkMissedHandler       func(key string)
	ResolveHandler          func(key string, asOf time.Time) (metrics.Sample, bool)
	ResolveAllHandler       func(asOf time.Time) map[string]metrics.ResolvedSeries
	KeysForNamespaceHandler func(namespace string) []string
}

// Record -
func (stub *RegistryStub) Record(meta metrics.Metadata, sample metrics.Sample, at time.Time) {
	if stub.RecordHandler != nil {
		stub.RecordHandler(meta, sample, at)
	}
}

// MarkMissed -
func (stub *RegistryStub) MarkMissed(key string) {
	if stub.MarkMissedHandler != nil {
		stub.MarkMissedHandler(key)
	}
}

// Resolve -
func (stub *RegistryStub) Resolve(key string, asOf time.Time) (metrics.Sample, bool) {
	if stub.ResolveHandler != nil {
		return stub.ResolveHandler(key, asOf)
	}

	return metrics.Sample{}, false
}

// ResolveAll -
func (stub *RegistryStub) ResolveAll(asOf time.Time) map[string]metrics.ResolvedSeries {
	if stub.ResolveAllHandler != nil {
		return stub.ResolveAllHandler(asOf)
	}

	return make(map[string]metrics.ResolvedSeries)
}

// KeysForNamespace -
func (stub *RegistryStub) KeysForNamespace(namespace string) []string {
	if stub.KeysForNamespaceHandler != nil {
		return stub.KeysForNamespaceHandler(namespace)
	}

	return make([]string, 0)
}

// IsInterfaceNil -
func (stub *RegistryStub) IsInterfaceNil() bool {
	return stub == nil
}
