package testsCommon

import (
	"context"

	"github.com/dataspine/metrics-monitoring/common"
)

// StoreStub -
type StoreStub struct {
	SaveDatapointHandler       func(ctx context.Context, key string, namespace string, name string, tags string, value float64, recordedAt int64) error
	GetLatestDatapointsHandler func(ctx context.Context) ([]common.DatapointHistory, error)
	GetSeriesHistoryHandler    func(ctx context.Context, key string) (*common.DatapointHistory, error)
	DeleteSeriesHandler        func(ctx context.Context, key string) error
	CloseHandler               func() error
}

// SaveDatapoint -
func (stub *StoreStub) SaveDatapoint(ctx context.Context, key string, namespace string, name string, tags string, value float64, recordedAt int64) error {
	if stub.SaveDatapointHandler != nil {
		return stub.SaveDatapointHandler(ctx, key, namespace, name, tags, value, recordedAt)
	}

	return nil
}

// GetLatestDatapoints -
func (stub *StoreStub) GetLatestDatapoints(ctx context.Context) ([]common.DatapointHistory, error) {
	if stub.GetLatestDatapointsHandler != nil {
		return stub.GetLatestDatapointsHandler(ctx)
	}

	return make([]common.DatapointHistory, 0), nil
}

// GetSeriesHistory -
func (stub *StoreStub) GetSeriesHistory(ctx context.Context, key string) (*common.DatapointHistory, error) {
	if stub.GetSeriesHistoryHandler != nil {
		return stub.GetSeriesHistoryHandler(ctx, key)
	}

	return &common.DatapointHistory{}, nil
}

// DeleteSeries -
func (stub *StoreStub) DeleteSeries(ctx context.Context, key string) error {
	if stub.DeleteSeriesHandler != nil {
		return stub.DeleteSeriesHandler(ctx, key)
	}

	return nil
}

// Close -
func (stub *StoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *StoreStub) IsInterfaceNil() bool {
	return stub == nil
}
