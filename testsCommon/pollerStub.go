package testsCommon

import (
	"context"

	"github.com/dataspine/metrics-monitoring/common"
	"github.com/dataspine/metrics-monitoring/metrics"
)

// PollerStub -
type PollerStub struct {
	PollHandler func(ctx context.Context, category metrics.Category) []common.PolledSample
}

// Poll -
func (stub *PollerStub) Poll(ctx context.Context, category metrics.Category) []common.PolledSample {
	if stub.PollHandler != nil {
		return stub.PollHandler(ctx, category)
	}

	return make([]common.PolledSample, 0)
}

// IsInterfaceNil -
func (stub *PollerStub) IsInterfaceNil() bool {
	return stub == nil
}
