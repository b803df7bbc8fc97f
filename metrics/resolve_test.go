package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestData(timeout time.Duration, monotonic bool) MetricData {
	return MetricData{
		Metadata: Metadata{
			Category: Category{
				Namespace:  "druid",
				PollPeriod: time.Minute,
				Timeout:    timeout,
			},
			Definition: Definition{
				Name:           "query/count",
				MonotonicValue: monotonic,
			},
		},
	}
}

func sampleWithSum(sum float64) *Sample {
	return &Sample{
		Sum:         sum,
		SampleCount: 1,
		Min:         sum,
		Max:         sum,
		Unit:        "Count",
	}
}

func TestResolve_NoTimeoutConfigured(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("no samples at all should report zero", func(t *testing.T) {
		data := createTestData(0, false)

		resolved := Resolve(data, now)
		assert.Equal(t, 0.0, resolved.Sum)
	})
	t.Run("current absent with previous present should report zero", func(t *testing.T) {
		data := createTestData(0, false)
		data.Previous = sampleWithSum(42)

		resolved := Resolve(data, now)
		assert.Equal(t, 0.0, resolved.Sum)
	})
	t.Run("no last update time should never be considered stale", func(t *testing.T) {
		data := createTestData(0, false)
		data.Current = sampleWithSum(7)

		resolved := Resolve(data, now)
		assert.Equal(t, 7.0, resolved.Sum)
		assert.False(t, math.IsNaN(resolved.Sum))
	})
	t.Run("non-monotonic should report current unmodified", func(t *testing.T) {
		data := createTestData(0, false)
		data.Previous = sampleWithSum(100)
		data.Current = sampleWithSum(3)

		resolved := Resolve(data, now)
		assert.Equal(t, *data.Current, resolved)
	})
}

func TestResolve_Timeout(t *testing.T) {
	t.Parallel()

	now := time.Now()
	timeout := 2 * time.Minute

	t.Run("last update absent should report no data", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.Current = sampleWithSum(1)

		resolved := Resolve(data, now)
		assert.True(t, math.IsNaN(resolved.Sum))
	})
	t.Run("timed out with current present should fail open", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.Previous = sampleWithSum(99)
		data.Current = sampleWithSum(1)
		data.LastUpdate = now.Add(-10 * time.Minute)

		resolved := Resolve(data, now)
		assert.Equal(t, 1.0, resolved.Sum)
	})
	t.Run("timed out with only previous should report no data", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.Previous = sampleWithSum(1)
		data.LastUpdate = now.Add(-10 * time.Minute)

		resolved := Resolve(data, now)
		assert.True(t, math.IsNaN(resolved.Sum))
	})
	t.Run("timed out with no samples should report no data", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.LastUpdate = now.Add(-10 * time.Minute)

		resolved := Resolve(data, now)
		assert.True(t, math.IsNaN(resolved.Sum))
	})
	t.Run("inside the timeout window should fall through", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.Current = sampleWithSum(5)
		data.LastUpdate = now.Add(-time.Minute)

		resolved := Resolve(data, now)
		assert.Equal(t, 5.0, resolved.Sum)
	})
	t.Run("current absent but not timed out should report zero", func(t *testing.T) {
		data := createTestData(timeout, false)
		data.Previous = sampleWithSum(5)
		data.LastUpdate = now.Add(-time.Minute)

		resolved := Resolve(data, now)
		assert.Equal(t, 0.0, resolved.Sum)
	})
}

func TestResolve_Monotonic(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("previous absent should report no data", func(t *testing.T) {
		data := createTestData(0, true)
		data.Current = sampleWithSum(10)

		resolved := Resolve(data, now)
		assert.True(t, math.IsNaN(resolved.Sum))
	})
	t.Run("counter increased should report the delta", func(t *testing.T) {
		data := createTestData(0, true)
		data.Previous = sampleWithSum(1)
		data.Current = sampleWithSum(2)

		resolved := Resolve(data, now)
		assert.Equal(t, 1.0, resolved.Sum)
	})
	t.Run("counter flat should report zero", func(t *testing.T) {
		data := createTestData(0, true)
		data.Previous = sampleWithSum(5)
		data.Current = sampleWithSum(5)

		resolved := Resolve(data, now)
		assert.Equal(t, 0.0, resolved.Sum)
	})
	t.Run("counter reset should report zero instead of a negative delta", func(t *testing.T) {
		data := createTestData(0, true)
		data.Previous = sampleWithSum(2)
		data.Current = sampleWithSum(1)

		resolved := Resolve(data, now)
		assert.Equal(t, 0.0, resolved.Sum)
	})
	t.Run("reported sample keeps the current sample fields", func(t *testing.T) {
		data := createTestData(0, true)
		data.Previous = sampleWithSum(10)
		data.Current = &Sample{Sum: 14, SampleCount: 4, Min: 2, Max: 5, Unit: "Count"}

		resolved := Resolve(data, now)
		assert.Equal(t, 4.0, resolved.Sum)
		assert.Equal(t, 4.0, resolved.SampleCount)
		assert.Equal(t, "Count", resolved.Unit)
	})
	t.Run("monotonic correction still applies inside the timeout window", func(t *testing.T) {
		data := createTestData(2*time.Minute, true)
		data.Previous = sampleWithSum(1)
		data.Current = sampleWithSum(4)
		data.LastUpdate = now.Add(-30 * time.Second)

		resolved := Resolve(data, now)
		assert.Equal(t, 3.0, resolved.Sum)
	})
}

func TestResolve_DoesNotMutateState(t *testing.T) {
	t.Parallel()

	data := createTestData(0, true)
	data.Previous = sampleWithSum(3)
	data.Current = sampleWithSum(9)

	_ = Resolve(data, time.Now())

	require.Equal(t, 3.0, data.Previous.Sum)
	require.Equal(t, 9.0, data.Current.Sum)
}

func TestResolve_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	data := createTestData(2*time.Minute, true)
	data.Previous = sampleWithSum(10)
	data.Current = sampleWithSum(25)
	data.LastUpdate = time.Now()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()

			for j := 0; j < 100; j++ {
				resolved := Resolve(data, time.Now())
				assert.Equal(t, 15.0, resolved.Sum)
			}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
