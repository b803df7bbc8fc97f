package metrics

import (
	"math"
	"time"
)

// Resolve computes the value to report for one series, applying the staleness
// timeout and the monotonic-counter correction. It is a pure function of the
// supplied state and the asOf instant: it never mutates data, never fails and
// is safe for concurrent use as long as the poller replaces MetricData values
// wholesale. A NaN sum signals "no valid value to report" and must be checked
// by callers before publishing.
func Resolve(data MetricData, asOf time.Time) Sample {
	timeout := data.Metadata.Category.Timeout
	if timeout > 0 {
		if data.LastUpdate.IsZero() {
			// first sample not received yet
			return noDataSample()
		}

		elapsed := asOf.Sub(data.LastUpdate)
		if elapsed > timeout {
			if data.Current != nil {
				// fail open: a just-arrived value is trusted even though the
				// bookkeeping says stale. Current + timed out shouldn't be
				// possible in normal operation, but clock skew or a late
				// timeout reset can produce it.
				return *data.Current
			}

			// a previous value must not be reported as still active past the
			// timeout window
			return noDataSample()
		}
	}

	if data.Current == nil {
		// no value this cycle but not timed out: report zero, not missing
		return Sample{Sum: 0}
	}

	if !data.Metadata.Definition.MonotonicValue {
		return *data.Current
	}

	return resolveMonotonic(data)
}

// resolveMonotonic reports the delta since the previous sample, treating a
// decrease as a counter reset
func resolveMonotonic(data MetricData) Sample {
	if data.Previous == nil {
		return noDataSample()
	}

	reported := *data.Current
	delta := data.Current.Sum - data.Previous.Sum
	if delta < 0 {
		// the underlying raw counter was reset (process restart); never
		// report a negative delta
		delta = 0
	}
	reported.Sum = delta

	return reported
}

func noDataSample() Sample {
	return Sample{Sum: math.NaN()}
}
