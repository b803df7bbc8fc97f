package metrics

import (
	"sort"
	"strings"
	"time"
)

const keySeparator = "."

// Definition identifies a single metric inside a category
type Definition struct {
	Name           string
	Alias          string
	Conversion     string
	MonotonicValue bool
	Tags           map[string]string
}

// Category is a polling group sharing a namespace, a source and a schedule
type Category struct {
	Namespace   string
	SourceURL   string
	PollPeriod  time.Duration
	Timeout     time.Duration // 0 disables staleness checking
	Size        int
	Parallelism int
	Dimensions  []string
	Query       string
	Metrics     []Definition
}

// Metadata pairs a category with one of its definitions plus the resolved
// dimension values of a concrete series. Built once per series at discovery
// time, never mutated afterwards.
type Metadata struct {
	Category   Category
	Definition Definition
	TagValues  map[string]string
}

// Sample is one point-in-time measurement as aggregated by the sample producer
type Sample struct {
	Sum         float64
	SampleCount float64
	Min         float64
	Max         float64
	Unit        string
}

// MetricData is the reconciliation state of one series. Previous, Current and
// LastUpdate are replaced wholesale on each poll cycle (the poll's sample
// becomes Current, the old Current becomes Previous). A nil sample pointer
// means "absent"; a zero LastUpdate means no successful update yet.
type MetricData struct {
	Metadata   Metadata
	Previous   *Sample
	Current    *Sample
	LastUpdate time.Time
}

// ResolvedSeries pairs the metadata of a series with its reconciled value
type ResolvedSeries struct {
	Metadata Metadata
	Value    Sample
}

// SeriesKey builds the external identity of a series: namespace, metric name
// and the sorted resolved tag values
func (m Metadata) SeriesKey() string {
	parts := make([]string, 0, len(m.TagValues)+2)
	parts = append(parts, m.Category.Namespace, m.Definition.Name)

	tags := make([]string, 0, len(m.TagValues))
	for k, v := range m.TagValues {
		tags = append(tags, k+"="+v)
	}
	sort.Strings(tags)
	parts = append(parts, tags...)

	return strings.Join(parts, keySeparator)
}

// FormatTags renders the resolved tag values as a stable comma-separated list
func (m Metadata) FormatTags() string {
	tags := make([]string, 0, len(m.TagValues))
	for k, v := range m.TagValues {
		tags = append(tags, k+"="+v)
	}
	sort.Strings(tags)

	return strings.Join(tags, ",")
}

// DisplayName returns the alias when set, the raw metric name otherwise
func (m Metadata) DisplayName() string {
	if len(m.Definition.Alias) > 0 {
		return m.Definition.Alias
	}

	return m.Definition.Name
}
