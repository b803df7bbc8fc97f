package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_SeriesKey(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		Category:   Category{Namespace: "druid"},
		Definition: Definition{Name: "query/time"},
		TagValues: map[string]string{
			"dataSource": "events",
			"host":       "broker-1",
		},
	}

	// tag values are sorted so the key is stable regardless of map order
	assert.Equal(t, "druid.query/time.dataSource=events.host=broker-1", meta.SeriesKey())
}

func TestMetadata_DisplayName(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		Definition: Definition{Name: "query/time"},
	}
	assert.Equal(t, "query/time", meta.DisplayName())

	meta.Definition.Alias = "QueryTime"
	assert.Equal(t, "QueryTime", meta.DisplayName())
}
