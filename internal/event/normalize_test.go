package event_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/upsell/internal/event"
)

const records = `[
	{"event":"product_viewed","distinct_id":"u1","properties":{"product_name":"Suite","product_price":999},"timestamp":"2024-03-01T10:00:00Z"},
	{"event":"feature_used","distinct_id":"u2","properties":{"feature_name":"reports"}},
	{"event":"page_view","distinct_id":"u1"}
]`

func TestParse_ContainerShapes(t *testing.T) {
	shapes := map[string]string{
		"array":   records,
		"results": `{"next":null,"results":` + records + `}`,
		"events":  `{"events":` + records + `}`,
	}

	var want map[string]*event.UserTimeline
	for name, doc := range shapes {
		t.Run(name, func(t *testing.T) {
			events, stats, err := event.Parse([]byte(doc))
			require.NoError(t, err)
			assert.Equal(t, event.Container(name), stats.Container)
			assert.Equal(t, 3, stats.Raw)
			assert.Zero(t, stats.Skipped)

			got := event.Group(events).Map()
			if want == nil {
				want = got
				return
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_ResultsPreferredOverEvents(t *testing.T) {
	doc := `{"results":[{"event":"a","distinct_id":"u1"}],"events":[{"event":"b","distinct_id":"u2"},{"event":"c","distinct_id":"u3"}]}`
	events, stats, err := event.Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, event.ContainerResults, stats.Container)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Name)
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"unexpected key":     `{"unexpected_key": []}`,
		"results not a list": `{"results": {"event":"a"}}`,
		"scalar":             `42`,
		"null":               `null`,
		"invalid json":       `[{"event":`,
		"trailing garbage":   `[] []`,
		"events is string":   `{"events": "nope"}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := event.Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, event.ErrMalformedInput), "got %v", err)
		})
	}
}

func TestParse_EmptyEvents(t *testing.T) {
	events, stats, err := event.Parse([]byte(`{"events":[]}`))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, stats.Raw)
}

func TestNormalize_SkipsIncompleteRecords(t *testing.T) {
	doc := `[
		{"event":"product_viewed","distinct_id":"u1"},
		{"distinct_id":"u1"},
		{"event":"product_viewed"},
		{"event":"","distinct_id":"u1"},
		{"event":42,"distinct_id":"u1"},
		"not an object",
		{"name":"feature_used","user_id":"u2","properties":"oops"}
	]`
	events, stats, err := event.Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Raw)
	assert.Equal(t, 5, stats.Skipped)
	require.Len(t, events, 2)

	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, "feature_used", events[1].Name)
	assert.Equal(t, "u2", events[1].UserID)
	assert.NotNil(t, events[1].Properties)
	assert.Empty(t, events[1].Properties)
}

func TestNormalize_KeepsProperties(t *testing.T) {
	doc := `[{"uuid":"0190-abc","event":"product_viewed","distinct_id":"u1","timestamp":"2024-03-01T10:00:00.123Z",
		"properties":{"product_price":599.00,"nested":{"k":"v"}}}]`
	events, _, err := event.Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "0190-abc", ev.ID)
	assert.Equal(t, json.Number("599.00"), ev.Properties["product_price"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, ev.Properties["nested"])
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestNormalize_UnparseableTimestamp(t *testing.T) {
	events, _, err := event.Parse([]byte(`[{"event":"x","distinct_id":"u","timestamp":"yesterday"}]`))
	require.NoError(t, err)
	assert.Equal(t, "yesterday", events[0].Timestamp)
	assert.True(t, events[0].OccurredAt.IsZero())
}
