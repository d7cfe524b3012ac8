package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrMalformedInput is returned when the document is not one of the accepted
// event containers. It is the only fatal normalization error.
var ErrMalformedInput = errors.New("malformed input")

// Accepted field aliases, tried in order.
var (
	nameKeys = []string{"event", "name"}
	userKeys = []string{"distinct_id", "user_id"}
)

// Container identifies which top-level shape a document used.
type Container string

const (
	ContainerArray   Container = "array"   // [ {...}, ... ]
	ContainerResults Container = "results" // { "results": [ ... ] } (PostHog API response)
	ContainerEvents  Container = "events"  // { "events": [ ... ] }
)

// Stats describes what normalization did with the raw records.
type Stats struct {
	Container Container `json:"container"`
	Raw       int       `json:"raw"`
	Skipped   int       `json:"skipped"`
}

// Decode parses raw JSON into a generic document. Numbers are kept as
// json.Number so prices survive without float formatting surprises.
func Decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedInput)
	}
	return doc, nil
}

// Parse decodes and normalizes a raw document in one step.
func Parse(raw []byte) ([]Event, Stats, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, Stats{}, err
	}
	return Normalize(doc)
}

// Normalize turns a decoded document into an ordered sequence of Events.
// Records missing a name or user are skipped and counted, never fatal.
func Normalize(doc interface{}) ([]Event, Stats, error) {
	kind, records, err := unwrap(doc)
	if err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{Container: kind, Raw: len(records)}
	events := make([]Event, 0, len(records))
	for _, rec := range records {
		ev, ok := normalizeRecord(rec)
		if !ok {
			stats.Skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, stats, nil
}

// unwrap tries each accepted container shape in order.
func unwrap(doc interface{}) (Container, []interface{}, error) {
	switch v := doc.(type) {
	case []interface{}:
		return ContainerArray, v, nil
	case map[string]interface{}:
		if list, ok := v["results"].([]interface{}); ok {
			return ContainerResults, list, nil
		}
		if list, ok := v["events"].([]interface{}); ok {
			return ContainerEvents, list, nil
		}
	}
	return "", nil, fmt.Errorf("%w: unrecognized event container", ErrMalformedInput)
}

func normalizeRecord(rec interface{}) (Event, bool) {
	obj, ok := rec.(map[string]interface{})
	if !ok {
		return Event{}, false
	}
	name := firstString(obj, nameKeys)
	user := firstString(obj, userKeys)
	if name == "" || user == "" {
		return Event{}, false
	}
	props, ok := obj["properties"].(map[string]interface{})
	if !ok {
		props = map[string]interface{}{}
	}
	ev := Event{
		ID:         firstString(obj, []string{"uuid", "id"}),
		Name:       name,
		UserID:     user,
		Properties: props,
	}
	if ts, ok := obj["timestamp"].(string); ok {
		ev.Timestamp = ts
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ev.OccurredAt = t
		}
	}
	return ev, true
}

func firstString(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
