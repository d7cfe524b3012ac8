package event

import "time"

// Event is the canonical record produced by normalization.
// It is never mutated once Normalize returns it.
type Event struct {
	ID         string                 `json:"id,omitempty"` // PostHog uuid, when the dump carries one
	Name       string                 `json:"event"`        // "product_viewed", "feature_used", etc.
	UserID     string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties"` // arbitrary event data, kept opaque
	Timestamp  string                 `json:"timestamp,omitempty"`
	OccurredAt time.Time              `json:"-"` // zero when Timestamp is absent or unparseable
}

// Prop returns a property value by key.
func (e *Event) Prop(key string) (interface{}, bool) {
	v, ok := e.Properties[key]
	return v, ok
}

// FirstProp returns the first present, non-nil property among keys.
func (e *Event) FirstProp(keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := e.Properties[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
