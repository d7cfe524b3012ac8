package event

// UserTimeline holds one user's events in arrival order.
type UserTimeline struct {
	UserID string  `json:"user_id"`
	Events []Event `json:"events"`
}

// Timelines is the per-user index of a run.
// Users are kept in order of first appearance so output is deterministic.
type Timelines struct {
	order  []string
	byUser map[string]*UserTimeline
	total  int
}

// Group indexes events by user in a single pass. No timestamp sorting is
// done; arrival order stands in for recency.
func Group(events []Event) *Timelines {
	t := &Timelines{byUser: make(map[string]*UserTimeline)}
	for _, ev := range events {
		tl, ok := t.byUser[ev.UserID]
		if !ok {
			tl = &UserTimeline{UserID: ev.UserID}
			t.byUser[ev.UserID] = tl
			t.order = append(t.order, ev.UserID)
		}
		tl.Events = append(tl.Events, ev)
		t.total++
	}
	return t
}

// Users returns user IDs in arrival order.
func (t *Timelines) Users() []string {
	return t.order
}

// Get returns the timeline for a user (nil if unknown).
func (t *Timelines) Get(userID string) *UserTimeline {
	return t.byUser[userID]
}

// Ordered returns all timelines in user arrival order.
func (t *Timelines) Ordered() []*UserTimeline {
	out := make([]*UserTimeline, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byUser[id])
	}
	return out
}

// Len returns the number of distinct users.
func (t *Timelines) Len() int {
	return len(t.order)
}

// EventCount returns the number of events indexed.
func (t *Timelines) EventCount() int {
	return t.total
}

// Map returns the index as a plain user → timeline map.
func (t *Timelines) Map() map[string]*UserTimeline {
	out := make(map[string]*UserTimeline, len(t.byUser))
	for k, v := range t.byUser {
		out[k] = v
	}
	return out
}
