package detector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/condition"
	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/event"
)

const defaultRuleConfidence = 0.5

// Rule is a detector declared in config. It counts the user's events named
// in the rule that satisfy its expression and fires once the count reaches
// min_count.
type Rule struct {
	kind     Kind
	events   nameSet
	when     condition.Expr // nil matches every named event
	minCount int
	conf     config.RuleConf
}

// NewRule compiles a rule declaration.
func NewRule(rc config.RuleConf) (*Rule, error) {
	if rc.Kind == "" {
		return nil, fmt.Errorf("rule: kind is required")
	}
	if len(rc.Events) == 0 {
		return nil, fmt.Errorf("rule %s: events must not be empty", rc.Kind)
	}
	r := &Rule{
		kind:     Kind(rc.Kind),
		events:   newNameSet(rc.Events...),
		minCount: rc.MinCount,
		conf:     rc,
	}
	if r.minCount < 1 {
		r.minCount = 1
	}
	if rc.When != "" {
		expr, err := condition.Parse(rc.When)
		if err != nil {
			return nil, fmt.Errorf("rule %s: when: %w", rc.Kind, err)
		}
		r.when = expr
	}
	return r, nil
}

func (r *Rule) Kind() Kind { return r.kind }

func (r *Rule) Detect(tl *event.UserTimeline, _ config.Thresholds) []Finding {
	count := 0
	for i := range tl.Events {
		ev := &tl.Events[i]
		if !r.events.has(ev.Name) {
			continue
		}
		if r.when != nil && !condition.Eval(r.when, eventScope{ev}) {
			continue
		}
		count++
	}
	if count < r.minCount {
		return nil
	}

	confidence := r.conf.Confidence
	if confidence == 0 {
		confidence = defaultRuleConfidence
	}
	return []Finding{{
		UserID:     tl.UserID,
		Kind:       r.kind,
		Evidence:   Evidence{Count: count, Note: r.reasoning(count)},
		Confidence: confidence,
		Label:      r.conf.OpportunityType,
		Action:     r.conf.RecommendedAction,
	}}
}

// reasoning fills the {count} placeholder of the configured text, or
// describes the match when no text is configured.
func (r *Rule) reasoning(count int) string {
	if r.conf.Reasoning != "" {
		return strings.ReplaceAll(r.conf.Reasoning, "{count}", strconv.Itoa(count))
	}
	return fmt.Sprintf("Matched %s on %d events (%s).", r.kind, count, strings.Join(r.conf.Events, ", "))
}

// eventScope exposes an event to rule expressions. The roots event,
// distinct_id, id, timestamp and properties address the envelope; any
// other root is looked up in the properties.
type eventScope struct {
	ev *event.Event
}

func (s eventScope) Lookup(path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	if len(path) == 1 {
		switch path[0] {
		case "event":
			return s.ev.Name, true
		case "distinct_id":
			return s.ev.UserID, true
		case "id":
			return s.ev.ID, s.ev.ID != ""
		case "timestamp":
			return s.ev.Timestamp, s.ev.Timestamp != ""
		}
	}
	props := condition.MapScope(s.ev.Properties)
	if path[0] == "properties" {
		return props.Lookup(path[1:])
	}
	return props.Lookup(path)
}
