// Package detector holds the stateless rules that scan a user's timeline
// for upsell signals.
package detector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/event"
)

// Kind names the signal a Finding represents.
type Kind string

const (
	KindHighValueProductView    Kind = "HighValueProductView"
	KindPremiumFeatureOveruse   Kind = "PremiumFeatureOveruse"
	KindUsageLimitHit           Kind = "UsageLimitHit"
	KindCrossCategoryEngagement Kind = "CrossCategoryEngagement"
)

// Evidence is the structured detail behind a Finding. Each kind fills only
// the fields it needs; Note carries free text for custom detectors.
type Evidence struct {
	Product    string   `json:"product,omitempty"`
	Price      float64  `json:"price,omitempty"`
	PriceText  string   `json:"price_text,omitempty"` // price as written in the event
	Feature    string   `json:"feature,omitempty"`
	Features   []string `json:"features,omitempty"`
	Count      int      `json:"count,omitempty"`
	Resource   string   `json:"resource,omitempty"`
	Plan       string   `json:"plan,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// Key renders the evidence canonically; equal keys mean equal evidence.
func (e Evidence) Key() string {
	return strings.Join([]string{
		e.Product,
		strconv.FormatFloat(e.Price, 'g', -1, 64),
		e.PriceText,
		e.Feature,
		strings.Join(e.Features, "\x1f"),
		strconv.Itoa(e.Count),
		e.Resource,
		e.Plan,
		strings.Join(e.Categories, "\x1f"),
		e.Note,
	}, "\x1e")
}

// Finding is one detector's positive match for one user.
type Finding struct {
	UserID     string   `json:"user_id"`
	Kind       Kind     `json:"kind"`
	Evidence   Evidence `json:"evidence"`
	Confidence float64  `json:"confidence"`
	// Label and Action carry opportunity wording for kinds that have no
	// built-in template.
	Label  string `json:"label,omitempty"`
	Action string `json:"action,omitempty"`
}

// Key identifies the (user, kind, evidence) tuple used for duplicate suppression.
func (f Finding) Key() string {
	return fmt.Sprintf("%s\x1d%s\x1d%s", f.UserID, f.Kind, f.Evidence.Key())
}

// Detector is the interface every rule must satisfy.
// Implementations must not retain or mutate the timeline.
type Detector interface {
	// Kind returns the kind of Finding this detector emits.
	Kind() Kind
	// Detect scans one timeline. No qualifying evidence means a nil slice.
	Detect(tl *event.UserTimeline, th config.Thresholds) []Finding
}

// nameSet is a case-insensitive set of event names.
type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}
