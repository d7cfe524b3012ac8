package detector

import (
	"fmt"
	"sync"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
)

// Registry keeps detectors in registration order, which is also the order
// their findings appear in a report.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	detectors []Detector
	kinds     map[Kind]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Kind]struct{})}
}

// Default returns a Registry with the four built-in detectors.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewHighValueProductView())
	r.Register(NewPremiumFeatureOveruse())
	r.Register(NewUsageLimitHit())
	r.Register(NewCrossCategoryEngagement())
	return r
}

// FromConfig returns the built-in detectors followed by the enabled custom
// rules, in declaration order. A rule reusing a registered kind is an error.
func FromConfig(rules []config.RuleConf) (*Registry, error) {
	r := Default()
	for _, rc := range rules {
		if !rc.IsEnabled() {
			continue
		}
		d, err := NewRule(rc)
		if err != nil {
			return nil, err
		}
		if r.has(d.Kind()) {
			return nil, fmt.Errorf("rule %s: kind already registered", d.Kind())
		}
		r.Register(d)
	}
	return r, nil
}

// Register adds a detector. Panics on duplicate kind to surface misconfiguration early.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[d.Kind()]; exists {
		panic(fmt.Sprintf("detector registry: duplicate kind %q", d.Kind()))
	}
	r.kinds[d.Kind()] = struct{}{}
	r.detectors = append(r.detectors, d)
}

// Detectors returns a snapshot of the registered detectors in order.
func (r *Registry) Detectors() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// Kinds returns the registered kinds in order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.detectors))
	for _, d := range r.detectors {
		out = append(out, d.Kind())
	}
	return out
}

func (r *Registry) has(k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[k]
	return ok
}
