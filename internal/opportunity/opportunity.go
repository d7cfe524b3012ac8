// Package opportunity turns detector findings into explainable sales tasks.
package opportunity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/detector"
)

// Opportunity is the externally visible unit of output.
type Opportunity struct {
	UserID            string        `json:"user_id"`
	Kind              detector.Kind `json:"kind"`
	OpportunityType   string        `json:"opportunity_type"`
	Reasoning         string        `json:"reasoning"`
	RecommendedAction string        `json:"recommended_action"`
	Confidence        float64       `json:"confidence"`
}

// template renders one finding kind.
type template struct {
	label  string
	action string
	reason func(detector.Evidence) string
}

var templates = map[detector.Kind]template{
	detector.KindHighValueProductView: {
		label:  "High-value product interest",
		action: "Recommend purchasing the product as an upgrade.",
		reason: func(e detector.Evidence) string {
			price := e.PriceText
			if price == "" {
				price = formatPrice(e.Price)
			}
			return fmt.Sprintf("Viewed %s priced at %s.", e.Product, price)
		},
	},
	detector.KindPremiumFeatureOveruse: {
		label:  "Premium feature power user",
		action: "Offer a plan upgrade with unlimited access to this feature.",
		reason: func(e detector.Evidence) string {
			features := e.Features
			if len(features) == 0 && e.Feature != "" {
				features = []string{e.Feature}
			}
			if len(features) == 1 {
				return fmt.Sprintf("Used premium feature %s %d times.", features[0], e.Count)
			}
			return fmt.Sprintf("Used premium features %s %d times in total.", strings.Join(features, ", "), e.Count)
		},
	},
	detector.KindUsageLimitHit: {
		label:  "Usage limit reached",
		action: "Reach out with a higher-tier plan that lifts this limit.",
		reason: func(e detector.Evidence) string {
			return fmt.Sprintf("Reached the %s usage limit on the %s plan.", e.Resource, e.Plan)
		},
	},
	detector.KindCrossCategoryEngagement: {
		label:  "Multi-category engagement",
		action: "Propose a bundle covering these product categories.",
		reason: func(e detector.Evidence) string {
			return fmt.Sprintf("Engaged with %d product categories: %s.", len(e.Categories), strings.Join(e.Categories, ", "))
		},
	},
}

const defaultAction = "Review this account for an upsell conversation."

// FromFinding renders a single finding. Kinds without a template use the
// finding's own label and action, falling back to the kind name, and the
// evidence note as reasoning.
func FromFinding(f detector.Finding) Opportunity {
	op := Opportunity{
		UserID:     f.UserID,
		Kind:       f.Kind,
		Confidence: f.Confidence,
	}
	tpl, ok := templates[f.Kind]
	if !ok {
		op.OpportunityType = firstNonEmpty(f.Label, string(f.Kind))
		op.Reasoning = f.Evidence.Note
		op.RecommendedAction = firstNonEmpty(f.Action, defaultAction)
		return op
	}
	op.OpportunityType = tpl.label
	op.Reasoning = tpl.reason(f.Evidence)
	op.RecommendedAction = tpl.action
	return op
}

// Aggregate maps findings one-to-one onto opportunities, keeping input
// order and dropping exact (user, kind, evidence) repeats.
func Aggregate(findings []detector.Finding) []Opportunity {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Opportunity, 0, len(findings))
	for _, f := range findings {
		key := f.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, FromFinding(f))
	}
	return out
}

// formatPrice prints prices without trailing zeros: 999, 599.5.
func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
