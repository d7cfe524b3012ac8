package detector

import (
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/event"
)

// -----------------------------------------------------------------------
// HighValueProductView
// -----------------------------------------------------------------------

// HighValueProductView flags views of products priced at or above the cutoff.
// Every qualifying view yields a Finding; identical ones are merged downstream.
type HighValueProductView struct {
	events nameSet
}

func NewHighValueProductView() *HighValueProductView {
	return &HighValueProductView{events: newNameSet("product_viewed", "product_view", "viewed_product")}
}

func (d *HighValueProductView) Kind() Kind { return KindHighValueProductView }

func (d *HighValueProductView) Detect(tl *event.UserTimeline, th config.Thresholds) []Finding {
	var out []Finding
	for i := range tl.Events {
		ev := &tl.Events[i]
		if !d.events.has(ev.Name) {
			continue
		}
		raw, ok := ev.Prop("product_price")
		if !ok {
			continue
		}
		price, ok := toFloat64(raw)
		if !ok || price < th.HighValuePriceCutoff {
			continue
		}
		out = append(out, Finding{
			UserID: tl.UserID,
			Kind:   KindHighValueProductView,
			Evidence: Evidence{
				Product:   stringProp(ev, "unknown product", "product_name", "product_id"),
				Price:     price,
				PriceText: priceText(raw),
			},
			Confidence: 0.8,
		})
	}
	return out
}

// -----------------------------------------------------------------------
// PremiumFeatureOveruse
// -----------------------------------------------------------------------

// PremiumFeatureOveruse counts uses of premium or enterprise features across
// the whole timeline and flags users at or above the cutoff. The evidence
// lists the features used in first-use order.
type PremiumFeatureOveruse struct {
	events  nameSet
	tiers   nameSet
	tagKeys []string
}

func NewPremiumFeatureOveruse() *PremiumFeatureOveruse {
	return &PremiumFeatureOveruse{
		events:  newNameSet("feature_used"),
		tiers:   newNameSet("premium", "enterprise"),
		tagKeys: []string{"feature_tier", "tier", "plan_required", "feature_type"},
	}
}

func (d *PremiumFeatureOveruse) Kind() Kind { return KindPremiumFeatureOveruse }

func (d *PremiumFeatureOveruse) Detect(tl *event.UserTimeline, th config.Thresholds) []Finding {
	total := 0
	seen := make(map[string]struct{})
	var features []string
	for i := range tl.Events {
		ev := &tl.Events[i]
		if !d.events.has(ev.Name) || !d.isPremium(ev) {
			continue
		}
		total++
		feature := stringProp(ev, "unnamed feature", "feature_name")
		if _, ok := seen[feature]; !ok {
			seen[feature] = struct{}{}
			features = append(features, feature)
		}
	}
	if total == 0 || total < th.PremiumFeatureCountCutoff {
		return nil
	}
	return []Finding{{
		UserID:     tl.UserID,
		Kind:       KindPremiumFeatureOveruse,
		Evidence:   Evidence{Features: features, Count: total},
		Confidence: 0.85,
	}}
}

func (d *PremiumFeatureOveruse) isPremium(ev *event.Event) bool {
	for _, k := range d.tagKeys {
		if s, ok := ev.Properties[k].(string); ok && d.tiers.has(strings.TrimSpace(s)) {
			return true
		}
	}
	return toBool(ev.Properties["is_premium"]) || toBool(ev.Properties["premium"])
}

// -----------------------------------------------------------------------
// UsageLimitHit
// -----------------------------------------------------------------------

// UsageLimitHit flags any usage-limit event. One occurrence is enough.
type UsageLimitHit struct {
	events nameSet
}

func NewUsageLimitHit() *UsageLimitHit {
	return &UsageLimitHit{events: newNameSet("usage_limit_reached", "limit_reached", "quota_exceeded")}
}

func (d *UsageLimitHit) Kind() Kind { return KindUsageLimitHit }

func (d *UsageLimitHit) Detect(tl *event.UserTimeline, _ config.Thresholds) []Finding {
	var out []Finding
	for i := range tl.Events {
		ev := &tl.Events[i]
		if !d.events.has(ev.Name) {
			continue
		}
		out = append(out, Finding{
			UserID: tl.UserID,
			Kind:   KindUsageLimitHit,
			Evidence: Evidence{
				Resource: stringProp(ev, "account", "limit_type", "resource", "feature_name"),
				Plan:     stringProp(ev, "current", "plan", "current_plan", "plan_tier"),
			},
			Confidence: 0.95,
		})
	}
	return out
}

// -----------------------------------------------------------------------
// CrossCategoryEngagement
// -----------------------------------------------------------------------

// CrossCategoryEngagement flags users who touched at least the cutoff number
// of distinct product categories across product-related events.
type CrossCategoryEngagement struct{}

func NewCrossCategoryEngagement() *CrossCategoryEngagement { return &CrossCategoryEngagement{} }

func (d *CrossCategoryEngagement) Kind() Kind { return KindCrossCategoryEngagement }

func (d *CrossCategoryEngagement) Detect(tl *event.UserTimeline, th config.Thresholds) []Finding {
	seen := make(map[string]struct{})
	var categories []string
	for i := range tl.Events {
		ev := &tl.Events[i]
		if !strings.Contains(strings.ToLower(ev.Name), "product") {
			continue
		}
		cat, ok := ev.Properties["product_category"].(string)
		cat = strings.TrimSpace(cat)
		if !ok || cat == "" {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		categories = append(categories, cat)
	}
	if len(categories) < th.CrossCategoryCutoff {
		return nil
	}
	return []Finding{{
		UserID:     tl.UserID,
		Kind:       KindCrossCategoryEngagement,
		Evidence:   Evidence{Categories: categories, Count: len(categories)},
		Confidence: 0.6,
	}}
}

// stringProp returns the first string-like property among keys, or fallback.
func stringProp(ev *event.Event, fallback string, keys ...string) string {
	for _, k := range keys {
		if s, ok := toString(ev.Properties[k]); ok {
			return s
		}
	}
	return fallback
}
