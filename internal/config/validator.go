package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/upsell/internal/condition"
)

// Validate checks the config for:
//   - Required fields
//   - Positive detector cutoffs
//   - Sane engine and server limits
//   - Custom rules: unique kinds, event names, parseable expressions
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	t := cfg.Thresholds
	if t.HighValuePriceCutoff <= 0 {
		errs = append(errs, fmt.Sprintf("thresholds.high_value_price_cutoff must be > 0, got %v", t.HighValuePriceCutoff))
	}
	if t.PremiumFeatureCountCutoff <= 0 {
		errs = append(errs, fmt.Sprintf("thresholds.premium_feature_count_cutoff must be > 0, got %d", t.PremiumFeatureCountCutoff))
	}
	if t.CrossCategoryCutoff <= 0 {
		errs = append(errs, fmt.Sprintf("thresholds.cross_category_cutoff must be > 0, got %d", t.CrossCategoryCutoff))
	}

	if cfg.Engine.Workers < 1 {
		errs = append(errs, fmt.Sprintf("engine.workers must be >= 1, got %d", cfg.Engine.Workers))
	}
	if cfg.Server.MaxUploadMB < 0 {
		errs = append(errs, fmt.Sprintf("server.max_upload_mb must not be negative, got %d", cfg.Server.MaxUploadMB))
	}
	if cfg.PostHog.Limit < 0 {
		errs = append(errs, fmt.Sprintf("posthog.limit must not be negative, got %d", cfg.PostHog.Limit))
	}

	validateRules(cfg.Rules, &errs)

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateRules(rules []RuleConf, errs *[]string) {
	kinds := make(map[string]int, len(rules))
	for i, r := range rules {
		if r.Kind == "" {
			*errs = append(*errs, fmt.Sprintf("rules[%d]: kind is required", i))
			continue
		}
		loc := fmt.Sprintf("rule %s", r.Kind)
		if prev, ok := kinds[r.Kind]; ok {
			*errs = append(*errs, fmt.Sprintf("duplicate rule kind %q (rules[%d] and rules[%d])", r.Kind, prev, i))
		} else {
			kinds[r.Kind] = i
		}
		if len(r.Events) == 0 {
			*errs = append(*errs, fmt.Sprintf("%s: events must not be empty", loc))
		}
		if r.When != "" {
			if _, err := condition.Parse(r.When); err != nil {
				*errs = append(*errs, fmt.Sprintf("%s: when: %v", loc, err))
			}
		}
		if r.MinCount < 0 {
			*errs = append(*errs, fmt.Sprintf("%s: min_count must not be negative, got %d", loc, r.MinCount))
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			*errs = append(*errs, fmt.Sprintf("%s: confidence must be within [0, 1], got %v", loc, r.Confidence))
		}
	}
}

// ParseLevel maps a log_level string to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", level)
}
