package config

// Config is the top-level YAML structure.
type Config struct {
	Version    string      `yaml:"version"`
	LogLevel   string      `yaml:"log_level"`
	Engine     EngineConf  `yaml:"engine"`
	Thresholds Thresholds  `yaml:"thresholds"`
	Server     ServerConf  `yaml:"server"`
	PostHog    PostHogConf `yaml:"posthog"`
	Rules      []RuleConf  `yaml:"rules"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	// Workers > 1 fans detection out across users. Output order is unaffected.
	Workers int `yaml:"workers"`
}

// Thresholds are the detector cutoffs. Every comparison is >=.
type Thresholds struct {
	HighValuePriceCutoff      float64 `yaml:"high_value_price_cutoff" json:"high_value_price_cutoff"`
	PremiumFeatureCountCutoff int     `yaml:"premium_feature_count_cutoff" json:"premium_feature_count_cutoff"`
	CrossCategoryCutoff       int     `yaml:"cross_category_cutoff" json:"cross_category_cutoff"`
}

// ServerConf configures the HTTP API.
type ServerConf struct {
	Addr           string   `yaml:"addr"`
	UploadDir      string   `yaml:"upload_dir"`
	SampleFile     string   `yaml:"sample_file"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// PostHogConf configures the remote event source.
type PostHogConf struct {
	Host       string `yaml:"host"`
	ProjectID  string `yaml:"project_id"`
	APIKey     string `yaml:"api_key"`
	Limit      int    `yaml:"limit"`
	EventsFile string `yaml:"events_file"`
}

// RuleConf declares a custom detector. A user matches when at least
// MinCount of their events named in Events satisfy the When expression.
type RuleConf struct {
	Kind              string   `yaml:"kind" json:"kind"`
	Description       string   `yaml:"description" json:"description,omitempty"`
	Enabled           *bool    `yaml:"enabled" json:"enabled,omitempty"` // nil = enabled
	Events            []string `yaml:"events" json:"events"`
	When              string   `yaml:"when" json:"when,omitempty"` // empty = every named event
	MinCount          int      `yaml:"min_count" json:"min_count"`
	OpportunityType   string   `yaml:"opportunity_type" json:"opportunity_type,omitempty"`
	Reasoning         string   `yaml:"reasoning" json:"reasoning,omitempty"`
	RecommendedAction string   `yaml:"recommended_action" json:"recommended_action,omitempty"`
	Confidence        float64  `yaml:"confidence" json:"confidence,omitempty"`
}

// IsEnabled reports whether the rule should be registered.
func (r RuleConf) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

const (
	DefaultHighValuePriceCutoff      = 599
	DefaultPremiumFeatureCountCutoff = 40
	DefaultCrossCategoryCutoff       = 3
)

// DefaultThresholds returns the stock detector cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValuePriceCutoff:      DefaultHighValuePriceCutoff,
		PremiumFeatureCountCutoff: DefaultPremiumFeatureCountCutoff,
		CrossCategoryCutoff:       DefaultCrossCategoryCutoff,
	}
}

// WithDefaults fills unset (zero) cutoffs.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.HighValuePriceCutoff == 0 {
		t.HighValuePriceCutoff = d.HighValuePriceCutoff
	}
	if t.PremiumFeatureCountCutoff == 0 {
		t.PremiumFeatureCountCutoff = d.PremiumFeatureCountCutoff
	}
	if t.CrossCategoryCutoff == 0 {
		t.CrossCategoryCutoff = d.CrossCategoryCutoff
	}
	return t
}

// Default returns a fully defaulted Config, used when no file is given.
func Default() *Config {
	cfg := &Config{Version: "v1"}
	applyDefaults(cfg)
	return cfg
}
