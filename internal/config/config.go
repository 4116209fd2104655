// Package config loads the runtime configuration: JSON file over
// defaults, with environment overrides for paths and ports.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/faiberforce/dispatch-optimizer/pkg/decision"
	"github.com/faiberforce/dispatch-optimizer/pkg/policy"
	"github.com/faiberforce/dispatch-optimizer/pkg/predict"
)

// Config is the full configuration surface of the optimizer CLI.
type Config struct {
	// Threshold overrides. When set they pin the policy to manual
	// mode; otherwise the adaptive policy chooses per run.
	MinSuccessThreshold *float64 `json:"min_success_threshold,omitempty"`
	MaxCapacityRatio    *float64 `json:"max_capacity_ratio,omitempty"`

	MaxAcceptableDistanceKm float64 `json:"max_acceptable_distance_km"`
	OverlapBufferMin        float64 `json:"overlap_buffer_min"`
	ScoringStrategy         string  `json:"scoring_strategy"`

	EnableHybridScoring bool    `json:"enable_hybrid_scoring"`
	RuleWeight          float64 `json:"rule_weight"`

	UseSkillCascade   bool                `json:"use_skill_cascade"`
	SkillCategories   map[string][]string `json:"skill_categories,omitempty"`
	RelatedCategories map[string][]string `json:"related_categories,omitempty"`
	AllowCrossCity    bool                `json:"allow_cross_city"`

	PostOptPasses    int    `json:"post_opt_passes"`
	Seed             int64  `json:"seed"`
	SeasonalStrategy string `json:"seasonal_strategy"`

	InputDB   string `json:"input_db"`
	CSVDir    string `json:"csv_dir"`
	ResultsDB string `json:"results_db"`
	Port      string `json:"port"`
	LogLevel  string `json:"log_level"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		MaxAcceptableDistanceKm: 200,
		OverlapBufferMin:        30,
		ScoringStrategy:         string(decision.ScoringPureSuccess),
		EnableHybridScoring:     true,
		RuleWeight:              0.7,
		PostOptPasses:           3,
		Seed:                    42,
		SeasonalStrategy:        string(policy.StrategyIntelligentAuto),
		InputDB:                 "dispatch.db",
		ResultsDB:               "results.db",
		Port:                    "8080",
		LogLevel:                "info",
	}
}

// Load overlays a JSON config file (when path is non-empty) and the
// environment onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides paths and ports from the environment. The .env
// file, when present, was already loaded by the command entrypoint.
func (c *Config) applyEnv() {
	if v := os.Getenv("DISPATCHER_INPUT_DB"); v != "" {
		c.InputDB = v
	}
	if v := os.Getenv("DISPATCHER_CSV_DIR"); v != "" {
		c.CSVDir = v
	}
	if v := os.Getenv("DISPATCHER_RESULTS_DB"); v != "" {
		c.ResultsDB = v
	}
	if v := os.Getenv("DISPATCHER_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DISPATCHER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configured values against their allowed ranges.
func (c Config) Validate() error {
	if c.MinSuccessThreshold != nil && (*c.MinSuccessThreshold < 0 || *c.MinSuccessThreshold > 1) {
		return fmt.Errorf("min_success_threshold must be in [0,1], got %v", *c.MinSuccessThreshold)
	}
	if c.MaxCapacityRatio != nil && *c.MaxCapacityRatio < 1 {
		return fmt.Errorf("max_capacity_ratio must be >= 1, got %v", *c.MaxCapacityRatio)
	}
	if c.MaxAcceptableDistanceKm <= 0 {
		return fmt.Errorf("max_acceptable_distance_km must be positive, got %v", c.MaxAcceptableDistanceKm)
	}
	if c.OverlapBufferMin < 0 {
		return fmt.Errorf("overlap_buffer_min cannot be negative, got %v", c.OverlapBufferMin)
	}
	if !decision.ScoringStrategy(c.ScoringStrategy).IsValid() {
		return fmt.Errorf("unknown scoring_strategy %q", c.ScoringStrategy)
	}
	if c.RuleWeight < 0 || c.RuleWeight > 1 {
		return fmt.Errorf("rule_weight must be in [0,1], got %v", c.RuleWeight)
	}
	if c.PostOptPasses < 0 {
		return fmt.Errorf("post_opt_passes cannot be negative, got %d", c.PostOptPasses)
	}
	if !policy.Strategy(c.SeasonalStrategy).IsValid() {
		return fmt.Errorf("unknown seasonal_strategy %q", c.SeasonalStrategy)
	}
	return nil
}

// EngineConfig maps the configuration onto the decision engine.
func (c Config) EngineConfig() decision.Config {
	ec := decision.DefaultConfig()
	ec.MaxDistanceKm = c.MaxAcceptableDistanceKm
	ec.OverlapBufferMin = c.OverlapBufferMin
	ec.ScoringStrategy = decision.ScoringStrategy(c.ScoringStrategy)
	ec.UseSkillCascade = c.UseSkillCascade
	ec.SkillCategories = c.SkillCategories
	ec.RelatedCategories = c.RelatedCategories
	ec.AllowCrossCity = c.AllowCrossCity
	ec.PostOptPasses = c.PostOptPasses
	ec.Seed = c.Seed
	return ec
}

// PolicyOptions maps the configuration onto the adaptive policy.
// Explicit threshold overrides pin the policy to manual mode.
func (c Config) PolicyOptions() policy.Options {
	opts := policy.DefaultOptions()
	opts.Strategy = policy.Strategy(c.SeasonalStrategy)
	if c.MinSuccessThreshold != nil || c.MaxCapacityRatio != nil {
		opts.Strategy = policy.StrategyManual
		if c.MinSuccessThreshold != nil {
			opts.Manual.MinSuccess = *c.MinSuccessThreshold
		}
		if c.MaxCapacityRatio != nil {
			opts.Manual.MaxCapacity = *c.MaxCapacityRatio
		}
	}
	return opts
}

// SuccessConfig maps the configuration onto the success model.
func (c Config) SuccessConfig() predict.SuccessConfig {
	sc := predict.DefaultSuccessConfig()
	sc.UseHybrid = c.EnableHybridScoring
	sc.RuleWeight = c.RuleWeight
	sc.Seed = c.Seed
	return sc
}

// DurationConfig maps the configuration onto the duration model.
func (c Config) DurationConfig() predict.DurationConfig {
	dc := predict.DefaultDurationConfig()
	dc.Seed = c.Seed
	return dc
}
