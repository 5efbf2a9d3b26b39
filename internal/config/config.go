// Package config loads harness configuration from file and environment and
// initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/minds-lab/minds-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	Providers []ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Solver    SolverConfig     `yaml:"solver" mapstructure:"solver"`
	Bench     BenchConfig      `yaml:"bench" mapstructure:"bench"`
	Pricing   cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProviderConfig configures one model backend.
type ProviderConfig struct {
	// Name is the provider key used everywhere else: rate limits, pricing,
	// responses. Must be unique.
	Name string `yaml:"name" mapstructure:"name"`
	// Kind selects the client: "anthropic" or "openai_compat".
	Kind string `yaml:"kind" mapstructure:"kind"`
	// Model is the backend model identifier.
	Model string `yaml:"model" mapstructure:"model"`
	// APIKey authenticates against the backend.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// BaseURL overrides the endpoint for openai_compat backends.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// RPM is the per-provider request quota, mapped to the token bucket's
	// refill rate.
	RPM int `yaml:"rpm" mapstructure:"rpm"`
	// Burst is the bucket capacity. Zero derives it from RPM.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// Temperature used for generate-stage calls.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// SolverConfig configures the collaborative solver.
type SolverConfig struct {
	// AgreementThreshold is T_high: the minimum consensus agreement before
	// the devil's-advocate pass is attempted.
	AgreementThreshold float64 `yaml:"agreement_threshold" mapstructure:"agreement_threshold"`
	// ChallengeMargin is how far a rebuttal's confidence must exceed the
	// consensus confidence to be accepted.
	ChallengeMargin float64 `yaml:"challenge_margin" mapstructure:"challenge_margin"`
	// LowAgreement is the floor below which a run's sample is classified
	// as no_consensus.
	LowAgreement float64 `yaml:"low_agreement" mapstructure:"low_agreement"`
	// Challenger names the provider used for the devil's-advocate pass.
	// Empty picks the first configured provider.
	Challenger string `yaml:"challenger" mapstructure:"challenger"`
	// MaxCostUSD is the per-task spend budget across all stages.
	MaxCostUSD float64 `yaml:"max_cost_usd" mapstructure:"max_cost_usd"`
	// TaskTimeoutSecs bounds a whole task.
	TaskTimeoutSecs int `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	// CallTimeoutSecs bounds each individual model call.
	CallTimeoutSecs int `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	// MaxRetries bounds rate-limit retries per call.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// BenchConfig configures benchmark runs.
type BenchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MINDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "minds.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("bench.concurrency", 4)
	v.SetDefault("solver.agreement_threshold", 0.8)
	v.SetDefault("solver.challenge_margin", 0.15)
	v.SetDefault("solver.low_agreement", 0.34)
	v.SetDefault("solver.max_cost_usd", 0.50)
	v.SetDefault("solver.task_timeout_secs", 300)
	v.SetDefault("solver.call_timeout_secs", 60)
	v.SetDefault("solver.max_retries", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Pricing) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// Validate checks provider entries for the mistakes that would otherwise
// surface mid-run.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return eris.New("config: provider with empty name")
		}
		if seen[p.Name] {
			return eris.Errorf("config: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Kind {
		case "anthropic", "openai_compat":
		default:
			return eris.Errorf("config: provider %q: unknown kind %q", p.Name, p.Kind)
		}
		if p.RPM <= 0 {
			return eris.Errorf("config: provider %q: rpm must be positive", p.Name)
		}
	}
	if c.Solver.Challenger != "" && !seen[c.Solver.Challenger] {
		return eris.Errorf("config: challenger %q is not a configured provider", c.Solver.Challenger)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
