package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/heatsafenet/hubsite/internal/resilience"
	"github.com/heatsafenet/hubsite/internal/risk"
	"github.com/heatsafenet/hubsite/internal/scenario"
	"github.com/heatsafenet/hubsite/internal/solver"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Data         DataConfig         `yaml:"data" mapstructure:"data"`
	Solver       SolverConfig       `yaml:"solver" mapstructure:"solver"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Risk         RiskConfig         `yaml:"risk" mapstructure:"risk"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Monitoring   MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig sizes the Postgres connection pool.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int             `yaml:"port" mapstructure:"port"`
	MaxK                int             `yaml:"max_k" mapstructure:"max_k"`
	RequestTimeoutSecs  int             `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	ShutdownTimeoutSecs int             `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	RateLimit           RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS                CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig throttles solve requests. RPS <= 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" mapstructure:"rps"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DataConfig locates the problem instances.
type DataConfig struct {
	// Source is "dir" (one subdirectory per geography) or "postgres".
	Source      string `yaml:"source" mapstructure:"source"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SolverConfig tunes the facility-location solver.
type SolverConfig struct {
	TimeBudgetMs       int     `yaml:"time_budget_ms" mapstructure:"time_budget_ms"`
	ExactMaxCandidates int     `yaml:"exact_max_candidates" mapstructure:"exact_max_candidates"`
	CoverageThreshold  float64 `yaml:"coverage_threshold" mapstructure:"coverage_threshold"`
	HighRiskThreshold  float64 `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
}

// OrchestratorConfig configures batch scenario runs.
type OrchestratorConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	DemandVariant string `yaml:"demand_variant" mapstructure:"demand_variant"`
}

// RiskConfig points at optional weight presets.
type RiskConfig struct {
	PresetsPath string `yaml:"presets_path" mapstructure:"presets_path"`
}

// RetryConfig configures retries for database connections and reads.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// MonitoringConfig configures solve-run health checks and alerting.
type MonitoringConfig struct {
	Enabled                bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs      int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours    int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold   float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	HeuristicRateThreshold float64 `yaml:"heuristic_rate_threshold" mapstructure:"heuristic_rate_threshold"`
	MinRuns                int     `yaml:"min_runs" mapstructure:"min_runs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HUBSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "hubsite.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_k", 50)
	v.SetDefault("server.request_timeout_secs", 60)
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("server.rate_limit.rps", 5.0)
	v.SetDefault("server.rate_limit.burst", 10)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("data.source", "dir")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.database_url", "")
	v.SetDefault("solver.time_budget_ms", 5000)
	v.SetDefault("solver.exact_max_candidates", 100)
	v.SetDefault("solver.coverage_threshold", 0.5)
	v.SetDefault("solver.high_risk_threshold", risk.HighRiskCutoff)
	v.SetDefault("orchestrator.max_concurrent", scenario.DefaultMaxConcurrent)
	v.SetDefault("orchestrator.demand_variant", string(risk.DemandLinear))
	v.SetDefault("risk.presets_path", "")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff_ms", 250)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.heuristic_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_runs", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode names the command
// scope: serve, solve, sweep, validate, publish or runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxK < 1 {
			errs = append(errs, "server.max_k must be >= 1")
		}
		if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst < 1 {
			errs = append(errs, "server.rate_limit.burst must be >= 1 when rps is set")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateData()...)
		errs = append(errs, c.validateSolve()...)
		if c.Monitoring.Enabled {
			errs = append(errs, c.validateMonitoring()...)
		}
	case "solve", "sweep":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateData()...)
		errs = append(errs, c.validateSolve()...)
	case "validate":
		errs = append(errs, c.validateData()...)
	case "publish":
		if c.Data.Dir == "" {
			errs = append(errs, "data.dir is required")
		}
		if c.DataDatabaseURL() == "" {
			errs = append(errs, "data.database_url or store.database_url is required")
		}
	case "runs":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateMonitoring() []string {
	var errs []string
	if c.Monitoring.LookbackWindowHours < 1 {
		errs = append(errs, "monitoring.lookback_window_hours must be >= 1")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be in [0, 1]")
	}
	if c.Monitoring.HeuristicRateThreshold < 0 || c.Monitoring.HeuristicRateThreshold > 1 {
		errs = append(errs, "monitoring.heuristic_rate_threshold must be in [0, 1]")
	}
	return errs
}

func (c *Config) validateData() []string {
	switch c.Data.Source {
	case "dir":
		if c.Data.Dir == "" {
			return []string{"data.dir is required"}
		}
	case "postgres":
		if c.DataDatabaseURL() == "" {
			return []string{"data.database_url or store.database_url is required"}
		}
	default:
		return []string{"data.source must be dir or postgres"}
	}
	return nil
}

func (c *Config) validateSolve() []string {
	var errs []string
	if c.Solver.TimeBudgetMs < 0 {
		errs = append(errs, "solver.time_budget_ms must be >= 0")
	}
	if c.Solver.ExactMaxCandidates < 1 {
		errs = append(errs, "solver.exact_max_candidates must be >= 1")
	}
	if c.Solver.CoverageThreshold <= 0 || c.Solver.CoverageThreshold > 1 {
		errs = append(errs, "solver.coverage_threshold must be in (0, 1]")
	}
	if c.Solver.HighRiskThreshold < 0 || c.Solver.HighRiskThreshold > 1 {
		errs = append(errs, "solver.high_risk_threshold must be in [0, 1]")
	}
	if c.Orchestrator.MaxConcurrent < 1 || c.Orchestrator.MaxConcurrent > 64 {
		errs = append(errs, "orchestrator.max_concurrent must be between 1 and 64")
	}
	if _, err := risk.ParseDemandVariant(c.Orchestrator.DemandVariant); err != nil {
		errs = append(errs, "orchestrator.demand_variant must be linear or sqrt")
	}
	return errs
}

// DataDatabaseURL returns the instance database, falling back to the store's
// when the store is Postgres.
func (c *Config) DataDatabaseURL() string {
	if c.Data.DatabaseURL != "" {
		return c.Data.DatabaseURL
	}
	if c.Store.Driver == "postgres" {
		return c.Store.DatabaseURL
	}
	return ""
}

// SolverSettings converts the solver section.
func (c *Config) SolverSettings() solver.Config {
	return solver.Config{
		TimeBudget:         time.Duration(c.Solver.TimeBudgetMs) * time.Millisecond,
		ExactMaxCandidates: c.Solver.ExactMaxCandidates,
		CoverageThreshold:  c.Solver.CoverageThreshold,
		HighRiskThreshold:  c.Solver.HighRiskThreshold,
	}
}

// OrchestratorSettings converts the orchestrator section. An unknown demand
// variant falls back to linear; Validate reports it.
func (c *Config) OrchestratorSettings() scenario.Config {
	variant, err := risk.ParseDemandVariant(c.Orchestrator.DemandVariant)
	if err != nil {
		variant = risk.DemandLinear
	}
	return scenario.Config{
		MaxConcurrent: c.Orchestrator.MaxConcurrent,
		DemandVariant: variant,
	}
}

// RetrySettings converts the retry section.
func (c *Config) RetrySettings() resilience.RetryConfig {
	return resilience.FromSettings(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
}

// Presets returns the built-in weight presets merged with any loaded from
// risk.presets_path.
func (c *Config) Presets() (risk.Presets, error) {
	if c.Risk.PresetsPath == "" {
		return risk.BuiltinPresets(), nil
	}
	p, err := risk.LoadPresets(c.Risk.PresetsPath)
	if err != nil {
		return nil, eris.Wrap(err, "config: load presets")
	}
	return p, nil
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
