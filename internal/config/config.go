package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Risk      RiskConfig      `yaml:"risk" mapstructure:"risk"`
	Forecast  ForecastConfig  `yaml:"forecast" mapstructure:"forecast"`
	Territory TerritoryConfig `yaml:"territory" mapstructure:"territory"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// RiskConfig holds the at-risk lead thresholds.
type RiskConfig struct {
	StaleDays         int     `yaml:"stale_days" mapstructure:"stale_days"`
	LowProbability    int     `yaml:"low_probability" mapstructure:"low_probability"`
	LargeDealMultiple float64 `yaml:"large_deal_multiple" mapstructure:"large_deal_multiple"`
}

// ForecastConfig holds forecast scenario settings.
type ForecastConfig struct {
	HorizonDays        int     `yaml:"horizon_days" mapstructure:"horizon_days"`
	ConservativeFactor float64 `yaml:"conservative_factor" mapstructure:"conservative_factor"`
	OptimisticFactor   float64 `yaml:"optimistic_factor" mapstructure:"optimistic_factor"`
}

// TerritoryConfig points at an optional expansion targets file. When unset,
// the built-in Karnataka targets apply.
type TerritoryConfig struct {
	TargetsFile string `yaml:"targets_file" mapstructure:"targets_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ExpansionTarget is the plan for one territory: how many institutions to
// sign and how many students to onboard.
type ExpansionTarget struct {
	Institutions int `yaml:"institutions"`
	Students     int `yaml:"students"`
}

// DefaultExpansionTargets returns the built-in Karnataka expansion plan.
func DefaultExpansionTargets() map[string]ExpansionTarget {
	return map[string]ExpansionTarget{
		"Bangalore Urban":          {Institutions: 15, Students: 4500},
		"Bangalore Rural & Mysore": {Institutions: 8, Students: 2400},
		"Mangalore & Coastal":      {Institutions: 6, Students: 1800},
		"North Karnataka":          {Institutions: 5, Students: 1500},
	}
}

// LoadExpansionTargets returns the expansion plan, overridden by the YAML
// targets file when one is configured.
func LoadExpansionTargets(cfg TerritoryConfig) (map[string]ExpansionTarget, error) {
	targets := DefaultExpansionTargets()
	if cfg.TargetsFile == "" {
		return targets, nil
	}

	raw, err := os.ReadFile(cfg.TargetsFile)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read targets file %s", cfg.TargetsFile)
	}

	var overrides map[string]ExpansionTarget
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrapf(err, "config: parse targets file %s", cfg.TargetsFile)
	}
	for name, t := range overrides {
		targets[name] = t
	}
	return targets, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACOLYTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "pipeline.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("risk.stale_days", 30)
	v.SetDefault("risk.low_probability", 40)
	v.SetDefault("risk.large_deal_multiple", 1.5)
	v.SetDefault("forecast.horizon_days", 90)
	v.SetDefault("forecast.conservative_factor", 0.8)
	v.SetDefault("forecast.optimistic_factor", 1.2)

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
