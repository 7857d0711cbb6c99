//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/piqi-framework/piqi-go/telemetry/trace"
)

// Config is the full runtime configuration, populated from defaults,
// an optional YAML file, PIQI_* environment variables and flags.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	RefData     RefDataConfig     `mapstructure:"refdata"`
	Scorecards  ScorecardsConfig  `mapstructure:"scorecards"`
	Terminology TerminologyConfig `mapstructure:"terminology"`
	Knowledge   KnowledgeConfig   `mapstructure:"knowledge"`
	Evaluation  EvaluationConfig  `mapstructure:"evaluation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RefDataConfig locates the reference data bundle documents.
type RefDataConfig struct {
	Dir      string        `mapstructure:"dir"`
	Pattern  string        `mapstructure:"pattern"`
	Rubric   string        `mapstructure:"rubric"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// ScorecardsConfig selects the scorecard store backend.
type ScorecardsConfig struct {
	Store string `mapstructure:"store"`
	Dir   string `mapstructure:"dir"`
}

// TerminologyConfig points at the FHIR terminology server. An empty
// endpoint leaves terminology criteria unevaluated.
type TerminologyConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// KnowledgeConfig points at the clinical knowledge service. An empty
// endpoint leaves plausibility criteria unevaluated.
type KnowledgeConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
}

// EvaluationConfig tunes the engine.
type EvaluationConfig struct {
	Parallelism int `mapstructure:"parallelism"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// TelemetryConfig configures the OTLP trace and metric exporters.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Protocol    string `mapstructure:"protocol"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig assembles the configuration. Precedence, highest first:
// flags, PIQI_* environment variables, the config file, defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.piqi")
		viper.SetConfigName("piqi")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// No config file; defaults, env vars and flags carry everything.
	}

	viper.SetEnvPrefix("PIQI")
	// Nested keys hold underscores in the environment, e.g.
	// PIQI_SERVER_ADDR for server.addr.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Reference data defaults
	viper.SetDefault("refdata.dir", "")
	viper.SetDefault("refdata.pattern", "**/*.json")
	viper.SetDefault("refdata.rubric", "")
	viper.SetDefault("refdata.watch", false)
	viper.SetDefault("refdata.debounce", "500ms")

	// Scorecard store defaults
	viper.SetDefault("scorecards.store", "memory")
	viper.SetDefault("scorecards.dir", "")

	// Collaborator defaults
	viper.SetDefault("terminology.endpoint", "")
	viper.SetDefault("terminology.timeout", "10s")
	viper.SetDefault("knowledge.endpoint", "")
	viper.SetDefault("knowledge.timeout", "10s")
	viper.SetDefault("knowledge.language", "")

	// Engine defaults
	viper.SetDefault("evaluation.parallelism", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "")
	viper.SetDefault("telemetry.protocol", trace.ProtocolGRPC)
	viper.SetDefault("telemetry.service_name", "piqi")
}

// Validate rejects configurations the commands cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.RefData.Dir == "" {
		return errors.New("refdata.dir is required (--refdata-dir or PIQI_REFDATA_DIR)")
	}
	if c.RefData.Pattern == "" {
		return errors.New("refdata.pattern is required")
	}
	switch c.Scorecards.Store {
	case "memory", "local":
	default:
		return fmt.Errorf("scorecards.store must be memory or local, got %q", c.Scorecards.Store)
	}
	switch c.Telemetry.Protocol {
	case trace.ProtocolGRPC, trace.ProtocolHTTP:
	default:
		return fmt.Errorf("telemetry.protocol must be %s or %s, got %q",
			trace.ProtocolGRPC, trace.ProtocolHTTP, c.Telemetry.Protocol)
	}
	if c.Evaluation.Parallelism < 0 {
		return fmt.Errorf("evaluation.parallelism cannot be negative, got %d", c.Evaluation.Parallelism)
	}
	return nil
}
