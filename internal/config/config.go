// Package config loads the ignition configuration from YAML, an optional
// .env file and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/ignition/internal/broadcast"
	"github.com/danielpatrickdp/ignition/internal/eval"
	"github.com/danielpatrickdp/ignition/internal/gate"
	"github.com/danielpatrickdp/ignition/internal/history"
	"github.com/danielpatrickdp/ignition/internal/message"
	"github.com/danielpatrickdp/ignition/internal/policy"
	"github.com/danielpatrickdp/ignition/internal/replay"
	"github.com/danielpatrickdp/ignition/internal/sensory"
	"github.com/danielpatrickdp/ignition/internal/session"
	"github.com/danielpatrickdp/ignition/internal/update"
)

// Config holds all ignition configuration.
type Config struct {
	Sensory   sensory.Config   `yaml:"sensory"`
	Message   message.Config   `yaml:"message"`
	Gate      gate.GateConfig  `yaml:"gate"`
	Broadcast broadcast.Config `yaml:"broadcast"`
	History   HistoryConfig    `yaml:"history"`
	Policy    policy.Config    `yaml:"policy"`
	Eval      eval.EvalConfig  `yaml:"eval"`
	Output    OutputConfig     `yaml:"output"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// HistoryConfig sizes the rolling outcome window.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// OutputConfig controls where run artifacts go.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"` // SQLite log path, empty disables it
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sensory:   sensory.DefaultConfig(),
		Message:   message.DefaultConfig(),
		Gate:      gate.DefaultGateConfig(),
		Broadcast: broadcast.DefaultConfig(),
		History:   HistoryConfig{Capacity: history.DefaultCapacity},
		Policy:    policy.DefaultConfig(),
		Eval:      eval.DefaultEvalConfig(),
		Output:    OutputConfig{Dir: "out"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
	}
}

// LoadEnv loads the .env file named by IGNITION_ENV (default .env). A
// missing file is not an error.
func LoadEnv() {
	envFile := os.Getenv("IGNITION_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if level := os.Getenv("IGNITION_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("IGNITION_OUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if path := os.Getenv("IGNITION_DB"); path != "" {
		c.Output.Database = path
	}
	if raw := os.Getenv("IGNITION_HISTORY_CAPACITY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("IGNITION_HISTORY_CAPACITY: %w", err)
		}
		c.History.Capacity = n
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ToSessionConfig extracts the per-session parameters.
func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Pipeline: update.Config{
			Sensory:   c.Sensory,
			Message:   c.Message,
			Gate:      c.Gate,
			Broadcast: c.Broadcast,
		},
		Policy:          c.Policy,
		HistoryCapacity: c.History.Capacity,
	}
}

// ToReplayConfig extracts the session and eval parameters for replay.
func (c *Config) ToReplayConfig() replay.ReplayConfig {
	return replay.ReplayConfig{Session: c.ToSessionConfig(), Eval: c.Eval}
}
