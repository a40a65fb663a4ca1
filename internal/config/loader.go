package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/doridoridoriand/fastping/internal/log"
)

const (
	EnvPrefix      = "FASTPING"
	StoreFileName  = "ips.txt"
	DefaultBuffer  = 256
	DefaultGrace   = 3 * time.Second
	DefaultLoss    = 40
	DefaultLatency = 20
)

// DefaultStorePath puts the store next to the executable, falling back to
// the working directory when the executable cannot be located.
func DefaultStorePath() string {
	exe, err := os.Executable()
	if err != nil {
		return StoreFileName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), StoreFileName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", "")
	v.SetDefault("watch", true)
	v.SetDefault("ping.binary", "")
	v.SetDefault("ping.args", []string{})
	v.SetDefault("ping.grace_period", DefaultGrace.String())
	v.SetDefault("windows.loss", DefaultLoss)
	v.SetDefault("windows.latency", DefaultLatency)
	v.SetDefault("events.buffer", DefaultBuffer)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.mode", string(MetricsModePerTarget))
	v.SetDefault("history.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(log.FormatAuto))
}

// Default returns the built-in configuration. It ignores the environment,
// so the result is the same on every host.
func Default() *Config {
	cfg, err := load("", CLIOverrides{}, false)
	if err != nil {
		// Built-in defaults always validate.
		panic(err)
	}
	return cfg
}

// Load reads the optional YAML file at path, then FASTPING_* environment
// variables, then applies overrides.
func Load(path string, overrides CLIOverrides) (*Config, error) {
	return load(path, overrides, true)
}

func load(path string, overrides CLIOverrides, useEnv bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if useEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyCLIOverrides(cfg, overrides)
	if cfg.Store == "" {
		cfg.Store = DefaultStorePath()
	}
	cfg.Metrics.Listen = normalizeListen(cfg.Metrics.Listen)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Windows.Loss <= 0 {
		return fmt.Errorf("invalid windows.loss: %d", c.Windows.Loss)
	}
	if c.Windows.Latency <= 0 {
		return fmt.Errorf("invalid windows.latency: %d", c.Windows.Latency)
	}
	if c.Ping.GracePeriod <= 0 {
		return fmt.Errorf("invalid ping.grace_period: %s", c.Ping.GracePeriod)
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("invalid events.buffer: %d", c.Events.Buffer)
	}
	if !c.Metrics.Mode.Valid() {
		return fmt.Errorf("invalid metrics.mode: %q", c.Metrics.Mode)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText, log.FormatAuto:
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// MarshalYAML prints the grace period as a duration string.
func (p PingOptions) MarshalYAML() (interface{}, error) {
	return struct {
		Binary      string   `yaml:"binary"`
		Args        []string `yaml:"args"`
		GracePeriod string   `yaml:"grace_period"`
	}{p.Binary, p.Args, p.GracePeriod.String()}, nil
}

func applyCLIOverrides(cfg *Config, overrides CLIOverrides) {
	if overrides.Store != nil {
		cfg.Store = *overrides.Store
	}
	if overrides.Watch != nil {
		cfg.Watch = *overrides.Watch
	}
	if overrides.PingBinary != nil {
		cfg.Ping.Binary = *overrides.PingBinary
	}
	if overrides.GracePeriod != nil {
		cfg.Ping.GracePeriod = *overrides.GracePeriod
	}
	if overrides.MetricsListen != nil {
		cfg.Metrics.Listen = *overrides.MetricsListen
	}
	if overrides.MetricsMode != nil {
		cfg.Metrics.Mode = *overrides.MetricsMode
	}
	if overrides.HistoryPath != nil {
		cfg.History.Path = *overrides.HistoryPath
	}
	if overrides.LogLevel != nil {
		cfg.Log.Level = *overrides.LogLevel
	}
	if overrides.LogFormat != nil {
		cfg.Log.Format = *overrides.LogFormat
	}
}

// normalizeListen turns a bare port into ":port".
func normalizeListen(value string) string {
	if isDigits(value) {
		return ":" + value
	}
	return value
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
