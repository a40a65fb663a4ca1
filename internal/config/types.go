package config

import "time"

// MetricsMode describes the granularity of the /metrics output.
type MetricsMode string

const (
	MetricsModePerTarget  MetricsMode = "per-target"
	MetricsModeAggregated MetricsMode = "aggregated"
	MetricsModeBoth       MetricsMode = "both"
)

func (m MetricsMode) Valid() bool {
	switch m {
	case MetricsModePerTarget, MetricsModeAggregated, MetricsModeBoth:
		return true
	}
	return false
}

// PingOptions controls the external probe command.
type PingOptions struct {
	// Binary replaces the platform ping executable when set.
	Binary string `mapstructure:"binary" yaml:"binary"`
	// Args are inserted before the platform arguments.
	Args        []string      `mapstructure:"args" yaml:"args"`
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
}

// WindowOptions sizes the summary windows, counted in readings.
type WindowOptions struct {
	Loss    int `mapstructure:"loss" yaml:"loss"`
	Latency int `mapstructure:"latency" yaml:"latency"`
}

type EventOptions struct {
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

type MetricsOptions struct {
	Listen string      `mapstructure:"listen" yaml:"listen"`
	Mode   MetricsMode `mapstructure:"mode" yaml:"mode"`
}

type HistoryOptions struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LogOptions struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the effective configuration after defaults, file, environment
// and CLI overrides have been applied, in that order of precedence.
type Config struct {
	Store   string         `mapstructure:"store" yaml:"store"`
	Watch   bool           `mapstructure:"watch" yaml:"watch"`
	Ping    PingOptions    `mapstructure:"ping" yaml:"ping"`
	Windows WindowOptions  `mapstructure:"windows" yaml:"windows"`
	Events  EventOptions   `mapstructure:"events" yaml:"events"`
	Metrics MetricsOptions `mapstructure:"metrics" yaml:"metrics"`
	History HistoryOptions `mapstructure:"history" yaml:"history"`
	Log     LogOptions     `mapstructure:"log" yaml:"log"`
}

// CLIOverrides holds optional CLI values that override every other source.
type CLIOverrides struct {
	Store         *string
	Watch         *bool
	PingBinary    *string
	GracePeriod   *time.Duration
	MetricsListen *string
	MetricsMode   *MetricsMode
	HistoryPath   *string
	LogLevel      *string
	LogFormat     *string
}
