package cli

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/doridoridoriand/fastping/internal/config"
)

// Flag names shared by the command tree.
const (
	flagConfig        = "config"
	flagStore         = "store"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
	flagPingBinary    = "ping-binary"
	flagGracePeriod   = "grace-period"
	flagMetricsListen = "metrics-listen"
	flagMetricsMode   = "metrics-mode"
	flagHistory       = "history"
	flagNoWatch       = "no-watch"
)

// addGlobalFlags registers the flags every command understands.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String(flagConfig, "", "config file (YAML)")
	fs.String(flagStore, "", "target store file (default: ips.txt next to the executable)")
	fs.String(flagLogLevel, "", "log level: debug|info|warn|error")
	fs.String(flagLogFormat, "", "log format: json|text|auto")
	fs.String(flagHistory, "", "SQLite history database path")
}

// addRunFlags registers the flags of the monitor itself.
func addRunFlags(fs *pflag.FlagSet) {
	fs.String(flagPingBinary, "", "ping executable to run instead of the platform default")
	fs.Duration(flagGracePeriod, 0, "time a probe gets to exit before it is killed")
	fs.String(flagMetricsListen, "", "metrics listen address (e.g. :9100)")
	fs.String(flagMetricsMode, "", "metrics mode: per-target|aggregated|both")
	fs.Bool(flagNoWatch, false, "do not follow external edits of the store")
}

// buildOverrides turns every flag the user actually set into an override.
// Flags left at their zero default never mask file or environment values.
func buildOverrides(fs *pflag.FlagSet) config.CLIOverrides {
	overrides := config.CLIOverrides{}

	if v, ok := changedString(fs, flagStore); ok {
		overrides.Store = &v
	}
	if v, ok := changedString(fs, flagLogLevel); ok {
		overrides.LogLevel = &v
	}
	if v, ok := changedString(fs, flagLogFormat); ok {
		overrides.LogFormat = &v
	}
	if v, ok := changedString(fs, flagHistory); ok {
		overrides.HistoryPath = &v
	}
	if v, ok := changedString(fs, flagPingBinary); ok {
		overrides.PingBinary = &v
	}
	if v, ok := changedDuration(fs, flagGracePeriod); ok {
		overrides.GracePeriod = &v
	}
	if v, ok := changedString(fs, flagMetricsListen); ok && v != "" {
		overrides.MetricsListen = &v
	}
	if v, ok := changedString(fs, flagMetricsMode); ok && v != "" {
		mode := config.MetricsMode(v)
		overrides.MetricsMode = &mode
	}
	if fs.Lookup(flagNoWatch) != nil && fs.Changed(flagNoWatch) {
		noWatch, err := fs.GetBool(flagNoWatch)
		if err == nil {
			watch := !noWatch
			overrides.Watch = &watch
		}
	}

	return overrides
}

func changedString(fs *pflag.FlagSet, name string) (string, bool) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return "", false
	}
	v, err := fs.GetString(name)
	if err != nil {
		return "", false
	}
	return v, true
}

func changedDuration(fs *pflag.FlagSet, name string) (time.Duration, bool) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return 0, false
	}
	v, err := fs.GetDuration(name)
	if err != nil {
		return 0, false
	}
	return v, true
}
