package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/doridoridoriand/fastping/internal/config"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addGlobalFlags(fs)
	addRunFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return fs
}

func TestBuildOverridesUnsetFlags(t *testing.T) {
	overrides := buildOverrides(parseFlags(t))
	if overrides != (config.CLIOverrides{}) {
		t.Fatalf("expected no overrides, got %+v", overrides)
	}
}

func TestBuildOverridesAllFlags(t *testing.T) {
	fs := parseFlags(t,
		"--store", "/tmp/ips.txt",
		"--log-level", "debug",
		"--log-format", "json",
		"--history", "/tmp/h.db",
		"--ping-binary", "/bin/ping",
		"--grace-period", "500ms",
		"--metrics-listen", ":9100",
		"--metrics-mode", "both",
		"--no-watch",
	)
	o := buildOverrides(fs)

	if o.Store == nil || *o.Store != "/tmp/ips.txt" {
		t.Fatalf("store override: %v", o.Store)
	}
	if o.LogLevel == nil || *o.LogLevel != "debug" {
		t.Fatalf("log level override: %v", o.LogLevel)
	}
	if o.LogFormat == nil || *o.LogFormat != "json" {
		t.Fatalf("log format override: %v", o.LogFormat)
	}
	if o.HistoryPath == nil || *o.HistoryPath != "/tmp/h.db" {
		t.Fatalf("history override: %v", o.HistoryPath)
	}
	if o.PingBinary == nil || *o.PingBinary != "/bin/ping" {
		t.Fatalf("ping binary override: %v", o.PingBinary)
	}
	if o.GracePeriod == nil || *o.GracePeriod != 500*time.Millisecond {
		t.Fatalf("grace period override: %v", o.GracePeriod)
	}
	if o.MetricsListen == nil || *o.MetricsListen != ":9100" {
		t.Fatalf("metrics listen override: %v", o.MetricsListen)
	}
	if o.MetricsMode == nil || *o.MetricsMode != config.MetricsModeBoth {
		t.Fatalf("metrics mode override: %v", o.MetricsMode)
	}
	if o.Watch == nil || *o.Watch {
		t.Fatalf("expected --no-watch to disable watching, got %v", o.Watch)
	}
}

func TestBuildOverridesEmptyMetricsValuesIgnored(t *testing.T) {
	o := buildOverrides(parseFlags(t, "--metrics-listen", "", "--metrics-mode", ""))
	if o.MetricsListen != nil {
		t.Fatalf("expected empty listen to be ignored, got %q", *o.MetricsListen)
	}
	if o.MetricsMode != nil {
		t.Fatalf("expected empty mode to be ignored, got %q", *o.MetricsMode)
	}
}

func TestBuildOverridesExplicitWatch(t *testing.T) {
	o := buildOverrides(parseFlags(t, "--no-watch=false"))
	if o.Watch == nil || !*o.Watch {
		t.Fatalf("expected --no-watch=false to force watching, got %v", o.Watch)
	}
}

func TestBuildOverridesMissingFlagsSkipped(t *testing.T) {
	fs := pflag.NewFlagSet("globals", pflag.ContinueOnError)
	addGlobalFlags(fs)
	if err := fs.Parse([]string{"--store", "x"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := buildOverrides(fs)
	if o.Store == nil || *o.Store != "x" {
		t.Fatalf("store override: %v", o.Store)
	}
	if o.PingBinary != nil || o.Watch != nil || o.GracePeriod != nil {
		t.Fatalf("run-only overrides should be unset: %+v", o)
	}
}
