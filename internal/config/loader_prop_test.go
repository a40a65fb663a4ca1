package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fileValues struct {
	Loss    int
	Latency int
	Buffer  int
	GraceMs int
	Mode    MetricsMode
	Port    int
}

func genFileSpec() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 500),
		gen.IntRange(1, 500),
		gen.IntRange(1, 4096),
		gen.IntRange(1, 60000),
		gen.OneConstOf(MetricsModePerTarget, MetricsModeAggregated, MetricsModeBoth),
		gen.IntRange(1024, 65535),
	).Map(func(values []interface{}) fileValues {
		return fileValues{
			Loss:    values[0].(int),
			Latency: values[1].(int),
			Buffer:  values[2].(int),
			GraceMs: values[3].(int),
			Mode:    values[4].(MetricsMode),
			Port:    values[5].(int),
		}
	})
}

func (s fileValues) yaml() string {
	return fmt.Sprintf(
		"windows:\n  loss: %d\n  latency: %d\nevents:\n  buffer: %d\nping:\n  grace_period: %dms\nmetrics:\n  mode: %s\n  listen: \"%d\"\n",
		s.Loss, s.Latency, s.Buffer, s.GraceMs, s.Mode, s.Port,
	)
}

func TestPropertyConfigFileValues(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25
	props := gopter.NewProperties(params)

	props.Property("valid file values are loaded unchanged", prop.ForAll(
		func(file fileValues) bool {
			cfg, err := Load(writeTempConfig(t, file.yaml()), CLIOverrides{})
			if err != nil {
				return false
			}
			return cfg.Windows.Loss == file.Loss &&
				cfg.Windows.Latency == file.Latency &&
				cfg.Events.Buffer == file.Buffer &&
				cfg.Ping.GracePeriod == time.Duration(file.GraceMs)*time.Millisecond &&
				cfg.Metrics.Mode == file.Mode &&
				cfg.Metrics.Listen == fmt.Sprintf(":%d", file.Port)
		},
		genFileSpec(),
	))

	props.Property("CLI overrides beat file values", prop.ForAll(
		func(file fileValues, overrideMs int) bool {
			grace := time.Duration(overrideMs) * time.Millisecond
			cfg, err := Load(writeTempConfig(t, file.yaml()), CLIOverrides{GracePeriod: &grace})
			if err != nil {
				return false
			}
			return cfg.Ping.GracePeriod == grace
		},
		genFileSpec(),
		gen.IntRange(1, 60000),
	))

	props.TestingRun(t)
}
