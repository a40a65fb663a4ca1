// Package stats turns a target's stream of readings into latency, packet-loss
// and average-latency events.
//
// Both summaries use fixed, non-overlapping windows counted in readings, not
// wall-clock time: packet loss is reported on every 40th counted probe
// (replies plus timeouts) and average latency on every 20th reply. The two
// windows are independent and reset separately. Unrecognized lines never
// touch either window, so a probe that stops producing output never closes
// a window.
package stats

import (
	"math"
	"strconv"

	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/ping"
)

const (
	DefaultLossWindow    = 40
	DefaultLatencyWindow = 20
)

// Aggregator holds the per-target counters. It is not safe for concurrent
// use; each probe worker owns exactly one.
type Aggregator struct {
	target        string
	lossWindow    int
	latencyWindow int

	intervalTotal    int
	intervalReceived int
	latencySum       float64
	latencyCount     int
}

// NewAggregator uses the default 40/20 windows.
func NewAggregator(target string) *Aggregator {
	return NewAggregatorWithWindows(target, DefaultLossWindow, DefaultLatencyWindow)
}

// NewAggregatorWithWindows allows custom window sizes. Non-positive values
// fall back to the defaults.
func NewAggregatorWithWindows(target string, lossWindow, latencyWindow int) *Aggregator {
	if lossWindow <= 0 {
		lossWindow = DefaultLossWindow
	}
	if latencyWindow <= 0 {
		latencyWindow = DefaultLatencyWindow
	}
	return &Aggregator{target: target, lossWindow: lossWindow, latencyWindow: latencyWindow}
}

// Observe applies one reading and returns the events it produces, in order:
// the per-reading latency update, then any completed loss or average summary.
func (a *Aggregator) Observe(r ping.Reading) []event.Event {
	var events []event.Event

	switch r.Kind {
	case ping.Success:
		a.intervalTotal++
		a.intervalReceived++
		a.latencySum += r.Latency
		a.latencyCount++
		events = append(events, event.Latency(a.target, r.Latency))
	case ping.Timeout:
		a.intervalTotal++
		events = append(events, event.Timeout(a.target))
	default:
		return nil
	}

	if a.intervalTotal >= a.lossWindow {
		lost := a.intervalTotal - a.intervalReceived
		percent := int(math.RoundToEven(100 * float64(lost) / float64(a.intervalTotal)))
		events = append(events, event.PacketLoss(a.target, percent))
		a.intervalTotal = 0
		a.intervalReceived = 0
	}

	if a.latencyCount >= a.latencyWindow {
		avg := roundOneDecimal(a.latencySum / float64(a.latencyCount))
		events = append(events, event.AverageLatency(a.target, avg))
		a.latencySum = 0
		a.latencyCount = 0
	}

	return events
}

// Snapshot exposes the current counters.
type Snapshot struct {
	IntervalTotal    int
	IntervalReceived int
	LatencySum       float64
	LatencyCount     int
}

func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		IntervalTotal:    a.intervalTotal,
		IntervalReceived: a.intervalReceived,
		LatencySum:       a.latencySum,
		LatencyCount:     a.latencyCount,
	}
}

// roundOneDecimal rounds through decimal formatting so 0.05 boundaries land
// where a printed "%.1f" would put them.
func roundOneDecimal(v float64) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return out
}
