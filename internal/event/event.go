// Package event defines the measurement events published by probe workers
// and the bus that fans them out to consumers.
package event

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the event variant.
type Kind int

const (
	KindLatency Kind = iota
	KindPacketLoss
	KindAverageLatency
	KindWorkerStopped
)

func (k Kind) String() string {
	switch k {
	case KindLatency:
		return "latency"
	case KindPacketLoss:
		return "packet_loss"
	case KindAverageLatency:
		return "average_latency"
	case KindWorkerStopped:
		return "worker_stopped"
	default:
		return "unknown"
	}
}

// StopReason explains why a worker reached Stopped.
type StopReason string

const (
	ReasonSpawnFailed   StopReason = "spawn-failed"
	ReasonProcessExited StopReason = "process-exited"
	ReasonCancelled     StopReason = "cancelled"
)

// Event is a single measurement or lifecycle notification for one target.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind   Kind
	Target string
	RunID  uuid.UUID
	At     time.Time

	// KindLatency
	Latency float64
	Timeout bool

	// KindPacketLoss
	LossPercent int

	// KindAverageLatency
	AverageLatency float64

	// KindWorkerStopped
	Reason StopReason
}

// Latency is a reply with its round-trip time in milliseconds.
func Latency(target string, millis float64) Event {
	return Event{Kind: KindLatency, Target: target, Latency: millis, At: time.Now()}
}

// Timeout is a probe that got no reply.
func Timeout(target string) Event {
	return Event{Kind: KindLatency, Target: target, Timeout: true, At: time.Now()}
}

// PacketLoss summarizes one loss window as a whole percent.
func PacketLoss(target string, percent int) Event {
	return Event{Kind: KindPacketLoss, Target: target, LossPercent: percent, At: time.Now()}
}

// AverageLatency summarizes one latency window in milliseconds.
func AverageLatency(target string, millis float64) Event {
	return Event{Kind: KindAverageLatency, Target: target, AverageLatency: millis, At: time.Now()}
}

// WorkerStopped is the last event of a worker run.
func WorkerStopped(target string, reason StopReason) Event {
	return Event{Kind: KindWorkerStopped, Target: target, Reason: reason, At: time.Now()}
}

// Display renders the value the way a row in a monitoring table shows it:
// "12.5ms", "Timeout", "loss:10%", "avg:12.3ms".
func (e Event) Display() string {
	switch e.Kind {
	case KindLatency:
		if e.Timeout {
			return "Timeout"
		}
		return formatMillis(e.Latency) + "ms"
	case KindPacketLoss:
		return fmt.Sprintf("loss:%d%%", e.LossPercent)
	case KindAverageLatency:
		return fmt.Sprintf("avg:%.1fms", e.AverageLatency)
	case KindWorkerStopped:
		return "stopped:" + string(e.Reason)
	default:
		return "?"
	}
}

func (e Event) String() string {
	return e.Target + " " + e.Display()
}

func formatMillis(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
