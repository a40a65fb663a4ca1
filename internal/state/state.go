package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/doridoridoriand/fastping/internal/event"
)

// Status represents target health.
type Status string

const (
	StatusUnknown Status = "UNKNOWN"
	StatusOK      Status = "OK"
	StatusWarn    Status = "WARN"
	StatusDown    Status = "DOWN"
	StatusStopped Status = "STOPPED"
)

// LatencyPoint records a single reply time in milliseconds.
type LatencyPoint struct {
	Time    time.Time
	Latency float64
}

// TargetStatus captures the current state and history for a target.
type TargetStatus struct {
	Name  string
	RunID uuid.UUID

	LastLatency   float64
	LastTimeout   bool
	LastSuccessAt time.Time
	LastFailureAt time.Time
	ConsecutiveOK int
	ConsecutiveNG int
	TotalSuccess  int
	TotalFailure  int

	// LossPercent and AverageLatency hold the last completed window; the
	// Has* flags are false until one has completed.
	LossPercent    int
	HasLoss        bool
	AverageLatency float64
	HasAverage     bool

	StopReason event.StopReason
	Status     Status
	History    []LatencyPoint
}

// Store defines operations for tracking target state.
type Store interface {
	event.Sink
	Snapshot() []TargetStatus
	SetTargets(targets []string)
	TargetStatus(name string) (TargetStatus, bool)
}
