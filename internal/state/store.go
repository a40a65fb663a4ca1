package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doridoridoriand/fastping/internal/event"
)

const (
	defaultHistorySize   = 100
	defaultDownThreshold = 3
	// A completed loss window at or above this percentage degrades OK to WARN.
	defaultWarnLoss = 10
)

// StoreImpl is a thread-safe in-memory state store fed by events.
type StoreImpl struct {
	mu            sync.RWMutex
	order         []string
	targets       map[string]*TargetStatus
	retired       map[uuid.UUID]struct{}
	historySize   int
	downThreshold int
	warnLoss      int
}

// NewStore creates a store initialized with the provided targets.
func NewStore(targets []string) *StoreImpl {
	store := &StoreImpl{
		targets:       make(map[string]*TargetStatus),
		retired:       make(map[uuid.UUID]struct{}),
		historySize:   defaultHistorySize,
		downThreshold: defaultDownThreshold,
		warnLoss:      defaultWarnLoss,
	}
	store.SetTargets(targets)
	return store
}

// Publish applies one event. Targets enter the store only through
// SetTargets; events for any other name, such as the final WorkerStopped of a
// removed target, are ignored, as are events from retired runs.
func (s *StoreImpl) Publish(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.retired[e.RunID]; ok && e.RunID != uuid.Nil {
		return
	}

	target, ok := s.targets[e.Target]
	if !ok {
		return
	}
	if e.RunID != uuid.Nil && target.RunID != e.RunID {
		// A new worker run for the same name starts from scratch.
		if target.RunID != uuid.Nil {
			*target = TargetStatus{Name: e.Target, Status: StatusUnknown}
		}
		target.RunID = e.RunID
	}

	switch e.Kind {
	case event.KindLatency:
		if e.Timeout {
			s.applyTimeout(target, e)
		} else {
			s.applySuccess(target, e)
		}
	case event.KindPacketLoss:
		target.LossPercent = e.LossPercent
		target.HasLoss = true
		if target.Status == StatusOK && e.LossPercent >= s.warnLoss {
			target.Status = StatusWarn
		}
	case event.KindAverageLatency:
		target.AverageLatency = e.AverageLatency
		target.HasAverage = true
	case event.KindWorkerStopped:
		target.StopReason = e.Reason
		target.Status = StatusStopped
	}
}

func (s *StoreImpl) applySuccess(target *TargetStatus, e event.Event) {
	target.LastLatency = e.Latency
	target.LastTimeout = false
	target.LastSuccessAt = e.At
	target.ConsecutiveOK++
	target.ConsecutiveNG = 0
	target.TotalSuccess++
	s.appendHistory(target, e.Latency, e.At)

	if target.HasLoss && target.LossPercent >= s.warnLoss {
		target.Status = StatusWarn
		return
	}
	target.Status = StatusOK
}

func (s *StoreImpl) applyTimeout(target *TargetStatus, e event.Event) {
	target.LastTimeout = true
	target.LastFailureAt = e.At
	target.ConsecutiveNG++
	target.ConsecutiveOK = 0
	target.TotalFailure++
	if target.ConsecutiveNG >= s.downThreshold {
		target.Status = StatusDown
	} else {
		target.Status = StatusWarn
	}
}

// Run feeds the store from a bus subscription until it closes or ctx ends.
func (s *StoreImpl) Run(ctx context.Context, sub *event.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			s.Publish(e)
		}
	}
}

// Snapshot returns copies of all target states in target order.
func (s *StoreImpl) Snapshot() []TargetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]TargetStatus, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, copyTargetStatus(s.targets[name]))
	}
	return result
}

// SetTargets replaces the target list, keeping state for targets that stay.
// The runs of dropped targets are retired so their late events are ignored.
func (s *StoreImpl) SetTargets(targets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make(map[string]*TargetStatus, len(targets))
	order := make([]string, 0, len(targets))
	for _, name := range targets {
		if _, dup := updated[name]; dup {
			continue
		}
		if existing, ok := s.targets[name]; ok {
			updated[name] = existing
		} else {
			updated[name] = &TargetStatus{Name: name, Status: StatusUnknown}
		}
		order = append(order, name)
	}
	for name, old := range s.targets {
		if _, kept := updated[name]; !kept && old.RunID != uuid.Nil {
			s.retired[old.RunID] = struct{}{}
		}
	}

	s.targets = updated
	s.order = order
}

// TargetStatus returns a copy of a single target status.
func (s *StoreImpl) TargetStatus(name string) (TargetStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[name]
	if !ok {
		return TargetStatus{}, false
	}
	return copyTargetStatus(target), true
}

func (s *StoreImpl) appendHistory(target *TargetStatus, latency float64, at time.Time) {
	if s.historySize <= 0 {
		return
	}
	point := LatencyPoint{Time: at, Latency: latency}
	if len(target.History) < s.historySize {
		target.History = append(target.History, point)
		return
	}
	copy(target.History, target.History[1:])
	target.History[len(target.History)-1] = point
}

func copyTargetStatus(source *TargetStatus) TargetStatus {
	clone := *source
	if len(source.History) > 0 {
		clone.History = append([]LatencyPoint(nil), source.History...)
	}
	return clone
}
