// Package supervisor owns the set of probe workers, one per registered
// target, and applies add/remove/shutdown commands to the registry and the
// worker table together.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/doridoridoriand/fastping/internal/log"
	"github.com/doridoridoriand/fastping/internal/worker"
)

var (
	ErrShutdown       = errors.New("supervisor: shut down")
	ErrAlreadyStarted = errors.New("supervisor: already started")
)

// Registry is the target store the supervisor mutates.
type Registry interface {
	Targets() []string
	Contains(target string) bool
	Add(target string) (bool, error)
	Remove(target string) (bool, error)
	Reload() ([]string, bool, error)
}

// Supervisor serializes every control operation behind one mutex. Workers
// run independently; only their creation and teardown go through here.
type Supervisor struct {
	registry Registry
	opts     worker.Options
	logger   *log.Logger

	mu       sync.Mutex
	onChange func([]string)
	ctx      context.Context
	cancel   context.CancelFunc
	workers  map[string]*worker.Worker
	started  bool
	shutdown bool
}

// New builds a supervisor. opts is the template every worker is created with.
func New(registry Registry, opts worker.Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
		opts.Logger = logger
	}
	return &Supervisor{
		registry: registry,
		opts:     opts,
		logger:   logger,
		workers:  make(map[string]*worker.Worker),
	}
}

// OnTargetsChanged registers fn to receive the registry order after every
// change to the target set. It runs under the supervisor lock, before the
// workers of new targets start, so consumers know a target before its first
// event.
func (s *Supervisor) OnTargetsChanged(fn func(targets []string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Supervisor) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.registry.Targets())
	}
}

// Start launches one worker per registered target.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	targets := s.registry.Targets()
	s.notifyLocked()
	for _, t := range targets {
		s.startLocked(t)
	}
	s.logger.Info("supervisor started", map[string]interface{}{"targets": len(targets)})
	return nil
}

// AddTarget registers name and starts its worker. Blank names are rejected
// with no effect; a name already registered is a no-op. The returned bool
// reports whether anything changed. A persistence failure is returned after
// the worker has been started, matching the registry, which keeps the
// target in memory.
func (s *Supervisor) AddTarget(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false, ErrShutdown
	}
	if s.registry.Contains(name) {
		return false, nil
	}

	added, err := s.registry.Add(name)
	if added {
		s.notifyLocked()
	}
	if added && s.started {
		s.startLocked(name)
	}
	s.logger.LogTargetChange("add", name, err)
	if err != nil {
		return added, fmt.Errorf("add %s: %w", name, err)
	}
	return added, nil
}

// RemoveTarget stops the worker for name, waiting until it is Stopped, then
// removes name from the registry. Removing an unknown name is a no-op.
func (s *Supervisor) RemoveTarget(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false, ErrShutdown
	}

	stopped := s.stopLocked(name)
	if !s.registry.Contains(name) {
		return stopped, nil
	}
	removed, err := s.registry.Remove(name)
	if removed {
		s.notifyLocked()
	}
	s.logger.LogTargetChange("remove", name, err)
	if err != nil {
		return removed, fmt.Errorf("remove %s: %w", name, err)
	}
	return removed, nil
}

// ReloadRegistry re-reads the store after an external edit and brings the
// worker table in line with it. It holds the supervisor lock for the whole
// reload so it cannot interleave with AddTarget or RemoveTarget.
func (s *Supervisor) ReloadRegistry() ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil, false, ErrShutdown
	}

	targets, changed, err := s.registry.Reload()
	if err != nil || !changed {
		return targets, false, err
	}
	s.logger.Info("store changed on disk", map[string]interface{}{"targets": len(targets)})
	s.notifyLocked()
	if s.started {
		s.reconcileLocked(targets)
	}
	return targets, true, nil
}

// reconcileLocked brings the worker table in line with targets without
// touching the registry.
func (s *Supervisor) reconcileLocked(targets []string) {
	want := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		want[t] = struct{}{}
		if _, ok := s.workers[t]; !ok {
			s.startLocked(t)
			s.logger.LogTargetChange("add", t, nil)
		}
	}

	var g errgroup.Group
	for t, w := range s.workers {
		if _, ok := want[t]; ok {
			continue
		}
		delete(s.workers, t)
		s.logger.LogTargetChange("remove", t, nil)
		g.Go(func() error {
			w.Stop()
			return nil
		})
	}
	_ = g.Wait()
}

// Shutdown stops every worker concurrently and returns once all are Stopped.
// Later calls return immediately.
func (s *Supervisor) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true

	var g errgroup.Group
	for _, w := range s.workers {
		g.Go(func() error {
			w.Stop()
			return nil
		})
	}
	err := g.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("supervisor stopped", map[string]interface{}{"workers": len(s.workers)})
	return err
}

// Targets returns the registry order.
func (s *Supervisor) Targets() []string {
	return s.registry.Targets()
}

// Workers reports the state of every worker currently held.
func (s *Supervisor) Workers() map[string]worker.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]worker.State, len(s.workers))
	for t, w := range s.workers {
		out[t] = w.State()
	}
	return out
}

// Worker returns the worker for target, if any.
func (s *Supervisor) Worker(target string) (*worker.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[target]
	return w, ok
}

func (s *Supervisor) startLocked(target string) {
	if _, ok := s.workers[target]; ok {
		return
	}
	w := worker.New(target, s.opts)
	s.workers[target] = w
	w.Start(s.ctx)
}

func (s *Supervisor) stopLocked(target string) bool {
	w, ok := s.workers[target]
	if !ok {
		return false
	}
	delete(s.workers, target)
	w.Stop()
	return true
}
