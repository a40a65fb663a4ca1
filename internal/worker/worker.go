// Package worker runs one external ping process for one target and turns its
// output into events.
//
// A Worker moves through Starting -> Running -> Stopping -> Stopped. Spawn
// failure goes straight to Stopped. Stopped is terminal and is announced with
// exactly one WorkerStopped event. Stop may be called at any time, from any
// goroutine, any number of times; it returns once the child process is gone.
package worker

import (
	"bufio"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/log"
	"github.com/doridoridoriand/fastping/internal/ping"
	"github.com/doridoridoriand/fastping/internal/stats"
)

// State is the lifecycle position of a worker.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const DefaultGracePeriod = 3 * time.Second

// Options configures a worker.
type Options struct {
	Spawner       ping.Spawner
	Profile       ping.Profile
	Sink          event.Sink
	Logger        *log.Logger
	GracePeriod   time.Duration
	LossWindow    int
	LatencyWindow int
}

// Worker owns one probe process and the counters for its target.
type Worker struct {
	target string
	id     uuid.UUID
	opts   Options

	mu      sync.Mutex
	state   State
	reason  event.StopReason
	started bool
	cancel  context.CancelFunc
	proc    ping.Process

	done chan struct{}
}

// New prepares a worker for target. Nothing runs until Start.
func New(target string, opts Options) *Worker {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Sink == nil {
		opts.Sink = event.SinkFunc(func(event.Event) {})
	}
	return &Worker{
		target: target,
		id:     uuid.New(),
		opts:   opts,
		state:  StateStarting,
		done:   make(chan struct{}),
	}
}

// Target returns the monitored address.
func (w *Worker) Target() string { return w.target }

// ID identifies this run; a re-added target gets a new one.
func (w *Worker) ID() uuid.UUID { return w.id }

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Reason returns why the worker stopped, or "" while it is still alive.
func (w *Worker) Reason() event.StopReason {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reason
}

// Done is closed when the worker reaches Stopped.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Process returns the child process handle, nil before a successful spawn.
func (w *Worker) Process() ping.Process {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proc
}

// Start launches the worker goroutine. Calling it twice has no effect.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started || w.state == StateStopped {
		w.mu.Unlock()
		return
	}
	w.started = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	go w.run(runCtx)
}

// Stop requests cancellation and blocks until the worker is Stopped.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		// Never started: nothing to terminate, just close out.
		if w.state != StateStopped {
			w.started = true
			w.mu.Unlock()
			w.finish(event.ReasonCancelled)
			return
		}
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer w.cancel()

	proc, err := w.opts.Spawner.Spawn(w.target)
	if err != nil {
		w.opts.Logger.LogError("worker", err, map[string]interface{}{
			"target": w.target,
			"run_id": w.id.String(),
		})
		w.finish(event.ReasonSpawnFailed)
		return
	}

	w.mu.Lock()
	w.proc = proc
	w.state = StateRunning
	w.mu.Unlock()
	w.opts.Logger.Debug("worker running", map[string]interface{}{
		"target": w.target,
		"run_id": w.id.String(),
		"pid":    proc.Pid(),
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		w.readLoop(ctx, proc)
	}()

	reason := event.ReasonProcessExited
	select {
	case <-ctx.Done():
		reason = event.ReasonCancelled
	case <-readDone:
	}

	w.setState(StateStopping)
	w.terminate(proc, readDone)
	w.finish(reason)
}

// readLoop feeds every stdout line through the parser and aggregator.
// Once cancellation is requested it keeps draining but stops publishing.
func (w *Worker) readLoop(ctx context.Context, proc ping.Process) {
	agg := stats.NewAggregatorWithWindows(w.target, w.opts.LossWindow, w.opts.LatencyWindow)
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	scanner.Split(scanBoundedLines)
	for scanner.Scan() {
		reading := w.opts.Profile.Parse(scanner.Text())
		events := agg.Observe(reading)
		if ctx.Err() != nil {
			continue
		}
		for _, e := range events {
			e.RunID = w.id
			w.opts.Sink.Publish(e)
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		w.opts.Logger.Debug("probe output read failed", map[string]interface{}{
			"target": w.target,
			"error":  err.Error(),
		})
	}
}

// maxLineLength bounds one line of probe output. Longer lines are cut into
// pieces of this size, each of which parses as unrecognized.
const maxLineLength = 64 * 1024

// scanBoundedLines is bufio.ScanLines that hands back a full buffer as a
// token instead of failing with bufio.ErrTooLong.
func scanBoundedLines(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if advance == 0 && token == nil && err == nil && len(data) >= maxLineLength {
		return maxLineLength, data[:maxLineLength], nil
	}
	return advance, token, err
}

// terminate asks the process to exit, escalates to kill after the grace
// period and reaps it. The read loop always finishes before Wait is called
// unless the pipe stays open past a second grace period.
func (w *Worker) terminate(proc ping.Process, readDone <-chan struct{}) {
	grace := w.opts.GracePeriod

	if err := proc.Terminate(); err != nil {
		w.opts.Logger.Debug("terminate failed", map[string]interface{}{
			"target": w.target,
			"error":  err.Error(),
		})
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-readDone:
	case <-timer.C:
		w.opts.Logger.Warn("probe ignored terminate, killing", map[string]interface{}{
			"target": w.target,
			"pid":    proc.Pid(),
		})
		_ = proc.Kill()
		timer.Reset(grace)
		select {
		case <-readDone:
		case <-timer.C:
		}
	}

	waited := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(waited)
	}()

	timer.Reset(grace)
	select {
	case <-waited:
	case <-timer.C:
		_ = proc.Kill()
		<-waited
	}
	<-readDone
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) finish(reason event.StopReason) {
	w.mu.Lock()
	if w.state == StateStopped {
		w.mu.Unlock()
		return
	}
	w.state = StateStopped
	w.reason = reason
	w.mu.Unlock()

	e := event.WorkerStopped(w.target, reason)
	e.RunID = w.id
	w.opts.Sink.Publish(e)
	w.opts.Logger.LogWorkerStopped(w.target, string(reason), w.id.String())
	close(w.done)
}
