// Package pingtest provides in-memory probe processes for tests.
package pingtest

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doridoridoriand/fastping/internal/ping"
)

// Process is a fake probe whose output is written by the test.
type Process struct {
	pid int
	r   *io.PipeReader
	w   *io.PipeWriter

	mu              sync.Mutex
	ignoreTerminate bool
	terminated      int
	killed          int
	exited          bool
	closed          bool
	done            chan struct{}
}

// NewProcess returns a running fake process.
func NewProcess(pid int) *Process {
	r, w := io.Pipe()
	return &Process{pid: pid, r: r, w: w, done: make(chan struct{})}
}

// Emit writes one line of probe output. It blocks until the line is read.
func (p *Process) Emit(line string) error {
	_, err := io.WriteString(p.w, line+"\n")
	return err
}

// IgnoreTerminate makes Terminate a no-op so that Kill is required.
func (p *Process) IgnoreTerminate() {
	p.mu.Lock()
	p.ignoreTerminate = true
	p.mu.Unlock()
}

// Exit simulates the process ending on its own.
func (p *Process) Exit() { p.close() }

func (p *Process) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	_ = p.w.Close()
	close(p.done)
}

func (p *Process) Stdout() io.Reader { return p.r }

func (p *Process) Terminate() error {
	p.mu.Lock()
	p.terminated++
	ignore := p.ignoreTerminate
	p.mu.Unlock()
	if !ignore {
		p.close()
	}
	return nil
}

func (p *Process) Kill() error {
	p.mu.Lock()
	p.killed++
	p.mu.Unlock()
	p.close()
	return nil
}

func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
	return nil
}

func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *Process) Pid() int { return p.pid }

// Terminated returns how many times Terminate was called.
func (p *Process) Terminated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// Killed returns how many times Kill was called.
func (p *Process) Killed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

var ErrSpawn = errors.New("pingtest: spawn refused")

// Spawner hands out fake processes and remembers them per target.
type Spawner struct {
	mu      sync.Mutex
	nextPID int
	fail    map[string]bool
	procs   map[string][]*Process
}

// NewSpawner returns a spawner that succeeds for every target.
func NewSpawner() *Spawner {
	return &Spawner{
		nextPID: 1000,
		fail:    make(map[string]bool),
		procs:   make(map[string][]*Process),
	}
}

// Fail makes Spawn return ErrSpawn for target.
func (s *Spawner) Fail(target string) {
	s.mu.Lock()
	s.fail[target] = true
	s.mu.Unlock()
}

func (s *Spawner) Spawn(target string) (ping.Process, error) {
	s.mu.Lock()
	if s.fail[target] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", target, ErrSpawn)
	}
	s.nextPID++
	p := NewProcess(s.nextPID)
	s.procs[target] = append(s.procs[target], p)
	s.mu.Unlock()
	return p, nil
}

// Processes returns every process spawned for target, oldest first.
func (s *Spawner) Processes(target string) []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Process(nil), s.procs[target]...)
}

// All returns every process spawned so far.
func (s *Spawner) All() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Process
	for _, ps := range s.procs {
		out = append(out, ps...)
	}
	return out
}

// WaitSpawn blocks until a process exists for target or the timeout passes.
func (s *Spawner) WaitSpawn(target string, timeout time.Duration) (*Process, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ps := s.Processes(target); len(ps) > 0 {
			return ps[len(ps)-1], true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil, false
}
