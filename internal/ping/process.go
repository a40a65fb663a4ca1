package ping

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Process is a running probe. Stdout must be drained before Wait is called.
type Process interface {
	Stdout() io.Reader
	// Terminate asks the process to exit and lets it clean up.
	Terminate() error
	Kill() error
	Wait() error
	// Exited reports whether Wait has observed the process exit.
	Exited() bool
	Pid() int
}

// Spawner starts probe processes.
type Spawner interface {
	Spawn(target string) (Process, error)
}

// ExecSpawner runs the profile's ping command as a child process.
type ExecSpawner struct {
	profile Profile
}

// NewExecSpawner returns a spawner for the given profile.
func NewExecSpawner(profile Profile) *ExecSpawner {
	return &ExecSpawner{profile: profile}
}

// Spawn starts the continuous ping for target. Standard error is discarded.
func (s *ExecSpawner) Spawn(target string) (Process, error) {
	name, args := s.profile.Command(target)
	cmd := exec.Command(name, args...)
	configureCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return &execProcess{cmd: cmd, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader

	waitOnce sync.Once
	waitErr  error
	mu       sync.Mutex
	exited   bool
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Terminate() error {
	if p.Exited() {
		return nil
	}
	return terminate(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	if p.Exited() {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.mu.Lock()
		p.exited = true
		p.mu.Unlock()
	})
	return p.waitErr
}

func (p *execProcess) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
