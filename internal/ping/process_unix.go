//go:build unix

package ping

import (
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

func configureCommand(cmd *exec.Cmd) {}

func terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}
