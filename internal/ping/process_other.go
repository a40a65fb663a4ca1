//go:build !unix && !windows

package ping

import (
	"os"
	"os/exec"
)

func configureCommand(cmd *exec.Cmd) {}

func terminate(p *os.Process) error {
	return p.Kill()
}
