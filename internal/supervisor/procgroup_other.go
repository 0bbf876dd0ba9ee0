//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

func killTree(proc *os.Process) error {
	return proc.Kill()
}
