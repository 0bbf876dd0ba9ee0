//go:build unix

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCommand puts the encoder in its own process group so a kill
// reaches any helpers it forks.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killTree(proc *os.Process) error {
	if err := unix.Kill(-proc.Pid, unix.SIGKILL); err == nil {
		return nil
	}
	return proc.Kill()
}
