package trigger

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Launcher starts a run for an issue and returns immediately with the run
// identity. Implementations must not block on the run itself.
type Launcher interface {
	Launch(issue int, runID string) error
}

// ExecLauncher re-executes the current binary as a detached child, so runs
// survive the poller or webhook process exiting.
type ExecLauncher struct {
	// Binary defaults to the current executable.
	Binary string
}

// Launch spawns `<binary> run <issue> --run-id <runID>` in its own session.
func (l *ExecLauncher) Launch(issue int, runID string) error {
	binary := l.Binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		binary = exe
	}

	cmd := exec.Command(binary, "run", fmt.Sprintf("%d", issue), "--run-id", runID)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn run for issue #%d: %w", issue, err)
	}
	// Detach: the child's lifecycle is its own.
	return cmd.Process.Release()
}
