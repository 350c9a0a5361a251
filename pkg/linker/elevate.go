package linker

import (
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
)

// Elevator re-runs link reconciliation in a separate elevated process.
//
// This is a message-passing boundary: the parent hands over the command
// description (the two roots and the force flag) and blocks until the
// child exits, but it can never read the child's output. Success is
// observed only by re-querying the filesystem with Verify afterwards.
type Elevator interface {
	Relink(sourceRoot, targetRoot string, force bool) error
}

// ExecElevator spawns the current binary again with elevated privileges
// running the link subcommand.
type ExecElevator struct {
	// run is swappable for tests; it must block until the elevated
	// process exits.
	run func(name string, args ...string) error
}

// NewExecElevator creates the real process-spawning elevator.
func NewExecElevator() *ExecElevator {
	return &ExecElevator{run: func(name string, args ...string) error {
		cmd := exec.Command(name, args...)
		// Output is deliberately not captured: an elevated child
		// writes to its own console, not ours.
		return cmd.Run()
	}}
}

func (e *ExecElevator) Relink(sourceRoot, targetRoot string, force bool) error {
	logger := logging.GetLogger("linker.elevate")

	self, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, errors.ErrElevation, "cannot locate own executable")
	}

	args := []string{"link", "--source", sourceRoot, "--target", targetRoot, "--quiet"}
	if force {
		args = append(args, "--force")
	}

	name, argv := elevatedCommand(self, args)
	logger.Info().Str("command", name).Strs("args", argv).Msg("Spawning elevated link process")
	if err := e.run(name, argv...); err != nil {
		return errors.Wrap(err, errors.ErrElevation, "elevated link process failed to run")
	}
	return nil
}

// elevatedCommand wraps the invocation in the platform's elevation
// mechanism: a RunAs process on Windows, sudo elsewhere.
func elevatedCommand(self string, args []string) (string, []string) {
	if runtime.GOOS == "windows" {
		quoted := make([]string, len(args))
		for i, a := range args {
			quoted[i] = "'" + a + "'"
		}
		script := "Start-Process -Wait -Verb RunAs -FilePath '" + self + "' -ArgumentList " + strings.Join(quoted, ",")
		return "powershell", []string{"-NoProfile", "-Command", script}
	}
	return "sudo", append([]string{self}, args...)
}

var _ Elevator = (*ExecElevator)(nil)
