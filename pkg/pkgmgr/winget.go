package pkgmgr

import (
	"os/exec"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// noInstallerMarker is what winget prints when a package has no
// installer for the requested scope. Seeing it triggers the retry
// without an explicit scope.
const noInstallerMarker = "no applicable installer"

// runner executes an external command and returns its combined output.
// Indirection exists so winget behavior is testable without winget.
type runner func(name string, args ...string) (string, error)

func execRunner(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return string(out), err
}

// Winget is the winget-backed Query implementation. Invocations are
// serialized by construction; winget holds a lock on its package
// database and concurrent calls just queue up on it.
type Winget struct {
	run runner
}

// NewWinget creates the real winget backend.
func NewWinget() *Winget {
	return &Winget{run: execRunner}
}

func (w *Winget) Available() bool {
	_, err := exec.LookPath("winget")
	return err == nil
}

func (w *Winget) Snapshot() (string, error) {
	out, err := w.run("winget", "list", "--disable-interactivity")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrPkgMgrUnavailable, "winget list failed")
	}
	return out, nil
}

func (w *Winget) InstalledVersion(id string) (string, bool, error) {
	out, err := w.run("winget", "list", "--exact", "--id", id, "--disable-interactivity")
	if err != nil {
		// winget exits non-zero when nothing matches
		return "", false, nil
	}
	return parseVersionFromListing(out, id)
}

// parseVersionFromListing extracts the version column from an exact-id
// listing. The line layout is "Name Id Version [Available] Source".
func parseVersionFromListing(out, id string) (string, bool, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if strings.EqualFold(f, id) && i+1 < len(fields) {
				return fields[i+1], true, nil
			}
		}
	}
	return "", false, nil
}

func (w *Winget) Install(entry types.PackageEntry) error {
	logger := logging.GetLogger("pkgmgr.winget")

	args := []string{
		"install", "--exact", "--id", entry.ID,
		"--accept-source-agreements", "--accept-package-agreements",
		"--disable-interactivity",
	}
	if entry.Scope == types.ScopeUser {
		out, err := w.run("winget", append(args, "--scope", "user")...)
		if err == nil {
			return nil
		}
		if !strings.Contains(strings.ToLower(out), noInstallerMarker) {
			return errors.Wrapf(err, errors.ErrInstallFailed, "winget install %s (user scope)", entry.ID)
		}
		// No user-scope installer published; fall back to the
		// default scope, which may prompt for elevation.
		logger.Debug().Str("id", entry.ID).Msg("no user-scope installer, retrying with default scope")
	}

	if _, err := w.run("winget", args...); err != nil {
		return errors.Wrapf(err, errors.ErrInstallFailed, "winget install %s", entry.ID)
	}
	return nil
}

func (w *Winget) Uninstall(id string) error {
	args := []string{
		"uninstall", "--exact", "--id", id,
		"--accept-source-agreements", "--disable-interactivity",
	}
	if _, err := w.run("winget", args...); err != nil {
		return errors.Wrapf(err, errors.ErrUninstallFailed, "winget uninstall %s", id)
	}
	return nil
}

var _ Query = (*Winget)(nil)
