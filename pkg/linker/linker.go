// Package linker reconciles symbolic links from the repository config
// tree into the user's home config tree.
package linker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// Options control one reconciliation pass.
type Options struct {
	// Force replaces regular files and directories occupying a target
	// path. Without it they are left untouched and reported as
	// skipped: un-tracked user data is never destroyed implicitly.
	Force bool

	// DryRun reports intended actions without touching the filesystem.
	DryRun bool
}

// Mappings derives the desired link set by enumerating the immediate
// subdirectories of sourceRoot. Nothing is persisted; the mapping is
// recomputed on every run.
func Mappings(fs types.FS, sourceRoot, targetRoot string) ([]types.LinkMapping, error) {
	entries, err := fs.ReadDir(sourceRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrEnvMissing, "cannot enumerate config source %s", sourceRoot)
	}

	mappings := make([]types.LinkMapping, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		mappings = append(mappings, types.LinkMapping{
			SourcePath: filepath.Join(sourceRoot, entry.Name()),
			TargetPath: filepath.Join(targetRoot, entry.Name()),
		})
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].SourcePath < mappings[j].SourcePath
	})
	return mappings, nil
}

// Reconcile makes the filesystem match the desired link set.
//
// A failing mapping is recorded in its outcome and never stops the
// enumeration of the rest. The returned error is non-nil only when the
// source tree cannot be enumerated, or when at least one mapping failed
// with a permission error; the latter carries ErrSymlinkDenied so the
// caller can decide to retry elevated.
func Reconcile(fs types.FS, sourceRoot, targetRoot string, opts Options) ([]types.LinkOutcome, error) {
	logger := logging.GetLogger("linker")

	mappings, err := Mappings(fs, sourceRoot, targetRoot)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		if err := fs.MkdirAll(targetRoot, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create target root %s", targetRoot)
		}
	}

	outcomes := make([]types.LinkOutcome, 0, len(mappings))
	denied := false
	for _, m := range mappings {
		outcome := reconcileOne(fs, m, opts)
		if outcome.Action == types.LinkFailed && os.IsPermission(outcome.Err) {
			denied = true
		}
		logger.Debug().
			Str("name", outcome.Name).
			Str("action", string(outcome.Action)).
			Str("target", outcome.Target).
			Msg("Reconciled mapping")
		outcomes = append(outcomes, outcome)
	}

	if denied {
		return outcomes, errors.Newf(errors.ErrSymlinkDenied,
			"symlink creation denied under %s", targetRoot)
	}
	return outcomes, nil
}

func reconcileOne(fs types.FS, m types.LinkMapping, opts Options) types.LinkOutcome {
	outcome := types.LinkOutcome{
		Name:   filepath.Base(m.TargetPath),
		Source: m.SourcePath,
		Target: m.TargetPath,
	}

	info, err := fs.Lstat(m.TargetPath)
	switch {
	case err != nil && os.IsNotExist(err):
		outcome.Action = types.LinkCreated
		if opts.DryRun {
			return outcome
		}
		if err := fs.Symlink(m.SourcePath, m.TargetPath); err != nil {
			return failed(outcome, err)
		}
		return outcome

	case err != nil:
		return failed(outcome, err)

	case info.Mode()&os.ModeSymlink != 0:
		// Links are always reconcilable: last writer wins.
		if dest, err := fs.Readlink(m.TargetPath); err == nil && dest == m.SourcePath {
			outcome.Action = types.LinkUnchanged
			return outcome
		}
		outcome.Action = types.LinkReplaced
		if opts.DryRun {
			return outcome
		}
		if err := fs.Remove(m.TargetPath); err != nil {
			return failed(outcome, err)
		}
		if err := fs.Symlink(m.SourcePath, m.TargetPath); err != nil {
			return failed(outcome, err)
		}
		return outcome

	default:
		// A regular file or directory occupies the target.
		if !opts.Force {
			outcome.Action = types.LinkSkippedExisting
			outcome.Note = "target exists and is not a link; use --force to replace"
			return outcome
		}
		outcome.Action = types.LinkReplaced
		if opts.DryRun {
			return outcome
		}
		if err := fs.RemoveAll(m.TargetPath); err != nil {
			return failed(outcome, err)
		}
		if err := fs.Symlink(m.SourcePath, m.TargetPath); err != nil {
			return failed(outcome, err)
		}
		return outcome
	}
}

func failed(outcome types.LinkOutcome, err error) types.LinkOutcome {
	outcome.Action = types.LinkFailed
	outcome.Err = err
	outcome.Note = err.Error()
	return outcome
}

// Verify re-derives the desired link set and returns the targets that
// are missing or not symbolic links. The elevation protocol uses it:
// the parent cannot observe the elevated child's output, so success is
// established by re-querying the filesystem.
func Verify(fs types.FS, sourceRoot, targetRoot string) ([]string, error) {
	mappings, err := Mappings(fs, sourceRoot, targetRoot)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, m := range mappings {
		info, err := fs.Lstat(m.TargetPath)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			missing = append(missing, m.TargetPath)
		}
	}
	return missing, nil
}

// RemediationCommand is the manual fallback printed when elevation
// could not complete the link set.
func RemediationCommand(sourceRoot, targetRoot string) string {
	return fmt.Sprintf("rig link --source %q --target %q --force", sourceRoot, targetRoot)
}
