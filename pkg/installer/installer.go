// Package installer reconciles the manifest against installed packages.
package installer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/types"
)

// Options control one install run.
type Options struct {
	// DryRun reports what would be installed without invoking the
	// package manager.
	DryRun bool
}

// Install installs every manifest entry that is not already present.
//
// The installed-package snapshot is taken once up front; per-entry
// membership is checked against it, and only after an install attempt
// is the entry re-checked with a precise live query. A failing entry is
// logged as a warning and never aborts the rest of the batch. Entries
// are processed in manifest order with no parallelism, since package
// manager invocations contend on the underlying package database.
func Install(q pkgmgr.Query, entries []types.PackageEntry, opts Options) []types.ReconciliationResult {
	logger := logging.GetLogger("installer")

	snapshot, err := q.Snapshot()
	if err != nil {
		logger.Warn().Err(err).Msg("Could not snapshot installed packages, assuming none installed")
		snapshot = ""
	}

	results := make([]types.ReconciliationResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, installOne(q, entry, snapshot, opts, logger))
	}

	// Batch summary: list every failing entry at the end, not only
	// the first.
	var failed []string
	for _, r := range results {
		if r.Status == types.StatusError {
			failed = append(failed, r.ID)
		}
	}
	if len(failed) > 0 {
		logger.Warn().Strs("failed", failed).Int("total", len(entries)).Msg("Some packages failed to install")
	} else {
		logging.OK(logger, fmt.Sprintf("All %d manifest packages present", len(entries)))
	}

	return results
}

func installOne(q pkgmgr.Query, entry types.PackageEntry, snapshot string, opts Options, logger zerolog.Logger) types.ReconciliationResult {
	if pkgmgr.SnapshotContains(snapshot, entry.ID) {
		logger.Debug().Str("id", entry.ID).Msg("Already installed")
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusOK,
			Note:   "already installed",
		}
	}

	if opts.DryRun {
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusMissing,
			Note:   fmt.Sprintf("would install at %s scope", entry.Scope),
		}
	}

	logger.Info().Str("id", entry.ID).Str("scope", string(entry.Scope)).Msg("Installing")
	if err := q.Install(entry); err != nil {
		logger.Warn().Err(err).Str("id", entry.ID).Msg("Install failed, continuing with remaining packages")
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusError,
			Note:   err.Error(),
		}
	}

	// The snapshot is stale now; confirm with a precise live query so
	// a silently failed install is not reported as success.
	version, installed, err := q.InstalledVersion(entry.ID)
	if err != nil {
		logger.Warn().Err(err).Str("id", entry.ID).Msg("Post-install verification failed")
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusError,
			Note:   fmt.Sprintf("installed but verification failed: %v", err),
		}
	}
	if !installed {
		logger.Warn().Str("id", entry.ID).Msg("Package manager reported success but package not found")
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusError,
			Note:   "install reported success but package not found",
		}
	}

	logging.OK(logger, fmt.Sprintf("Installed %s %s", entry.ID, version))
	return types.ReconciliationResult{
		ID:       entry.ID,
		Observed: version,
		Status:   types.StatusOK,
		Note:     "installed",
	}
}
