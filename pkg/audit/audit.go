// Package audit compares the manifest against installed packages
// without mutating anything.
package audit

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/types"
)

// Exit codes for the audit command. ExitTooling is set by the CLI
// layer when the manifest itself cannot be loaded, so a broken manifest
// is distinguishable from a drifted environment.
const (
	ExitOK      = 0
	ExitDrift   = 1
	ExitTooling = 2
)

// Run audits every manifest entry and returns the per-entry results
// along with the process exit code. It is a pure read: no installs,
// no filesystem writes.
func Run(q pkgmgr.Query, entries []types.PackageEntry) ([]types.ReconciliationResult, int) {
	logger := logging.GetLogger("audit")

	results := make([]types.ReconciliationResult, 0, len(entries))
	exit := ExitOK
	for _, entry := range entries {
		r := auditOne(q, entry)
		if !r.Status.IsOK() {
			exit = ExitDrift
		}
		results = append(results, r)
	}

	logger.Debug().Int("entries", len(entries)).Int("exit", exit).Msg("Audit complete")
	return results, exit
}

func auditOne(q pkgmgr.Query, entry types.PackageEntry) types.ReconciliationResult {
	logger := logging.GetLogger("audit")

	version, installed, err := q.InstalledVersion(entry.ID)
	if err != nil {
		logger.Warn().Err(err).Str("id", entry.ID).Msg("Query failed")
		return types.ReconciliationResult{
			ID:     entry.ID,
			Status: types.StatusError,
			Note:   err.Error(),
		}
	}

	if !installed {
		return types.ReconciliationResult{
			ID:       entry.ID,
			Expected: entry.ExpectedVersion,
			Status:   types.StatusMissing,
			Note:     "not installed",
		}
	}

	// Pinned and expected version are one combined predicate: an
	// unpinned entry is healthy at any installed version.
	if entry.Pinned && version != entry.ExpectedVersion {
		return types.ReconciliationResult{
			ID:       entry.ID,
			Observed: version,
			Expected: entry.ExpectedVersion,
			Status:   types.StatusDrift,
			Note:     driftNote(version, entry.ExpectedVersion),
		}
	}

	return types.ReconciliationResult{
		ID:       entry.ID,
		Observed: version,
		Expected: entry.ExpectedVersion,
		Status:   types.StatusOK,
		Note:     "installed",
	}
}

// driftNote always carries the expected value; when both versions parse
// as semver it also says which direction the drift goes.
func driftNote(observed, expected string) string {
	note := fmt.Sprintf("Expected %s", expected)
	ov, oerr := semver.NewVersion(observed)
	ev, eerr := semver.NewVersion(expected)
	if oerr != nil || eerr != nil {
		return note
	}
	switch {
	case ov.LessThan(ev):
		return note + fmt.Sprintf(" (installed %s is older)", observed)
	case ov.GreaterThan(ev):
		return note + fmt.Sprintf(" (installed %s is newer)", observed)
	default:
		return note
	}
}
