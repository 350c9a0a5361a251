// Package pkgmgr abstracts the external package manager.
//
// Reconciliation and audit logic depend only on the Query interface so
// they are decoupled from any specific tool's output format; the real
// backend shells out to winget, tests use the in-memory fake from
// pkg/testutil.
package pkgmgr

import (
	"strings"
	"unicode"

	"github.com/drifthouse/rig/pkg/types"
)

// Query is the capability the reconcilers need from a package manager.
type Query interface {
	// Available reports whether the underlying tool can be invoked.
	Available() bool

	// Snapshot returns a listing of installed packages as raw text.
	// Callers cache it once per run; membership checks against it are
	// cheap but may be stale after installs.
	Snapshot() (string, error)

	// InstalledVersion performs a precise live query for one id,
	// returning its installed version and whether it is installed.
	InstalledVersion(id string) (string, bool, error)

	// Install installs one entry at its declared scope.
	Install(entry types.PackageEntry) error

	// Uninstall removes one package, best effort.
	Uninstall(id string) error
}

// SnapshotContains reports whether the snapshot text mentions id as a
// whole token, case-insensitively. Substring hits inside longer tokens
// ("Git" in "GitHub.cli") do not count.
func SnapshotContains(snapshot, id string) bool {
	want := strings.ToLower(id)
	for _, line := range strings.Split(snapshot, "\n") {
		for _, token := range strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r)
		}) {
			if strings.ToLower(token) == want {
				return true
			}
		}
	}
	return false
}
