package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/audit"
	"github.com/drifthouse/rig/pkg/testutil"
	"github.com/drifthouse/rig/pkg/types"
)

func TestRunReportsDrift(t *testing.T) {
	q := testutil.NewFakeQuery(map[string]string{
		"Foo.Bar": "3.1",
		"Baz.Qux": "1.9",
	})
	entries := []types.PackageEntry{
		{ID: "Foo.Bar", Scope: types.ScopeUser},
		{ID: "Baz.Qux", Scope: types.ScopeUser, ExpectedVersion: "2.0", Pinned: true},
	}

	results, exit := audit.Run(q, entries)
	require.Len(t, results, 2)
	assert.Equal(t, audit.ExitDrift, exit)

	// Unpinned entries are healthy at any installed version.
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, "3.1", results[0].Observed)

	assert.Equal(t, types.StatusDrift, results[1].Status)
	assert.Equal(t, "1.9", results[1].Observed)
	assert.Equal(t, "2.0", results[1].Expected)
	assert.Contains(t, results[1].Note, "Expected 2.0")
	assert.Contains(t, results[1].Note, "older")
}

func TestRunAllHealthy(t *testing.T) {
	q := testutil.NewFakeQuery(map[string]string{
		"Foo.Bar": "3.1",
		"Baz.Qux": "2.0",
	})
	entries := []types.PackageEntry{
		{ID: "Foo.Bar"},
		{ID: "Baz.Qux", ExpectedVersion: "2.0", Pinned: true},
	}

	results, exit := audit.Run(q, entries)
	assert.Equal(t, audit.ExitOK, exit)
	for _, r := range results {
		assert.Equal(t, types.StatusOK, r.Status, r.ID)
	}
}

func TestRunReportsMissing(t *testing.T) {
	q := testutil.NewFakeQuery(nil)
	entries := []types.PackageEntry{{ID: "Foo.Bar"}}

	results, exit := audit.Run(q, entries)
	assert.Equal(t, audit.ExitDrift, exit)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusMissing, results[0].Status)
	assert.Equal(t, "not installed", results[0].Note)
}

func TestRunNewerDriftDirection(t *testing.T) {
	q := testutil.NewFakeQuery(map[string]string{"Baz.Qux": "2.5"})
	entries := []types.PackageEntry{
		{ID: "Baz.Qux", ExpectedVersion: "2.0", Pinned: true},
	}

	results, _ := audit.Run(q, entries)
	assert.Contains(t, results[0].Note, "newer")
}

func TestRunNonSemverVersionsStillDrift(t *testing.T) {
	q := testutil.NewFakeQuery(map[string]string{"Baz.Qux": "build-42"})
	entries := []types.PackageEntry{
		{ID: "Baz.Qux", ExpectedVersion: "build-41", Pinned: true},
	}

	results, exit := audit.Run(q, entries)
	assert.Equal(t, audit.ExitDrift, exit)
	assert.Equal(t, types.StatusDrift, results[0].Status)
	assert.Equal(t, "Expected build-41", results[0].Note)
}

func TestRunEmptyManifest(t *testing.T) {
	q := testutil.NewFakeQuery(nil)
	results, exit := audit.Run(q, nil)
	assert.Empty(t, results)
	assert.Equal(t, audit.ExitOK, exit)
}
