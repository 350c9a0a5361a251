package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/manifest"
	"github.com/drifthouse/rig/pkg/testutil"
	"github.com/drifthouse/rig/pkg/types"
)

func writeManifest(t *testing.T, content string) *testutil.MemoryFS {
	t.Helper()
	fs := testutil.NewMemoryFS()
	require.NoError(t, fs.MkdirAll("/repo", 0755))
	require.NoError(t, fs.WriteFile("/repo/packages.json", []byte(content), 0644))
	return fs
}

func TestLoadStringAndObjectForms(t *testing.T) {
	fs := writeManifest(t, `[
		"Foo.Bar",
		{"id": "Baz.Qux", "scope": "machine", "version": "2.0", "pinned": true}
	]`)

	entries, err := manifest.Load(fs, "/repo/packages.json")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, types.PackageEntry{ID: "Foo.Bar", Scope: types.ScopeUser}, entries[0])
	assert.Equal(t, types.PackageEntry{
		ID:              "Baz.Qux",
		Scope:           types.ScopeMachine,
		ExpectedVersion: "2.0",
		Pinned:          true,
	}, entries[1])
}

func TestLoadDefaultsScopeToUser(t *testing.T) {
	fs := writeManifest(t, `[{"id": "Foo.Bar"}]`)

	entries, err := manifest.Load(fs, "/repo/packages.json")
	require.NoError(t, err)
	assert.Equal(t, types.ScopeUser, entries[0].Scope)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"not an array", `{"id": "Foo.Bar"}`, errors.ErrManifestParse},
		{"unknown scope", `[{"id": "A", "scope": "galaxy"}]`, errors.ErrManifestParse},
		{"pinned without version", `[{"id": "A", "pinned": true}]`, errors.ErrManifestParse},
		{"duplicate id", `["Foo.Bar", {"id": "foo.bar"}]`, errors.ErrManifestParse},
		{"empty id", `[""]`, errors.ErrManifestParse},
		{"unknown field", `[{"id": "A", "channel": "beta"}]`, errors.ErrManifestParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := writeManifest(t, tt.content)
			_, err := manifest.Load(fs, "/repo/packages.json")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := testutil.NewMemoryFS()
	_, err := manifest.Load(fs, "/repo/packages.json")
	require.Error(t, err)
	assert.Equal(t, errors.ErrManifestLoad, errors.GetErrorCode(err))
}
