package linker_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/linker"
	"github.com/drifthouse/rig/pkg/testutil"
	"github.com/drifthouse/rig/pkg/types"
)

func setupRepo(t *testing.T, names ...string) *testutil.MemoryFS {
	t.Helper()
	mfs := testutil.NewMemoryFS()
	for _, name := range names {
		require.NoError(t, mfs.MkdirAll("/repo/config/"+name, 0755))
	}
	require.NoError(t, mfs.MkdirAll("/home/.config", 0755))
	return mfs
}

func actions(outcomes []types.LinkOutcome) map[string]types.LinkAction {
	m := make(map[string]types.LinkAction, len(outcomes))
	for _, o := range outcomes {
		m[o.Name] = o.Action
	}
	return m
}

func TestReconcileCreatesLinks(t *testing.T) {
	mfs := setupRepo(t, "git", "nvim")

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	got := actions(outcomes)
	assert.Equal(t, types.LinkCreated, got["git"])
	assert.Equal(t, types.LinkCreated, got["nvim"])
	assert.True(t, mfs.IsLink("/home/.config/git", "/repo/config/git"))
	assert.True(t, mfs.IsLink("/home/.config/nvim", "/repo/config/nvim"))
}

func TestReconcileIsIdempotent(t *testing.T) {
	mfs := setupRepo(t, "git", "nvim")

	_, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.NoError(t, err)

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.Equal(t, types.LinkUnchanged, o.Action, o.Name)
	}
}

func TestReconcileReplacesStaleLink(t *testing.T) {
	mfs := setupRepo(t, "git")
	require.NoError(t, mfs.Symlink("/somewhere/else", "/home/.config/git"))

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.NoError(t, err)
	assert.Equal(t, types.LinkReplaced, outcomes[0].Action)
	assert.True(t, mfs.IsLink("/home/.config/git", "/repo/config/git"))
}

func TestReconcileNeverReplacesRegularDirWithoutForce(t *testing.T) {
	mfs := setupRepo(t, "git")
	require.NoError(t, mfs.MkdirAll("/home/.config/git", 0755))
	require.NoError(t, mfs.WriteFile("/home/.config/git/userdata", []byte("precious"), 0644))

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.NoError(t, err)
	assert.Equal(t, types.LinkSkippedExisting, outcomes[0].Action)

	data, err := mfs.ReadFile("/home/.config/git/userdata")
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))
}

func TestReconcileForceReplacesRegularDir(t *testing.T) {
	mfs := setupRepo(t, "git")
	require.NoError(t, mfs.MkdirAll("/home/.config/git", 0755))

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, types.LinkReplaced, outcomes[0].Action)
	assert.True(t, mfs.IsLink("/home/.config/git", "/repo/config/git"))
}

func TestReconcileDryRunDoesNotMutate(t *testing.T) {
	mfs := setupRepo(t, "git")

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, types.LinkCreated, outcomes[0].Action)
	assert.False(t, mfs.Exists("/home/.config/git"))
}

func TestReconcileReportsPermissionDenial(t *testing.T) {
	mfs := setupRepo(t, "git", "nvim")
	mfs.InjectError("/home/.config/git", &fs.PathError{Op: "symlink", Path: "/home/.config/git", Err: fs.ErrPermission})

	outcomes, err := linker.Reconcile(mfs, "/repo/config", "/home/.config", linker.Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrSymlinkDenied, errors.GetErrorCode(err))

	// The denied entry does not stop the rest of the enumeration.
	got := actions(outcomes)
	assert.Equal(t, types.LinkFailed, got["git"])
	assert.Equal(t, types.LinkCreated, got["nvim"])
}

func TestVerifyReportsMissingTargets(t *testing.T) {
	mfs := setupRepo(t, "git", "nvim")
	require.NoError(t, mfs.Symlink("/repo/config/git", "/home/.config/git"))
	require.NoError(t, mfs.MkdirAll("/home/.config/nvim", 0755))

	missing, err := linker.Verify(mfs, "/repo/config", "/home/.config")
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/.config/nvim"}, missing)
}

func TestMappingsSkipsPlainFiles(t *testing.T) {
	mfs := setupRepo(t, "git")
	require.NoError(t, mfs.WriteFile("/repo/config/README.md", []byte("docs"), 0644))

	mappings, err := linker.Mappings(mfs, "/repo/config", "/home/.config")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "/repo/config/git", mappings[0].SourcePath)
}
