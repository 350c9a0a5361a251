package filesystem_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/filesystem"
	"github.com/drifthouse/rig/pkg/types"
)

func exerciseFS(t *testing.T, fs types.FS, root string) {
	t.Helper()

	dir := filepath.Join(root, "config", "git")
	require.NoError(t, fs.MkdirAll(dir, 0755))

	file := filepath.Join(dir, "gitconfig")
	require.NoError(t, fs.WriteFile(file, []byte("[user]\n"), 0644))

	data, err := fs.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "[user]\n", string(data))

	entries, err := fs.ReadDir(filepath.Join(root, "config"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "git", entries[0].Name())
	assert.True(t, entries[0].IsDir())

	info, err := fs.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, fs.Remove(file))
	_, err = fs.ReadFile(file)
	require.Error(t, err)

	require.NoError(t, fs.RemoveAll(filepath.Join(root, "config")))
	_, err = fs.Stat(dir)
	require.Error(t, err)
}

func exerciseSymlinks(t *testing.T, fs types.FS, root string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}

	source := filepath.Join(root, "source")
	link := filepath.Join(root, "link")
	require.NoError(t, fs.MkdirAll(source, 0755))
	require.NoError(t, fs.Symlink(source, link))

	dest, err := fs.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, source, dest)

	info, err := fs.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
}

func TestOSFS(t *testing.T) {
	fs := filesystem.NewOS()
	exerciseFS(t, fs, t.TempDir())
	exerciseSymlinks(t, fs, t.TempDir())
}

func TestAferoOsFS(t *testing.T) {
	fs := filesystem.NewAferoFS(afero.NewOsFs())
	exerciseFS(t, fs, t.TempDir())
	exerciseSymlinks(t, fs, t.TempDir())
}

func TestAferoMemMapFS(t *testing.T) {
	fs := filesystem.NewAferoFS(afero.NewMemMapFs())
	exerciseFS(t, fs, "/root")
}
