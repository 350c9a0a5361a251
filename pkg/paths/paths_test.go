package paths_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/paths"
)

func TestNewResolvesRepoLayout(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	t.Setenv("RIG_DATA_DIR", "/data/rig")
	t.Setenv("RIG_CACHE_DIR", "/cache/rig")

	p, err := paths.New("/repo")
	require.NoError(t, err)

	assert.Equal(t, "/repo", p.RepoRoot())
	assert.Equal(t, "/repo/config", p.ConfigSourceDir())
	assert.Equal(t, "/repo/packages.json", p.ManifestPath())
	assert.Equal(t, "/repo/modules", p.ModulesSourceDir())
	assert.Equal(t, "/repo/fonts", p.FontsSourceDir())

	assert.Equal(t, "/data/rig", p.DataDir())
	assert.Equal(t, "/cache/rig", p.CacheDir())
	assert.Equal(t, "/cache/rig/repo", p.RepoCacheDir())
	assert.Equal(t, "/data/rig/modules", p.ModulesDir())
	assert.Equal(t, "/data/rig/rig-env.sh", p.EnvFilePath())
	assert.Equal(t, "/home/dev/.gitconfig", p.GitConfigPath())
	assert.NotEmpty(t, p.ProfilePaths())
}

func TestNewEmptyRootUsesEnvVar(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	t.Setenv("RIG_REPO_ROOT", "/elsewhere/dotfiles")

	p, err := paths.New("")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/dotfiles", p.RepoRoot())
}
