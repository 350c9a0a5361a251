// Package paths provides centralized path handling for rig.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/drifthouse/rig/pkg/errors"
)

// Environment variable names
const (
	// EnvRepoRoot is the primary environment variable for the
	// provisioning repository location
	EnvRepoRoot = "RIG_REPO_ROOT"

	// EnvRigDataDir overrides the XDG data directory for rig
	EnvRigDataDir = "RIG_DATA_DIR"

	// EnvRigCacheDir overrides the XDG cache directory for rig
	EnvRigCacheDir = "RIG_CACHE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names inside the repository and the data dir. These are not
// user-configurable; user-facing knobs live in pkg/config.
const (
	// RigDirName is the directory name for rig-specific files
	RigDirName = "rig"

	// ConfigDirName is the repository subtree holding linkable config
	// directories
	ConfigDirName = "config"

	// ManifestFileName is the default package manifest inside the repo
	ManifestFileName = "packages.json"

	// ModulesDirName is the repository subtree holding shell modules
	ModulesDirName = "modules"

	// FontsDirName is the repository subtree holding font files
	FontsDirName = "fonts"

	// RepoCacheDirName is where downloaded archives are extracted
	RepoCacheDirName = "repo"

	// EnvFileName is the managed environment file under the data dir
	EnvFileName = "rig-env.sh"

	// LogFileName is the name of the log file
	LogFileName = "rig.log"
)

// Paths provides centralized path management for rig
type Paths interface {
	RepoRoot() string
	ConfigSourceDir() string
	ManifestPath() string
	ModulesSourceDir() string
	FontsSourceDir() string

	ConfigRoot() string
	DataDir() string
	CacheDir() string
	StateDir() string
	RepoCacheDir() string
	ModulesDir() string
	FontDir() string
	EnvFilePath() string
	GitConfigPath() string
	ProfilePaths() []string
	LogFilePath() string
}

type paths struct {
	repoRoot   string
	home       string
	configRoot string
	xdgData    string
	xdgCache   string
	xdgState   string
}

// New creates a Paths instance rooted at the given repository. An empty
// repoRoot falls back to RIG_REPO_ROOT and then the current directory.
func New(repoRoot string) (Paths, error) {
	if repoRoot == "" {
		repoRoot = os.Getenv(EnvRepoRoot)
	}
	if repoRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrEnvMissing, "cannot determine repository root")
		}
		repoRoot = cwd
	}
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid repository root %q", repoRoot)
	}

	home := os.Getenv(EnvHome)
	if home == "" {
		home, err = os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrEnvMissing, "cannot determine home directory")
		}
	}

	p := &paths{
		repoRoot:   abs,
		home:       home,
		configRoot: xdg.ConfigHome,
		xdgData:    filepath.Join(xdg.DataHome, RigDirName),
		xdgCache:   filepath.Join(xdg.CacheHome, RigDirName),
		xdgState:   filepath.Join(xdg.StateHome, RigDirName),
	}
	if override := os.Getenv(EnvRigDataDir); override != "" {
		p.xdgData = override
	}
	if override := os.Getenv(EnvRigCacheDir); override != "" {
		p.xdgCache = override
	}
	return p, nil
}

func (p *paths) RepoRoot() string { return p.repoRoot }

func (p *paths) ConfigSourceDir() string {
	return filepath.Join(p.repoRoot, ConfigDirName)
}

func (p *paths) ManifestPath() string {
	return filepath.Join(p.repoRoot, ManifestFileName)
}

func (p *paths) ModulesSourceDir() string {
	return filepath.Join(p.repoRoot, ModulesDirName)
}

func (p *paths) FontsSourceDir() string {
	return filepath.Join(p.repoRoot, FontsDirName)
}

func (p *paths) ConfigRoot() string { return p.configRoot }
func (p *paths) DataDir() string    { return p.xdgData }
func (p *paths) CacheDir() string   { return p.xdgCache }
func (p *paths) StateDir() string   { return p.xdgState }

func (p *paths) RepoCacheDir() string {
	return filepath.Join(p.xdgCache, RepoCacheDirName)
}

func (p *paths) ModulesDir() string {
	return filepath.Join(p.xdgData, ModulesDirName)
}

// FontDir is the per-user font directory.
func (p *paths) FontDir() string {
	return filepath.Join(xdg.DataHome, "fonts")
}

func (p *paths) EnvFilePath() string {
	return filepath.Join(p.xdgData, EnvFileName)
}

// GitConfigPath is the user-global git configuration file that receives
// the managed include block.
func (p *paths) GitConfigPath() string {
	return filepath.Join(p.home, ".gitconfig")
}

// ProfilePaths lists the shell profile locations that receive stubs.
func (p *paths) ProfilePaths() []string {
	return []string{
		filepath.Join(p.home, ".profile.d", "rig.sh"),
		filepath.Join(p.configRoot, "rig", "profile.sh"),
	}
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}
