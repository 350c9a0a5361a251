// Package revert undoes what bootstrap set up.
//
// Every sub-operation is independently selectable, independently
// idempotent, and dry-run capable. All of them are deliberately
// conservative: only verified rig-owned state is touched.
package revert

import (
	"os"

	"github.com/drifthouse/rig/pkg/bootstrap"
	"github.com/drifthouse/rig/pkg/config"
	"github.com/drifthouse/rig/pkg/fonts"
	"github.com/drifthouse/rig/pkg/linker"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/manifest"
	"github.com/drifthouse/rig/pkg/paths"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/profile"
	"github.com/drifthouse/rig/pkg/types"
)

// Options select which sub-operations run.
type Options struct {
	Links    bool
	Packages bool
	Fonts    bool
	Profiles bool
	Modules  bool
	Env      bool
	Repo     bool

	// All selects every sub-operation.
	All bool

	// DryRun reports every action without performing it.
	DryRun bool
}

func (o Options) selected(flag bool) bool {
	return o.All || flag
}

// Result lists everything that was (or would be) undone.
type Result struct {
	Items  []types.RevertedItem `json:"items"`
	DryRun bool                 `json:"dryRun"`
}

// Run executes the selected revert operations. Individual failures are
// recorded and never stop the remaining operations.
func Run(fs types.FS, q pkgmgr.Query, p paths.Paths, cfg *config.Config, opts Options) (*Result, error) {
	logger := logging.GetLogger("revert")
	result := &Result{DryRun: opts.DryRun}

	if opts.selected(opts.Links) {
		result.Items = append(result.Items, revertLinks(fs, p, opts.DryRun)...)
	}
	if opts.selected(opts.Packages) {
		result.Items = append(result.Items, revertPackages(fs, q, cfg, opts.DryRun)...)
	}
	if opts.selected(opts.Fonts) {
		result.Items = append(result.Items, fonts.Remove(fs, p.FontDir(), cfg.FontPatterns, opts.DryRun)...)
	}
	if opts.selected(opts.Profiles) {
		profilePaths := cfg.ProfilePaths
		if len(profilePaths) == 0 {
			profilePaths = p.ProfilePaths()
		}
		result.Items = append(result.Items, profile.RemoveStubs(fs, profilePaths, opts.DryRun)...)
	}
	if opts.selected(opts.Modules) {
		result.Items = append(result.Items, profile.RemoveModules(fs, p.ModulesDir(), cfg.Modules, opts.DryRun)...)
	}
	if opts.selected(opts.Env) {
		removed, err := profile.ResetEnv(fs, p.EnvFilePath(), bootstrap.EnvVars(p), opts.DryRun)
		if err != nil {
			result.Items = append(result.Items, types.RevertedItem{Type: "env", Path: p.EnvFilePath(), Success: false, Error: err.Error()})
		} else if removed {
			result.Items = append(result.Items, types.RevertedItem{Type: "env", Path: p.EnvFilePath(), Success: true})
		}
	}
	if opts.selected(opts.Repo) {
		result.Items = append(result.Items, revertRepoCache(fs, p, opts.DryRun)...)
	}

	logger.Info().Int("items", len(result.Items)).Bool("dryRun", opts.DryRun).Msg("Revert finished")
	return result, nil
}

// revertLinks removes only targets that are actual symbolic links
// pointing back into the repository config tree. A plain directory
// that happens to occupy a target path is never removed.
func revertLinks(fs types.FS, p paths.Paths, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("revert.links")

	mappings, err := linker.Mappings(fs, p.ConfigSourceDir(), p.ConfigRoot())
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot derive link set")
		return nil
	}

	var items []types.RevertedItem
	for _, m := range mappings {
		info, err := fs.Lstat(m.TargetPath)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink == 0 {
			logger.Warn().Str("target", m.TargetPath).Msg("Target is not a link, leaving it in place")
			continue
		}
		if dest, err := fs.Readlink(m.TargetPath); err != nil || dest != m.SourcePath {
			logger.Warn().Str("target", m.TargetPath).Msg("Link points elsewhere, leaving it in place")
			continue
		}
		items = append(items, removeItem(fs, "link", m.TargetPath, dryRun))
	}
	return items
}

// revertPackages uninstalls every manifest package, best effort.
func revertPackages(fs types.FS, q pkgmgr.Query, cfg *config.Config, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("revert.packages")

	entries, err := manifest.Load(fs, cfg.ManifestPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot load manifest, skipping package removal")
		return []types.RevertedItem{{Type: "package", Path: cfg.ManifestPath, Success: false, Error: err.Error()}}
	}

	snapshot, err := q.Snapshot()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot snapshot installed packages")
		snapshot = ""
	}

	var items []types.RevertedItem
	for _, entry := range entries {
		if !pkgmgr.SnapshotContains(snapshot, entry.ID) {
			continue
		}
		if dryRun {
			logger.Info().Str("id", entry.ID).Msg("Would uninstall")
			items = append(items, types.RevertedItem{Type: "package", Path: entry.ID, Success: true})
			continue
		}
		if err := q.Uninstall(entry.ID); err != nil {
			logger.Warn().Err(err).Str("id", entry.ID).Msg("Uninstall failed, continuing")
			items = append(items, types.RevertedItem{Type: "package", Path: entry.ID, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("id", entry.ID).Msg("Uninstalled")
		items = append(items, types.RevertedItem{Type: "package", Path: entry.ID, Success: true})
	}
	return items
}

func revertRepoCache(fs types.FS, p paths.Paths, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("revert.repo")

	cacheDir := p.RepoCacheDir()
	if _, err := fs.Stat(cacheDir); err != nil {
		return nil
	}
	if dryRun {
		logger.Info().Str("dir", cacheDir).Msg("Would remove repository cache")
		return []types.RevertedItem{{Type: "repo", Path: cacheDir, Success: true}}
	}
	if err := fs.RemoveAll(cacheDir); err != nil {
		logger.Warn().Err(err).Str("dir", cacheDir).Msg("Cannot remove repository cache")
		return []types.RevertedItem{{Type: "repo", Path: cacheDir, Success: false, Error: err.Error()}}
	}
	logger.Info().Str("dir", cacheDir).Msg("Removed repository cache")
	return []types.RevertedItem{{Type: "repo", Path: cacheDir, Success: true}}
}

func removeItem(fs types.FS, itemType, path string, dryRun bool) types.RevertedItem {
	logger := logging.GetLogger("revert")
	if dryRun {
		logger.Info().Str("type", itemType).Str("path", path).Msg("Would remove")
		return types.RevertedItem{Type: itemType, Path: path, Success: true}
	}
	if err := fs.Remove(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Removal failed")
		return types.RevertedItem{Type: itemType, Path: path, Success: false, Error: err.Error()}
	}
	logger.Info().Str("type", itemType).Str("path", path).Msg("Removed")
	return types.RevertedItem{Type: itemType, Path: path, Success: true}
}
