// Package profile manages shell profile stubs and shell modules.
//
// Stubs are small files rig writes at known profile locations; each
// carries a sentinel marker so revert can tell rig-written stubs apart
// from user-authored profiles and never deletes the latter.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// Sentinel marks every file rig writes and owns.
const Sentinel = "# managed by rig -- do not edit"

// StubContent renders the profile stub: the sentinel plus a line
// sourcing the managed environment file.
func StubContent(envFilePath string) string {
	return fmt.Sprintf("%s\n[ -f %q ] && . %q\n", Sentinel, envFilePath, envFilePath)
}

// InstallStubs writes the profile stub at every configured location.
//
// A missing file is created, a stub with the sentinel is rewritten
// (idempotent), and an existing file without the sentinel is skipped
// with a warning: rig never overwrites a user-authored profile.
func InstallStubs(fs types.FS, profilePaths []string, envFilePath string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("profile")
	content := StubContent(envFilePath)

	items := make([]types.RevertedItem, 0, len(profilePaths))
	for _, path := range profilePaths {
		data, err := fs.ReadFile(path)
		switch {
		case err == nil && !strings.Contains(string(data), Sentinel):
			logger.Warn().Str("path", path).Msg("Profile exists without sentinel, not touching it")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: false, Error: "exists without sentinel"})
			continue
		case err != nil && !os.IsNotExist(err):
			logger.Warn().Err(err).Str("path", path).Msg("Cannot read profile")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: false, Error: err.Error()})
			continue
		}

		if dryRun {
			logger.Info().Str("path", path).Msg("Would write profile stub")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: true})
			continue
		}

		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: false, Error: err.Error()})
			continue
		}
		if err := fs.WriteFile(path, []byte(content), 0644); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Cannot write profile stub")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("path", path).Msg("Wrote profile stub")
		items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: true})
	}
	return items
}

// RemoveStubs deletes only profile files that carry the sentinel.
func RemoveStubs(fs types.FS, profilePaths []string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("profile")

	var items []types.RevertedItem
	for _, path := range profilePaths {
		data, err := fs.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(data), Sentinel) {
			logger.Warn().Str("path", path).Msg("Profile lacks sentinel, leaving it in place")
			continue
		}
		if dryRun {
			logger.Info().Str("path", path).Msg("Would remove profile stub")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: true})
			continue
		}
		if err := fs.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Cannot remove profile stub")
			items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("path", path).Msg("Removed profile stub")
		items = append(items, types.RevertedItem{Type: "profile", Path: path, Success: true})
	}
	return items
}

// InstallModules copies the named shell module directories from the
// repository's modules tree into the data dir. Existing module dirs
// are replaced wholesale, which keeps the copy idempotent.
func InstallModules(fs types.FS, sourceDir, destDir string, names []string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("profile.modules")

	items := make([]types.RevertedItem, 0, len(names))
	for _, name := range names {
		src := filepath.Join(sourceDir, name)
		dest := filepath.Join(destDir, name)

		if _, err := fs.Stat(src); err != nil {
			logger.Warn().Err(err).Str("module", name).Msg("Module missing from repository, skipping")
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: false, Error: "missing from repository"})
			continue
		}
		if dryRun {
			logger.Info().Str("module", name).Msg("Would install module")
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: true})
			continue
		}
		if err := fs.RemoveAll(dest); err != nil {
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: false, Error: err.Error()})
			continue
		}
		if err := copyTree(fs, src, dest); err != nil {
			logger.Warn().Err(err).Str("module", name).Msg("Module install failed, continuing")
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("module", name).Msg("Installed module")
		items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: true})
	}
	return items
}

// RemoveModules deletes the named module directories from the data dir.
func RemoveModules(fs types.FS, destDir string, names []string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("profile.modules")

	var items []types.RevertedItem
	for _, name := range names {
		dest := filepath.Join(destDir, name)
		if _, err := fs.Stat(dest); err != nil {
			continue
		}
		if dryRun {
			logger.Info().Str("module", name).Msg("Would remove module")
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: true})
			continue
		}
		if err := fs.RemoveAll(dest); err != nil {
			items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("module", name).Msg("Removed module")
		items = append(items, types.RevertedItem{Type: "module", Path: dest, Success: true})
	}
	return items
}

func copyTree(fs types.FS, src, dest string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		data, err := fs.ReadFile(src)
		if err != nil {
			return err
		}
		return fs.WriteFile(dest, data, info.Mode()&0777)
	}

	if err := fs.MkdirAll(dest, 0755); err != nil {
		return err
	}
	entries, err := fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyTree(fs, filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "copy %s", entry.Name())
		}
	}
	return nil
}
