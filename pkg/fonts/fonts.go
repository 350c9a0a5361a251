// Package fonts installs and removes user fonts.
package fonts

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// refreshWait is the fixed pause after installing fonts, giving the
// desktop environment's font cache broadcast time to land.
const refreshWait = 2 * time.Second

// Install downloads each source URL into fontDir. Files already
// present are skipped, so re-running is free. Per-file failures are
// warnings; the rest of the batch continues.
func Install(fs types.FS, client *http.Client, sources []string, fontDir string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("fonts")
	if client == nil {
		client = http.DefaultClient
	}

	items := make([]types.RevertedItem, 0, len(sources))
	changed := false
	for _, src := range sources {
		name := filepath.Base(src)
		dest := filepath.Join(fontDir, name)

		if _, err := fs.Stat(dest); err == nil {
			logger.Debug().Str("font", name).Msg("Font already installed")
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
			continue
		}

		if dryRun {
			logger.Info().Str("font", name).Msg("Would install font")
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
			continue
		}

		if err := downloadFont(fs, client, src, dest); err != nil {
			logger.Warn().Err(err).Str("font", name).Msg("Font install failed, continuing")
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("font", name).Msg("Installed font")
		items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
		changed = true
	}

	if changed {
		time.Sleep(refreshWait)
	}
	return items
}

func downloadFont(fs types.FS, client *http.Client, url, dest string) error {
	resp, err := client.Get(url)
	if err != nil {
		return errors.Wrapf(err, errors.ErrEnvMissing, "cannot download font %s", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrEnvMissing, "font download %s returned %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot read font %s", url)
	}
	if err := fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create font dir")
	}
	if err := fs.WriteFile(dest, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
	}
	return nil
}

// InstallLocal copies font files shipped inside the repository's fonts
// directory into fontDir. A missing source directory is not an error;
// most repositories ship no fonts of their own.
func InstallLocal(fs types.FS, sourceDir, fontDir string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("fonts")

	entries, err := fs.ReadDir(sourceDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("dir", sourceDir).Msg("Cannot read repository fonts directory")
		}
		return nil
	}

	var items []types.RevertedItem
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		dest := filepath.Join(fontDir, entry.Name())
		if _, err := fs.Stat(dest); err == nil {
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
			continue
		}
		if dryRun {
			logger.Info().Str("font", entry.Name()).Msg("Would install font")
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
			continue
		}
		data, err := fs.ReadFile(filepath.Join(sourceDir, entry.Name()))
		if err == nil {
			if mkErr := fs.MkdirAll(fontDir, 0755); mkErr == nil {
				err = fs.WriteFile(dest, data, 0644)
			} else {
				err = mkErr
			}
		}
		if err != nil {
			logger.Warn().Err(err).Str("font", entry.Name()).Msg("Font copy failed, continuing")
			items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("font", entry.Name()).Msg("Installed font")
		items = append(items, types.RevertedItem{Type: "font", Path: dest, Success: true})
	}
	return items
}

// Remove deletes only font files whose names match the known installed
// patterns; anything else in the font directory is left alone.
func Remove(fs types.FS, fontDir string, patterns []string, dryRun bool) []types.RevertedItem {
	logger := logging.GetLogger("fonts")

	entries, err := fs.ReadDir(fontDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("dir", fontDir).Msg("Cannot read font directory")
		}
		return nil
	}

	var items []types.RevertedItem
	for _, entry := range entries {
		if entry.IsDir() || !matchesAny(entry.Name(), patterns) {
			continue
		}
		path := filepath.Join(fontDir, entry.Name())
		if dryRun {
			logger.Info().Str("font", entry.Name()).Msg("Would remove font")
			items = append(items, types.RevertedItem{Type: "font", Path: path, Success: true})
			continue
		}
		if err := fs.Remove(path); err != nil {
			logger.Warn().Err(err).Str("font", entry.Name()).Msg("Font removal failed")
			items = append(items, types.RevertedItem{Type: "font", Path: path, Success: false, Error: err.Error()})
			continue
		}
		logger.Info().Str("font", entry.Name()).Msg("Removed font")
		items = append(items, types.RevertedItem{Type: "font", Path: path, Success: true})
	}
	return items
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
