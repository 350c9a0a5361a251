package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// EnvContent renders the managed environment file for the given
// variables. Content is deterministic so reset can compare exactly.
func EnvContent(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(Sentinel + "\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%q\n", k, vars[k])
	}
	return b.String()
}

// SetEnv writes the managed environment file. Rewriting identical
// content is a no-op, so the step is idempotent.
func SetEnv(fs types.FS, envFilePath string, vars map[string]string, dryRun bool) error {
	logger := logging.GetLogger("profile.env")
	content := EnvContent(vars)

	if data, err := fs.ReadFile(envFilePath); err == nil && string(data) == content {
		logger.Debug().Str("path", envFilePath).Msg("Environment file already current")
		return nil
	}
	if dryRun {
		logger.Info().Str("path", envFilePath).Msg("Would write environment file")
		return nil
	}

	if err := fs.MkdirAll(filepath.Dir(envFilePath), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create env file directory")
	}
	if err := fs.WriteFile(envFilePath, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", envFilePath)
	}
	logger.Info().Str("path", envFilePath).Int("vars", len(vars)).Msg("Wrote environment file")
	return nil
}

// ResetEnv removes the managed environment file, but only when its
// content matches what rig itself would have written for vars. A file
// the user has edited is left in place.
func ResetEnv(fs types.FS, envFilePath string, vars map[string]string, dryRun bool) (bool, error) {
	logger := logging.GetLogger("profile.env")

	data, err := fs.ReadFile(envFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", envFilePath)
	}

	if string(data) != EnvContent(vars) {
		logger.Warn().Str("path", envFilePath).Msg("Environment file was modified, leaving it in place")
		return false, nil
	}
	if dryRun {
		logger.Info().Str("path", envFilePath).Msg("Would remove environment file")
		return true, nil
	}
	if err := fs.Remove(envFilePath); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileWrite, "cannot remove %s", envFilePath)
	}
	logger.Info().Str("path", envFilePath).Msg("Removed environment file")
	return true, nil
}
