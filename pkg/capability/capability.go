// Package capability probes runtime abilities of the current process.
package capability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// ProbeSymlink reports whether the current process can create symbolic
// links without elevation. It creates a uniquely named directory under
// scratchDir and attempts to link to it; both paths are removed again
// regardless of outcome. Failure is a boolean, never an error.
func ProbeSymlink(fs types.FS, scratchDir string) bool {
	logger := logging.GetLogger("capability")

	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	probeDir := filepath.Join(scratchDir, fmt.Sprintf("rig-probe-%d", os.Getpid()))
	if err := fs.MkdirAll(probeDir, 0755); err != nil {
		logger.Debug().Err(err).Str("dir", probeDir).Msg("probe dir creation failed")
		return false
	}
	defer func() {
		_ = fs.RemoveAll(probeDir)
	}()

	linkPath := probeDir + ".lnk"
	defer func() {
		_ = fs.Remove(linkPath)
	}()

	if err := fs.Symlink(probeDir, linkPath); err != nil {
		logger.Debug().Err(err).Msg("symlink probe failed")
		return false
	}

	logger.Debug().Msg("symlink probe succeeded")
	return true
}
