package linker

import (
	"fmt"
	"os"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// includeHeader marks the block rig appends to the user's gitconfig.
const includeHeader = "# managed by rig"

// EnsureGitInclude appends an [include] block pointing at the
// repository-managed git config to the user's global gitconfig. The
// patch is idempotent: if the include path is already present, the file
// is left exactly as it is.
func EnsureGitInclude(fs types.FS, gitconfigPath, includePath string) (bool, error) {
	logger := logging.GetLogger("linker.gitinclude")

	data, err := fs.ReadFile(gitconfigPath)
	if err != nil && !os.IsNotExist(err) {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", gitconfigPath)
	}
	content := string(data)

	if hasIncludePath(content, includePath) {
		logger.Debug().Str("path", gitconfigPath).Msg("Include block already present")
		return false, nil
	}

	block := fmt.Sprintf("\n%s\n[include]\n\tpath = %s\n", includeHeader, includePath)
	if content == "" {
		block = strings.TrimPrefix(block, "\n")
	} else if !strings.HasSuffix(content, "\n") {
		block = "\n" + block
	}

	if err := fs.WriteFile(gitconfigPath, []byte(content+block), 0644); err != nil {
		return false, errors.Wrapf(err, errors.ErrFileWrite, "cannot update %s", gitconfigPath)
	}

	logger.Info().Str("path", gitconfigPath).Str("include", includePath).Msg("Appended git include block")
	return true, nil
}

func hasIncludePath(content, includePath string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "path") {
			continue
		}
		_, value, found := strings.Cut(line, "=")
		if found && strings.TrimSpace(value) == includePath {
			return true
		}
	}
	return false
}
