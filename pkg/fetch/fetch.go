// Package fetch acquires the provisioning repository.
//
// A local checkout is always preferred; otherwise a remote archive is
// downloaded into the cache directory and extracted. With neither, the
// current working directory is assumed to be the repository.
package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/klauspost/compress/gzip"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/paths"
	"github.com/drifthouse/rig/pkg/types"
)

// maxArchiveEntrySize bounds a single extracted file.
const maxArchiveEntrySize = 256 << 20

// Acquire locates or downloads the repository and returns its root.
func Acquire(fs types.FS, client *http.Client, cwd, url, cacheDir string) (string, error) {
	logger := logging.GetLogger("fetch")

	// A checkout is recognized by its config/ subtree.
	if info, err := fs.Stat(filepath.Join(cwd, paths.ConfigDirName)); err == nil && info.IsDir() {
		logger.Debug().Str("root", cwd).Msg("Reusing local checkout")
		return cwd, nil
	}

	if url == "" {
		logger.Debug().Str("root", cwd).Msg("No archive URL, assuming current directory is the repository")
		return cwd, nil
	}

	data, err := download(client, url)
	if err != nil {
		return "", err
	}
	logger.Info().Str("url", url).Int("bytes", len(data)).Msg("Downloaded repository archive")

	if err := fs.RemoveAll(cacheDir); err != nil {
		return "", errors.Wrapf(err, errors.ErrRepoAcquire, "cannot clear cache dir %s", cacheDir)
	}
	if err := fs.MkdirAll(cacheDir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrRepoAcquire, "cannot create cache dir %s", cacheDir)
	}

	switch {
	case strings.HasSuffix(url, ".zip"):
		err = extractZip(fs, data, cacheDir)
	case strings.HasSuffix(url, ".tar.gz") || strings.HasSuffix(url, ".tgz"):
		err = extractTarGz(fs, data, cacheDir)
	default:
		return "", errors.Newf(errors.ErrRepoAcquire, "unsupported archive format: %s", url)
	}
	if err != nil {
		return "", err
	}

	return singleTopLevelDir(fs, cacheDir)
}

// download fetches the archive with exponential backoff; transient HTTP
// failures are retried, a 4xx response is permanent.
func download(client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var data []byte
	op := func() error {
		resp, err := client.Get(url)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(errors.Newf(errors.ErrRepoAcquire, "archive fetch returned %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return errors.Newf(errors.ErrRepoAcquire, "archive fetch returned %s", resp.Status)
		}

		data, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(op, policy); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRepoAcquire, "cannot download %s", url)
	}
	return data, nil
}

func extractTarGz(fs types.FS, data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, errors.ErrRepoAcquire, "archive is not gzip")
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrRepoAcquire, "corrupt tar archive")
		}

		path, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(path, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot create %s", path)
			}
		case tar.TypeReg:
			content, err := io.ReadAll(io.LimitReader(tr, maxArchiveEntrySize))
			if err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot read entry %s", hdr.Name)
			}
			if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot create %s", filepath.Dir(path))
			}
			if err := fs.WriteFile(path, content, os.FileMode(hdr.Mode)&0777); err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot write %s", path)
			}
		case tar.TypeSymlink:
			if err := fs.Symlink(hdr.Linkname, path); err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot link %s", path)
			}
		}
	}
}

func extractZip(fs types.FS, data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.Wrap(err, errors.ErrRepoAcquire, "corrupt zip archive")
	}

	for _, f := range zr.File {
		path, err := securePath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := fs.MkdirAll(path, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot create %s", path)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot open entry %s", f.Name)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntrySize))
		_ = rc.Close()
		if err != nil {
			return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot read entry %s", f.Name)
		}
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot create %s", filepath.Dir(path))
		}
		if err := fs.WriteFile(path, content, f.Mode()&0777); err != nil {
			return errors.Wrapf(err, errors.ErrRepoAcquire, "cannot write %s", path)
		}
	}
	return nil
}

// securePath rejects archive entries that would escape the destination.
func securePath(dest, name string) (string, error) {
	path := filepath.Join(dest, filepath.FromSlash(name))
	if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", errors.Newf(errors.ErrRepoAcquire, "archive entry escapes destination: %s", name)
	}
	return path, nil
}

// singleTopLevelDir requires the extracted archive to contain exactly
// one top-level directory (the GitHub archive layout) and returns it.
func singleTopLevelDir(fs types.FS, dir string) (string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRepoAcquire, "cannot read %s", dir)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) != 1 {
		return "", errors.Newf(errors.ErrRepoAcquire,
			"expected exactly one top-level directory in archive, found %d", len(dirs))
	}
	return filepath.Join(dir, dirs[0]), nil
}
