package fetch_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/fetch"
	"github.com/drifthouse/rig/pkg/testutil"
)

type archiveFile struct {
	name string
	body string
	dir  bool
}

func tarGz(t *testing.T, files []archiveFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if f.dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !f.dir {
			_, err := tw.Write([]byte(f.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serve(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAcquireExtractsTarGz(t *testing.T) {
	data := tarGz(t, []archiveFile{
		{name: "dotfiles-main/", dir: true},
		{name: "dotfiles-main/config/", dir: true},
		{name: "dotfiles-main/config/git/", dir: true},
		{name: "dotfiles-main/config/git/gitconfig", body: "[user]\n"},
		{name: "dotfiles-main/packages.json", body: `["Git.Git"]`},
	})
	srv := serve(t, data)

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	root, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.tar.gz", "/cache/repo")
	require.NoError(t, err)
	assert.Equal(t, "/cache/repo/dotfiles-main", root)

	manifest, err := mfs.ReadFile("/cache/repo/dotfiles-main/packages.json")
	require.NoError(t, err)
	assert.Equal(t, `["Git.Git"]`, string(manifest))
}

func TestAcquireExtractsZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("dotfiles-main/config/nvim/init.lua")
	require.NoError(t, err)
	_, err = w.Write([]byte("-- init"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	srv := serve(t, buf.Bytes())

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	root, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.zip", "/cache/repo")
	require.NoError(t, err)
	assert.Equal(t, "/cache/repo/dotfiles-main", root)
	assert.True(t, mfs.Exists("/cache/repo/dotfiles-main/config/nvim/init.lua"))
}

func TestAcquireReusesLocalCheckout(t *testing.T) {
	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work/config", 0755))

	// No HTTP traffic: a checkout wins even when a URL is configured.
	root, err := fetch.Acquire(mfs, nil, "/work", "http://127.0.0.1:1/repo.tar.gz", "/cache/repo")
	require.NoError(t, err)
	assert.Equal(t, "/work", root)
}

func TestAcquireNoURLFallsBackToCwd(t *testing.T) {
	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	root, err := fetch.Acquire(mfs, nil, "/work", "", "/cache/repo")
	require.NoError(t, err)
	assert.Equal(t, "/work", root)
}

func TestAcquireRejectsMultipleTopLevelDirs(t *testing.T) {
	data := tarGz(t, []archiveFile{
		{name: "one/", dir: true},
		{name: "two/", dir: true},
	})
	srv := serve(t, data)

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	_, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.tar.gz", "/cache/repo")
	require.Error(t, err)
	assert.Equal(t, errors.ErrRepoAcquire, errors.GetErrorCode(err))
}

func TestAcquireRejectsPathTraversal(t *testing.T) {
	data := tarGz(t, []archiveFile{
		{name: "../evil", body: "nope"},
	})
	srv := serve(t, data)

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	_, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.tar.gz", "/cache/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
}

func TestAcquireNotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	_, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.tar.gz", "/cache/repo")
	require.Error(t, err)
	assert.Equal(t, errors.ErrRepoAcquire, errors.GetErrorCode(err))
}

func TestAcquireRejectsUnknownFormat(t *testing.T) {
	srv := serve(t, []byte("data"))

	mfs := testutil.NewMemoryFS()
	require.NoError(t, mfs.MkdirAll("/work", 0755))

	_, err := fetch.Acquire(mfs, srv.Client(), "/work", srv.URL+"/repo.rar", "/cache/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive format")
}
