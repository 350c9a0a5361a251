package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drifthouse/rig/pkg/errors"
)

func TestErrorFormatting(t *testing.T) {
	err := errors.New(errors.ErrManifestParse, "duplicate package id")
	assert.Equal(t, "[MANIFEST_PARSE] duplicate package id", err.Error())

	wrapped := errors.Wrap(fmt.Errorf("boom"), errors.ErrFileWrite, "cannot write stub")
	assert.Equal(t, "[FILE_WRITE] cannot write stub: boom", wrapped.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrFileWrite, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrFileWrite, "ignored %s", "too"))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := errors.Wrap(cause, errors.ErrRepoAcquire, "download failed")
	assert.True(t, stderrors.Is(err, cause))
}

func TestGetErrorCode(t *testing.T) {
	err := errors.New(errors.ErrSymlinkDenied, "denied")
	assert.Equal(t, errors.ErrSymlinkDenied, errors.GetErrorCode(err))

	// Wrapping in a plain error still exposes the code.
	outer := fmt.Errorf("context: %w", err)
	assert.Equal(t, errors.ErrSymlinkDenied, errors.GetErrorCode(outer))

	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(fmt.Errorf("plain")))
	assert.True(t, errors.IsErrorCode(outer, errors.ErrSymlinkDenied))
	assert.False(t, errors.IsErrorCode(outer, errors.ErrElevation))
}

func TestCategoryHelpers(t *testing.T) {
	assert.True(t, errors.IsTooling(errors.New(errors.ErrManifestParse, "x")))
	assert.True(t, errors.IsTooling(errors.New(errors.ErrConfigLoad, "x")))
	assert.False(t, errors.IsTooling(errors.New(errors.ErrInstallFailed, "x")))

	assert.True(t, errors.IsPermission(errors.New(errors.ErrSymlinkDenied, "x")))
	assert.False(t, errors.IsPermission(errors.New(errors.ErrRepoAcquire, "x")))
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrInstallFailed, "install failed").
		WithDetail("id", "Git.Git").
		WithDetail("scope", "user")
	assert.Equal(t, "Git.Git", err.Details["id"])
	assert.Equal(t, "user", err.Details["scope"])
}
