package types

import (
	"fmt"
	"strings"
)

// Scope is the privilege level a package installs at.
type Scope string

const (
	// ScopeUser installs without elevation, for the current user only.
	ScopeUser Scope = "user"

	// ScopeMachine installs system-wide and may require elevation.
	ScopeMachine Scope = "machine"
)

// ParseScope validates a scope string from the manifest.
// An empty string defaults to ScopeUser.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", string(ScopeUser):
		return ScopeUser, nil
	case string(ScopeMachine):
		return ScopeMachine, nil
	default:
		return "", fmt.Errorf("unknown scope %q (want \"user\" or \"machine\")", s)
	}
}

// PackageEntry is one declared dependency from the manifest.
// Entries are parsed fresh on every invocation and never written back.
type PackageEntry struct {
	// ID is the identifier understood by the package manager,
	// unique within the manifest.
	ID string `json:"id"`

	// Scope determines the installation privilege level.
	Scope Scope `json:"scope,omitempty"`

	// ExpectedVersion is only meaningful when Pinned is true.
	ExpectedVersion string `json:"version,omitempty"`

	// Pinned requires the installed version to equal ExpectedVersion,
	// otherwise the entry is reported as drifted.
	Pinned bool `json:"pinned,omitempty"`
}

// LinkMapping is one declared directory link, derived each run by
// enumerating the repository config directory.
type LinkMapping struct {
	// SourcePath is an absolute path inside the repository config tree.
	SourcePath string `json:"source"`

	// TargetPath is an absolute path inside the home config tree,
	// same basename as the source.
	TargetPath string `json:"target"`
}

// Status classifies the outcome of comparing desired vs. observed state.
type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusDrift   Status = "drift"
	StatusError   Status = "error"
)

// IsOK reports whether the status counts as healthy for exit-code purposes.
func (s Status) IsOK() bool {
	return s == StatusOK
}

// ReconciliationResult is the transient per-entry record produced by the
// package reconciler and the audit reporter. It is consumed for display
// and for the process exit code, then discarded.
type ReconciliationResult struct {
	ID       string `json:"id"`
	Observed string `json:"observed,omitempty"`
	Expected string `json:"expected,omitempty"`
	Status   Status `json:"status"`
	Note     string `json:"note,omitempty"`
}

// LinkAction describes what the link reconciler did for one mapping.
type LinkAction string

const (
	// LinkCreated means the target did not exist and a link was created.
	LinkCreated LinkAction = "created"

	// LinkReplaced means an existing link (or, with force, a regular
	// file or directory) was removed and relinked.
	LinkReplaced LinkAction = "replaced"

	// LinkUnchanged means the target is already a link to the source.
	LinkUnchanged LinkAction = "unchanged"

	// LinkSkippedExisting means the target is a regular file or
	// directory and force was not set.
	LinkSkippedExisting LinkAction = "skipped-existing"

	// LinkFailed means the link could not be created or replaced.
	LinkFailed LinkAction = "failed"
)

// LinkOutcome reports the reconciliation of a single mapping.
type LinkOutcome struct {
	// Name is the basename shared by source and target.
	Name string `json:"name"`

	Source string     `json:"source"`
	Target string     `json:"target"`
	Action LinkAction `json:"action"`

	// Err is set when Action is LinkFailed.
	Err error `json:"-"`

	// Note carries a human-readable detail (error text, skip reason).
	Note string `json:"note,omitempty"`
}

// RevertedItem records one undo action taken (or previewed) by the
// revert orchestrator.
type RevertedItem struct {
	// Type of item (link, package, font, profile, module, env, repo).
	Type string `json:"type"`

	// Path or identifier that was reverted.
	Path string `json:"path"`

	// Success reports whether the action succeeded (always true in
	// dry-run mode, where no action is taken).
	Success bool `json:"success"`

	// Error text if the action failed.
	Error string `json:"error,omitempty"`
}
