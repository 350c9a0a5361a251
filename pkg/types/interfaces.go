package types

import (
	"io/fs"
)

// FS is the filesystem interface required for rig operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
}

// Pather provides paths for rig operations
type Pather interface {
	// RepoRoot returns the root of the provisioning repository
	RepoRoot() string

	// ConfigRoot returns the user's home config tree (link targets)
	ConfigRoot() string

	// DataDir returns the XDG data directory for rig
	DataDir() string

	// CacheDir returns the XDG cache directory for rig
	CacheDir() string

	// StateDir returns the XDG state directory for rig
	StateDir() string
}
