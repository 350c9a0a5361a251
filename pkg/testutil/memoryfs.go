package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drifthouse/rig/pkg/types"
)

// MemoryFS implements types.FS with in-memory storage and real symlink
// semantics, which afero's MemMapFs lacks.
type MemoryFS struct {
	mu    sync.RWMutex
	nodes map[string]*node

	// errorPaths injects an error for specific paths and operations.
	errorPaths map[string]error
}

type node struct {
	mode     os.FileMode
	modTime  time.Time
	content  []byte
	isDir    bool
	isLink   bool
	linkDest string
}

// NewMemoryFS creates an empty in-memory filesystem with a root dir.
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		nodes: map[string]*node{
			"/": {mode: 0755 | os.ModeDir, isDir: true, modTime: time.Now()},
		},
		errorPaths: make(map[string]error),
	}
}

// InjectError makes every operation on path fail with err.
func (m *MemoryFS) InjectError(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorPaths[clean(path)] = err
}

// ClearError removes an injected error, e.g. to model a privileged
// process that is not subject to the unprivileged denial.
func (m *MemoryFS) ClearError(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errorPaths, clean(path))
}

func clean(path string) string {
	if !filepath.IsAbs(path) {
		path = "/" + path
	}
	return filepath.Clean(path)
}

func (m *MemoryFS) checkError(path string) error {
	if err, ok := m.errorPaths[clean(path)]; ok {
		return err
	}
	return nil
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// resolve follows symlinks to the final node. Depth is bounded so a
// link cycle errors instead of spinning.
func (m *MemoryFS) resolve(path string, depth int) (*node, string, error) {
	path = clean(path)
	n, ok := m.nodes[path]
	if !ok {
		return nil, path, notExist("stat", path)
	}
	if n.isLink {
		if depth <= 0 {
			return nil, path, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrInvalid}
		}
		return m.resolve(n.linkDest, depth-1)
	}
	return n, path, nil
}

func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(name); err != nil {
		return nil, err
	}
	n, path, err := m.resolve(name, 16)
	if err != nil {
		return nil, err
	}
	return info(filepath.Base(path), n, false), nil
}

func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(name); err != nil {
		return nil, err
	}
	n, ok := m.nodes[clean(name)]
	if !ok {
		return nil, notExist("lstat", name)
	}
	return info(filepath.Base(clean(name)), n, true), nil
}

func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(name); err != nil {
		return nil, err
	}
	n, _, err := m.resolve(name, 16)
	if err != nil {
		return nil, err
	}
	if n.isDir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return append([]byte(nil), n.content...), nil
}

func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(name); err != nil {
		return err
	}
	path := clean(name)
	if parent, ok := m.nodes[filepath.Dir(path)]; !ok || !parent.isDir {
		return notExist("write", name)
	}
	m.nodes[path] = &node{
		mode:    perm,
		modTime: time.Now(),
		content: append([]byte(nil), data...),
	}
	return nil
}

func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(path); err != nil {
		return err
	}
	path = clean(path)
	parts := strings.Split(path, string(os.PathSeparator))
	current := "/"
	for _, part := range parts {
		if part == "" {
			continue
		}
		current = filepath.Join(current, part)
		if n, ok := m.nodes[current]; ok {
			if !n.isDir {
				return &fs.PathError{Op: "mkdir", Path: current, Err: fs.ErrExist}
			}
			continue
		}
		m.nodes[current] = &node{mode: perm | os.ModeDir, isDir: true, modTime: time.Now()}
	}
	return nil
}

func (m *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(name); err != nil {
		return nil, err
	}
	n, path, err := m.resolve(name, 16)
	if err != nil {
		return nil, err
	}
	if !n.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	var names []string
	for p := range m.nodes {
		if p == path || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)

	entries := make([]fs.DirEntry, 0, len(names))
	for _, childName := range names {
		child := m.nodes[filepath.Join(path, childName)]
		entries = append(entries, fs.FileInfoToDirEntry(info(childName, child, true)))
	}
	return entries, nil
}

func (m *MemoryFS) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(newname); err != nil {
		return err
	}
	path := clean(newname)
	if _, ok := m.nodes[path]; ok {
		return &fs.PathError{Op: "symlink", Path: newname, Err: fs.ErrExist}
	}
	if parent, ok := m.nodes[filepath.Dir(path)]; !ok || !parent.isDir {
		return notExist("symlink", newname)
	}
	m.nodes[path] = &node{
		mode:     0777 | os.ModeSymlink,
		modTime:  time.Now(),
		isLink:   true,
		linkDest: oldname,
	}
	return nil
}

func (m *MemoryFS) Readlink(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkError(name); err != nil {
		return "", err
	}
	n, ok := m.nodes[clean(name)]
	if !ok {
		return "", notExist("readlink", name)
	}
	if !n.isLink {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
	}
	return n.linkDest, nil
}

func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(name); err != nil {
		return err
	}
	path := clean(name)
	n, ok := m.nodes[path]
	if !ok {
		return notExist("remove", name)
	}
	if n.isDir {
		prefix := path + "/"
		for p := range m.nodes {
			if strings.HasPrefix(p, prefix) {
				return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
			}
		}
	}
	delete(m.nodes, path)
	return nil
}

func (m *MemoryFS) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(path); err != nil {
		return err
	}
	cleaned := clean(path)
	prefix := cleaned + "/"
	for p := range m.nodes {
		if p == cleaned || strings.HasPrefix(p, prefix) {
			delete(m.nodes, p)
		}
	}
	return nil
}

// Exists reports whether a path exists without following links.
func (m *MemoryFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[clean(path)]
	return ok
}

// IsLink reports whether path is a symlink pointing at dest.
func (m *MemoryFS) IsLink(path, dest string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[clean(path)]
	return ok && n.isLink && n.linkDest == dest
}

type fileInfo struct {
	name  string
	node  *node
	lstat bool
}

func info(name string, n *node, lstat bool) fs.FileInfo {
	return &fileInfo{name: name, node: n, lstat: lstat}
}

func (f *fileInfo) Name() string { return f.name }
func (f *fileInfo) Size() int64  { return int64(len(f.node.content)) }
func (f *fileInfo) Mode() os.FileMode {
	if f.node.isLink && !f.lstat {
		return f.node.mode &^ os.ModeSymlink
	}
	return f.node.mode
}
func (f *fileInfo) ModTime() time.Time { return f.node.modTime }
func (f *fileInfo) IsDir() bool        { return f.node.isDir }
func (f *fileInfo) Sys() interface{}   { return nil }

var _ types.FS = (*MemoryFS)(nil)
