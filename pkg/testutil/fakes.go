package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/types"
)

// FakeQuery is an in-memory pkgmgr.Query backend.
type FakeQuery struct {
	mu sync.Mutex

	// installed maps package id (original case) to version.
	installed map[string]string

	// InstallVersion is the version newly installed packages get.
	InstallVersion string

	// FailInstall lists ids whose installation fails.
	FailInstall map[string]bool

	// FailUninstall lists ids whose removal fails.
	FailUninstall map[string]bool

	// Unavailable makes Available report false.
	Unavailable bool

	// InstallCalls records every install invocation in order.
	InstallCalls []string

	// UninstallCalls records every uninstall invocation in order.
	UninstallCalls []string
}

// NewFakeQuery seeds a fake backend with installed id->version pairs.
func NewFakeQuery(installed map[string]string) *FakeQuery {
	if installed == nil {
		installed = map[string]string{}
	}
	return &FakeQuery{
		installed:      installed,
		InstallVersion: "1.0.0",
		FailInstall:    map[string]bool{},
		FailUninstall:  map[string]bool{},
	}
}

func (f *FakeQuery) Available() bool {
	return !f.Unavailable
}

func (f *FakeQuery) Snapshot() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.installed))
	for id := range f.installed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("Name  Id  Version\n---\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "%s %s %s\n", id, id, f.installed[id])
	}
	return b.String(), nil
}

func (f *FakeQuery) InstalledVersion(id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.installed {
		if strings.EqualFold(k, id) {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (f *FakeQuery) Install(entry types.PackageEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InstallCalls = append(f.InstallCalls, entry.ID)
	if f.FailInstall[entry.ID] {
		return errors.Newf(errors.ErrInstallFailed, "fake install failure for %s", entry.ID)
	}
	f.installed[entry.ID] = f.InstallVersion
	return nil
}

func (f *FakeQuery) Uninstall(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UninstallCalls = append(f.UninstallCalls, id)
	if f.FailUninstall[id] {
		return errors.Newf(errors.ErrUninstallFailed, "fake uninstall failure for %s", id)
	}
	for k := range f.installed {
		if strings.EqualFold(k, id) {
			delete(f.installed, k)
		}
	}
	return nil
}

var _ pkgmgr.Query = (*FakeQuery)(nil)

// FakeElevator simulates the privileged filesystem mutator behind the
// elevation boundary: it mutates the shared filesystem directly and
// reports nothing back beyond an exit error, exactly like the real
// elevated child whose output the parent cannot read.
type FakeElevator struct {
	// FS is the shared filesystem the "privileged" child mutates.
	FS types.FS

	// SpawnErr simulates a child that could not be started.
	SpawnErr error

	// Before, when set, runs at the start of Relink; tests use it to
	// lift injected permission errors the way real elevation would.
	Before func()

	// SkipNames lists target basenames the child silently fails to
	// link, producing partial success.
	SkipNames map[string]bool

	// Calls counts Relink invocations.
	Calls int
}

func (f *FakeElevator) Relink(sourceRoot, targetRoot string, force bool) error {
	f.Calls++
	if f.SpawnErr != nil {
		return f.SpawnErr
	}
	if f.Before != nil {
		f.Before()
	}

	entries, err := f.FS.ReadDir(sourceRoot)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || f.SkipNames[entry.Name()] {
			continue
		}
		source := sourceRoot + "/" + entry.Name()
		target := targetRoot + "/" + entry.Name()
		if _, err := f.FS.Lstat(target); err == nil {
			if !force {
				continue
			}
			if err := f.FS.RemoveAll(target); err != nil {
				return err
			}
		}
		if err := f.FS.Symlink(source, target); err != nil {
			return err
		}
	}
	return nil
}
