// Package manifest loads and normalizes the package declaration list.
//
// The manifest is a JSON array whose elements are either a bare string
// identifier or an object {id, scope?, version?, pinned?}. It is parsed
// fresh on every invocation and never written back.
package manifest

import (
	"encoding/json"
	"strings"

	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/types"
)

// rawEntry mirrors the object form of a manifest element.
type rawEntry struct {
	ID      string `json:"id"`
	Scope   string `json:"scope"`
	Version string `json:"version"`
	Pinned  bool   `json:"pinned"`
}

// Load reads and normalizes the manifest at path.
//
// Load failures carry ErrManifestLoad, parse and validation failures
// ErrManifestParse; both map to exit code 2 in the audit command.
func Load(fs types.FS, path string) ([]types.PackageEntry, error) {
	logger := logging.GetLogger("manifest")

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "cannot read manifest %s", path)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestParse, "manifest %s is not a JSON array", path)
	}

	entries := make([]types.PackageEntry, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, msg := range raw {
		entry, err := parseElement(msg)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrManifestParse, "manifest %s entry %d", path, i)
		}
		key := strings.ToLower(entry.ID)
		if seen[key] {
			return nil, errors.Newf(errors.ErrManifestParse, "manifest %s: duplicate id %q", path, entry.ID)
		}
		seen[key] = true
		entries = append(entries, entry)
	}

	logger.Debug().Str("path", path).Int("entries", len(entries)).Msg("Loaded manifest")
	return entries, nil
}

func parseElement(msg json.RawMessage) (types.PackageEntry, error) {
	// Bare string form
	var id string
	if err := json.Unmarshal(msg, &id); err == nil {
		if strings.TrimSpace(id) == "" {
			return types.PackageEntry{}, errors.New(errors.ErrManifestParse, "empty package id")
		}
		return types.PackageEntry{ID: id, Scope: types.ScopeUser}, nil
	}

	// Object form
	var raw rawEntry
	dec := json.NewDecoder(strings.NewReader(string(msg)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return types.PackageEntry{}, errors.Wrap(err, errors.ErrManifestParse, "invalid entry")
	}
	if strings.TrimSpace(raw.ID) == "" {
		return types.PackageEntry{}, errors.New(errors.ErrManifestParse, "entry missing id")
	}
	scope, err := types.ParseScope(raw.Scope)
	if err != nil {
		return types.PackageEntry{}, errors.Wrapf(err, errors.ErrManifestParse, "entry %s", raw.ID)
	}
	if raw.Pinned && strings.TrimSpace(raw.Version) == "" {
		return types.PackageEntry{}, errors.Newf(errors.ErrManifestParse, "entry %s: pinned without version", raw.ID)
	}
	return types.PackageEntry{
		ID:              raw.ID,
		Scope:           scope,
		ExpectedVersion: raw.Version,
		Pinned:          raw.Pinned,
	}, nil
}
