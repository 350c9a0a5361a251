// Package config loads rig's tool configuration.
//
// Configuration is merged from three layers, lowest precedence first:
// compiled-in defaults, an optional rig.toml at the repository root,
// and RIG_-prefixed environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/drifthouse/rig/pkg/errors"
)

// ConfigFileName is the optional per-repository configuration file.
const ConfigFileName = "rig.toml"

// Config holds the user-facing knobs. Fixed internal paths live in
// pkg/paths instead.
type Config struct {
	// ManifestPath overrides the default packages.json location,
	// relative to the repository root when not absolute.
	ManifestPath string `koanf:"manifest"`

	// ArchiveURL is the default repository archive to download when
	// no local checkout exists.
	ArchiveURL string `koanf:"archive_url"`

	// FontSources are URLs of font files to install.
	FontSources []string `koanf:"fonts.sources"`

	// FontPatterns are glob patterns matching the font files rig
	// installs; revert removes only matching files.
	FontPatterns []string `koanf:"fonts.patterns"`

	// Modules are the shell module directory names to install from
	// the repository's modules/ subtree.
	Modules []string `koanf:"modules"`

	// ProfilePaths overrides the default profile stub locations.
	ProfilePaths []string `koanf:"profiles"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"manifest":       "packages.json",
		"archive_url":    "",
		"fonts.sources":  []string{},
		"fonts.patterns": []string{"CaskaydiaCove*", "CascadiaCode*"},
		"modules":        []string{},
		"profiles":       []string{},
	}
}

// Load reads the merged configuration for the given repository root.
func Load(repoRoot string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	path := filepath.Join(repoRoot, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path)
		}
	}

	// RIG_FONTS_SOURCES=... style overrides
	if err := k.Load(env.Provider("RIG_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RIG_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	cfg := &Config{
		ManifestPath: k.String("manifest"),
		ArchiveURL:   k.String("archive_url"),
		FontSources:  k.Strings("fonts.sources"),
		FontPatterns: k.Strings("fonts.patterns"),
		Modules:      k.Strings("modules"),
		ProfilePaths: k.Strings("profiles"),
	}
	if !filepath.IsAbs(cfg.ManifestPath) {
		cfg.ManifestPath = filepath.Join(repoRoot, cfg.ManifestPath)
	}
	return cfg, nil
}
