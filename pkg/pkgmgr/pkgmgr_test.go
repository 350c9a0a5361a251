package pkgmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotContains(t *testing.T) {
	snapshot := "Name            Id          Version\n" +
		"---\n" +
		"Git             Git.Git     2.45.1\n" +
		"GitHub CLI      GitHub.cli  2.50.0\n"

	tests := []struct {
		id   string
		want bool
	}{
		{"Git.Git", true},
		{"git.git", true},
		{"GitHub.cli", true},
		{"Git", true},
		{"Git.G", false},
		{"Hub.cli", false},
		{"Neovim.Neovim", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SnapshotContains(snapshot, tt.id), tt.id)
	}
}

func TestParseVersionFromListing(t *testing.T) {
	out := "Name   Id        Version  Source\n" +
		"---\n" +
		"Git    Git.Git   2.45.1   winget\n"

	version, installed, err := parseVersionFromListing(out, "Git.Git")
	assert.NoError(t, err)
	assert.True(t, installed)
	assert.Equal(t, "2.45.1", version)

	_, installed, err = parseVersionFromListing(out, "Neovim.Neovim")
	assert.NoError(t, err)
	assert.False(t, installed)
}
