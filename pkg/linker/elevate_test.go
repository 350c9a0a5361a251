package linker

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevatedCommandUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix elevation wrapper")
	}
	name, argv := elevatedCommand("/usr/local/bin/rig", []string{"link", "--source", "/repo/config"})
	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"/usr/local/bin/rig", "link", "--source", "/repo/config"}, argv)
}

func TestExecElevatorPassesRoots(t *testing.T) {
	var gotName string
	var gotArgs []string
	e := &ExecElevator{run: func(name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}}

	require.NoError(t, e.Relink("/repo/config", "/home/.config", true))
	require.NotEmpty(t, gotName)

	joined := gotName
	for _, a := range gotArgs {
		joined += " " + a
	}
	assert.Contains(t, joined, "/repo/config")
	assert.Contains(t, joined, "/home/.config")
	assert.Contains(t, joined, "--force")
}
