package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drifthouse/rig/pkg/types"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		in   string
		want types.Scope
	}{
		{"", types.ScopeUser},
		{"user", types.ScopeUser},
		{"User", types.ScopeUser},
		{"machine", types.ScopeMachine},
		{"MACHINE", types.ScopeMachine},
	}
	for _, tt := range tests {
		got, err := types.ParseScope(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := types.ParseScope("galaxy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "galaxy")
}

func TestStatusIsOK(t *testing.T) {
	assert.True(t, types.StatusOK.IsOK())
	assert.False(t, types.StatusMissing.IsOK())
	assert.False(t, types.StatusDrift.IsOK())
	assert.False(t, types.StatusError.IsOK())
}
