package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountAndRefs(t *testing.T) {
	ws := []Warning{
		{Kind: WarnOrphan, Ref: "b"},
		{Kind: WarnUndeclared, Ref: "z"},
		{Kind: WarnOrphan, Ref: "a"},
		{Kind: WarnOrphan, Ref: "b"},
	}
	assert.Equal(t, 3, Count(ws, WarnOrphan))
	assert.Equal(t, 0, Count(ws, WarnDangling))
	assert.Equal(t, []string{"a", "b"}, Refs(ws, WarnOrphan))
}

func TestParseWarningKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseWarningKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseWarningKind("fatal")
	assert.ErrorContains(t, err, `unknown warning kind "fatal"`)
}
