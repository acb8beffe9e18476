package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageIdle, StageLoading, true},
		{StageLoading, StageDiscovering, true},
		{StagePersisting, StageDone, true},
		{StageDiscovering, StageDone, true},
		{StageLinking, StageFailed, true},
		{StageIdle, StageFailed, false},
		{StageIdle, StageIngesting, false},
		{StageIngesting, StageLoading, false},
		{StageLinking, StageDone, false},
		{StageDone, StageFailed, false},
		{StageFailed, StageLoading, false},
		{StageDone, StageFailed + 1, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isAllowedTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTracker_Fail(t *testing.T) {
	var seen [][2]Stage
	tr := &tracker{notify: func(from, to Stage) { seen = append(seen, [2]Stage{from, to}) }}
	require.NoError(t, tr.advance(StageLoading))
	require.NoError(t, tr.advance(StageDiscovering))

	cause := errors.New("boom")
	err := tr.fail(cause)

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageDiscovering, se.Stage)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "sync failed while discovering: boom", err.Error())
	assert.Equal(t, StageFailed, tr.stage)
	assert.Equal(t, [2]Stage{StageDiscovering, StageFailed}, seen[len(seen)-1])

	assert.Error(t, tr.advance(StageIngesting))
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "reconciling", StageReconciling.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
	assert.True(t, StageDone.IsTerminal())
	assert.False(t, StagePersisting.IsTerminal())
}
