package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVotesNeeded(t *testing.T) {
	require.Equal(t, 4, VotesNeeded(5, 100))
	require.Equal(t, 1, VotesNeeded(5, 25))
	require.Equal(t, 0, VotesNeeded(1, 100))
}

// S3 — votekick pass.
func TestScenario_VotekickPasses(t *testing.T) {
	v := NewKickVote(5, 0)
	needed := VotesNeeded(5, 100)
	require.Equal(t, 4, needed)

	v.RegisterYes(1) // the initiator counts as a yes vote
	require.False(t, v.Passed(5, 100))
	v.RegisterYes(2)
	require.False(t, v.Passed(5, 100))
	v.RegisterYes(3)
	require.False(t, v.Passed(5, 100))
	v.RegisterYes(4)
	require.True(t, v.Passed(5, 100))
}

func TestKickVote_TargetCannotVote(t *testing.T) {
	v := NewKickVote(5, 0)
	v.RegisterYes(5)
	require.Empty(t, v.Yes)
}
