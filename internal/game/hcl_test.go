package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func occupiedSlots(n int) []Slot {
	slots := make([]Slot, MaxSlots)
	for i := range slots {
		slots[i] = NewOpenSlot(byte(i))
		if i < n {
			slots[i].Status = SlotOccupied
			slots[i].PID = byte(i + 1)
		}
	}
	return slots
}

func TestEncodeHCL_FitsSlots(t *testing.T) {
	slots := occupiedSlots(3)
	out, ok := EncodeHCL("abc", slots)
	require.True(t, ok)
	require.Equal(t, byte(50), out[0].Handicap)
	require.Equal(t, byte(60), out[1].Handicap)
	require.Equal(t, byte(70), out[2].Handicap)
}

func TestEncodeHCL_TooLongRejected(t *testing.T) {
	slots := occupiedSlots(2)
	_, ok := EncodeHCL("abc", slots)
	require.False(t, ok)
}

func TestEncodeHCL_EmptyIsNoOp(t *testing.T) {
	slots := occupiedSlots(3)
	out, ok := EncodeHCL("", slots)
	require.True(t, ok)
	require.Equal(t, slots, out)
}

func TestEncodeHCL_SkipsObservers(t *testing.T) {
	slots := occupiedSlots(3)
	slots[1].Team = ObserverTeam
	out, ok := EncodeHCL("ab", slots)
	require.True(t, ok)
	require.Equal(t, byte(50), out[0].Handicap)
	require.Equal(t, byte(60), out[2].Handicap, "observer slot 1 skipped, char 'b' lands on slot 2")
}

func TestEncodeHCL_CaseInsensitive(t *testing.T) {
	slots := occupiedSlots(1)
	lower, _ := EncodeHCL("a", slots)
	upper, _ := EncodeHCL("A", slots)
	require.Equal(t, lower[0].Handicap, upper[0].Handicap)
}
