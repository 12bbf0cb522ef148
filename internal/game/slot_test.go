package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSlots() []Slot {
	slots := make([]Slot, MaxSlots)
	for i := range slots {
		slots[i] = NewOpenSlot(byte(i))
	}
	return slots
}

func TestValidateSlotTable_TooManySlots(t *testing.T) {
	slots := make([]Slot, MaxSlots+1)
	err := ValidateSlotTable(slots, 0, 0)
	require.Error(t, err)
}

func TestValidateSlotTable_DuplicatePID(t *testing.T) {
	slots := newTestSlots()
	slots[0].Status = SlotOccupied
	slots[0].PID = 5
	slots[1].Status = SlotOccupied
	slots[1].PID = 5
	err := ValidateSlotTable(slots, 0, 0)
	require.ErrorContains(t, err, "duplicate PID")
}

func TestValidateSlotTable_DuplicateColour(t *testing.T) {
	slots := newTestSlots()
	slots[0].Status = SlotOccupied
	slots[0].PID = 1
	slots[0].Colour = 3
	slots[1].Status = SlotOccupied
	slots[1].PID = 2
	slots[1].Colour = 3
	err := ValidateSlotTable(slots, 0, 0)
	require.ErrorContains(t, err, "duplicate colour")
}

func TestValidateSlotTable_ObserversShareColour(t *testing.T) {
	slots := newTestSlots()
	slots[0].Status = SlotOccupied
	slots[0].PID = 1
	slots[0].Colour = 3
	slots[0].Team = ObserverTeam
	slots[1].Status = SlotOccupied
	slots[1].PID = 2
	slots[1].Colour = 3
	slots[1].Team = ObserverTeam
	require.NoError(t, ValidateSlotTable(slots, 0, 0))
}

func TestValidateSlotTable_SingleVirtualHostOK(t *testing.T) {
	slots := newTestSlots()
	slots[0].Status = SlotOccupied
	slots[0].PID = 9
	slots[1].Status = SlotOccupied
	slots[1].PID = 10
	require.NoError(t, ValidateSlotTable(slots, 9, 0))
}

func TestNextUnusedColour(t *testing.T) {
	slots := newTestSlots()
	slots[0].Status = SlotOccupied
	slots[0].Colour = 0
	slots[1].Status = SlotOccupied
	slots[1].Colour = 1
	require.Equal(t, byte(2), NextUnusedColour(slots))
}

func TestLowestOccupiedIndex(t *testing.T) {
	slots := newTestSlots()
	slots[3].Status = SlotOccupied
	slots[3].PID = 1
	slots[5].Status = SlotOccupied
	slots[5].PID = 2
	require.Equal(t, 3, LowestOccupiedIndex(slots))
}

func TestLowestOccupiedIndex_NoneOccupied(t *testing.T) {
	require.Equal(t, -1, LowestOccupiedIndex(newTestSlots()))
}
