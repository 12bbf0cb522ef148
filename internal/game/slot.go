// Package game implements the lobby → counting_down → loading → loaded →
// over lifecycle described in spec.md §4.2, the slot/player data model of
// §3, and the HCL/virtual-host/fake-player/rehost/kick-vote mechanics that
// sit on top of it.
package game

import "fmt"

// MaxSlots is the hard cap on a game's slot table (spec.md §3, §8 property 1).
const MaxSlots = 12

// ObserverTeam is the team value meaning "observer" rather than a playing team.
const ObserverTeam byte = 12

// SlotStatus is one of open/closed/occupied (spec.md §3).
type SlotStatus byte

const (
	SlotOpen SlotStatus = iota
	SlotClosed
	SlotOccupied
)

// DownloadNotApplicable is the sentinel download-status value for slots
// that aren't downloading (closed/computer slots, or a player who already
// has the map).
const DownloadNotApplicable byte = 255

// Slot is one seat in the lobby's 12-or-fewer table (spec.md §3).
type Slot struct {
	Index          byte
	PID            byte
	DownloadStatus byte
	Status         SlotStatus
	Computer       bool
	Team           byte
	Colour         byte
	Race           byte
	Handicap       byte
	Skill          byte
}

// NewOpenSlot returns an empty, joinable slot at index i.
func NewOpenSlot(i byte) Slot {
	return Slot{
		Index:          i,
		Status:         SlotOpen,
		DownloadStatus: DownloadNotApplicable,
		Team:           i % 2,
		Colour:         i,
		Race:           0,
		Handicap:       100,
	}
}

// IsObserver reports whether the slot's team is the observer team.
func (s Slot) IsObserver() bool { return s.Team == ObserverTeam }

// ValidateSlotTable checks the invariants from spec.md §8 property 1:
// at most MaxSlots slots, unique PIDs among occupied slots, unique
// colours among occupied non-observer slots, at most one virtual host
// and one fake player.
func ValidateSlotTable(slots []Slot, virtualHostPID, fakePlayerPID byte) error {
	if len(slots) > MaxSlots {
		return fmt.Errorf("slot table has %d slots, max is %d", len(slots), MaxSlots)
	}

	seenPID := make(map[byte]bool, len(slots))
	seenColour := make(map[byte]bool, len(slots))
	virtualHosts, fakePlayers := 0, 0

	for _, s := range slots {
		if s.Status != SlotOccupied {
			continue
		}
		if s.PID == 0 {
			return fmt.Errorf("occupied slot %d has PID 0", s.Index)
		}
		if seenPID[s.PID] {
			return fmt.Errorf("duplicate PID %d among occupied slots", s.PID)
		}
		seenPID[s.PID] = true

		if !s.IsObserver() {
			if seenColour[s.Colour] {
				return fmt.Errorf("duplicate colour %d among occupied playing slots", s.Colour)
			}
			seenColour[s.Colour] = true
		}

		if s.PID == virtualHostPID && virtualHostPID != 0 {
			virtualHosts++
		}
		if s.PID == fakePlayerPID && fakePlayerPID != 0 {
			fakePlayers++
		}
	}

	if virtualHosts > 1 {
		return fmt.Errorf("more than one virtual host slot (%d)", virtualHosts)
	}
	if fakePlayers > 1 {
		return fmt.Errorf("more than one fake player slot (%d)", fakePlayers)
	}
	return nil
}

// FindSlotByPID returns the index of the occupied slot holding pid, or -1.
func FindSlotByPID(slots []Slot, pid byte) int {
	for i, s := range slots {
		if s.Status == SlotOccupied && s.PID == pid {
			return i
		}
	}
	return -1
}

// FirstOpenSlot returns the index of the first open slot, or -1 if the
// table is full. Observer slots are not skipped.
func FirstOpenSlot(slots []Slot) int {
	for i, s := range slots {
		if s.Status == SlotOpen {
			return i
		}
	}
	return -1
}

// NextUnusedColour returns the lowest colour 0..11 not in use by an
// occupied playing slot.
func NextUnusedColour(slots []Slot) byte {
	used := make([]bool, 12)
	for _, s := range slots {
		if s.Status == SlotOccupied && !s.IsObserver() && s.Colour < 12 {
			used[s.Colour] = true
		}
	}
	for c := byte(0); c < 12; c++ {
		if !used[c] {
			return c
		}
	}
	return 0
}

// LowestOccupiedIndex returns the index of the occupied slot with the
// lowest slot index — the "blue" slot used by the blue-is-owner rule
// (spec.md §9, resolved against original_source/src/game.cpp: recomputed
// fresh on every command, no phase gating).
func LowestOccupiedIndex(slots []Slot) int {
	best := -1
	for i, s := range slots {
		if s.Status == SlotOccupied {
			if best == -1 || slots[i].Index < slots[best].Index {
				best = i
			}
		}
	}
	return best
}
