package game

import "math"

// MinVotekickPlayers is the minimum human count required to open a vote
// (spec.md §4.3: "≥3 players").
const MinVotekickPlayers = 3

// KickVote tracks an in-progress !votekick (spec.md §3, §4.3).
type KickVote struct {
	TargetPID byte
	StartedAt uint32 // game tick the vote opened at
	Yes       map[byte]bool
}

// NewKickVote opens a vote against target, started at the given tick.
func NewKickVote(targetPID byte, startTick uint32) *KickVote {
	return &KickVote{TargetPID: targetPID, StartedAt: startTick, Yes: make(map[byte]bool)}
}

// VotesNeeded computes ceil((numHumans-1)*percent/100) — the target
// doesn't get a ballot, so the electorate is numHumans-1 (spec.md §4.3,
// §8 property 6).
func VotesNeeded(numHumans int, percent int) int {
	electorate := numHumans - 1
	if electorate <= 0 {
		return 0
	}
	return int(math.Ceil(float64(electorate) * float64(percent) / 100.0))
}

// RegisterYes records a !yes vote from voterPID. Votes from the target
// itself are not counted (spec.md §8 property 6).
func (v *KickVote) RegisterYes(voterPID byte) {
	if voterPID == v.TargetPID {
		return
	}
	v.Yes[voterPID] = true
}

// Passed reports whether the accumulated yes votes meet the threshold.
func (v *KickVote) Passed(numHumans int, percent int) bool {
	return len(v.Yes) >= VotesNeeded(numHumans, percent)
}
