package game

import (
	"net"
	"time"
)

// pingRingSize bounds the ping sample ring per player (spec.md §3).
const pingRingSize = 20

// DownloadState tracks a player's map-transfer progress (spec.md §3).
type DownloadState struct {
	Allowed     bool
	Started     bool
	Finished    bool
	BytesSent   int
	StartedTick uint32
}

// LeftState tracks how and whether a player has departed (spec.md §3).
// Team/Colour are snapshotted from the player's slot at departure time,
// since RemovePlayer frees the slot immediately and the per-game DB
// persistence (spec.md §6) needs them after that point.
type LeftState struct {
	DeleteMe   bool
	LeftCode   byte // a wire.LeftCode value, stored as a plain byte
	LeftReason string
	Team       byte
	Colour     byte
}

// GProxyInfo is the reconnect sidechannel state carried per player
// (spec.md §3, §4.5).
type GProxyInfo struct {
	Enabled        bool
	ReconnectKey   uint32
	InitialVersion uint32
	LastActionTick uint32
	Resume         *ResumeBuffer
}

// Player is one joined lobby/game participant (spec.md §3).
type Player struct {
	PID            byte
	Name           string
	ExternalIP     net.IP
	JoinedRealm    string
	Spoofed        bool
	SpoofedRealm   string
	Reserved       bool
	Muted          bool
	Authenticated  bool
	KickVote       bool
	JoinTime       time.Time

	pingSamples [pingRingSize]uint32
	pingCount   int
	pingNext    int
	pingTotal   uint64

	Download DownloadState
	Left     LeftState
	GProxy   GProxyInfo

	SyncCounter uint32

	// LastActionSeq is a slot for the sequence number of the last batch this
	// player's actions were placed in; no code in this module sets or reads it.
	LastActionSeq uint64
}

// NewPlayer constructs a lobby participant.
func NewPlayer(pid byte, name string, ip net.IP, realm string) *Player {
	return &Player{
		PID:         pid,
		Name:        name,
		ExternalIP:  ip,
		JoinedRealm: realm,
		JoinTime:    time.Now(),
	}
}

// AddPingSample records one round-trip sample into the bounded ring.
func (p *Player) AddPingSample(ms uint32) {
	p.pingSamples[p.pingNext] = ms
	p.pingNext = (p.pingNext + 1) % pingRingSize
	if p.pingCount < pingRingSize {
		p.pingCount++
	}
	p.pingTotal += uint64(ms)
}

// AveragePing returns the mean of the samples held in the ring (at most
// the last pingRingSize), or 0 if none yet.
func (p *Player) AveragePing() uint32 {
	if p.pingCount == 0 {
		return 0
	}
	var sum uint64
	for i := 0; i < p.pingCount; i++ {
		sum += uint64(p.pingSamples[i])
	}
	return uint32(sum / uint64(p.pingCount))
}

// NumPings reports how many ping samples the ring holds (at most pingRingSize).
func (p *Player) NumPings() int { return p.pingCount }
