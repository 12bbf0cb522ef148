package game

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hoardbot/ghostbot/internal/config"
)

// Phase is the game's lifecycle state (spec.md §4.2).
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCountingDown
	PhaseLoading
	PhaseLoaded
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountingDown:
		return "counting_down"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// Visibility is {private, public} (spec.md §3).
type Visibility int

const (
	VisibilityPrivate Visibility = iota
	VisibilityPublic
)

// noPlayerLeaveGrace is the start-condition cooldown from spec.md §4.2:
// "no player left in the last 2000ms".
const noPlayerLeaveGrace = 2 * time.Second

// countdownTickInterval is the 1Hz countdown cadence (spec.md §4.2).
const countdownTickInterval = time.Second

// countdownStartTicks is the number of 1-second ticks a normal countdown runs.
const countdownStartTicks = 5

// GameOverDelay is how long the loaded phase lingers after game-over
// before teardown begins (spec.md §4.4).
const GameOverDelay = 5 * time.Second

var hostCounter uint64

// NextHostCounter returns a strictly increasing id for create/rehost
// (spec.md §3, §8 property 4). Process-wide so rehosts never collide with
// a sibling game's counter.
func NextHostCounter() uint32 {
	return uint32(atomic.AddUint64(&hostCounter, 1))
}

// ActionEntry is one buffered player action awaiting the next latency tick.
type ActionEntry struct {
	PID  byte
	Data []byte
	Seq  uint64
}

// Game is one lobby/running-game instance (spec.md §3).
type Game struct {
	Name         string
	HostCounter  uint32
	CreatorName  string
	CreatorRealm string
	OwnerName    string
	CreatedAt    time.Time
	HostPort     uint16
	MapPath      string
	SavedGame    string
	Visibility   Visibility
	Phase        Phase

	Slots   []Slot
	Players map[byte]*Player

	ActionQueue   []ActionEntry
	nextActionSeq uint64

	GameTicks          uint32
	LastLatencyTick    uint32
	LastPingTick       uint32
	LastRefreshTick    uint32
	StartedLoadingTick uint32
	GameOverTick       uint32
	gameOverSet        bool

	Locked            bool
	MuteAll           bool
	AutoSave          bool
	RefreshMessages   bool
	HCLCommandString  string
	HCLOverride       bool
	FakePlayerPID     byte
	VirtualHostName   string
	VirtualHostPID    byte

	KickVote *KickVote

	countdownTicksLeft int
	countdownLastTick  time.Time
	lastPlayerLeaveAt  time.Time
	noPlayersSince     time.Time
	hasNoPlayersSince  bool

	MarkedForExit bool

	cfg config.Host

	nextPID byte
}

// NewGame constructs a lobby in the Lobby phase (spec.md §4.2 entered-by
// create_game). mapPath stands in for the read-only map reference the
// out-of-scope MPQ reader would otherwise provide (spec.md §1).
func NewGame(cfg config.Host, name, mapPath, creatorName, creatorRealm, ownerName string, visibility Visibility, hostPort uint16) *Game {
	slots := make([]Slot, MaxSlots)
	for i := range slots {
		slots[i] = NewOpenSlot(byte(i))
	}

	g := &Game{
		Name:         name,
		HostCounter:  NextHostCounter(),
		CreatorName:  creatorName,
		CreatorRealm: creatorRealm,
		OwnerName:    ownerName,
		CreatedAt:    time.Now(),
		HostPort:     hostPort,
		MapPath:      mapPath,
		Visibility:   visibility,
		Phase:        PhaseLobby,
		Slots:        slots,
		Players:      make(map[byte]*Player),
		cfg:          cfg,
		nextPID:      1,
	}
	g.addVirtualHost()
	return g
}

// addVirtualHost occupies the lowest open slot with a synthetic occupant
// so the lobby advertises as N/12 even with zero real joiners
// (spec.md §4.2).
func (g *Game) addVirtualHost() {
	idx := FirstOpenSlot(g.Slots)
	if idx < 0 {
		return
	}
	pid := g.allocatePID()
	g.Slots[idx].PID = pid
	g.Slots[idx].Status = SlotOccupied
	g.VirtualHostPID = pid
	g.VirtualHostName = "Virtual Host"
}

// EvictVirtualHost removes the synthetic occupant — required before the
// game leaves the lobby and before a 12th human joins (spec.md §4.2).
func (g *Game) EvictVirtualHost() {
	if g.VirtualHostPID == 0 {
		return
	}
	if idx := FindSlotByPID(g.Slots, g.VirtualHostPID); idx >= 0 {
		g.Slots[idx] = NewOpenSlot(g.Slots[idx].Index)
	}
	g.VirtualHostPID = 0
	g.VirtualHostName = ""
}

func (g *Game) allocatePID() byte {
	for {
		if g.nextPID > MaxSlots {
			g.nextPID = 1
		}
		pid := g.nextPID
		g.nextPID++
		if FindSlotByPID(g.Slots, pid) < 0 {
			return pid
		}
	}
}

// NumHumanPlayers counts occupied, non-computer slots excluding the
// virtual host and fake player (spec.md §4.2 start condition).
func (g *Game) NumHumanPlayers() int {
	n := 0
	for _, s := range g.Slots {
		if s.Status != SlotOccupied || s.Computer {
			continue
		}
		if s.PID == g.VirtualHostPID || s.PID == g.FakePlayerPID {
			continue
		}
		n++
	}
	return n
}

// AddPlayer joins a player into the first open slot, evicting the virtual
// host first if that was the only open seat (spec.md §4.2). Returns the
// assigned slot index, or -1 if the lobby is full.
func (g *Game) AddPlayer(p *Player) int {
	idx := FirstOpenSlot(g.Slots)
	if idx < 0 {
		g.EvictVirtualHost()
		idx = FirstOpenSlot(g.Slots)
		if idx < 0 {
			return -1
		}
	}
	if p.PID == 0 {
		p.PID = g.allocatePID()
	}
	g.Slots[idx].PID = p.PID
	g.Slots[idx].Status = SlotOccupied
	g.Slots[idx].Colour = NextUnusedColour(g.Slots)
	g.Players[p.PID] = p

	if g.NumHumanPlayers() >= MaxSlots-1 {
		g.EvictVirtualHost()
	}
	return idx
}

// RemovePlayer marks a player departed and frees their slot.
func (g *Game) RemovePlayer(pid byte, leftCode byte, reason string) {
	idx := FindSlotByPID(g.Slots, pid)
	if p, ok := g.Players[pid]; ok {
		p.Left.DeleteMe = true
		p.Left.LeftCode = leftCode
		p.Left.LeftReason = reason
		if idx >= 0 {
			p.Left.Team = g.Slots[idx].Team
			p.Left.Colour = g.Slots[idx].Colour
		}
	}
	if idx >= 0 {
		g.Slots[idx] = NewOpenSlot(g.Slots[idx].Index)
	}
	g.lastPlayerLeaveAt = time.Now()
}

// ReapDeleted drops players marked delete_me from the player table once
// their departure has been fully processed (stats staged, slot freed).
func (g *Game) ReapDeleted() []*Player {
	var gone []*Player
	for pid, p := range g.Players {
		if p.Left.DeleteMe {
			gone = append(gone, p)
			delete(g.Players, pid)
		}
	}
	return gone
}

// CanStart evaluates spec.md §4.2's start condition: autostart configured,
// enough humans joined, and nobody has left in the last 2s.
func (g *Game) CanStart() bool {
	if g.cfg.AutoHostStartPlayers <= 0 {
		return false
	}
	if g.NumHumanPlayers() < g.cfg.AutoHostStartPlayers {
		return false
	}
	if !g.lastPlayerLeaveAt.IsZero() && time.Since(g.lastPlayerLeaveAt) < noPlayerLeaveGrace {
		return false
	}
	return true
}

// StartCountdown enters counting_down. immediate jumps straight to 0
// (!startn); otherwise the counter runs from countdownStartTicks at 1Hz.
func (g *Game) StartCountdown(immediate bool) error {
	if g.Phase != PhaseLobby {
		return fmt.Errorf("cannot start countdown from phase %s", g.Phase)
	}
	g.Phase = PhaseCountingDown
	g.countdownLastTick = time.Now()
	if immediate {
		g.countdownTicksLeft = 0
	} else {
		g.countdownTicksLeft = countdownStartTicks
	}
	return nil
}

// AbortCountdown returns to the lobby (spec.md §4.2 table).
func (g *Game) AbortCountdown() error {
	if g.Phase != PhaseCountingDown {
		return fmt.Errorf("cannot abort countdown from phase %s", g.Phase)
	}
	g.Phase = PhaseLobby
	g.countdownTicksLeft = 0
	return nil
}

// TickCountdown advances the 1Hz counter; returns true the instant the
// counter reaches zero, signalling the caller to transition to loading.
func (g *Game) TickCountdown(now time.Time) bool {
	if g.Phase != PhaseCountingDown {
		return false
	}
	if g.countdownTicksLeft <= 0 {
		return true
	}
	if now.Sub(g.countdownLastTick) >= countdownTickInterval {
		g.countdownTicksLeft--
		g.countdownLastTick = now
	}
	return g.countdownTicksLeft <= 0
}

// EnterLoading transitions counting_down -> loading, pre-computing the
// HCL-encoded slot table and evicting the virtual host (spec.md §4.2).
func (g *Game) EnterLoading(tick uint32) error {
	if g.Phase != PhaseCountingDown {
		return fmt.Errorf("cannot enter loading from phase %s", g.Phase)
	}
	g.EvictVirtualHost()
	if g.HCLCommandString != "" {
		if encoded, ok := EncodeHCL(g.HCLCommandString, g.Slots); ok {
			g.Slots = encoded
		}
	}
	g.Phase = PhaseLoading
	g.StartedLoadingTick = tick
	return nil
}

// AllPlayersLoaded reports whether no remaining player is still loading;
// the caller passes the full players-still-loading set so Game can decide
// the loading -> loaded transition without owning transport state itself.
func (g *Game) AllPlayersLoaded(stillLoading map[byte]bool) bool {
	for pid, p := range g.Players {
		if p.Left.DeleteMe {
			continue
		}
		if stillLoading[pid] {
			return false
		}
	}
	return true
}

// EnterLoaded transitions loading -> loaded (spec.md §4.2).
func (g *Game) EnterLoaded() error {
	if g.Phase != PhaseLoading {
		return fmt.Errorf("cannot enter loaded from phase %s", g.Phase)
	}
	g.Phase = PhaseLoaded
	g.GameTicks = 0
	return nil
}

// SetGameOver latches the game-over tick exactly once (spec.md §4.4).
func (g *Game) SetGameOver(tick uint32) {
	if g.gameOverSet {
		return
	}
	g.GameOverTick = tick
	g.gameOverSet = true
}

// GameOverLatched reports whether SetGameOver has fired.
func (g *Game) GameOverLatched() bool { return g.gameOverSet }

// EnterOver transitions loaded -> over (spec.md §4.2).
func (g *Game) EnterOver() error {
	if g.Phase != PhaseLoaded {
		return fmt.Errorf("cannot enter over from phase %s", g.Phase)
	}
	g.Phase = PhaseOver
	return nil
}

// QueueAction appends one inbound player action, preserving FIFO arrival
// order within the tick it will be flushed in (spec.md §4.4, §8 property 3).
func (g *Game) QueueAction(pid byte, data []byte) {
	g.nextActionSeq++
	g.ActionQueue = append(g.ActionQueue, ActionEntry{PID: pid, Data: data, Seq: g.nextActionSeq})
}

// DrainActions empties and returns the action queue in FIFO order.
func (g *Game) DrainActions() []ActionEntry {
	out := g.ActionQueue
	g.ActionQueue = nil
	return out
}

// NoHumansFor reports whether the lobby has had zero humans for at least
// d, marking/clearing the no-players-since timestamp as it goes
// (spec.md §4.2 lobby timeout, §8 property 8).
func (g *Game) NoHumansFor(d time.Duration, now time.Time) bool {
	if g.NumHumanPlayers() > 0 {
		g.hasNoPlayersSince = false
		return false
	}
	if !g.hasNoPlayersSince {
		g.hasNoPlayersSince = true
		g.noPlayersSince = now
		return false
	}
	return now.Sub(g.noPlayersSince) >= d
}

// Config exposes the game's config snapshot (read-only) to the admin/tick
// packages that need latency/synclimit/etc. without duplicating it.
func (g *Game) Config() config.Host { return g.cfg }

// SetConfig overwrites fields mutated at runtime by admin commands
// (!latency, !synclimit, ...).
func (g *Game) SetConfig(cfg config.Host) { g.cfg = cfg }

// Rehost changes visibility/name per !priv/!pub (spec.md §4.2). Rejected
// if countdown has started or the name is too long.
func (g *Game) Rehost(name string, vis Visibility) error {
	if g.Phase != PhaseLobby {
		return fmt.Errorf("cannot rehost: countdown already started")
	}
	if len(name) >= 31 {
		return fmt.Errorf("unable to create game - name too long")
	}
	g.Name = name
	g.Visibility = vis
	g.HostCounter = NextHostCounter()
	g.CreatedAt = time.Now()
	g.LastRefreshTick = 0
	return nil
}
