package host

import (
	"log/slog"
	"net"
	"time"

	"github.com/hoardbot/ghostbot/internal/db"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/tick"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// RunningGame bundles one Game with the transport/tick state the Host
// needs to drive it: its socket table, tick engine, and the lag-screen
// bookkeeping that spans ticks (spec.md §4.1 "each running game owns its
// listener and player sockets", §4.4).
type RunningGame struct {
	G      *game.Game
	Engine *tick.Engine

	conns    map[byte]net.Conn
	loading  map[byte]bool
	rootAuth map[byte]bool

	GameOverAt time.Time
	torndown   bool

	LastLeaverName string
	Candidates     []string

	// records accumulates one row per player who passed through this
	// game, captured as each departs, for the game-id-keyed persistence
	// Host.saveCompletedGame fires once this game is fully torn down
	// (spec.md §6).
	records []db.GamePlayerAddRequest
}

func newRunningGame(g *game.Game) *RunningGame {
	return &RunningGame{
		G:        g,
		Engine:   tick.NewEngine(),
		conns:    make(map[byte]net.Conn),
		loading:  make(map[byte]bool),
		rootAuth: make(map[byte]bool),
	}
}

// addConn registers a joined player's socket, for chat relay and action
// broadcast once the per-connection reader goroutine is started
// (spec.md §4.2 join handling).
func (rg *RunningGame) addConn(pid byte, conn net.Conn) {
	rg.conns[pid] = conn
	rg.loading[pid] = true
	rg.Candidates = append(rg.Candidates, rg.G.Players[pid].Name)
}

// reattachConn swaps in a freshly reconnected socket for pid, closing
// whatever stale connection was left behind (spec.md §4.5). Unlike
// addConn, it doesn't touch loading state or Candidates — the player
// never left the player table, it just changed sockets.
func (rg *RunningGame) reattachConn(pid byte, conn net.Conn) {
	if old, ok := rg.conns[pid]; ok {
		old.Close()
	}
	rg.conns[pid] = conn
}

func (rg *RunningGame) dropConn(pid byte) {
	delete(rg.conns, pid)
	delete(rg.loading, pid)
}

// recordPlayer stages one player's final row for ThreadedGamePlayerAdd
// (spec.md §6). GameID is filled in later, once this game's own
// ThreadedGameAdd callable resolves (Host.flushPendingSaves) — the id
// isn't known yet at the moment a player departs.
func (rg *RunningGame) recordPlayer(p *game.Player, team, colour byte) {
	rg.records = append(rg.records, db.GamePlayerAddRequest{
		Name:         p.Name,
		IP:           p.ExternalIP.String(),
		Spoofed:      p.Spoofed,
		SpoofedRealm: p.SpoofedRealm,
		Reserved:     p.Reserved,
		LeftReason:   p.Left.LeftReason,
		Team:         int(team),
		Colour:       int(colour),
	})
}

// broadcast sends frame to every connected player except skip (0 skips
// nobody, since PID 0 is never assigned).
func (rg *RunningGame) broadcast(frame []byte, skip byte) {
	for pid, conn := range rg.conns {
		if pid == skip {
			continue
		}
		if _, err := conn.Write(frame); err != nil {
			slog.Debug("host: broadcast write failed", "pid", pid, "error", err)
		}
	}
}

// send writes frame to one player's socket, if still connected.
func (rg *RunningGame) send(pid byte, frame []byte) {
	if conn, ok := rg.conns[pid]; ok {
		if _, err := conn.Write(frame); err != nil {
			slog.Debug("host: send write failed", "pid", pid, "error", err)
		}
	}
}

// advance runs one reactor tick's worth of progress for rg, driving the
// lobby→counting_down→loading→loaded→over lifecycle (spec.md §4.2) and,
// once loaded, the latency/ping/lag-screen/desync machinery (spec.md
// §4.4). All mutation happens here, on the Host's single reactor
// goroutine (spec.md §5).
func (rg *RunningGame) advance(h *Host, now time.Time) {
	g := rg.G

	for _, p := range g.ReapDeleted() {
		rg.dropConn(p.PID)
		rg.LastLeaverName = p.Name
		rg.recordPlayer(p, p.Left.Team, p.Left.Colour)
	}

	switch g.Phase {
	case game.PhaseLobby:
		rg.advanceLobby(h, now)
	case game.PhaseCountingDown:
		rg.advanceCountdown(now)
	case game.PhaseLoading:
		rg.advanceLoading(now)
	case game.PhaseLoaded:
		rg.advanceLoaded(h, now)
	case game.PhaseOver:
		rg.advanceOver(now)
	}
}

func (rg *RunningGame) advanceLobby(h *Host, now time.Time) {
	g := rg.G
	if g.MarkedForExit {
		g.Phase = game.PhaseOver
		g.SetGameOver(g.GameTicks)
		rg.GameOverAt = now
		return
	}
	limit := time.Duration(g.Config().LobbyTimeLimitMinutes) * time.Minute
	if limit > 0 && g.NoHumansFor(limit, now) {
		slog.Info("host: lobby timed out with no players", "game", g.Name)
		g.MarkedForExit = true
	}
}

func (rg *RunningGame) advanceCountdown(now time.Time) {
	g := rg.G
	if g.TickCountdown(now) {
		if err := g.EnterLoading(g.GameTicks); err != nil {
			slog.Warn("host: enter loading failed", "game", g.Name, "error", err)
			return
		}
		rg.broadcast(wire.FramePacket(wire.OpCountdownEnd, nil), 0)
		for pid := range rg.conns {
			rg.loading[pid] = true
		}
	}
}

func (rg *RunningGame) advanceLoading(now time.Time) {
	g := rg.G
	if g.AllPlayersLoaded(rg.loading) {
		if err := g.EnterLoaded(); err != nil {
			slog.Warn("host: enter loaded failed", "game", g.Name, "error", err)
			return
		}
	}
}

func (rg *RunningGame) advanceLoaded(h *Host, now time.Time) {
	g := rg.G
	cfg := g.Config()

	if rg.Engine.DueForLatencyTick(cfg, now) {
		batch := rg.Engine.RunLatencyTick(g, cfg, now)
		rg.broadcast(wire.FramePacket(wire.OpIncomingAction, batch.Frame), 0)
	}

	if rg.Engine.DueForPingTick(now) {
		frame, _ := rg.Engine.RunPingTick(g, now)
		rg.broadcast(wire.FramePacket(wire.OpPingFromHost, frame), 0)
	}

	activePIDs := make([]byte, 0, len(rg.conns))
	for pid := range rg.conns {
		activePIDs = append(activePIDs, pid)
	}

	lagging, changed := rg.Engine.EvaluateLag(activePIDs, cfg.SyncLimit)
	if changed {
		if lagging != 0 {
			rg.broadcast(wire.FramePacket(wire.OpStartLag, wire.LagStart([]byte{lagging}, map[byte]uint32{lagging: 0})), 0)
		} else {
			rg.broadcast(wire.FramePacket(wire.OpStopLag, wire.LagStop(activePIDs)), 0)
		}
	}

	if cfg.DesyncKick {
		if res := rg.Engine.EvaluateDesync(activePIDs); res.Desynced && len(res.Minority) > 0 {
			for _, pid := range res.Minority {
				if p, ok := g.Players[pid]; ok {
					slog.Warn("host: kicking desynced player", "game", g.Name, "player", p.Name)
					g.RemovePlayer(pid, byte(wire.LeftDrop), "desync")
				}
			}
		}
	}

	if len(g.Players) == 0 {
		g.SetGameOver(g.GameTicks)
		if err := g.EnterOver(); err == nil {
			rg.GameOverAt = now
		}
	}
}

func (rg *RunningGame) advanceOver(now time.Time) {
	if rg.torndown {
		return
	}
	if tick.ReadyForTeardown(rg.G, now, rg.GameOverAt) {
		for pid, conn := range rg.conns {
			conn.Close()
			delete(rg.conns, pid)
		}
		// Players who never went through RemovePlayer — e.g. a lobby
		// unhosted straight into PhaseOver (spec.md §4.2) — are still
		// seated when teardown runs; record them here so their rows
		// aren't silently dropped.
		for _, p := range rg.G.Players {
			if p.Left.LeftReason == "" {
				p.Left.LeftReason = "game closed"
			}
			team, colour := byte(0), byte(0)
			if idx := game.FindSlotByPID(rg.G.Slots, p.PID); idx >= 0 {
				team, colour = rg.G.Slots[idx].Team, rg.G.Slots[idx].Colour
			}
			rg.recordPlayer(p, team, colour)
		}
		rg.torndown = true
	}
}
