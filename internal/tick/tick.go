// Package tick drives the in-game tick engine described in spec.md §4.4:
// fixed-latency action batching, the sync-counter/lag-screen protocol,
// and desync detection. It never touches sockets directly — callers feed
// in wire frames already decoded and take the returned wire frames to
// send, keeping the engine unit-testable without a network.
package tick

import (
	"time"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// MinLatencyMS and MaxLatencyMS clamp bot_latency (spec.md §4.4).
const (
	MinLatencyMS = 20
	MaxLatencyMS = 500
)

// PingInterval is the keepalive ping cadence (spec.md §4.4 "ping").
const PingInterval = 5 * time.Second

// ClampLatency enforces the [20, 500] range regardless of config input.
func ClampLatency(ms int) int {
	if ms < MinLatencyMS {
		return MinLatencyMS
	}
	if ms > MaxLatencyMS {
		return MaxLatencyMS
	}
	return ms
}

// Batch is one latency tick's outbound payload.
type Batch struct {
	Frame []byte // the W3GS_INCOMING_ACTION payload; callers frame it with wire.FramePacket
}

// Engine accumulates per-game tick state: sync counters, the current
// tick's reported checksums, and lag-screen membership. One Engine per
// running Game.
type Engine struct {
	lastLatencyTick time.Time
	lastPingTick    time.Time

	syncCounters map[byte]uint32
	checksums    map[byte]uint32

	laggingPID byte
}

// NewEngine constructs a tick engine for a freshly loaded game.
func NewEngine() *Engine {
	return &Engine{
		syncCounters: make(map[byte]uint32),
		checksums:    make(map[byte]uint32),
	}
}

// DueForLatencyTick reports whether the configured latency interval has
// elapsed since the last tick.
func (e *Engine) DueForLatencyTick(cfg config.Host, now time.Time) bool {
	interval := time.Duration(ClampLatency(cfg.LatencyMS)) * time.Millisecond
	return e.lastLatencyTick.IsZero() || now.Sub(e.lastLatencyTick) >= interval
}

// RunLatencyTick drains g's action queue into one batch, appends the
// encoded frame to every GProxy-enabled player's resume buffer, and
// advances game_ticks (spec.md §4.4, §8 property 3 — FIFO preserved
// because DrainActions already returns arrival order).
func (e *Engine) RunLatencyTick(g *game.Game, cfg config.Host, now time.Time) Batch {
	entries := g.DrainActions()

	actions := make([]wire.PlayerAction, len(entries))
	for i, a := range entries {
		actions[i] = wire.PlayerAction{PID: a.PID, Data: a.Data}
	}
	frame := wire.IncomingAction(uint16(ClampLatency(cfg.LatencyMS)), actions)
	framed := wire.FramePacket(wire.OpIncomingAction, frame)

	for _, p := range g.Players {
		if p.GProxy.Enabled && p.GProxy.Resume != nil {
			p.GProxy.Resume.Append(framed)
		}
	}

	g.GameTicks++
	g.LastLatencyTick = g.GameTicks
	e.lastLatencyTick = now

	// Reset checksum tracking for the new tick; last tick's values have
	// already been evaluated by EvaluateDesync.
	e.checksums = make(map[byte]uint32)

	return Batch{Frame: frame}
}

// DueForPingTick reports whether it's time to echo a keepalive ping.
func (e *Engine) DueForPingTick(now time.Time) bool {
	return e.lastPingTick.IsZero() || now.Sub(e.lastPingTick) >= PingInterval
}

// RunPingTick returns the W3GS_PING_FROM_HOST frame and the tick it was
// sent at, for RTT measurement once the matching pong arrives.
func (e *Engine) RunPingTick(g *game.Game, now time.Time) (frame []byte, sentTick uint32) {
	e.lastPingTick = now
	g.LastPingTick = g.GameTicks
	return wire.Empty(), g.GameTicks
}

// RecordSync accumulates one player's reported checksum for the current
// tick (spec.md §4.4 "expect each player to respond with their
// checksum").
func (e *Engine) RecordSync(pid byte, checksum uint32) {
	e.syncCounters[pid]++
	e.checksums[pid] = checksum
}

// SyncCounter returns how many checksums pid has reported so far.
func (e *Engine) SyncCounter(pid byte) uint32 { return e.syncCounters[pid] }

// EvaluateLag computes the spread between the slowest and fastest
// players' sync counters; if it exceeds syncLimit, the slowest player is
// placed on (or kept on) the lag screen. Returns the PID now lagging, or
// 0 if nobody is (spec.md §4.4).
func (e *Engine) EvaluateLag(activePIDs []byte, syncLimit int) (laggingPID byte, changed bool) {
	if len(activePIDs) == 0 {
		return 0, false
	}

	var slowestPID byte
	var slowest, fastest uint32
	first := true
	for _, pid := range activePIDs {
		c := e.syncCounters[pid]
		if first {
			slowest, fastest, slowestPID = c, c, pid
			first = false
			continue
		}
		if c < slowest {
			slowest, slowestPID = c, pid
		}
		if c > fastest {
			fastest = c
		}
	}

	spread := int(fastest) - int(slowest)
	prev := e.laggingPID

	if spread > syncLimit {
		e.laggingPID = slowestPID
	} else {
		e.laggingPID = 0
	}
	return e.laggingPID, e.laggingPID != prev
}

// DesyncResult reports one tick's checksum comparison.
type DesyncResult struct {
	Desynced bool
	// Minority holds the PIDs whose checksum differed from the majority
	// value — the candidates for a desync kick.
	Minority []byte
}

// EvaluateDesync compares this tick's recorded checksums across
// activePIDs. A desync exists when not all reporting players agree; the
// minority faction is whichever value has fewer holders (spec.md §4.4,
// §8 scenario S5). Ties resolve to no single minority (both sides kept,
// left to the caller to treat as a warning-only case).
func (e *Engine) EvaluateDesync(activePIDs []byte) DesyncResult {
	counts := make(map[uint32][]byte)
	for _, pid := range activePIDs {
		c, ok := e.checksums[pid]
		if !ok {
			continue
		}
		counts[c] = append(counts[c], pid)
	}
	if len(counts) <= 1 {
		return DesyncResult{}
	}

	var majorityCount int
	var majority uint32
	firstSeen := true
	for c, pids := range counts {
		if firstSeen || len(pids) > majorityCount {
			majority, majorityCount = c, len(pids)
			firstSeen = false
		}
	}

	var minority []byte
	tied := false
	for c, pids := range counts {
		if c != majority {
			minority = append(minority, pids...)
			if len(pids) == majorityCount {
				tied = true
			}
		}
	}
	if tied || len(minority) == 0 || len(minority) >= len(activePIDs) {
		// No clear minority (e.g. an even split) — report desync but
		// leave the kick decision to the caller.
		return DesyncResult{Desynced: true}
	}
	return DesyncResult{Desynced: true, Minority: minority}
}

// ReadyForTeardown reports whether GAME_OVER_DELAY has elapsed since the
// latched game-over tick (spec.md §4.4).
func ReadyForTeardown(g *game.Game, now, gameOverAt time.Time) bool {
	if !g.GameOverLatched() {
		return false
	}
	return now.Sub(gameOverAt) >= game.GameOverDelay
}
