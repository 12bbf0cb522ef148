// Package host implements the Host reactor from spec.md §4.1: the
// process-wide singleton that owns realm connections, the current lobby,
// running games, and the optional status/LAN/reconnect subsystems, and
// drives them all from a single update() call per spec.md's literal
// contract (`update(max_block_usec) -> should_exit`).
package host

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hoardbot/ghostbot/internal/admin"
	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/db"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/lan"
	"github.com/hoardbot/ghostbot/internal/realm"
	"github.com/hoardbot/ghostbot/internal/reconnect"
	"github.com/hoardbot/ghostbot/internal/status"
)

// CallablesDrainTimeout bounds the graceful-exit wait for in-flight
// database work (spec.md §4.1 step 2, §5 "exit_nice waits up to 60 s").
const CallablesDrainTimeout = 60 * time.Second

// tickInterval is the reactor's nominal cadence (spec.md §2 "nominal
// 50 ms, shortened if a game needs an earlier timed action").
const tickInterval = 50 * time.Millisecond

// Host is the process-wide reactor (spec.md §2, §3 "Host state").
type Host struct {
	cfg       config.Host
	db        *db.Database
	realms    []*realm.Connection
	registry  *admin.Registry
	startTime time.Time

	statusSrv *status.Server
	lanSender *lan.Sender

	lobbyListener     net.Listener
	reconnectListener net.Listener

	mu      sync.Mutex
	current *RunningGame
	running []*RunningGame

	exiting     bool
	exitingNice bool

	events chan hostEvent

	pendingSaves []*pendingGameSave
}

// pendingGameSave tracks one torn-down game's ThreadedGameAdd callable
// alongside the player rows waiting on its resolved game-id (spec.md §6).
type pendingGameSave struct {
	callable *db.Callable[int64]
	records  []db.GamePlayerAddRequest
}

// New constructs a Host with every subsystem wired but not yet started
// (spec.md §4.1 "init"). database may be nil in tests that don't exercise
// persistence.
func New(cfg config.Host, database *db.Database, realms []*realm.Connection) *Host {
	h := &Host{
		cfg:       cfg,
		db:        database,
		realms:    realms,
		registry:  admin.NewDefaultRegistry(),
		startTime: time.Now(),
		events:    make(chan hostEvent, 256),
	}
	h.statusSrv = status.NewServer(h.currentGameSnapshot)
	return h
}

func (h *Host) currentGameSnapshot() (*game.Game, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, false
	}
	return h.current.G, true
}

// RequestExitNice begins the graceful shutdown sequence (spec.md §4.1
// step 2): drop the lobby, let running games finish. Realm connections
// are not closed by the Host.
func (h *Host) RequestExitNice() {
	h.mu.Lock()
	h.exitingNice = true
	h.mu.Unlock()
}

// Run starts every listener and drives Update in a loop until it reports
// exit, or until a hard deadline that starts when ctx is cancelled
// (spec.md §4.1 "Called in a tight loop from main").
func (h *Host) Run(ctx context.Context) error {
	h.ensureListeners(ctx)

	if h.cfg.UDPBroadcastTarget != "" {
		sender, err := lan.NewSender(h.cfg)
		if err != nil {
			slog.Warn("host: lan sender unavailable", "error", err)
		} else {
			h.lanSender = sender
			defer sender.Close()
		}
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// done fires once, on ctx cancellation (SIGINT/SIGTERM), and starts the
	// graceful-exit sequence (spec.md §4.1 step 2) instead of returning
	// immediately: dropping the lobby and waiting for running games to
	// finish is Update's job, driven by exitingNice. done
	// is nilled out afterward so this case can't refire and starve the
	// ticker; hardDeadline is the backstop in case a running game never
	// empties.
	done := ctx.Done()
	var hardDeadline <-chan time.Time

	for {
		select {
		case <-done:
			h.RequestExitNice()
			done = nil
			deadline := time.NewTimer(CallablesDrainTimeout + tickInterval)
			defer deadline.Stop()
			hardDeadline = deadline.C
		case <-hardDeadline:
			return ctx.Err()
		case <-ticker.C:
			if h.Update(tickInterval) {
				return nil
			}
		}
	}
}

// Update runs exactly one reactor tick (spec.md §4.1's `update()`
// contract). Returns true when the Host should exit.
func (h *Host) Update(maxBlock time.Duration) (exit bool) {
	if h.db != nil && !h.db.Healthy(context.Background()) {
		return true
	}

	h.mu.Lock()
	exitingNice := h.exitingNice
	noCurrent := h.current == nil
	noRunning := len(h.running) == 0
	h.mu.Unlock()

	if exitingNice {
		if noCurrent && noRunning {
			h.mu.Lock()
			h.exiting = true
			h.mu.Unlock()
			return true
		}
		h.mu.Lock()
		h.current = nil
		h.mu.Unlock()
	}

	if h.db != nil {
		h.db.Reap()
		h.flushPendingSaves()
	}

	h.drainEvents(h.effectiveBlock(maxBlock))
	h.tickGames(time.Now())
	h.autoHost()

	return false
}

// effectiveBlock computes the capped wait for spec.md §4.1 step 6: the
// caller's max, clamped to between 1 ms and 1 s. The running games' next
// timed actions are not consulted.
func (h *Host) effectiveBlock(maxBlock time.Duration) time.Duration {
	block := maxBlock
	if block > time.Second {
		block = time.Second
	}
	if block < time.Millisecond {
		block = time.Millisecond
	}
	return block
}

func (h *Host) drainEvents(wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ev := <-h.events:
		h.handleEvent(ev)
	case <-timer.C:
		return
	}

	for {
		select {
		case ev := <-h.events:
			h.handleEvent(ev)
		default:
			return
		}
	}
}

func (h *Host) tickGames(now time.Time) {
	h.mu.Lock()
	cur := h.current
	games := make([]*RunningGame, 0, len(h.running)+1)
	if cur != nil {
		games = append(games, cur)
	}
	games = append(games, h.running...)
	h.mu.Unlock()

	var stillRunning []*RunningGame
	curDone := false
	for _, rg := range games {
		rg.advance(h, now)
		if rg.G.Phase == game.PhaseOver && rg.torndown {
			h.saveCompletedGame(rg)
			if rg == cur {
				curDone = true
				if h.statusSrv != nil {
					h.statusSrv.PushGameDestroyed()
				}
			}
			continue
		}
		if rg != cur {
			stillRunning = append(stillRunning, rg)
		}
	}

	h.mu.Lock()
	switch {
	case curDone:
		h.current = nil
	case cur != nil && cur.G.Phase != game.PhaseLobby && cur.G.Phase != game.PhaseCountingDown:
		stillRunning = append(stillRunning, cur)
		h.current = nil
	}
	h.running = stillRunning
	h.mu.Unlock()
}

// autoHost implements spec.md §4.7.
func (h *Host) autoHost() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.AutoHostStartPlayers <= 0 && h.cfg.AutoHostGameName == "" {
		return
	}
	if h.current != nil {
		return
	}
	if len(h.running)+1 > h.cfg.MaxGames {
		return
	}
	if h.cfg.AutoHostMaxGames > 0 && len(h.running) >= h.cfg.AutoHostMaxGames {
		return
	}

	name := h.cfg.AutoHostGameName
	if name == "" || len(name) >= 31 {
		h.cfg.AutoHostStartPlayers = 0
		h.cfg.AutoHostGameName = ""
		slog.Warn("host: disabling autohost, invalid game name", "name", name)
		return
	}

	g := game.NewGame(h.cfg, name, h.cfg.AutoHostMap, h.cfg.AutoHostOwner, "", h.cfg.AutoHostOwner, game.VisibilityPublic, uint16(h.cfg.HostPort))
	h.current = newRunningGame(g)
	slog.Info("host: autohost created game", "name", name)
	if h.statusSrv != nil {
		h.statusSrv.PushGameCreated(g)
	}
}

func (h *Host) saveCompletedGame(rg *RunningGame) {
	if h.db == nil {
		return
	}
	duration := int(time.Since(rg.G.CreatedAt).Seconds())
	state := "private"
	if rg.G.Visibility == game.VisibilityPublic {
		state = "public"
	}
	c := h.db.ThreadedGameAdd(db.GameAddRequest{
		Server:        rg.G.CreatorRealm,
		Map:           rg.G.MapPath,
		GameName:      rg.G.Name,
		Owner:         rg.G.OwnerName,
		DurationSec:   duration,
		GameState:     state,
		Creator:       rg.G.CreatorName,
		CreatorServer: rg.G.CreatorRealm,
	})

	h.mu.Lock()
	h.pendingSaves = append(h.pendingSaves, &pendingGameSave{callable: c, records: rg.records})
	h.mu.Unlock()
}

// flushPendingSaves polls each completed game's ThreadedGameAdd callable
// and, once its game-id comes back, fires one ThreadedGamePlayerAdd per
// seated player (spec.md §6) — the rows can't be written until the id
// they're keyed by exists.
func (h *Host) flushPendingSaves() {
	h.mu.Lock()
	pending := h.pendingSaves
	h.mu.Unlock()

	var remaining []*pendingGameSave
	for _, ps := range pending {
		if !ps.callable.Ready() {
			remaining = append(remaining, ps)
			continue
		}
		gameID, err := ps.callable.Result()
		if err != nil {
			slog.Warn("host: saving completed game failed", "error", err)
			continue
		}
		for _, rec := range ps.records {
			rec.GameID = gameID
			h.db.ThreadedGamePlayerAdd(rec)
		}
	}

	h.mu.Lock()
	h.pendingSaves = remaining
	h.mu.Unlock()
}

func (h *Host) ensureListeners(ctx context.Context) {
	if h.lobbyListener == nil {
		ln, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(h.cfg.HostPort)))
		if err != nil {
			slog.Warn("host: lobby listener bind failed", "error", err)
		} else {
			h.lobbyListener = ln
			go h.acceptLobby(ctx, ln)
		}
	}

	if h.cfg.ReconnectEnabled && h.reconnectListener == nil {
		ln, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(h.cfg.ReconnectPort)))
		if err != nil {
			slog.Warn("host: reconnect listener bind failed (disabling)", "error", err)
		} else {
			h.reconnectListener = ln
			go h.acceptReconnect(ctx, ln)
		}
	}

	if h.cfg.TCPStatus && h.statusSrv != nil {
		go func() {
			addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(h.cfg.StatusPort))
			if err := h.statusSrv.Run(ctx, addr); err != nil {
				slog.Warn("host: status broadcaster bind failed (disabling)", "error", err)
			}
		}()
	}
}

func (h *Host) acceptReconnect(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go reconnect.Accept(conn, h.lookupReconnectPlayer)
	}
}

func (h *Host) lookupReconnectPlayer(pid byte, key uint32) (reconnect.LookupResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	candidates := make([]*RunningGame, 0, len(h.running)+1)
	if h.current != nil {
		candidates = append(candidates, h.current)
	}
	candidates = append(candidates, h.running...)

	for _, rg := range candidates {
		if p, ok := rg.G.Players[pid]; ok && p.GProxy.Enabled && p.GProxy.ReconnectKey == key {
			return reconnect.LookupResult{
				Player: p,
				Attach: func(conn net.Conn) {
					h.events <- hostEvent{rg: rg, pid: pid, reconnected: conn}
				},
			}, true
		}
	}
	return reconnect.LookupResult{}, false
}

// Stopped reports whether the Host has fully completed its exit sequence.
func (h *Host) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exiting
}
