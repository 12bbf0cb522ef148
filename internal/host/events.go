package host

import (
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/hoardbot/ghostbot/internal/admin"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// errNoLANSender is returned by the !sendlan hook when no UDP broadcaster
// was configured (spec.md §6 udp_broadcasttarget).
var errNoLANSender = errors.New("lan broadcast not configured")

// hostEvent is one decoded inbound frame, queued by a per-connection
// reader goroutine and drained exclusively by the Host's single reactor
// goroutine (spec.md §5 "all game state is mutated from this loop").
// disconnected events carry no payload; they signal the reader hit EOF
// or a framing error and the connection is already closed.
type hostEvent struct {
	rg           *RunningGame
	pid          byte
	opcode       byte
	payload      []byte
	disconnected bool

	// join is set instead of rg/pid/opcode for a freshly accepted socket
	// still waiting on its W3GS_REQ_JOIN to be resolved against the
	// current lobby — handled on the reactor goroutine so AddPlayer never
	// races with a concurrent tick (spec.md §5).
	join *joinEvent

	// reconnected is set instead of opcode/payload for a socket that has
	// just completed the GProxy replay+ACK handshake (internal/reconnect)
	// and needs to be spliced into rg.conns[pid] from the reactor goroutine
	// rather than the accept goroutine that finished the handshake
	// (spec.md §4.5, §5).
	reconnected net.Conn
}

// startPlayerReader drains one player's socket into h.events until it
// errors, matching the teacher's per-connection-goroutine accept style
// (gslistener) generalized to the in-game wire protocol.
func (h *Host) startPlayerReader(rg *RunningGame, pid byte, conn net.Conn) {
	go func() {
		for {
			opcode, payload, err := wire.ReadPacket(conn)
			if err != nil {
				h.events <- hostEvent{rg: rg, pid: pid, disconnected: true}
				return
			}
			h.events <- hostEvent{rg: rg, pid: pid, opcode: opcode, payload: payload}
		}
	}()
}

func (h *Host) handleEvent(ev hostEvent) {
	if ev.join != nil {
		h.handleJoinEvent(ev.join)
		return
	}
	if ev.reconnected != nil {
		h.handleReconnectEvent(ev)
		return
	}
	if ev.rg == nil || ev.rg.torndown {
		return
	}
	g := ev.rg.G
	p, ok := g.Players[ev.pid]
	if !ok {
		return
	}

	if ev.disconnected {
		g.RemovePlayer(ev.pid, byte(wire.LeftDrop), "connection lost")
		ev.rg.LastLeaverName = p.Name
		ev.rg.dropConn(ev.pid)
		return
	}

	switch ev.opcode {
	case wire.OpChatToHost:
		h.handleChat(ev.rg, p, ev.payload)
	case wire.OpOutgoingAction:
		g.QueueAction(ev.pid, ev.payload)
	case wire.OpOutgoingKeepAlive:
		h.handleKeepAlive(ev.rg, p, ev.payload)
	case wire.OpPongToHost:
		h.handlePong(ev.rg, p, ev.payload)
	case wire.OpGameLoadedSelf:
		ev.rg.loading[ev.pid] = false
	case wire.OpLeaveReq:
		g.RemovePlayer(ev.pid, byte(wire.LeftLobby), "left")
		ev.rg.LastLeaverName = p.Name
	}
}

// handleReconnectEvent splices a socket that just finished the GProxy
// replay+ACK handshake into its owning game's connection table and
// restarts its reader (spec.md §4.5). Runs on the reactor goroutine, so
// it's free to mutate rg.conns directly even though the handshake itself
// ran on the reconnect listener's accept goroutine.
func (h *Host) handleReconnectEvent(ev hostEvent) {
	if ev.rg.torndown {
		ev.reconnected.Close()
		return
	}
	if _, ok := ev.rg.G.Players[ev.pid]; !ok {
		ev.reconnected.Close()
		return
	}
	ev.rg.reattachConn(ev.pid, ev.reconnected)
	h.startPlayerReader(ev.rg, ev.pid, ev.reconnected)
}

// handleKeepAlive records one player's reported tick checksum for the
// desync vote (spec.md §4.4). The checksum's exact offset within the real
// W3GS_OUTGOING_KEEPALIVE payload isn't specified; the first uint32 is
// treated as the checksum, matching GHost++'s layout.
func (h *Host) handleKeepAlive(rg *RunningGame, p *game.Player, payload []byte) {
	d := wire.NewDecoder(payload)
	checksum := d.Uint32()
	if d.Err() != nil {
		return
	}
	rg.Engine.RecordSync(p.PID, checksum)
}

// handlePong turns a pong-to-host reply into a ping sample. The payload
// is the tick at which the matching ping was sent; GameTicks - sentTick,
// scaled by the latency interval, approximates the round trip.
func (h *Host) handlePong(rg *RunningGame, p *game.Player, payload []byte) {
	d := wire.NewDecoder(payload)
	sentTick := d.Uint32()
	if d.Err() != nil {
		return
	}
	elapsed := rg.G.GameTicks - sentTick
	ms := elapsed * uint32(rg.G.Config().LatencyMS)
	p.AddPingSample(ms)

	threshold := rg.G.Config().AutoKickPingMS
	if threshold > 0 && p.AveragePing() > uint32(threshold) && p.NumPings() >= 3 {
		slog.Info("host: autokicking high-ping player", "game", rg.G.Name, "player", p.Name, "ping", p.AveragePing())
		rg.G.RemovePlayer(p.PID, byte(wire.LeftDrop), "ping too high")
		rg.LastLeaverName = p.Name
	}
}

// handleChat relays a chat-to-host frame: admin commands ("!cmd ...") are
// dispatched through the registry, everything else is rebroadcast as a
// chat-from-host frame to its addressed recipients (spec.md §4.3, §4.4).
func (h *Host) handleChat(rg *RunningGame, p *game.Player, payload []byte) {
	chat, err := wire.DecodeChatToHost(payload)
	if err != nil {
		slog.Debug("host: malformed chat-to-host frame", "player", p.Name, "error", err)
		return
	}

	if strings.HasPrefix(chat.Message, "!") {
		h.dispatchCommand(rg, p, strings.TrimPrefix(chat.Message, "!"))
		return
	}

	frame := wire.FramePacket(wire.OpChatFromHost, wire.ChatFromHost(p.PID, chat.ToPIDs, chat.Flags, chat.Extra, chat.Message))
	if len(chat.ToPIDs) == 0 {
		rg.broadcast(frame, p.PID)
		return
	}
	for _, pid := range chat.ToPIDs {
		rg.send(pid, frame)
	}
}

// dispatchCommand builds an admin.Context around one command line and
// runs it through the registry, applying the capability/lock gate from
// spec.md §4.3. The realm auth/spoof-check handshake that would normally
// set Caller.Spoofed/SpoofedRealm is out of scope (spec.md §1); every
// joined player is treated as spoofed and LAN-capable so bot_lan_admins /
// bot_lan_rootadmins remain reachable without a live realm connection.
func (h *Host) dispatchCommand(rg *RunningGame, p *game.Player, line string) {
	caller := admin.Caller{
		Name:           p.Name,
		SpoofedRealm:   p.SpoofedRealm,
		Spoofed:        true,
		IsLAN:          true,
		RootPasswordOK: rg.rootAuth[p.PID],
	}

	cap := admin.ComputeCapability(rg.G, caller, h.isRealmAdmin, h.isRealmRootAdmin)

	ctx := &admin.Context{
		Game:           rg.G,
		DB:             h.db,
		Caller:         caller,
		Cap:            cap,
		Now:            time.Now(),
		Candidates:     rg.Candidates,
		LastLeaverName: rg.LastLeaverName,
		Reply: func(msg string) {
			rg.send(p.PID, wire.FramePacket(wire.OpChatFromHost, wire.ChatFromHost(0, []byte{p.PID}, wire.ChatRecipientPrivate, 0, msg)))
		},
		Broadcast: func(msg string) {
			rg.broadcast(wire.FramePacket(wire.OpChatFromHost, wire.ChatFromHost(0, nil, wire.ChatRecipientAll, 0, msg)), 0)
		},
		SendLAN: func() error {
			if h.lanSender == nil {
				return errNoLANSender
			}
			return h.lanSender.Broadcast(rg.G)
		},
		AnnounceRealm: func(msg string) {
			slog.Info("host: realm announce (protocol out of scope)", "message", msg)
		},
	}

	// Dispatch's handlers call ctx.Reply themselves (via the internal
	// reply helper) before returning their text, so the returned string
	// is only useful for callers that don't wire a Reply hook; nothing
	// further to send here.
	if _, err := h.registry.Dispatch(ctx, line); err != nil {
		slog.Warn("host: command dispatch error", "command", line, "error", err)
	}
	rg.rootAuth[p.PID] = ctx.Caller.RootPasswordOK
}

func (h *Host) isRealmAdmin(realmServer, name string) bool {
	for _, r := range h.realms {
		if r.Server() == realmServer && r.IsAdmin(name) {
			return true
		}
	}
	return false
}

func (h *Host) isRealmRootAdmin(realmServer, name string) bool {
	for _, r := range h.realms {
		if r.Server() == realmServer && r.IsRootAdmin(name) {
			return true
		}
	}
	return false
}
