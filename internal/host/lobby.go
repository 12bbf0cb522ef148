package host

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// joinTimeout bounds how long a freshly accepted lobby socket has to send
// a well-formed W3GS_REQ_JOIN before it's dropped.
const joinTimeout = 10 * time.Second

// joinEvent carries an accepted connection's decoded join request through
// to the reactor goroutine, which alone may touch game.Game state
// (spec.md §5).
type joinEvent struct {
	conn net.Conn
	req  wire.JoinRequest
}

// acceptLobby runs the persistent lobby listener's accept loop (spec.md
// §4.1 "current-game listener"), matching the teacher's
// per-connection-goroutine pattern.
func (h *Host) acceptLobby(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go h.readJoinRequest(conn)
	}
}

// readJoinRequest waits for one join frame off the reactor goroutine,
// then hands the decoded request to the event queue for resolution
// against the current lobby.
func (h *Host) readJoinRequest(conn net.Conn) {
	if err := conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		conn.Close()
		return
	}
	opcode, payload, err := wire.ReadPacket(conn)
	if err != nil || opcode != wire.OpReqJoin {
		conn.Close()
		return
	}
	req, err := wire.DecodeJoinRequest(payload)
	if err != nil {
		conn.Close()
		return
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return
	}
	h.events <- hostEvent{join: &joinEvent{conn: conn, req: req}}
}

// handleJoinEvent resolves one pending join against the current lobby
// (spec.md §4.2 join handling), runs on the reactor goroutine.
func (h *Host) handleJoinEvent(j *joinEvent) {
	h.mu.Lock()
	rg := h.current
	h.mu.Unlock()

	if rg == nil || rg.G.Phase != game.PhaseLobby {
		writeRejectJoin(j.conn, wire.RejectStarted)
		return
	}

	p := game.NewPlayer(0, j.req.Name, net.IP(j.req.ExternalIP[:]), "")
	idx := rg.G.AddPlayer(p)
	if idx < 0 {
		writeRejectJoin(j.conn, wire.RejectFull)
		return
	}

	slots := make([]wire.SlotWire, len(rg.G.Slots))
	for i, s := range rg.G.Slots {
		slots[i] = slotToWire(s)
	}
	if err := wire.WritePacket(j.conn, wire.OpSlotInfoJoin, wire.SlotInfo(slots, 0, 0, p.PID)); err != nil {
		slog.Warn("host: slotinfo write failed", "player", p.Name, "error", err)
	}
	if err := wire.WritePacket(j.conn, wire.OpPlayerInfo, wire.PlayerInfo(p.PID, p.Name, j.req.ExternalIP, j.req.ExternalPort)); err != nil {
		slog.Warn("host: playerinfo write failed", "player", p.Name, "error", err)
	}

	rg.addConn(p.PID, j.conn)
	h.startPlayerReader(rg, p.PID, j.conn)
	if h.statusSrv != nil {
		h.statusSrv.PushGameCreated(rg.G)
	}
	slog.Info("host: player joined", "game", rg.G.Name, "player", p.Name)
}

func writeRejectJoin(conn net.Conn, reason wire.RejectReason) {
	if err := wire.WritePacket(conn, wire.OpRejectJoin, wire.RejectJoin(reason)); err != nil {
		slog.Warn("host: rejectjoin write failed", "error", err)
	}
	conn.Close()
}

// slotToWire converts the domain Slot into its wire shape. ComputerType
// has no game.Slot equivalent (the skill/race-selection handshake it
// gates is out of scope); it defaults to 0, which real clients treat as
// "normal" for human-occupied and empty slots alike.
func slotToWire(s game.Slot) wire.SlotWire {
	var computer byte
	if s.Computer {
		computer = 1
	}
	return wire.SlotWire{
		PID:            s.PID,
		DownloadStatus: s.DownloadStatus,
		SlotStatus:     byte(s.Status),
		Computer:       computer,
		Team:           s.Team,
		Colour:         s.Colour,
		Race:           s.Race,
		ComputerType:   0,
		Handicap:       s.Handicap,
	}
}
