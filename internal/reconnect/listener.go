package reconnect

import (
	"log/slog"
	"net"
	"time"

	"github.com/hoardbot/ghostbot/internal/wire"
)

// Accept services one freshly accepted reconnect socket to completion:
// read one frame within AcceptTimeout, resolve it, and either replay
// buffered frames plus an ACK — handing the live socket to lookup's
// Attach callback — or send a REJECT and close (spec.md §4.5, §4.6).
// Blocking; callers run it on its own goroutine per connection, matching
// the teacher's per-connection-goroutine style for its login/game
// listeners.
func Accept(conn net.Conn, lookup Lookup) {
	if err := conn.SetReadDeadline(time.Now().Add(AcceptTimeout * time.Second)); err != nil {
		slog.Warn("reconnect: setting read deadline", "error", err)
		conn.Close()
		return
	}

	opcode, payload, err := wire.ReadPacket(conn)
	if err != nil {
		slog.Debug("reconnect: no valid frame within timeout", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	if opcode != OpReconnect {
		writeReject(conn, RejectInvalid)
		conn.Close()
		return
	}

	frame, err := DecodeReconnect(payload)
	if err != nil {
		writeReject(conn, RejectInvalid)
		conn.Close()
		return
	}

	res, replay, outcome := HandleReconnect(lookup, frame)
	if outcome != OutcomeAccepted {
		writeReject(conn, RejectNotFound)
		conn.Close()
		return
	}

	for _, f := range replay {
		if _, err := conn.Write(f); err != nil {
			slog.Warn("reconnect: replay write failed", "pid", frame.PID, "error", err)
			conn.Close()
			return
		}
	}

	if err := wire.WritePacket(conn, OpAck, nil); err != nil {
		slog.Warn("reconnect: ack write failed", "pid", frame.PID, "error", err)
		conn.Close()
		return
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		slog.Warn("reconnect: clearing read deadline", "error", err)
	}
	res.Attach(conn)
}

func writeReject(conn net.Conn, reason RejectReason) {
	if err := wire.WritePacket(conn, OpReject, []byte{byte(reason)}); err != nil {
		slog.Warn("reconnect: reject write failed", "error", err)
	}
}
