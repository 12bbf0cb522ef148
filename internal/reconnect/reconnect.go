// Package reconnect implements the GProxy reconnect sidechannel from
// spec.md §4.5: a small out-of-band protocol that lets a disconnected
// client resume a running game by replaying buffered frames from where
// it left off.
package reconnect

import (
	"fmt"
	"net"

	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// Opcodes for the reconnect sidechannel (spec.md §4.5). The channel
// reuses wire's {magic, opcode, len_lo, len_hi} framing verbatim.
const (
	OpInit      byte = 1
	OpReconnect byte = 2
	OpAck       byte = 3
	OpReject    byte = 4
)

// RejectReason is the payload of an OpReject frame.
type RejectReason byte

const (
	RejectNotFound RejectReason = 1
	RejectInvalid  RejectReason = 2
)

// AcceptTimeout is how long an accepted socket has to send a well-formed
// RECONNECT frame before it's dropped (spec.md §4.5, §4.6).
const AcceptTimeout = 10 // seconds; kept as an untyped constant so callers
// can build a time.Duration without importing time just for this.

// ReconnectFrame is the decoded payload of an OpReconnect packet
// (spec.md §4.5: "length=13", i.e. a 9-byte payload: 1 + 4 + 4).
type ReconnectFrame struct {
	PID            byte
	Key            uint32
	LastPacketSeen uint32
}

// EncodeReconnect builds the 9-byte RECONNECT payload a client would send.
func EncodeReconnect(f ReconnectFrame) []byte {
	return wire.NewEncoder().Byte(f.PID).Uint32(f.Key).Uint32(f.LastPacketSeen).Payload()
}

// DecodeReconnect parses a RECONNECT payload. A malformed frame (wrong
// length, truncated fields) is reported as an error so the caller can
// respond REJECT{INVALID} (spec.md §4.5).
func DecodeReconnect(payload []byte) (ReconnectFrame, error) {
	if len(payload) != 9 {
		return ReconnectFrame{}, fmt.Errorf("reconnect frame: expected 9-byte payload, got %d", len(payload))
	}
	d := wire.NewDecoder(payload)
	f := ReconnectFrame{
		PID:            d.Byte(),
		Key:            d.Uint32(),
		LastPacketSeen: d.Uint32(),
	}
	if err := d.Err(); err != nil {
		return ReconnectFrame{}, err
	}
	return f, nil
}

// LookupResult is what a successful Lookup returns: the matching player
// session, plus Attach — a callback that hands the accepted socket back
// to the game that owns pid once the replay+ACK handshake has completed.
// Attach must not touch game/connection state itself; it's expected to
// hop back onto the owning reactor goroutine (spec.md §5) the same way
// the host's join handling does.
type LookupResult struct {
	Player *game.Player
	Attach func(net.Conn)
}

// Lookup resolves a (pid, key) pair to the player session it belongs to
// (a player with matching PID whose GProxy key equals reconnect_key).
// The host's implementation scans the current lobby and every running
// game, without checking their phase. Supplied by the host wiring layer
// so this package never needs to know about Host or the running-games list.
type Lookup func(pid byte, key uint32) (LookupResult, bool)

// Outcome is the result of handling one RECONNECT frame.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeNotFound
)

// HandleReconnect resolves a decoded RECONNECT frame against lookup and,
// on a match, returns the frames to replay starting just after
// LastPacketSeen (spec.md §8 property 7: idempotent — the same
// last_packet_seen always yields the same replay set, since
// ResumeBuffer.Since is a pure function of buffer state).
func HandleReconnect(lookup Lookup, f ReconnectFrame) (res LookupResult, replay [][]byte, outcome Outcome) {
	res, ok := lookup(f.PID, f.Key)
	if !ok {
		return LookupResult{}, nil, OutcomeNotFound
	}
	if res.Player.GProxy.Resume == nil {
		return res, nil, OutcomeAccepted
	}
	return res, res.Player.GProxy.Resume.Since(f.LastPacketSeen), OutcomeAccepted
}
