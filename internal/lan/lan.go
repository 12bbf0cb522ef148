// Package lan implements the LAN broadcast described in spec.md §4.6/§6:
// a UDP W3GS_GAMEINFO datagram advertising the current game to local
// clients.
package lan

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// NetworkVersion is the W3GS protocol version advertised in GAMEINFO
// datagrams. GHost++ and every compatible client treat this as a fixed
// constant for a given game version, not a configurable key.
const NetworkVersion = 26

// BroadcastInterval matches the cadence clients expect a lobby to
// refresh its LAN advertisement at.
const BroadcastInterval = 5 * time.Second

// Sender broadcasts GAMEINFO datagrams for a game over UDP (spec.md §6
// "LAN broadcast"), one datagram per Broadcast call. It sends nothing on
// a timer of its own; BroadcastInterval is not used by this package.
type Sender struct {
	cfg  config.Host
	conn *net.UDPConn
	addr *net.UDPAddr
}

// NewSender resolves cfg's broadcast target and opens a UDP socket bound
// to a wildcard local address. cfg.UDPDontRoute (udp_dontroute) is not
// read: no SO_DONTROUTE option is set on the socket.
func NewSender(cfg config.Host) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.UDPBroadcastTarget, portFor(cfg)))
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	conn.SetWriteBuffer(1 << 16)

	return &Sender{cfg: cfg, conn: conn, addr: addr}, nil
}

func portFor(cfg config.Host) string {
	if cfg.HostPort == 0 {
		return "6112"
	}
	return strconv.Itoa(cfg.HostPort)
}

// Close releases the underlying UDP socket.
func (s *Sender) Close() error { return s.conn.Close() }

// Broadcast sends one GAMEINFO datagram describing g.
func (s *Sender) Broadcast(g *game.Game) error {
	open := byte(0)
	for _, slot := range g.Slots {
		if slot.Status == game.SlotOpen {
			open++
		}
	}

	fields := wire.GameInfoFields{
		Version:       NetworkVersion,
		HostCounter:   g.HostCounter,
		GameName:      g.Name,
		MapPath:       g.MapPath,
		Creator:       g.CreatorName,
		SlotsTotal:    game.MaxSlots,
		SlotsOpen:     open,
		UptimeSeconds: uint32(time.Since(g.CreatedAt).Seconds()),
		HostPort:      g.HostPort,
	}
	packet := wire.FramePacket(wire.OpGameInfo, wire.GameInfo(fields))

	_, err := s.conn.WriteToUDP(packet, s.addr)
	if err != nil {
		slog.Warn("lan: broadcast failed", "error", err)
	}
	return err
}
