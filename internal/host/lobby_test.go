package host

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

func TestSlotToWire_CarriesComputerFlag(t *testing.T) {
	s := game.NewOpenSlot(0)
	s.Computer = true
	w := slotToWire(s)
	require.Equal(t, byte(1), w.Computer)
	require.Equal(t, byte(0), w.ComputerType)
}

func TestHandleJoinEvent_RejectsWhenNoCurrentGame(t *testing.T) {
	h := &Host{events: make(chan hostEvent, 1)}
	server, client := net.Pipe()
	defer client.Close()

	go h.handleJoinEvent(&joinEvent{conn: server, req: wire.JoinRequest{Name: "P1"}})

	opcode, payload, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRejectJoin, opcode)
	require.NotEmpty(t, payload)
}

func TestHandleJoinEvent_AddsPlayerAndStartsReader(t *testing.T) {
	cfg := config.Default()
	g := game.NewGame(cfg, "g", "m", "c", "r", "o", game.VisibilityPublic, 6112)
	rg := newRunningGame(g)
	h := &Host{events: make(chan hostEvent, 16), current: rg}

	server, client := net.Pipe()
	defer client.Close()

	go h.handleJoinEvent(&joinEvent{conn: server, req: wire.JoinRequest{Name: "NewPlayer"}})

	opcode, _, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpSlotInfoJoin, opcode)

	opcode, _, err = wire.ReadPacket(client)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpPlayerInfo, opcode)

	require.Len(t, g.Players, 1) // the new player; the virtual host holds a slot but has no Player entry
	require.Len(t, rg.conns, 1)

	go wire.WritePacket(client, wire.OpLeaveReq, nil)
	select {
	case ev := <-h.events:
		require.EqualValues(t, wire.OpLeaveReq, ev.opcode)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reader event")
	}
}

func TestHandleJoinEvent_RejectsWhenLobbyFull(t *testing.T) {
	cfg := config.Default()
	g := game.NewGame(cfg, "g", "m", "c", "r", "o", game.VisibilityPublic, 6112)
	rg := newRunningGame(g)
	h := &Host{events: make(chan hostEvent, 1), current: rg}

	for i := 0; i < game.MaxSlots*2; i++ {
		g.AddPlayer(game.NewPlayer(0, "filler", nil, ""))
	}

	server, client := net.Pipe()
	defer client.Close()

	go h.handleJoinEvent(&joinEvent{conn: server, req: wire.JoinRequest{Name: "LastOne"}})

	opcode, payload, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.EqualValues(t, wire.OpRejectJoin, opcode)
	require.NotEmpty(t, payload)
}
