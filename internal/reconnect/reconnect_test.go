package reconnect

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

func TestEncodeDecodeReconnect_RoundTrip(t *testing.T) {
	f := ReconnectFrame{PID: 3, Key: 0xDEADBEEF, LastPacketSeen: 490}
	got, err := DecodeReconnect(EncodeReconnect(f))
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestDecodeReconnect_RejectsWrongLength(t *testing.T) {
	_, err := DecodeReconnect([]byte{1, 2, 3})
	require.Error(t, err)
}

// S4 — player drops at last_packet=490, server ticks on to 550, client
// resumes with RECONNECT{PID, key, 490}: expect replay of 491..550 and ACK.
func TestScenario_ReconnectResumesFromLastPacketSeen(t *testing.T) {
	p := game.NewPlayer(7, "P", net.ParseIP("1.2.3.4"), "realm1")
	p.GProxy.Enabled = true
	p.GProxy.Resume = game.NewResumeBuffer(0)
	for i := 0; i <= 550; i++ {
		p.GProxy.Resume.Append(wire.FramePacket(byte(i%256), nil))
	}

	attached := make(chan net.Conn, 1)
	lookup := func(pid byte, key uint32) (LookupResult, bool) {
		if pid == p.PID && key == 0xDEADBEEF {
			return LookupResult{Player: p, Attach: func(c net.Conn) { attached <- c }}, true
		}
		return LookupResult{}, false
	}

	server, client := net.Pipe()
	defer client.Close()

	go Accept(server, lookup)

	frame := EncodeReconnect(ReconnectFrame{PID: p.PID, Key: 0xDEADBEEF, LastPacketSeen: 490})
	require.NoError(t, wire.WritePacket(client, OpReconnect, frame))

	for i := 491; i <= 550; i++ {
		opcode, payload, err := wire.ReadPacket(client)
		require.NoError(t, err)
		require.Equal(t, byte(i%256), opcode)
		_ = payload
	}

	opcode, _, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.Equal(t, OpAck, opcode)

	select {
	case c := <-attached:
		require.Equal(t, server, c)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Attach")
	}
}

func TestScenario_ReconnectIdempotentSameLastPacketSeen(t *testing.T) {
	p := game.NewPlayer(7, "P", net.ParseIP("1.2.3.4"), "realm1")
	p.GProxy.Resume = game.NewResumeBuffer(0)
	for i := 0; i < 10; i++ {
		p.GProxy.Resume.Append([]byte{byte(i)})
	}

	lookup := func(pid byte, key uint32) (LookupResult, bool) {
		return LookupResult{Player: p, Attach: func(net.Conn) {}}, true
	}

	_, first, outcome1 := HandleReconnect(lookup, ReconnectFrame{PID: 7, Key: 1, LastPacketSeen: 5})
	_, second, outcome2 := HandleReconnect(lookup, ReconnectFrame{PID: 7, Key: 1, LastPacketSeen: 5})

	require.Equal(t, OutcomeAccepted, outcome1)
	require.Equal(t, OutcomeAccepted, outcome2)
	require.Equal(t, first, second)
}

func TestAccept_UnknownPlayerRejected(t *testing.T) {
	lookup := func(pid byte, key uint32) (LookupResult, bool) { return LookupResult{}, false }

	server, client := net.Pipe()
	defer client.Close()

	go Accept(server, lookup)

	frame := EncodeReconnect(ReconnectFrame{PID: 1, Key: 1, LastPacketSeen: 0})
	require.NoError(t, wire.WritePacket(client, OpReconnect, frame))

	opcode, payload, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.Equal(t, OpReject, opcode)
	require.Equal(t, []byte{byte(RejectNotFound)}, payload)
}

func TestAccept_MalformedFrameRejected(t *testing.T) {
	lookup := func(pid byte, key uint32) (LookupResult, bool) { return LookupResult{}, false }

	server, client := net.Pipe()
	defer client.Close()

	go Accept(server, lookup)

	require.NoError(t, wire.WritePacket(client, OpReconnect, []byte{1, 2, 3}))

	opcode, payload, err := wire.ReadPacket(client)
	require.NoError(t, err)
	require.Equal(t, OpReject, opcode)
	require.Equal(t, []byte{byte(RejectInvalid)}, payload)
}

func TestAccept_WaitsWhileNoFrameArrives(t *testing.T) {
	lookup := func(pid byte, key uint32) (LookupResult, bool) { return LookupResult{}, false }

	server, client := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		Accept(server, lookup)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Accept returned before any frame was sent or deadline elapsed")
	case <-time.After(20 * time.Millisecond):
	}
}
