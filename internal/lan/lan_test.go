package lan

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

func TestSender_BroadcastSendsFramedGameInfo(t *testing.T) {
	cfg := config.Default()
	cfg.UDPBroadcastTarget = "127.0.0.1"

	listener, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer listener.Close()
	cfg.HostPort = listener.LocalAddr().(*net.UDPAddr).Port

	s, err := NewSender(cfg)
	require.NoError(t, err)
	defer s.Close()

	g := game.NewGame(cfg, "lan game", "maps/test.w3x", "creator", "realm1", "creator", game.VisibilityPublic, uint16(cfg.HostPort))
	require.NoError(t, s.Broadcast(g))

	listener.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 2048)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	opcode, payload, err := wire.ReadPacket(bytesReader(buf[:n]))
	require.NoError(t, err)
	require.Equal(t, byte(wire.OpGameInfo), opcode)
	require.NotEmpty(t, payload)
}

type sliceReader struct {
	buf []byte
	off int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.off:])
	r.off += n
	if n == 0 {
		return 0, net.ErrClosed
	}
	return n, nil
}

func bytesReader(b []byte) *sliceReader { return &sliceReader{buf: b} }
