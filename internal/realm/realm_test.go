package realm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
)

func TestConnection_AdminMembership(t *testing.T) {
	c := NewConnection(config.Realm{
		Server:     "realm.example.com",
		Admins:     []string{"Alice"},
		RootAdmins: []string{"Bob"},
	})

	require.True(t, c.IsAdmin("alice"))
	require.False(t, c.IsAdmin("bob"))
	require.True(t, c.IsRootAdmin("BOB"))
	require.Equal(t, "realm.example.com", c.Server())
}

func TestConnection_BanAbsorptionLifecycle(t *testing.T) {
	c := NewConnection(config.Realm{Server: "realm.example.com"})

	require.False(t, c.Banned("Troll"))
	c.AbsorbBan("Troll")
	require.True(t, c.Banned("troll"))
	c.ReleaseBan("TROLL")
	require.False(t, c.Banned("troll"))
}

func TestConnection_RunInvokesHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	c := NewConnection(config.Realm{
		Server:           ln.Addr().String(),
		ReconnectWaitSec: 0, // falls back to DefaultReconnectWait; we just want >=1 attempt
	})

	attempts := make(chan struct{}, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go c.Run(ctx, func(ctx context.Context, conn net.Conn) error {
		attempts <- struct{}{}
		return nil
	})

	select {
	case <-attempts:
	case <-time.After(time.Second):
		t.Fatal("handshake was never invoked")
	}
}

func TestConnection_ConnectTimeoutDefaults(t *testing.T) {
	c := NewConnection(config.Realm{Server: "realm.example.com"})
	require.Equal(t, DefaultConnectTimeout, c.connectTimeout())
	require.Equal(t, DefaultReconnectWait, c.reconnectWait())
}
