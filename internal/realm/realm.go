// Package realm implements the Realm Connection boundary contract from
// spec.md §3/§4.1/§5: a long-lived TCP client that dials a chat/
// matchmaking server, reconnecting on failure. The chat/login protocol
// itself — CD-key/SRP auth, the actual packet exchange — is explicitly
// out of scope (spec.md §1); this package owns only the connection
// lifecycle and the admin-policy/ban-absorption state the core touches
// directly.
package realm

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hoardbot/ghostbot/internal/config"
)

// DefaultConnectTimeout and DefaultReconnectWait back-fill a Realm config
// entry that doesn't set its own values.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReconnectWait  = 30 * time.Second
)

// State is the Connection's current lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// Connection is one Realm Connection (spec.md §3 "a set of Realm
// Connections (≥0), each a long-lived TCP client to a chat/matchmaking
// server"). The actual chat protocol is driven by a caller-supplied
// Handshake function, kept as a boundary seam since the protocol itself
// is out of scope.
type Connection struct {
	cfg config.Realm

	mu      sync.Mutex
	state   State
	conn    net.Conn
	bans    map[string]struct{}
	admins  map[string]struct{}
	rootAdm map[string]struct{}
}

// Handshake performs whatever protocol exchange is needed once conn is
// dialed. Returning an error causes Connection to close conn and retry
// after the configured reconnect wait. The protocol itself is out of
// scope (spec.md §1); callers needing real realm connectivity supply
// their own Handshake.
type Handshake func(ctx context.Context, conn net.Conn) error

// NewConnection builds a Connection for cfg's server, seeding its
// admin/root-admin sets from config.
func NewConnection(cfg config.Realm) *Connection {
	c := &Connection{
		cfg:     cfg,
		bans:    make(map[string]struct{}),
		admins:  make(map[string]struct{}),
		rootAdm: make(map[string]struct{}),
	}
	for _, name := range cfg.Admins {
		c.admins[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range cfg.RootAdmins {
		c.rootAdm[strings.ToLower(name)] = struct{}{}
	}
	return c
}

// Server returns the configured server address, for matching against
// a player's spoofed-realm (spec.md §4.3 "caller's spoofed-realm matches
// a realm on which they are an admin").
func (c *Connection) Server() string { return c.cfg.Server }

// IsAdmin reports whether name is an admin on this realm (spec.md §4.3).
func (c *Connection) IsAdmin(name string) bool {
	_, ok := c.admins[strings.ToLower(name)]
	return ok
}

// IsRootAdmin reports whether name is a root-admin on this realm.
func (c *Connection) IsRootAdmin(name string) bool {
	_, ok := c.rootAdm[strings.ToLower(name)]
	return ok
}

// AbsorbBan adds name to this realm's in-memory ban table (spec.md §4.3
// "all realms with matching server absorb the ban into their in-memory
// table").
func (c *Connection) AbsorbBan(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bans[strings.ToLower(name)] = struct{}{}
}

// ReleaseBan removes name from this realm's in-memory ban table.
func (c *Connection) ReleaseBan(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bans, strings.ToLower(name))
}

// Banned reports whether name is in this realm's in-memory ban table.
func (c *Connection) Banned(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bans[strings.ToLower(name)]
	return ok
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run dials the realm and invokes handshake, retrying with the
// configured reconnect wait on any failure, until ctx is cancelled
// (spec.md §5 "Realm connect errors schedule a reconnect after
// reconnect_wait_time seconds"). Blocking; callers run it on its own
// goroutine per realm.
func (c *Connection) Run(ctx context.Context, handshake Handshake) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.setState(StateConnecting)
		if err := c.dialOnce(ctx, handshake); err != nil {
			slog.Warn("realm: connection attempt failed", "server", c.cfg.Server, "error", err)
		}
		c.setState(StateDisconnected)

		wait := c.reconnectWait()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (c *Connection) dialOnce(ctx context.Context, handshake Handshake) error {
	timeout := c.connectTimeout()
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Server)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	slog.Info("realm: connected", "server", c.cfg.Server)
	return handshake(ctx, conn)
}

func (c *Connection) connectTimeout() time.Duration {
	if c.cfg.ConnectTimeoutSec <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.cfg.ConnectTimeoutSec) * time.Second
}

func (c *Connection) reconnectWait() time.Duration {
	if c.cfg.ReconnectWaitSec <= 0 {
		return DefaultReconnectWait
	}
	return time.Duration(c.cfg.ReconnectWaitSec) * time.Second
}
