package admin

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
)

func newTestGame(t *testing.T) *game.Game {
	t.Helper()
	return game.NewGame(config.Default(), "Test Game", "Maps\\DotA.w3x", "Creator", "realm1", "Owner", game.VisibilityPublic, 6112)
}

func TestComputeCapability_OwnerByName(t *testing.T) {
	g := newTestGame(t)
	cap := ComputeCapability(g, Caller{Name: "Owner"}, nil, nil)
	require.True(t, cap.Owner)
	require.False(t, cap.Admin)
	require.False(t, cap.RootAdmin)
}

func TestComputeCapability_BlueIsOwner(t *testing.T) {
	g := newTestGame(t)
	p := game.NewPlayer(0, "Blue1", net.ParseIP("1.2.3.4"), "realm1")
	g.AddPlayer(p)
	g.EvictVirtualHost() // the virtual host would otherwise hold the lowest slot

	cap := ComputeCapability(g, Caller{Name: "Blue1"}, nil, nil)
	require.True(t, cap.Owner, "lowest-slot occupant inherits owner authority")
}

func TestComputeCapability_RealmAdmin(t *testing.T) {
	g := newTestGame(t)
	isAdmin := func(realm, name string) bool { return realm == "realm1" && name == "AdminGuy" }
	cap := ComputeCapability(g, Caller{Name: "AdminGuy", SpoofedRealm: "realm1"}, isAdmin, nil)
	require.True(t, cap.Admin)
	require.False(t, cap.RootAdmin)
}

func TestComputeCapability_RootPassword(t *testing.T) {
	g := newTestGame(t)
	cap := ComputeCapability(g, Caller{Name: "Nobody", RootPasswordOK: true}, nil, nil)
	require.True(t, cap.RootAdmin)
}

func TestCanExecute_RequiresSpoofedAndCapability(t *testing.T) {
	g := newTestGame(t)

	require.False(t, CanExecute(g, Caller{Name: "X", Spoofed: false}, Capability{Admin: true}),
		"unspoofed caller cannot act even with capability")
	require.False(t, CanExecute(g, Caller{Name: "X", Spoofed: true}, Capability{}),
		"spoofed caller with no capability cannot act")
	require.True(t, CanExecute(g, Caller{Name: "X", Spoofed: true}, Capability{Admin: true}))
}

func TestCanExecute_LockedGameRequiresRootOrOwner(t *testing.T) {
	g := newTestGame(t)
	g.Locked = true

	require.False(t, CanExecute(g, Caller{Name: "X", Spoofed: true}, Capability{Admin: true}),
		"plain admin cannot act on a locked game")
	require.True(t, CanExecute(g, Caller{Name: "X", Spoofed: true}, Capability{RootAdmin: true}))
	require.True(t, CanExecute(g, Caller{Name: "X", Spoofed: true}, Capability{Owner: true}))
}
