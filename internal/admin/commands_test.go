package admin

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/game"
)

func addNamedPlayer(g *game.Game, name string) *game.Player {
	p := game.NewPlayer(0, name, net.ParseIP("1.2.3.4"), "realm1")
	g.AddPlayer(p)
	return p
}

// S3 — votekick pass, driven through the dispatch table end to end.
func TestScenario_VotekickPassesThroughDispatch(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()

	for _, name := range []string{"P1", "P2", "P3", "P4", "P5"} {
		addNamedPlayer(g, name)
	}

	targetBefore, ok := findPlayerByNameSubstr(g, "P5")
	require.True(t, ok)
	targetPID := targetBefore.PID

	p1 := newTestContext(t, g, Caller{Name: "P1", Spoofed: true})
	out, err := r.Dispatch(p1, "votekick P5")
	require.NoError(t, err)
	require.Contains(t, out, "started")

	for _, name := range []string{"P2", "P3"} {
		ctx := newTestContext(t, g, Caller{Name: name, Spoofed: true})
		out, err := r.Dispatch(ctx, "yes")
		require.NoError(t, err)
		require.Equal(t, "vote registered", out)
	}

	p4 := newTestContext(t, g, Caller{Name: "P4", Spoofed: true})
	out, err = r.Dispatch(p4, "yes")
	require.NoError(t, err)
	require.Equal(t, "votekick passed", out)

	require.True(t, g.Players[targetPID].Left.DeleteMe)
}

func TestVotekick_TargetCannotRegisterOwnVote(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	for _, name := range []string{"P1", "P2", "P3"} {
		addNamedPlayer(g, name)
	}

	p1 := newTestContext(t, g, Caller{Name: "P1", Spoofed: true})
	_, err := r.Dispatch(p1, "votekick P3")
	require.NoError(t, err)

	p3 := newTestContext(t, g, Caller{Name: "P3", Spoofed: true})
	out, err := r.Dispatch(p3, "yes")
	require.NoError(t, err)
	require.Equal(t, "vote registered", out, "dispatch still replies, but the target's ballot is dropped")
	require.False(t, g.KickVote.Passed(g.NumHumanPlayers(), g.Config().VoteKickPercentage))
}

func TestHCL_SetAndCheck(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	addNamedPlayer(g, "P1")
	owner := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})

	out, err := r.Dispatch(owner, "hcl a")
	require.NoError(t, err)
	require.Equal(t, "hcl set to a", out)

	require.NoError(t, g.StartCountdown(true))
	require.NoError(t, g.EnterLoading(1))

	out, err = r.Dispatch(owner, "hc")
	require.NoError(t, err)
	require.Equal(t, "a", out)
}

func TestPrivPub_BlueFallbackLine(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	blue := addNamedPlayer(g, "Blue1")
	g.EvictVirtualHost() // isolate the blue-owner computation to the human occupant

	ctx := newTestContext(t, g, Caller{Name: blue.Name, Spoofed: true})
	out, err := r.Dispatch(ctx, "priv NewName")
	require.NoError(t, err)
	require.Equal(t, "_", out, "blue non-root-admin gets the untranslated fallback line")
}

func TestSwap_NonRootCannotSwapIntoObserverSlots(t *testing.T) {
	g := newTestGame(t)
	cfg := g.Config()
	cfg.ObserverSlots = 2
	g.SetConfig(cfg)

	for i := 0; i < game.MaxSlots; i++ {
		g.Slots[i].Status = game.SlotOccupied
		g.Slots[i].PID = byte(i + 50)
	}

	r := NewDefaultRegistry()
	// A plain admin (not root-admin, not owner) triggers the
	// observer-slot restriction; owner/root-admin are exempt.
	ctx := &Context{Game: g, Caller: Caller{Name: "AdminGuy", Spoofed: true}, Cap: Capability{Admin: true}}
	out, err := r.Dispatch(ctx, "swap 1 12")
	require.NoError(t, err)
	require.Contains(t, out, "cannot swap")
}
