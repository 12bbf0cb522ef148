package admin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/game"
)

func newTestContext(t *testing.T, g *game.Game, caller Caller) *Context {
	t.Helper()
	return &Context{
		Game:   g,
		Caller: caller,
		Cap:    ComputeCapability(g, caller, nil, nil),
	}
}

func TestDispatch_UnknownCommandIsNoop(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	ctx := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})

	out, err := r.Dispatch(ctx, "notarealcommand foo")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDispatch_GeneralCommandBypassesCapabilityGate(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	ctx := newTestContext(t, g, Caller{Name: "RandomPlayer", Spoofed: false})

	out, err := r.Dispatch(ctx, "version")
	require.NoError(t, err)
	require.Equal(t, "hostbot", out)
}

func TestDispatch_AdminCommandRequiresSpoofedAndCapability(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()

	unspoofed := newTestContext(t, g, Caller{Name: "Nobody"})
	out, err := r.Dispatch(unspoofed, "lock")
	require.NoError(t, err)
	require.Empty(t, out, "unspoofed, no-capability caller is silently rejected")
	require.False(t, g.Locked)

	owner := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})
	out, err = r.Dispatch(owner, "lock")
	require.NoError(t, err)
	require.Equal(t, "game locked", out)
	require.True(t, g.Locked)
}

func TestDispatch_PhaseGating(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	owner := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})

	// !abort only applies during counting_down.
	out, err := r.Dispatch(owner, "abort")
	require.NoError(t, err)
	require.Empty(t, out, "abort is a no-op outside counting_down")

	require.NoError(t, g.StartCountdown(false))
	out, err = r.Dispatch(owner, "abort")
	require.NoError(t, err)
	require.Equal(t, "countdown aborted", out)
}

// End-to-end S2 through the dispatch table, matching the ambiguous-ban
// substring scenario from spec.md §9.
func TestScenario_BanDispatchAmbiguous(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	ctx := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})
	ctx.Candidates = []string{"Varlock", "Varlock2", "Other"}

	out, err := r.Dispatch(ctx, "ban var griefing")
	require.NoError(t, err)
	require.Equal(t, "ambiguous; no ban added", out)
	require.Empty(t, ctx.LastLeaverName)
}

func TestScenario_BanDispatchUnique(t *testing.T) {
	g := newTestGame(t)
	r := NewDefaultRegistry()
	ctx := newTestContext(t, g, Caller{Name: "Owner", Spoofed: true})
	ctx.Candidates = []string{"Varlock", "Other"}

	out, err := r.Dispatch(ctx, "ban var griefing")
	require.NoError(t, err)
	require.Equal(t, "banned Varlock", out)
}
