package game

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
)

func newTestGame(t *testing.T, autostart int) *Game {
	t.Helper()
	cfg := config.Default()
	cfg.AutoHostStartPlayers = autostart
	return NewGame(cfg, "Test Game", "Maps\\DotA.w3x", "Creator", "realm1", "Creator", VisibilityPublic, 6112)
}

func TestNewGame_StartsInLobbyWithVirtualHost(t *testing.T) {
	g := newTestGame(t, 0)
	require.Equal(t, PhaseLobby, g.Phase)
	require.NotZero(t, g.VirtualHostPID)
	require.Equal(t, uint32(0), g.GameTicks)
}

func TestHostCounter_MonotonicAcrossGames(t *testing.T) {
	g1 := newTestGame(t, 0)
	g2 := newTestGame(t, 0)
	require.Greater(t, g2.HostCounter, g1.HostCounter)
}

// S1 — create public, autostart at 2.
func TestScenario_AutostartAtTwoPlayers(t *testing.T) {
	g := newTestGame(t, 2)

	p1 := NewPlayer(0, "P1", net.ParseIP("1.2.3.4"), "realm1")
	p2 := NewPlayer(0, "P2", net.ParseIP("1.2.3.5"), "realm1")
	require.GreaterOrEqual(t, g.AddPlayer(p1), 0)
	require.GreaterOrEqual(t, g.AddPlayer(p2), 0)

	require.Equal(t, 2, g.NumHumanPlayers())
	g.lastPlayerLeaveAt = time.Now() // a player just left
	require.False(t, g.CanStart(), "start condition needs the 2s no-leave grace to elapse")

	g.lastPlayerLeaveAt = time.Now().Add(-3 * time.Second)
	require.True(t, g.CanStart())

	require.NoError(t, g.StartCountdown(false))
	require.Equal(t, PhaseCountingDown, g.Phase)

	now := g.countdownLastTick
	for i := 0; i < countdownStartTicks; i++ {
		now = now.Add(countdownTickInterval)
		g.TickCountdown(now)
	}
	require.True(t, g.TickCountdown(now))

	require.NoError(t, g.EnterLoading(100))
	require.Equal(t, PhaseLoading, g.Phase)
	require.Zero(t, g.VirtualHostPID, "virtual host must be evicted before loading")

	require.True(t, g.AllPlayersLoaded(map[byte]bool{}))
	require.NoError(t, g.EnterLoaded())
	require.Equal(t, PhaseLoaded, g.Phase)
	require.Equal(t, uint32(0), g.GameTicks, "game_ticks=0 at entry to loaded")
}

func TestStartCountdown_Immediate(t *testing.T) {
	g := newTestGame(t, 0)
	require.NoError(t, g.StartCountdown(true))
	require.True(t, g.TickCountdown(time.Now()))
}

func TestPhaseMonotonicity_OnlyLobbyReenterable(t *testing.T) {
	g := newTestGame(t, 0)
	require.NoError(t, g.StartCountdown(false))
	require.NoError(t, g.AbortCountdown())
	require.Equal(t, PhaseLobby, g.Phase)

	require.NoError(t, g.StartCountdown(true))
	require.NoError(t, g.EnterLoading(1))
	require.Error(t, g.AbortCountdown(), "loading cannot re-enter lobby")
}

func TestAddPlayer_EvictsVirtualHostWhenFull(t *testing.T) {
	g := newTestGame(t, 0)
	for i := 0; i < MaxSlots-1; i++ {
		p := NewPlayer(0, "P", net.ParseIP("1.2.3.4"), "realm1")
		require.GreaterOrEqual(t, g.AddPlayer(p), 0)
	}
	require.Zero(t, g.VirtualHostPID, "virtual host evicted once humans fill remaining slots")
}

// S6 — rehost name rejection.
func TestScenario_RehostNameTooLong(t *testing.T) {
	g := newTestGame(t, 0)
	before := g.HostCounter
	beforeName := g.Name
	beforeVis := g.Visibility

	err := g.Rehost("this_is_a_name_longer_than_thirty_one", VisibilityPrivate)
	require.ErrorContains(t, err, "name too long")
	require.Equal(t, before, g.HostCounter)
	require.Equal(t, beforeName, g.Name)
	require.Equal(t, beforeVis, g.Visibility)
}

func TestRehost_RejectedDuringCountdown(t *testing.T) {
	g := newTestGame(t, 0)
	require.NoError(t, g.StartCountdown(true))
	err := g.Rehost("NewName", VisibilityPrivate)
	require.Error(t, err)
}

func TestQueueAction_PreservesFIFOOrder(t *testing.T) {
	g := newTestGame(t, 0)
	g.QueueAction(1, []byte("a1"))
	g.QueueAction(1, []byte("a2"))
	g.QueueAction(2, []byte("b1"))

	entries := g.DrainActions()
	require.Len(t, entries, 3)
	require.Equal(t, []byte("a1"), entries[0].Data)
	require.Equal(t, []byte("a2"), entries[1].Data)
	require.Less(t, entries[0].Seq, entries[1].Seq)
	require.Empty(t, g.ActionQueue, "queue drained")
}

func TestNoHumansFor_LobbyTimeout(t *testing.T) {
	g := newTestGame(t, 0)
	now := time.Now()
	require.False(t, g.NoHumansFor(time.Minute, now))
	require.True(t, g.NoHumansFor(time.Minute, now.Add(2*time.Minute)))
}

func TestGameOver_LatchesOnce(t *testing.T) {
	g := newTestGame(t, 0)
	g.SetGameOver(500)
	g.SetGameOver(999)
	require.Equal(t, uint32(500), g.GameOverTick)
}
