package tick

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoardbot/ghostbot/internal/config"
	"github.com/hoardbot/ghostbot/internal/game"
)

func TestClampLatency(t *testing.T) {
	require.Equal(t, MinLatencyMS, ClampLatency(5))
	require.Equal(t, MaxLatencyMS, ClampLatency(9000))
	require.Equal(t, 100, ClampLatency(100))
}

func TestDueForLatencyTick(t *testing.T) {
	e := NewEngine()
	cfg := config.Default()
	now := time.Now()

	require.True(t, e.DueForLatencyTick(cfg, now), "never ticked yet")
	e.RunLatencyTick(game.NewGame(cfg, "g", "m", "c", "r", "o", game.VisibilityPublic, 6112), cfg, now)
	require.False(t, e.DueForLatencyTick(cfg, now.Add(10*time.Millisecond)))
	require.True(t, e.DueForLatencyTick(cfg, now.Add(200*time.Millisecond)))
}

func TestRunLatencyTick_DrainsActionsAndAdvancesTicks(t *testing.T) {
	e := NewEngine()
	cfg := config.Default()
	g := game.NewGame(cfg, "g", "m", "c", "r", "o", game.VisibilityPublic, 6112)

	p := game.NewPlayer(0, "P1", net.ParseIP("1.2.3.4"), "realm1")
	g.AddPlayer(p)
	p.GProxy.Enabled = true
	p.GProxy.Resume = game.NewResumeBuffer(0)

	g.QueueAction(p.PID, []byte("a1"))
	batch := e.RunLatencyTick(g, cfg, time.Now())

	require.NotEmpty(t, batch.Frame)
	require.Equal(t, uint32(1), g.GameTicks)
	require.Equal(t, uint32(1), g.LastLatencyTick)
	require.Empty(t, g.ActionQueue)
	require.Equal(t, uint32(0), p.GProxy.Resume.LastSeq()) // first appended frame gets seq 0
}

func TestEvaluateLag_SlowestFlaggedOverSyncLimit(t *testing.T) {
	e := NewEngine()
	e.RecordSync(1, 0xAAAA)
	e.RecordSync(1, 0xAAAA)
	e.RecordSync(1, 0xAAAA)
	e.RecordSync(2, 0xAAAA)

	lagging, changed := e.EvaluateLag([]byte{1, 2}, 1)
	require.Equal(t, byte(2), lagging)
	require.True(t, changed)
}

func TestEvaluateLag_NoLagWithinLimit(t *testing.T) {
	e := NewEngine()
	e.RecordSync(1, 0)
	e.RecordSync(2, 0)

	lagging, _ := e.EvaluateLag([]byte{1, 2}, 1)
	require.Zero(t, lagging)
}

// S5 — desync kick, 4 players with checksums {A,A,A,B}.
func TestScenario_DesyncMinorityIdentified(t *testing.T) {
	e := NewEngine()
	e.RecordSync(1, 111)
	e.RecordSync(2, 111)
	e.RecordSync(3, 111)
	e.RecordSync(4, 222)

	result := e.EvaluateDesync([]byte{1, 2, 3, 4})
	require.True(t, result.Desynced)
	require.Equal(t, []byte{4}, result.Minority)
}

func TestEvaluateDesync_NoMismatchIsClean(t *testing.T) {
	e := NewEngine()
	e.RecordSync(1, 7)
	e.RecordSync(2, 7)

	result := e.EvaluateDesync([]byte{1, 2})
	require.False(t, result.Desynced)
	require.Empty(t, result.Minority)
}

func TestReadyForTeardown_WaitsForGameOverDelay(t *testing.T) {
	cfg := config.Default()
	g := game.NewGame(cfg, "g", "m", "c", "r", "o", game.VisibilityPublic, 6112)
	now := time.Now()

	require.False(t, ReadyForTeardown(g, now, now))
	g.SetGameOver(100)
	require.False(t, ReadyForTeardown(g, now, now))
	require.True(t, ReadyForTeardown(g, now.Add(game.GameOverDelay), now))
}
