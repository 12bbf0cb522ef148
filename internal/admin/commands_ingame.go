package admin

import (
	"strings"

	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// registerInGameCommands adds the commands valid once the game has left
// the lobby (spec.md §6 "In-game" row).
func registerInGameCommands(r *Registry) {
	inGamePhases := []game.Phase{game.PhaseLoading, game.PhaseLoaded}

	r.Register(Command{
		Name:   "drop",
		Phases: inGamePhases,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: !drop <name>")
			}
			p, ok := findPlayerByNameSubstr(ctx.Game, args[0])
			if !ok {
				return ctx.reply("no matching player")
			}
			ctx.Game.RemovePlayer(p.PID, byte(wire.LeftDrop), "dropped by "+ctx.Caller.Name)
			return ctx.reply("dropped %s", p.Name)
		},
	})

	r.Register(Command{
		Name:   "end",
		Phases: []game.Phase{game.PhaseLoaded},
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.SetGameOver(ctx.Game.GameTicks)
			return ctx.reply("game marked over")
		},
	})

	r.Register(Command{
		Name:   "muteall",
		Phases: inGamePhases,
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.MuteAll = true
			return ctx.reply("all chat muted")
		},
	})

	r.Register(Command{
		Name:   "unmuteall",
		Phases: inGamePhases,
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.MuteAll = false
			return ctx.reply("all chat unmuted")
		},
	})

	muteToggle := func(mute bool) Handler {
		return func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: name required")
			}
			p, ok := findPlayerByNameSubstr(ctx.Game, args[0])
			if !ok {
				return ctx.reply("no matching player")
			}
			p.Muted = mute
			return ctx.reply("%s %s", p.Name, onOff(mute))
		}
	}
	r.Register(Command{Name: "mute", Handle: muteToggle(true)})
	r.Register(Command{Name: "unmute", Handle: muteToggle(false)})

	r.Register(Command{
		Name:   "fppause",
		Phases: []game.Phase{game.PhaseLoaded},
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.Game.FakePlayerPID == 0 {
				return ctx.reply("no fake player in this game")
			}
			ctx.Game.QueueAction(ctx.Game.FakePlayerPID, []byte{0x01})
			return ctx.reply("fake player paused")
		},
	})

	r.Register(Command{
		Name:   "fpresume",
		Phases: []game.Phase{game.PhaseLoaded},
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.Game.FakePlayerPID == 0 {
				return ctx.reply("no fake player in this game")
			}
			ctx.Game.QueueAction(ctx.Game.FakePlayerPID, []byte{0x02})
			return ctx.reply("fake player resumed")
		},
	})

	r.Register(Command{
		Name: "banlast",
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.LastLeaverName == "" {
				return ctx.reply("no recent leaver to ban")
			}
			reason := strings.Join(args, " ")
			if ctx.DB != nil {
				ctx.DB.ThreadedBanAdd(banAddFor(ctx, ctx.LastLeaverName, reason))
			}
			return ctx.reply("banned %s", ctx.LastLeaverName)
		},
	})

	r.Register(Command{
		Name: "autosave",
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.AutoSave = !ctx.Game.AutoSave
			return ctx.reply("autosave %s", onOff(ctx.Game.AutoSave))
		},
	})
}
