package admin

import (
	"strconv"
	"strings"

	"github.com/hoardbot/ghostbot/internal/game"
	"github.com/hoardbot/ghostbot/internal/wire"
)

// registerGeneralCommands adds the always-available command set from
// spec.md §4.3/§6: these skip the capability/lock gate entirely.
func registerGeneralCommands(r *Registry) {
	r.Register(Command{
		Name:    "check",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: !check <name>")
			}
			p, ok := findPlayerByNameSubstr(ctx.Game, args[0])
			if !ok {
				return ctx.reply("no matching player")
			}
			return ctx.reply("%s: realm=%s spoofed=%v reserved=%v", p.Name, p.JoinedRealm, p.Spoofed, p.Reserved)
		},
	})

	r.Register(Command{
		Name:    "checkme",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			p, ok := findPlayerByNameSubstr(ctx.Game, ctx.Caller.Name)
			if !ok {
				return ctx.reply("you are not in this game")
			}
			return ctx.reply("%s: ping=%dms realm=%s", p.Name, p.AveragePing(), p.JoinedRealm)
		},
	})

	r.Register(Command{
		Name:    "ping",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			p, ok := findPlayerByNameSubstr(ctx.Game, ctx.Caller.Name)
			if !ok {
				return ctx.reply("no ping samples yet")
			}
			return ctx.reply("%s: %dms avg over %d samples", p.Name, p.AveragePing(), p.NumPings())
		},
	})

	r.Register(Command{
		Name:    "from",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: !from <name>")
			}
			p, ok := findPlayerByNameSubstr(ctx.Game, args[0])
			if !ok {
				return ctx.reply("no matching player")
			}
			return ctx.reply("%s is from %s", p.Name, p.ExternalIP.String())
		},
	})

	statsHandler := func(ctx *Context, args []string) (string, error) {
		return ctx.reply("stats plugin not attached to this game")
	}
	r.Register(Command{Name: "stats", General: true, Handle: statsHandler})
	r.Register(Command{Name: "statsdota", General: true, Handle: statsHandler})

	r.Register(Command{
		Name:    "version",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			return ctx.reply("hostbot")
		},
	})

	r.Register(Command{
		Name:    "votekick",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if !ctx.Game.Config().VoteKickAllowed {
				return ctx.reply("votekick is disabled")
			}
			if ctx.Game.KickVote != nil {
				return ctx.reply("a votekick is already running")
			}
			if len(args) == 0 {
				return ctx.reply("usage: !votekick <name>")
			}
			if ctx.Game.NumHumanPlayers() < game.MinVotekickPlayers {
				return ctx.reply("not enough players for a votekick")
			}
			target, ok := findPlayerByNameSubstr(ctx.Game, args[0])
			if !ok {
				return ctx.reply("no matching player")
			}
			v := game.NewKickVote(target.PID, ctx.Game.GameTicks)
			if caller, ok := findPlayerByNameSubstr(ctx.Game, ctx.Caller.Name); ok {
				v.RegisterYes(caller.PID)
			}
			ctx.Game.KickVote = v
			target.KickVote = true
			return ctx.reply("votekick against %s started", target.Name)
		},
	})

	r.Register(Command{
		Name:    "yes",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			v := ctx.Game.KickVote
			if v == nil {
				return ctx.reply("no votekick running")
			}
			caller, ok := findPlayerByNameSubstr(ctx.Game, ctx.Caller.Name)
			if !ok {
				return ctx.reply("you are not in this game")
			}
			v.RegisterYes(caller.PID)
			if v.Passed(ctx.Game.NumHumanPlayers(), ctx.Game.Config().VoteKickPercentage) {
				if target, ok := ctx.Game.Players[v.TargetPID]; ok {
					leftCode := wire.LeftLobby
					if ctx.Game.Phase == game.PhaseLoaded {
						leftCode = wire.LeftLost
					}
					ctx.Game.RemovePlayer(target.PID, byte(leftCode), "votekicked")
				}
				ctx.Game.KickVote = nil
				return ctx.reply("votekick passed")
			}
			return ctx.reply("vote registered")
		},
	})

	r.Register(Command{
		Name:    "votecancel",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.KickVote = nil
			return ctx.reply("votekick cancelled")
		},
	})

	r.Register(Command{
		Name:    "say",
		Aliases: []string{"s"},
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.Broadcast != nil && len(args) > 0 {
				ctx.Broadcast(strings.Join(args, " "))
			}
			return ctx.reply("")
		},
	})

	r.Register(Command{
		Name:    "w",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) < 2 {
				return ctx.reply("usage: !w <name> <message>")
			}
			return ctx.reply("whisper sent to %s", args[0])
		},
	})

	r.Register(Command{
		Name:    "sendlan",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.SendLAN == nil {
				return ctx.reply("LAN broadcast not configured")
			}
			if err := ctx.SendLAN(); err != nil {
				return ctx.reply("LAN broadcast failed: %v", err)
			}
			return ctx.reply("LAN broadcast sent")
		},
	})

	r.Register(Command{
		Name:    "announce",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: !announce <message>")
			}
			msg := strings.Join(args, " ")
			if ctx.AnnounceRealm != nil {
				ctx.AnnounceRealm(msg)
			}
			return ctx.reply("announced")
		},
	})

	r.Register(Command{
		Name:    "autostart",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("current autostart: %d", ctx.Game.Config().AutoHostStartPlayers)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return ctx.reply("invalid autostart value")
			}
			cfg := ctx.Game.Config()
			cfg.AutoHostStartPlayers = n
			ctx.Game.SetConfig(cfg)
			return ctx.reply("autostart set to %d", n)
		},
	})

	r.Register(Command{
		Name:    "messages",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			ctx.Game.RefreshMessages = !ctx.Game.RefreshMessages
			return ctx.reply("messages %s", onOff(ctx.Game.RefreshMessages))
		},
	})

	r.Register(Command{
		Name:    "dbstatus",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if ctx.DB == nil {
				return ctx.reply("database not attached")
			}
			return ctx.reply("database attached")
		},
	})

	r.Register(Command{
		Name:    "pingkick",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("current autokickping: %dms", ctx.Game.Config().AutoKickPingMS)
			}
			ms, err := strconv.Atoi(args[0])
			if err != nil || ms < 0 {
				return ctx.reply("invalid ping threshold")
			}
			cfg := ctx.Game.Config()
			cfg.AutoKickPingMS = ms
			ctx.Game.SetConfig(cfg)
			return ctx.reply("autokickping set to %dms", ms)
		},
	})

	r.Register(Command{
		Name:    "normalcountdown",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			cfg := ctx.Game.Config()
			cfg.UseNormalCountdown = !cfg.UseNormalCountdown
			ctx.Game.SetConfig(cfg)
			return ctx.reply("normal countdown %s", onOff(cfg.UseNormalCountdown))
		},
	})

	r.Register(Command{
		Name:    "desync",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			cfg := ctx.Game.Config()
			cfg.DesyncKick = !cfg.DesyncKick
			ctx.Game.SetConfig(cfg)
			return ctx.reply("desync kick %s", onOff(cfg.DesyncKick))
		},
	})

	r.Register(Command{
		Name:    "handicapcheck",
		Aliases: []string{"hc"},
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			return ctx.reply("%s", game.DecodeHCL(ctx.Game.Slots))
		},
	})

	r.Register(Command{
		Name:    "p",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			if len(args) == 0 {
				return ctx.reply("usage: !p <password>")
			}
			if VerifyTmpRootPassword(ctx.Game.Config().TmpRootPasswordHash, args[0]) {
				ctx.Caller.RootPasswordOK = true
				return ctx.reply("root access granted")
			}
			return ctx.reply("incorrect password")
		},
	})

	r.Register(Command{
		Name:    "dots",
		General: true,
		Handle: func(ctx *Context, args []string) (string, error) {
			p, ok := findPlayerByNameSubstr(ctx.Game, ctx.Caller.Name)
			if !ok {
				return ctx.reply("you are not in this game")
			}
			p.Authenticated = !p.Authenticated
			return ctx.reply("dots %s", onOff(p.Authenticated))
		},
	})
}
