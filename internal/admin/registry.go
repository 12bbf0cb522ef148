package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/hoardbot/ghostbot/internal/db"
	"github.com/hoardbot/ghostbot/internal/game"
)

// Context bundles everything a command handler may touch. Subsystems that
// don't exist yet when a command runs (LAN broadcast, realm chat) are
// reached through optional hooks rather than a direct import, so this
// package never depends on internal/lan or internal/realm.
type Context struct {
	Game   *game.Game
	DB     *db.Database
	Caller Caller
	Cap    Capability
	Now    time.Time

	// Candidates lists every name seen in this game (joined + previously
	// seen leavers), for !ban/!checkban/!unban substring matching.
	Candidates []string
	// LastLeaverName is the most recent departure, for !banlast.
	LastLeaverName string

	Reply     func(string)
	Broadcast func(string)

	SendLAN      func() error
	AnnounceRealm func(string)
}

func (c *Context) reply(format string, args ...any) (string, error) {
	msg := fmt.Sprintf(format, args...)
	if c.Reply != nil {
		c.Reply(msg)
	}
	return msg, nil
}

// Handler is one admin/general command's implementation. args excludes
// the command name itself. It returns the reply text (for tests) and an
// error only for genuinely unexpected failures — rejected input is
// reported via the returned string, matching the teacher's
// reply-don't-fail command style.
type Handler func(ctx *Context, args []string) (string, error)

// Command is one row of the dispatch table (spec.md §4.3: "a dispatch
// table keyed by command name, each entry declaring required capability
// ..., lobby-vs-loaded gating, and the handler function").
type Command struct {
	Name    string
	Aliases []string

	// RequireCapability reports whether cap is sufficient to run this
	// command. nil means "any of admin/root-admin/owner" (CanExecute
	// already gates spoofing + lock state before this runs).
	RequireCapability func(Capability) bool

	// Phases restricts which game phases this command runs in; nil means
	// any phase.
	Phases []game.Phase

	// General commands (stats, ping, version, votekick, yes, ...) skip
	// the capability/lock gate entirely (spec.md §4.3).
	General bool

	Handle Handler
}

func (c Command) allowedInPhase(p game.Phase) bool {
	if len(c.Phases) == 0 {
		return true
	}
	for _, ph := range c.Phases {
		if ph == p {
			return true
		}
	}
	return false
}

// Registry is the full, case-insensitive command table.
type Registry struct {
	byName map[string]*Command
}

// NewRegistry builds an empty table; callers use Register (or
// NewDefaultRegistry for the full catalog in spec.md §6).
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds a command under its name and all aliases.
func (r *Registry) Register(cmd Command) {
	r.byName[strings.ToLower(cmd.Name)] = &cmd
	for _, a := range cmd.Aliases {
		r.byName[strings.ToLower(a)] = &cmd
	}
}

// Lookup returns the command for name, if registered.
func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// Dispatch parses "!cmd arg1 arg2" (without the leading '!'), resolves
// capability, applies the full gate from spec.md §4.3, and runs the
// handler. Unknown commands are no-ops (spec.md §4.3).
func (r *Registry) Dispatch(ctx *Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name, args := fields[0], fields[1:]

	cmd, ok := r.Lookup(name)
	if !ok {
		return "", nil
	}

	if !cmd.General {
		if !CanExecute(ctx.Game, ctx.Caller, ctx.Cap) {
			return "", nil
		}
		if cmd.RequireCapability != nil && !cmd.RequireCapability(ctx.Cap) {
			return "", nil
		}
	}

	if !cmd.allowedInPhase(ctx.Game.Phase) {
		return "", nil
	}

	return cmd.Handle(ctx, args)
}

// requireRootOrOwner matches commands spec.md marks root-admin/owner
// only (e.g. !start force, !startn).
func requireRootOrOwner(c Capability) bool { return c.RootAdmin || c.Owner }

// requireRoot matches commands gated to root-admin alone.
func requireRoot(c Capability) bool { return c.RootAdmin }
