package admin

import (
	"strings"

	"github.com/hoardbot/ghostbot/internal/db"
)

// banAddFor builds the ThreadedBanAdd request for a resolved match,
// shared by !ban and !banlast.
func banAddFor(ctx *Context, name, reason string) db.BanAddRequest {
	return db.BanAddRequest{
		Server: ctx.Caller.SpoofedRealm,
		Name:   name,
		Admin:  ctx.Caller.Name,
		Reason: reason,
	}
}

// MatchPlayer resolves a !ban/!checkban/!unban name argument against the
// candidate names currently or previously seen (spec.md §4.3: "matches
// name against current or previously-seen players by case-insensitive
// substring; ambiguous matches are rejected"). Returns the single match,
// or ok=false if zero or more than one candidate matched (spec.md §8
// property 5).
func MatchPlayer(candidates []string, substr string) (match string, ok bool) {
	if substr == "" {
		return "", false
	}
	needle := strings.ToLower(substr)

	var matches []string
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), needle) {
			matches = append(matches, c)
		}
	}
	if len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}
