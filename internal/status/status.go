// Package status implements the optional status broadcaster from
// spec.md §4.6: a small, unauthenticated TCP server that answers ASCII
// "GAME"/"SLOT" queries with a snapshot of the current game, and pushes
// an unsolicited GAME record whenever a game is created or destroyed.
package status

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hoardbot/ghostbot/internal/game"
)

const (
	tagGame = "GAME"
	tagSlot = "SLOT"
)

// CurrentGame returns the Host's current lobby/running game, if any.
// Supplied by the host wiring layer so this package never imports
// internal/host.
type CurrentGame func() (*game.Game, bool)

// Server is the status broadcaster (spec.md §4.6). One per Host.
type Server struct {
	current CurrentGame

	mu        sync.Mutex
	listener  net.Listener
	observers map[net.Conn]struct{}
}

// NewServer constructs a status broadcaster that queries current for
// snapshots. Disabled entirely unless the caller calls Run.
func NewServer(current CurrentGame) *Server {
	return &Server{
		current:   current,
		observers: make(map[net.Conn]struct{}),
	}
}

// Run listens on addr and serves GAME/SLOT queries until ctx is
// cancelled. A bind failure here is non-fatal at the Host level (spec.md
// §5 "listener bind failures disable the affected feature silently") —
// callers should log and continue rather than treat the error as fatal.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status: listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("status broadcaster started", "address", ln.Addr())
	s.acceptLoop(ctx, ln)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				slog.Warn("status: accept failed", "error", err)
				continue
			}
		}

		s.mu.Lock()
		s.observers[conn] = struct{}{}
		s.mu.Unlock()

		go s.serveObserver(ctx, conn)
	}
}

func (s *Server) serveObserver(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.observers, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		s.handleTag(conn, strings.TrimSpace(scanner.Text()))
	}
}

func (s *Server) handleTag(conn net.Conn, tag string) {
	g, ok := s.current()

	switch strings.ToUpper(tag) {
	case tagGame:
		if _, err := conn.Write([]byte(EncodeGame(g, ok) + "\n")); err != nil {
			slog.Debug("status: write GAME record failed", "error", err)
		}
	case tagSlot:
		if !ok {
			return
		}
		for _, slot := range g.Slots {
			if _, err := conn.Write([]byte(EncodeSlot(slot) + "\n")); err != nil {
				slog.Debug("status: write SLOT record failed", "error", err)
				return
			}
		}
	}
}

// PushGameCreated broadcasts an unsolicited GAME record to every
// connected observer when a new game is created (spec.md §4.6).
func (s *Server) PushGameCreated(g *game.Game) { s.push(EncodeGame(g, true)) }

// PushGameDestroyed broadcasts an unsolicited empty GAME record when the
// current game is torn down.
func (s *Server) PushGameDestroyed() { s.push(EncodeGame(nil, false)) }

func (s *Server) push(line string) {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.observers))
	for c := range s.observers {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if _, err := c.Write([]byte(line + "\n")); err != nil {
			slog.Debug("status: push failed", "error", err)
		}
	}
}

// EncodeGame renders one GAME record: name, phase, host counter, player
// count, map path, and uptime. present==false (or a nil g) renders a "no game"
// record (spec.md §4.6 "on game create/destroy, pushes an unsolicited
// GAME record").
func EncodeGame(g *game.Game, present bool) string {
	if !present || g == nil {
		return "GAME none"
	}
	return fmt.Sprintf("GAME %s phase=%s counter=%d players=%d map=%s uptime=%d",
		g.Name, g.Phase, g.HostCounter, g.NumHumanPlayers(), g.MapPath,
		int(time.Since(g.CreatedAt).Seconds()))
}

// EncodeSlot renders one SLOT record.
func EncodeSlot(s game.Slot) string {
	return fmt.Sprintf("SLOT index=%d pid=%d status=%d computer=%t team=%d colour=%d race=%d handicap=%d download=%d",
		s.Index, s.PID, s.Status, s.Computer, s.Team, s.Colour, s.Race, s.Handicap, s.DownloadStatus)
}
