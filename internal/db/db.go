// Package db implements the Database façade from spec.md §3/§6: a
// thread-safe front for two logical PostgreSQL handles (primary game
// stats, local IP-to-country) that hands back Callables instead of
// blocking the reactor. Background workers never touch game/host state —
// they only run queries and populate a Callable's result.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the thin pgx-backed handle one Database façade method set talks
// to. Kept separate from Database so tests can swap in a fake (see
// fake_store_test.go) without standing up Postgres.
type Store interface {
	GameAdd(ctx context.Context, req GameAddRequest) (int64, error)
	GamePlayerAdd(ctx context.Context, req GamePlayerAddRequest) error
	BanAdd(ctx context.Context, req BanAddRequest) error
	BanRemove(ctx context.Context, server, name string) error
	BanCheck(ctx context.Context, server, name string) (*DBBan, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore is the production Store, backed by pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and returns a Store handle.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	slog.Info("primary database connected")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// GameAddRequest is the write contract for ThreadedGameAdd (spec.md §6).
type GameAddRequest struct {
	Server       string
	Map          string
	GameName     string
	Owner        string
	DurationSec  int
	GameState    string // "public" or "private"
	Creator      string
	CreatorServer string
}

// GameAdd inserts a completed game and returns its assigned game-id.
func (s *PostgresStore) GameAdd(ctx context.Context, req GameAddRequest) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO games (server, map, game_name, owner, duration_sec, game_state, creator, creator_server, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		req.Server, req.Map, req.GameName, req.Owner, req.DurationSec, req.GameState, req.Creator, req.CreatorServer, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("adding game %q: %w", req.GameName, err)
	}
	return id, nil
}

// GamePlayerAddRequest is the write contract for ThreadedGamePlayerAdd.
type GamePlayerAddRequest struct {
	GameID     int64
	Name       string
	IP         string
	Spoofed    bool
	SpoofedRealm string
	Reserved   bool
	LoadingMS  int
	LeftSec    int
	LeftReason string
	Team       int
	Colour     int
}

func (s *PostgresStore) GamePlayerAdd(ctx context.Context, req GamePlayerAddRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_players (game_id, name, ip, spoofed, spoofed_realm, reserved, loading_ms, left_sec, left_reason, team, colour)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.GameID, req.Name, req.IP, req.Spoofed, req.SpoofedRealm, req.Reserved, req.LoadingMS, req.LeftSec, req.LeftReason, req.Team, req.Colour,
	)
	if err != nil {
		return fmt.Errorf("adding game player %q to game %d: %w", req.Name, req.GameID, err)
	}
	return nil
}

// BanAddRequest is the write contract behind !ban.
type BanAddRequest struct {
	Server string
	Name   string
	IP     string
	Admin  string
	Reason string
}

// DBBan is a materialized ban row, staged per spec.md §3 and written only
// when an admin bans (§4.3).
type DBBan struct {
	Server string
	Name   string
	IP     string
	Admin  string
	Reason string
	Date   time.Time
}

func (s *PostgresStore) BanAdd(ctx context.Context, req BanAddRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bans (server, name, ip, admin, reason, banned_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (server, name) DO UPDATE SET ip = EXCLUDED.ip, admin = EXCLUDED.admin, reason = EXCLUDED.reason, banned_at = EXCLUDED.banned_at`,
		req.Server, req.Name, req.IP, req.Admin, req.Reason, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("adding ban for %q on %q: %w", req.Name, req.Server, err)
	}
	return nil
}

func (s *PostgresStore) BanRemove(ctx context.Context, server, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM bans WHERE server = $1 AND name = $2`, server, name)
	if err != nil {
		return fmt.Errorf("removing ban for %q on %q: %w", name, server, err)
	}
	return nil
}

func (s *PostgresStore) BanCheck(ctx context.Context, server, name string) (*DBBan, error) {
	var b DBBan
	err := s.pool.QueryRow(ctx,
		`SELECT server, name, ip, admin, reason, banned_at FROM bans WHERE server = $1 AND name = $2`,
		server, name,
	).Scan(&b.Server, &b.Name, &b.IP, &b.Admin, &b.Reason, &b.Date)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("checking ban for %q on %q: %w", name, server, err)
	}
	return &b, nil
}

// LocalStore is the boundary contract for the local (IP-to-country) handle.
// The CSV loader behind it is out of scope (spec.md §1); only its health
// check is modeled, since a broken local handle is fatal per §4.1/§7.
type LocalStore struct {
	pool *pgxpool.Pool
}

func NewLocalStore(ctx context.Context, dsn string) (*LocalStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to local database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging local database: %w", err)
	}
	slog.Info("local database connected")
	return &LocalStore{pool: pool}, nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging local database: %w", err)
	}
	return nil
}

func (s *LocalStore) Close() { s.pool.Close() }

// FromCheck resolves an IP to a country label. Out of scope in detail
// (spec.md §1) — always returns "N/A" here; a real deployment swaps this
// for the CSV-backed lookup.
func (s *LocalStore) FromCheck(ctx context.Context, ip string) string {
	_ = ctx
	_ = ip
	return "N/A"
}
