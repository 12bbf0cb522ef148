package db

import (
	"context"
	"fmt"
	"sync"
)

// fakeStore is an in-memory Store used by unit tests in place of a real
// Postgres instance (see DESIGN.md: no testcontainers dependency in this
// exercise). It implements the same Store contract PostgresStore does.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	games     []GameAddRequest
	players   []GamePlayerAddRequest
	bans      map[string]DBBan
	pingErr   error
	gameDelay func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{bans: make(map[string]DBBan)}
}

func (f *fakeStore) GameAdd(ctx context.Context, req GameAddRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gameDelay != nil {
		f.gameDelay()
	}
	f.nextID++
	f.games = append(f.games, req)
	return f.nextID, nil
}

func (f *fakeStore) GamePlayerAdd(ctx context.Context, req GamePlayerAddRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = append(f.players, req)
	return nil
}

func (f *fakeStore) BanAdd(ctx context.Context, req BanAddRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%s", req.Server, req.Name)
	f.bans[key] = DBBan{Server: req.Server, Name: req.Name, IP: req.IP, Admin: req.Admin, Reason: req.Reason}
	return nil
}

func (f *fakeStore) BanRemove(ctx context.Context, server, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bans, fmt.Sprintf("%s/%s", server, name))
	return nil
}

func (f *fakeStore) BanCheck(ctx context.Context, server, name string) (*DBBan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bans[fmt.Sprintf("%s/%s", server, name)]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeStore) Close() {}
