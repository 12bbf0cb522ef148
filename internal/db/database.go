package db

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// job is a unit of background work submitted to the worker pool. It runs
// on a worker goroutine and must never touch game/host state (spec.md §5).
type job func(ctx context.Context)

// Database is the façade described in spec.md §3/§6: callers submit a
// request and get back a Callable to poll; a fixed pool of background
// goroutines drains the job queue. Safe for concurrent request submission
// and result polling; the reactor is the only result consumer.
type Database struct {
	store  Store
	local  *LocalStore
	jobs   chan job
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	pending []pendingCallable // outstanding, for the orphan-on-shutdown warning
}

type pendingCallable interface {
	Ready() bool
}

const defaultWorkers = 4
const jobQueueDepth = 256

// New starts a Database façade with a fixed worker pool.
func New(store Store, local *LocalStore) *Database {
	d := &Database{
		store:  store,
		local:  local,
		jobs:   make(chan job, jobQueueDepth),
		closed: make(chan struct{}),
	}
	for i := 0; i < defaultWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Database) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		j(context.Background())
	}
}

// Healthy reports whether both the primary and local handles are reachable.
// The reactor treats a false return as fatal (spec.md §4.1, §7).
func (d *Database) Healthy(ctx context.Context) bool {
	if err := d.store.Ping(ctx); err != nil {
		slog.Error("primary database unhealthy", "error", err)
		return false
	}
	if d.local != nil {
		if err := d.local.Ping(ctx); err != nil {
			slog.Error("local database unhealthy", "error", err)
			return false
		}
	}
	return true
}

// CheckBan runs a ban lookup inline on the calling goroutine, the same
// direct-store-access shortcut Healthy uses: a single indexed read, not
// worth routing through the worker queue, and !checkban needs the answer
// before it can reply (spec.md §4.3).
func (d *Database) CheckBan(ctx context.Context, server, name string) (*DBBan, error) {
	return d.store.BanCheck(ctx, server, name)
}

func (d *Database) track(c pendingCallable) {
	d.mu.Lock()
	d.pending = append(d.pending, c)
	d.mu.Unlock()
}

// ThreadedGameAdd enqueues a GameAdd write and returns a Callable for the
// assigned game-id.
func (d *Database) ThreadedGameAdd(req GameAddRequest) *Callable[int64] {
	c := newCallable[int64]()
	d.track(c)
	d.submit(func(ctx context.Context) {
		id, err := d.store.GameAdd(ctx, req)
		c.complete(id, err)
	})
	return c
}

// ThreadedGamePlayerAdd enqueues a per-player write.
func (d *Database) ThreadedGamePlayerAdd(req GamePlayerAddRequest) *Callable[struct{}] {
	c := newCallable[struct{}]()
	d.track(c)
	d.submit(func(ctx context.Context) {
		err := d.store.GamePlayerAdd(ctx, req)
		c.complete(struct{}{}, err)
	})
	return c
}

// ThreadedBanAdd enqueues a ban-add write (spec.md §4.3, §8 property 5).
func (d *Database) ThreadedBanAdd(req BanAddRequest) *Callable[struct{}] {
	c := newCallable[struct{}]()
	d.track(c)
	d.submit(func(ctx context.Context) {
		err := d.store.BanAdd(ctx, req)
		c.complete(struct{}{}, err)
	})
	return c
}

// ThreadedBanRemove enqueues a ban removal (!unban).
func (d *Database) ThreadedBanRemove(server, name string) *Callable[struct{}] {
	c := newCallable[struct{}]()
	d.track(c)
	d.submit(func(ctx context.Context) {
		err := d.store.BanRemove(ctx, server, name)
		c.complete(struct{}{}, err)
	})
	return c
}

// ThreadedBanCheck enqueues a ban lookup (!checkban).
func (d *Database) ThreadedBanCheck(server, name string) *Callable[*DBBan] {
	c := newCallable[*DBBan]()
	d.track(c)
	d.submit(func(ctx context.Context) {
		ban, err := d.store.BanCheck(ctx, server, name)
		c.complete(ban, err)
	})
	return c
}

func (d *Database) submit(j job) {
	select {
	case d.jobs <- j:
	default:
		// Queue saturated: run the job inline on the caller's goroutine
		// rather than wait for queue space; the caller then blocks for the
		// duration of the query.
		slog.Warn("database job queue saturated, running inline")
		j(context.Background())
	}
}

// Reap drops references to callables that have already completed,
// keeping the pending list bounded. Call once per tick from the reactor.
func (d *Database) Reap() {
	d.mu.Lock()
	defer d.mu.Unlock()
	live := d.pending[:0]
	for _, c := range d.pending {
		if !c.Ready() {
			live = append(live, c)
		}
	}
	d.pending = live
}

// Shutdown waits up to timeout for outstanding callables to drain, then
// closes the worker pool. Leaked in-flight work is tolerated (warning
// only) rather than terminating background goroutines mid-query
// (spec.md §3, §5: "exit_nice waits up to 60s for callables before
// forcing exit").
func (d *Database) Shutdown(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		d.Reap()
		d.mu.Lock()
		n := len(d.pending)
		d.mu.Unlock()
		if n == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	d.Reap()
	d.mu.Lock()
	leaked := len(d.pending)
	d.mu.Unlock()
	if leaked > 0 {
		slog.Warn("database shutdown with callables still pending", "count", leaked)
	}

	d.once.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()

	if d.store != nil {
		d.store.Close()
	}
	if d.local != nil {
		d.local.Close()
	}
}
