package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/lingograde/internal/cache"
)

// GuardedCache is a [cache.Cache] whose calls pass through a
// [CircuitBreaker]. Misses and cancelled requests do not count as failures.
type GuardedCache struct {
	next cache.Cache
	cb   *CircuitBreaker
}

var _ cache.Cache = (*GuardedCache)(nil)

// GuardCache wraps next with a breaker configured by cfg. cfg.IsFailure is
// replaced.
func GuardCache(next cache.Cache, cfg Config) *GuardedCache {
	cfg.IsFailure = cacheFailure
	return &GuardedCache{next: next, cb: NewCircuitBreaker(cfg)}
}

func cacheFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, cache.ErrMiss) &&
		!errors.Is(err, context.Canceled)
}

// Get implements [cache.Cache.Get].
func (g *GuardedCache) Get(ctx context.Context, key cache.Key) ([]byte, error) {
	var payload []byte
	err := g.cb.Execute(func() error {
		var err error
		payload, err = g.next.Get(ctx, key)
		return err
	})
	return payload, err
}

// Put implements [cache.Cache.Put].
func (g *GuardedCache) Put(ctx context.Context, key cache.Key, payload []byte) error {
	return g.cb.Execute(func() error { return g.next.Put(ctx, key, payload) })
}

// Ping checks the wrapped cache directly, bypassing the breaker, when it
// supports pinging. Readiness therefore reflects the store, not the breaker.
func (g *GuardedCache) Ping(ctx context.Context) error {
	if p, ok := g.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State returns the state of the breaker.
func (g *GuardedCache) State() State { return g.cb.State() }
