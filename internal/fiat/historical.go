package fiat

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// historicalKey identifies one point-in-time price lookup.
type historicalKey struct {
	timestampSec int64
	currency     string
}

// inflight tracks a lookup in progress so duplicate callers wait on the same
// HTTP call instead of issuing their own.
type inflight struct {
	done  chan struct{}
	price float64
	err   error
}

// historicalFetcher caches point-in-time prices per (timestamp, currency)
// pair and coalesces concurrent lookups. A rate limiter paces the calls so a
// backlog burst of zaps cannot fan out into one HTTP request per zap.
type historicalFetcher struct {
	source PriceSource

	mu       sync.Mutex
	cache    map[historicalKey]float64
	inflight map[historicalKey]*inflight

	limiter *rate.Limiter
}

func newHistoricalFetcher(source PriceSource) *historicalFetcher {
	return &historicalFetcher{
		source:   source,
		cache:    make(map[historicalKey]float64),
		inflight: make(map[historicalKey]*inflight),
		limiter:  rate.NewLimiter(rate.Limit(2), 4), // at most ~2 calls/s, small burst
	}
}

// fetch returns the price at timestampSec in the given currency, issuing at
// most one HTTP call per distinct key.
func (f *historicalFetcher) fetch(ctx context.Context, timestampSec int64, currency string) (float64, error) {
	key := historicalKey{timestampSec: timestampSec, currency: currency}

	f.mu.Lock()
	if price, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return price, nil
	}
	if fl, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		select {
		case <-fl.done:
			return fl.price, fl.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	f.inflight[key] = fl
	f.mu.Unlock()

	fl.price, fl.err = f.doFetch(ctx, key)
	close(fl.done)

	f.mu.Lock()
	delete(f.inflight, key)
	if fl.err == nil {
		f.cache[key] = fl.price
	}
	f.mu.Unlock()

	return fl.price, fl.err
}

func (f *historicalFetcher) doFetch(ctx context.Context, key historicalKey) (float64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return f.source.HistoricalPrice(ctx, key.timestampSec, key.currency)
}
