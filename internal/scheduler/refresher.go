package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brokerage-dashboard/internal/market"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventStockUpdate is the broadcast event carrying refreshed prices
const EventStockUpdate = "stock_update"

// Broadcaster delivers an event to all connected realtime subscribers
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Refresher periodically fetches closing prices for the tracked symbol set
// and broadcasts them. Symbols are tracked with a last-interest timestamp;
// entries not renewed within the TTL are evicted, so the registry behaves
// as a cache with expiry rather than growing forever.
//
// A failed tick is logged and dropped. The next tick is independent.
type Refresher struct {
	provider market.Provider
	hub      Broadcaster
	redis    *redis.Client
	logger   *zap.Logger
	interval time.Duration
	ttl      time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a new Refresher
func NewRefresher(
	provider market.Provider,
	hub Broadcaster,
	redisClient *redis.Client,
	logger *zap.Logger,
	interval time.Duration,
	ttl time.Duration,
) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Refresher{
		provider: provider,
		hub:      hub,
		redis:    redisClient,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		lastSeen: make(map[string]time.Time),
	}
}

// Track registers interest in a set of symbols. Registration is idempotent:
// tracking the same symbol again only renews its expiry.
func (r *Refresher) Track(symbols []string) {
	if len(symbols) == 0 {
		return
	}
	now := time.Now()

	r.mu.Lock()
	for _, symbol := range symbols {
		if symbol != "" {
			r.lastSeen[symbol] = now
		}
	}
	r.mu.Unlock()
}

// ActiveSymbols returns the tracked symbols, evicting expired entries
func (r *Refresher) ActiveSymbols() []string {
	now := time.Now()

	r.mu.Lock()
	symbols := make([]string, 0, len(r.lastSeen))
	for symbol, seen := range r.lastSeen {
		if now.Sub(seen) > r.ttl {
			delete(r.lastSeen, symbol)
			continue
		}
		symbols = append(symbols, symbol)
	}
	r.mu.Unlock()

	sort.Strings(symbols)
	return symbols
}

// Start launches the refresh loop
func (r *Refresher) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("price refresher started",
			zap.Duration("interval", r.interval),
			zap.Duration("symbol_ttl", r.ttl))

		for {
			select {
			case <-ticker.C:
				r.refresh()
			case <-r.ctx.Done():
				r.logger.Info("price refresher stopped")
				return
			}
		}
	}()
}

// Stop stops the refresh loop and waits for it to exit
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// refresh runs a single tick: fetch quotes for the active symbol set under a
// bounded timeout, cache them, and broadcast the result.
func (r *Refresher) refresh() {
	symbols := r.ActiveSymbols()
	if len(symbols) == 0 {
		return
	}

	base := r.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, r.interval)
	defer cancel()

	quotes, err := r.provider.Quotes(ctx, symbols)
	if err != nil {
		r.logger.Error("price refresh tick failed",
			zap.Strings("symbols", symbols),
			zap.Error(err))
		return
	}

	prices := make(map[string]float64, len(quotes))
	for symbol, quote := range quotes {
		prices[symbol] = quote.Close
		r.cacheQuote(ctx, quote)
	}

	if len(prices) < len(symbols) {
		r.logger.Warn("price refresh tick returned partial results",
			zap.Int("requested", len(symbols)),
			zap.Int("resolved", len(prices)))
	}

	r.hub.Broadcast(EventStockUpdate, prices)
}

// cacheQuote stores the latest close in redis and publishes it for any
// out-of-process subscribers.
func (r *Refresher) cacheQuote(ctx context.Context, quote market.Quote) {
	if r.redis == nil {
		return
	}

	key := "price:" + quote.Symbol
	if err := r.redis.HSet(ctx, key, map[string]interface{}{
		"close":     quote.Close,
		"timestamp": quote.Timestamp,
	}).Err(); err != nil {
		r.logger.Warn("failed to cache quote", zap.String("symbol", quote.Symbol), zap.Error(err))
		return
	}
	r.redis.Expire(ctx, key, 2*r.interval)
	r.redis.Publish(ctx, "price_updates", fmt.Sprintf("%s:%.8f", quote.Symbol, quote.Close))
}
