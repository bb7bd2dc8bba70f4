package marketdata

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"autotrader/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tickCacheTTL = 90 * time.Second

// RedisClient is the subset of go-redis used to mirror ticks for external
// readers.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Poller periodically fetches ticks from a provider into the store.
type Poller struct {
	tracer   trace.Tracer
	provider Provider
	store    *Store
	redis    RedisClient
	symbols  []string
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(tracer trace.Tracer, provider Provider, store *Store, redisClient RedisClient, symbols []string, interval, timeout time.Duration) *Poller {
	return &Poller{
		tracer:   tracer,
		provider: provider,
		store:    store,
		redis:    redisClient,
		symbols:  symbols,
		interval: interval,
		timeout:  timeout,
	}
}

// Start polls until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	log.Printf("Market poller starting (%s, every %s)...", p.provider.Name(), p.interval)

	// Run immediately on start
	if err := p.Poll(ctx); err != nil {
		log.Printf("market poller initial run error: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Market poller stopped")
			return
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				log.Printf("market poller error: %v", err)
			}
		}
	}
}

// Poll performs one fetch.
func (p *Poller) Poll(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "market-poller.poll")
	defer span.End()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ticks, err := p.provider.FetchLatest(ctx, p.symbols)
	if err != nil {
		span.RecordError(err)
		return err
	}
	stored := p.store.Record(ticks)
	span.SetAttributes(attribute.Int("ticks.stored", stored))

	if p.redis != nil {
		for _, t := range ticks {
			if err := p.mirror(ctx, t); err != nil {
				log.Printf("redis tick write error for %s: %v", t.Symbol, err)
			}
		}
	}
	return nil
}

func (p *Poller) mirror(ctx context.Context, tick domain.MarketTick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return p.redis.Set(ctx, "tick:"+tick.Symbol, data, tickCacheTTL).Err()
}
