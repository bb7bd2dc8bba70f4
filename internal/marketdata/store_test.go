package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"autotrader/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var t0 = time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)

func tick(sym string, price float64, at time.Time) domain.MarketTick {
	return domain.MarketTick{Symbol: sym, Price: price, Timestamp: at}
}

func TestStoreRecordAndViews(t *testing.T) {
	s := NewStore(3, 0)
	stored := s.Record([]domain.MarketTick{
		tick("BTC", 1, t0),
		tick("BTC", 2, t0.Add(time.Second)),
		tick("BTC", 0, t0.Add(2*time.Second)),
		tick("BTC", 3, t0.Add(time.Second)),
		tick("ETH", 10, t0),
	})
	if stored != 3 {
		t.Fatalf("expected 3 stored ticks, got %d", stored)
	}
	s.Record([]domain.MarketTick{tick("BTC", 4, t0.Add(3*time.Second)), tick("BTC", 5, t0.Add(4*time.Second))})

	views, err := s.Views([]string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	btc := views["BTC"]
	if btc.Tick.Price != 5 || len(btc.History) != 3 || btc.History[0].Price != 2 {
		t.Fatalf("unexpected BTC view: %+v", btc)
	}
	if last := btc.History[len(btc.History)-1]; last != btc.Tick {
		t.Fatalf("history must end with the view tick: %+v vs %+v", last, btc.Tick)
	}
	if len(s.Latest()) != 2 {
		t.Fatalf("expected 2 latest ticks, got %d", len(s.Latest()))
	}
}

func TestStoreViewsUnavailable(t *testing.T) {
	s := NewStore(5, time.Minute)
	s.now = func() time.Time { return t0.Add(2 * time.Minute) }
	s.Record([]domain.MarketTick{tick("BTC", 1, t0)})

	if _, err := s.Views([]string{"BTC"}); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected stale data to be unavailable, got %v", err)
	}
	if _, err := s.Views([]string{"SOL"}); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected missing symbol to be unavailable, got %v", err)
	}
}

func TestStoreViewsAreCopies(t *testing.T) {
	s := NewStore(5, 0)
	s.Record([]domain.MarketTick{tick("BTC", 1, t0)})
	views, _ := s.Views([]string{"BTC"})
	views["BTC"].History[0].Price = 99
	again, _ := s.Views([]string{"BTC"})
	if again["BTC"].History[0].Price != 1 {
		t.Fatal("view history must not alias store memory")
	}
}

func TestStoreConcurrentConsistency(t *testing.T) {
	s := NewStore(50, 0)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			s.Record([]domain.MarketTick{tick("BTC", float64(i), t0.Add(time.Duration(i)*time.Second))})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			views, err := s.Views([]string{"BTC"})
			if err != nil {
				continue
			}
			v := views["BTC"]
			if v.History[len(v.History)-1] != v.Tick {
				t.Error("view mixed ticks from different updates")
				return
			}
		}
	}()
	wg.Wait()
}

type stubProvider struct {
	mu    sync.Mutex
	calls int
	ticks []domain.MarketTick
	err   error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.ticks, nil
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func TestPollerPollStoresAndMirrors(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	provider := &stubProvider{ticks: []domain.MarketTick{tick("BTC", 45000, t0)}}
	store := NewStore(10, 0)
	rdb := &fakeRedis{}
	p := NewPoller(tracer, provider, store, rdb, []string{"BTC"}, time.Second, time.Second)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Views([]string{"BTC"}); err != nil {
		t.Fatalf("tick not stored: %v", err)
	}
	var mirrored domain.MarketTick
	if err := json.Unmarshal(rdb.data["tick:BTC"], &mirrored); err != nil || mirrored.Price != 45000 {
		t.Fatalf("tick not mirrored: %v %+v", err, mirrored)
	}
}

func TestPollerPollError(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	provider := &stubProvider{err: errors.New("boom")}
	store := NewStore(10, 0)
	p := NewPoller(tracer, provider, store, nil, []string{"BTC"}, time.Second, 0)
	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected provider error")
	}
	if len(store.Latest()) != 0 {
		t.Fatal("failed poll must not store data")
	}
}

func TestPollerStart(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	provider := &stubProvider{ticks: []domain.MarketTick{tick("BTC", 1, t0)}}
	p := NewPoller(tracer, provider, NewStore(10, 0), nil, []string{"BTC"}, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return provider.Calls() > 1 })
	cancel()
	<-done
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
