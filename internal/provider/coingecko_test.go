package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autotrader/internal/domain"
	"autotrader/internal/marketdata"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, v any) *http.Response {
	data, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func noopTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func fastLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func TestCoinGeckoProviderFetchLatest(t *testing.T) {
	t.Parallel()

	provider := NewCoinGeckoProvider(noopTracer())
	provider.baseURL = "http://example"
	provider.api.limiter = fastLimiter()
	provider.api.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/simple/price") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if !strings.Contains(req.URL.Query().Get("ids"), "bitcoin") {
				t.Fatalf("expected bitcoin in ids, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, map[string]map[string]float64{
				"bitcoin":  {"usd": 45000, "usd_24h_vol": 1e9, "usd_24h_change": 2.5, "last_updated_at": 1700000000},
				"ethereum": {"usd": 3000, "usd_24h_vol": 5e8, "usd_24h_change": -1},
			}), nil
		}),
	}
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return fixed }

	ticks, err := provider.FetchLatest(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ticks) != 2 || ticks[0].Symbol != "BTC" || ticks[0].Price != 45000 || ticks[0].Change24hPct != 2.5 {
		t.Fatalf("unexpected ticks: %+v", ticks)
	}
	if !ticks[0].Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("expected provider timestamp, got %v", ticks[0].Timestamp)
	}
	if !ticks[1].Timestamp.Equal(fixed) {
		t.Fatalf("expected fetch time when provider omits it, got %v", ticks[1].Timestamp)
	}
}

func TestCoinGeckoProviderRejectsPartialData(t *testing.T) {
	t.Parallel()

	provider := NewCoinGeckoProvider(noopTracer())
	provider.api.limiter = fastLimiter()
	provider.api.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]map[string]float64{
				"bitcoin": {"usd": 45000},
			}), nil
		}),
	}

	ticks, err := provider.FetchLatest(context.Background(), []string{"BTC", "ETH"})
	if err == nil || ticks != nil {
		t.Fatalf("expected error and no ticks, got %v %+v", err, ticks)
	}
}

func TestCoinGeckoProviderUnsupportedSymbol(t *testing.T) {
	provider := NewCoinGeckoProvider(noopTracer())
	if _, err := provider.FetchLatest(context.Background(), []string{"NOPE"}); err == nil {
		t.Fatal("expected unsupported symbol error")
	}
}

func TestAPIClientBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls int32
	api := newAPIClient("flaky", time.Second, rate.Inf, 1)
	api.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(http.StatusBadGateway, map[string]string{"error": "down"}), nil
		}),
	}

	for i := 0; i < 3; i++ {
		if _, err := api.get(context.Background(), "http://example/x"); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}
	if _, err := api.get(context.Background(), "http://example/x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("open circuit must not reach upstream, got %d calls", calls)
	}
}

func TestBinanceProviderFetchLatest(t *testing.T) {
	t.Parallel()

	provider := NewBinanceProvider(noopTracer())
	provider.baseURL = "http://example"
	provider.api.limiter = fastLimiter()
	provider.api.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/ticker/24hr") {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if got := req.URL.Query().Get("symbols"); got != `["BTCUSDT"]` {
				t.Fatalf("unexpected symbols param: %s", got)
			}
			return jsonResponse(http.StatusOK, []map[string]any{{
				"symbol":             "BTCUSDT",
				"lastPrice":          "45000.50",
				"priceChangePercent": "1.25",
				"highPrice":          "46000",
				"lowPrice":           "44000",
				"quoteVolume":        "123456",
				"closeTime":          int64(1700000000000),
			}}), nil
		}),
	}

	ticks, err := provider.FetchLatest(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.MarketTick{
		Symbol: "BTC", Price: 45000.50, Change24hPct: 1.25, Volume24h: 123456,
		High24h: 46000, Low24h: 44000, Timestamp: time.UnixMilli(1700000000000).UTC(),
	}
	if len(ticks) != 1 || ticks[0] != want {
		t.Fatalf("unexpected ticks: %+v", ticks)
	}
}

func TestBinanceTickerInvalidPrice(t *testing.T) {
	if _, err := (binanceTicker{LastPrice: "abc"}).toTick("BTC"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := (binanceTicker{LastPrice: "0"}).toTick("BTC"); err == nil {
		t.Fatal("expected error for zero price")
	}
}

type fakeProvider struct {
	name  string
	ticks []domain.MarketTick
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	f.calls++
	return f.ticks, f.err
}

func TestFallback(t *testing.T) {
	primary := &fakeProvider{name: "a", err: errors.New("down")}
	secondary := &fakeProvider{name: "b", ticks: []domain.MarketTick{{Symbol: "BTC", Price: 1}}}
	f := NewFallback(primary, secondary)

	if f.Name() != "a+b" {
		t.Fatalf("unexpected name %s", f.Name())
	}
	ticks, err := f.FetchLatest(context.Background(), []string{"BTC"})
	if err != nil || len(ticks) != 1 || primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected fallback to secondary, got %v %+v", err, ticks)
	}

	secondary.err = errors.New("also down")
	secondary.ticks = nil
	if _, err := f.FetchLatest(context.Background(), []string{"BTC"}); !errors.Is(err, marketdata.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}
