package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches spot prices from the CoinGecko free API.
type CoinGeckoProvider struct {
	api     *apiClient
	baseURL string
	tracer  trace.Tracer
	now     func() time.Time
}

// NewCoinGeckoProvider creates a provider limited to 8 requests per minute
// (one token every 7.5 seconds, burst of 8).
func NewCoinGeckoProvider(tracer trace.Tracer) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		api:     newAPIClient("coingecko", 30*time.Second, rate.Every(7500*time.Millisecond), 8),
		baseURL: coingeckoBaseURL,
		tracer:  tracer,
		now:     time.Now,
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

// FetchLatest fetches current prices for symbols in a single API call. Every
// requested symbol must be present in the response.
func (p *CoinGeckoProvider) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-latest")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		id, ok := domain.CoinGeckoID[sym]
		if !ok {
			return nil, fmt.Errorf("unsupported symbol: %s", sym)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_vol=true&include_24hr_change=true&include_last_updated_at=true",
		p.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	body, err := p.api.get(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	// Response shape: {"bitcoin": {"usd": 97000, "usd_24h_vol": 45000000000, "usd_24h_change": 2.34, "last_updated_at": 1700000000}, ...}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse prices: %w", err)
	}

	now := p.now()
	ticks := make([]domain.MarketTick, 0, len(symbols))
	for _, sym := range symbols {
		data, ok := raw[domain.CoinGeckoID[sym]]
		if !ok || data["usd"] <= 0 {
			return nil, fmt.Errorf("parse prices: missing or invalid price for %s", sym)
		}
		ts := now
		if updated := int64(data["last_updated_at"]); updated > 0 {
			ts = time.Unix(updated, 0).UTC()
		}
		ticks = append(ticks, domain.MarketTick{
			Symbol:       sym,
			Price:        data["usd"],
			Change24hPct: data["usd_24h_change"],
			Volume24h:    data["usd_24h_vol"],
			Timestamp:    ts,
		})
	}
	return ticks, nil
}
