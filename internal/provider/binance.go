package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const binanceBaseURL = "https://api.binance.com/api/v3"

// BinanceProvider reads 24h rolling tickers from the Binance spot API.
type BinanceProvider struct {
	api     *apiClient
	baseURL string
	tracer  trace.Tracer
}

func NewBinanceProvider(tracer trace.Tracer) *BinanceProvider {
	return &BinanceProvider{
		api:     newAPIClient("binance", 10*time.Second, rate.Every(time.Second), 5),
		baseURL: binanceBaseURL,
		tracer:  tracer,
	}
}

func (p *BinanceProvider) Name() string { return "binance" }

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}

func (p *BinanceProvider) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	ctx, span := p.tracer.Start(ctx, "binance.fetch-latest")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	pairs := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		pair, ok := domain.BinancePair[sym]
		if !ok {
			return nil, fmt.Errorf("unsupported symbol: %s", sym)
		}
		pairs = append(pairs, strconv.Quote(pair))
	}

	u := fmt.Sprintf("%s/ticker/24hr?symbols=%s", p.baseURL, url.QueryEscape("["+strings.Join(pairs, ",")+"]"))
	body, err := p.api.get(ctx, u)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}

	var raw []binanceTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse tickers: %w", err)
	}
	byPair := make(map[string]binanceTicker, len(raw))
	for _, t := range raw {
		byPair[t.Symbol] = t
	}

	ticks := make([]domain.MarketTick, 0, len(symbols))
	for _, sym := range symbols {
		t, ok := byPair[domain.BinancePair[sym]]
		if !ok {
			return nil, fmt.Errorf("parse tickers: missing %s", sym)
		}
		tick, err := t.toTick(sym)
		if err != nil {
			return nil, fmt.Errorf("parse tickers: %w", err)
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func (t binanceTicker) toTick(symbol string) (domain.MarketTick, error) {
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil || price <= 0 {
		return domain.MarketTick{}, fmt.Errorf("invalid last price %q for %s", t.LastPrice, symbol)
	}
	// The remaining fields are informational; unparsable values read as zero.
	change, _ := strconv.ParseFloat(t.PriceChangePercent, 64)
	high, _ := strconv.ParseFloat(t.HighPrice, 64)
	low, _ := strconv.ParseFloat(t.LowPrice, 64)
	volume, _ := strconv.ParseFloat(t.QuoteVolume, 64)
	return domain.MarketTick{
		Symbol:       symbol,
		Price:        price,
		Change24hPct: change,
		Volume24h:    volume,
		High24h:      high,
		Low24h:       low,
		Timestamp:    time.UnixMilli(t.CloseTime).UTC(),
	}, nil
}
