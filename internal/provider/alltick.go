package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const allTickBaseURL = "https://quote-api.alltick.co/quote"

// ErrMissingToken is returned by FetchLatest when no AllTick token is set.
var ErrMissingToken = errors.New("alltick token not configured")

// AllTickProvider reads realtime quotes from the AllTick quote API. AllTick
// uses the same USDT pair codes as Binance.
type AllTickProvider struct {
	api     *apiClient
	baseURL string
	token   string
	tracer  trace.Tracer
	now     func() time.Time
}

func NewAllTickProvider(tracer trace.Tracer, token string) *AllTickProvider {
	return &AllTickProvider{
		api:     newAPIClient("alltick", 10*time.Second, rate.Every(2*time.Second), 2),
		baseURL: allTickBaseURL,
		token:   token,
		tracer:  tracer,
		now:     time.Now,
	}
}

func (p *AllTickProvider) Name() string { return "alltick" }

type allTickRequest struct {
	Trace string `json:"trace"`
	Data  struct {
		SymbolList []string `json:"symbol_list"`
		FieldList  []string `json:"field_list"`
	} `json:"data"`
}

type allTickResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    []allTickQuote `json:"data"`
}

type allTickQuote struct {
	Symbol      string `json:"symbol"`
	LatestPrice string `json:"latest_price"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Volume      string `json:"volume"`
	ChangeRate  string `json:"change_rate"`
}

func (p *AllTickProvider) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	ctx, span := p.tracer.Start(ctx, "alltick.fetch-latest")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("symbols", symbols))

	if p.token == "" {
		return nil, ErrMissingToken
	}

	now := p.now().UTC()
	var req allTickRequest
	req.Trace = fmt.Sprintf("realtime_%d", now.UnixMilli())
	req.Data.FieldList = []string{"latest_price", "high", "low", "volume", "change_rate"}
	for _, sym := range symbols {
		pair, ok := domain.BinancePair[sym]
		if !ok {
			return nil, fmt.Errorf("unsupported symbol: %s", sym)
		}
		req.Data.SymbolList = append(req.Data.SymbolList, pair)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	body, err := p.api.post(ctx, p.baseURL+"/realtime", http.Header{"Token": {p.token}}, payload)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	var resp allTickResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse quotes: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("alltick API error %d: %s", resp.Code, resp.Message)
	}
	byPair := make(map[string]allTickQuote, len(resp.Data))
	for _, q := range resp.Data {
		byPair[q.Symbol] = q
	}

	ticks := make([]domain.MarketTick, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := byPair[domain.BinancePair[sym]]
		if !ok {
			return nil, fmt.Errorf("parse quotes: missing %s", sym)
		}
		price, err := strconv.ParseFloat(q.LatestPrice, 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("parse quotes: invalid latest price %q for %s", q.LatestPrice, sym)
		}
		change, _ := strconv.ParseFloat(q.ChangeRate, 64)
		high, _ := strconv.ParseFloat(q.High, 64)
		low, _ := strconv.ParseFloat(q.Low, 64)
		volume, _ := strconv.ParseFloat(q.Volume, 64)
		ticks = append(ticks, domain.MarketTick{
			Symbol:       sym,
			Price:        price,
			Change24hPct: change,
			Volume24h:    volume,
			High24h:      high,
			Low24h:       low,
			Timestamp:    now,
		})
	}
	return ticks, nil
}
