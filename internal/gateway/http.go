package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HTTPGateway posts orders as JSON to an order-routing service that owns the
// exchange credentials. A 4xx reply is a rejection.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	tracer  trace.Tracer
}

func NewHTTPGateway(tracer trace.Tracer, baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		tracer:  tracer,
	}
}

func (g *HTTPGateway) Submit(ctx context.Context, req OrderRequest) (Fill, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", req.Symbol),
		attribute.String("side", string(req.Side)),
	)

	body, err := json.Marshal(req)
	if err != nil {
		return Fill{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Fill{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("X-API-Key", g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return Fill{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fill{}, err
	}
	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Fill{}, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	case resp.StatusCode != http.StatusOK:
		return Fill{}, fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(data))
	}

	var fill Fill
	if err := json.Unmarshal(data, &fill); err != nil {
		return Fill{}, fmt.Errorf("parse fill: %w", err)
	}
	return fill, nil
}
