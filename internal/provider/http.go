package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while a provider's breaker refuses calls.
var ErrCircuitOpen = errors.New("provider circuit open")

// apiClient performs rate-limited, breaker-guarded GET requests.
type apiClient struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newAPIClient(name string, timeout time.Duration, limit rate.Limit, burst int) *apiClient {
	return &apiClient{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("provider %s circuit %s -> %s", name, from, to)
			},
		}),
	}
}

func (c *apiClient) get(ctx context.Context, url string) ([]byte, error) {
	return c.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// post sends payload as JSON with the given extra headers.
func (c *apiClient) post(ctx context.Context, url string, header http.Header, payload []byte) ([]byte, error) {
	return c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

func (c *apiClient) send(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		return c.do(req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.name)
	}
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (c *apiClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s API error %d: %s", c.name, resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
