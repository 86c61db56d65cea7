// Package source holds the HTTP plumbing shared by the off-chain data sources.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/emperorhan/chainaudit/internal/circuitbreaker"
	"golang.org/x/time/rate"
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Countable reports whether err should count against a circuit breaker.
// Client errors (4xx other than 429) describe the request, not the upstream.
func Countable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// Getter performs rate limited, circuit broken GET requests that decode JSON.
type Getter struct {
	HTTP    *http.Client
	Limiter *rate.Limiter
	Breaker *circuitbreaker.Breaker
}

// GetJSON fetches url and decodes a JSON body into out.
func (g Getter) GetJSON(ctx context.Context, url string, out any) error {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	do := func() error { return g.get(ctx, url, out) }
	if g.Breaker == nil {
		return do()
	}
	return g.Breaker.Execute(do, Countable)
}

func (g Getter) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
