// Package baas talks to the hosted platform's REST gateway (PostgREST-style tables and RPC).
package baas

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/domain"
)

var (
	ErrNotFound     = fmt.Errorf("baas: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("baas: %w", domain.ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("baas: %w", domain.ErrForbidden)
)

const maxAttempts = 4

type Client struct {
	rest string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(projectURL, serviceKey string, rps int) (*Client, error) {
	if serviceKey == "" {
		return nil, fmt.Errorf("service key is required")
	}
	if projectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		rest: strings.TrimRight(projectURL, "/") + "/rest/v1",
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  serviceKey,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Select reads rows from table filtered by PostgREST query params (e.g. id=eq.42).
func (c *Client) Select(ctx context.Context, table string, q url.Values, out any) error {
	if table == "" {
		return fmt.Errorf("table is required")
	}
	u := c.rest + "/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, u, "select:"+table, nil, out)
}

// Update patches the rows matched by q. The gateway answers 204 with return=minimal.
func (c *Client) Update(ctx context.Context, table string, q url.Values, patch any) error {
	if table == "" || len(q) == 0 {
		return fmt.Errorf("table and filter are required")
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	u := c.rest + "/" + url.PathEscape(table) + "?" + q.Encode()
	return c.do(ctx, http.MethodPatch, u, "update:"+table, body, nil)
}

// RPC invokes a database function. Only read-only functions are called through here,
// so the request is retried like a GET.
func (c *Client) RPC(ctx context.Context, fn string, args any, out any) error {
	if fn == "" {
		return fmt.Errorf("function name is required")
	}
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode rpc args: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.rest+"/rpc/"+url.PathEscape(fn), "rpc:"+fn, body, out)
}

// do performs a request with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, method, u, endpoint string, body []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rdr)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "rentbay/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if method == http.MethodPatch {
			req.Header.Set("Prefer", "return=minimal")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("baas", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("baas", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("baas %s: remote %d", endpoint, resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("baas %s: bad status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	if lastErr == nil {
		lastErr = errors.New("baas: no attempt succeeded")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
