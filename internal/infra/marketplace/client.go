// Package marketplace implements the retailer and advertising API clients.
//
// Every request goes through the client's Pacer, so calls issued in a loop
// (per entity, per batch, per page) are spaced by the configured delay. The
// clients never retry.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Upstream caps
const (
	BatchSize    = 20
	MaxListPages = 10
)

// TokenProvider returns a bearer token for the next request
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// IsNotFound when the upstream answered 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// ClientOptions shared by both API clients
type ClientOptions struct {
	BaseURL   string
	Accept    string
	UserAgent string
	Timeout   time.Duration
	HTTP      *http.Client
	Tokens    TokenProvider
	Pacer     Pacer
}

type client struct {
	now       func() time.Time
	baseURL   string
	accept    string
	userAgent string
	http      *http.Client
	tokens    TokenProvider
	pacer     Pacer
}

func newClient(opts ClientOptions) (*client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	hc := opts.HTTP
	if hc == nil {
		to := opts.Timeout
		if to <= 0 {
			to = 30 * time.Second
		}
		hc = &http.Client{Timeout: to}
	}
	accept := opts.Accept
	if accept == "" {
		accept = "application/json"
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "sellerpulse/1.0"
	}
	p := opts.Pacer
	if p == nil {
		p = noPacer{}
	}
	return &client{
		now:       time.Now,
		baseURL:   strings.TrimRight(base, "/"),
		accept:    accept,
		userAgent: ua,
		http:      hc,
		tokens:    opts.Tokens,
		pacer:     p,
	}, nil
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	return c.send(ctx, method, path, query, body, c.accept)
}

func (c *client) send(ctx context.Context, method, path string, query url.Values, body any, accept string) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", c.accept)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(b)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: msg}
	}
	return b, nil
}

func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	b, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeBody(b, path, out)
}

func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeBody(b, path, out)
}

func decodeBody(b []byte, path string, out any) error {
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s payload parse: %w", path, err)
	}
	return nil
}

// chunk splits ids into consecutive slices of at most size
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

// paginate follows page=1.. until an empty page or MaxListPages
func paginate[T any](ctx context.Context, c *client, path string, query url.Values, keys ...string) ([]T, error) {
	var all []T
	for page := 1; page <= MaxListPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("page", fmt.Sprint(page))
		b, err := c.do(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}
		items, err := decodeList[T](b, keys...)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
	}
	return all, nil
}
