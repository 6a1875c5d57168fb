package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// refresh this long before the upstream expiry
const expirySkew = 60 * time.Second

// Clock so expiry can be tested
type Clock interface {
	Now() time.Time
}

// Cache holds one access token and its expiry. It is owned by a Source and never
// shared through package state.
type Cache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (c *Cache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !now.Before(c.expiresAt.Add(-expirySkew)) {
		return "", false
	}
	return c.token, true
}

func (c *Cache) set(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
}

// Source performs the client-credentials grant and memoises the result
type Source struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
	Clock        Clock
	Cache        *Cache
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewSource with its own cache
func NewSource(tokenURL, clientID, clientSecret string, httpClient *http.Client, clock Clock) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Source{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTP:         httpClient,
		Clock:        clock,
		Cache:        &Cache{},
	}
}

// Token returns a cached token or fetches a new one
func (s *Source) Token(ctx context.Context) (string, error) {
	now := s.Clock.Now()
	if tok, ok := s.Cache.get(now); ok {
		return tok, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(s.ClientID, s.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	s.Cache.set(tr.AccessToken, now.Add(time.Duration(tr.ExpiresIn)*time.Second))
	log.Debug().
		Str("client_id", s.ClientID).
		Int("expires_in", tr.ExpiresIn).
		Msg("fetched access token")
	return tr.AccessToken, nil
}
