package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	domain "github.com/bryanwahyu/sellerpulse/internal/domain/marketplace"
	"github.com/bryanwahyu/sellerpulse/internal/infra/oauth"
)

// APIConfig for one upstream API
type APIConfig struct {
	BaseURL  string
	TokenURL string
	Accept   string
}

// ConnectorOptions wires both APIs
type ConnectorOptions struct {
	Retailer   APIConfig
	Advertiser APIConfig
	Delay      time.Duration
	Timeout    time.Duration
	HTTP       *http.Client
	Clock      oauth.Clock
	// NewPacer overrides the pacer factory, mainly for tests
	NewPacer func() Pacer
}

// Connector builds per-customer clients. Token sources are kept per client id
// so repeated syncs reuse cached tokens.
type Connector struct {
	opts ConnectorOptions

	mu      sync.Mutex
	sources map[string]*oauth.Source
}

var _ domain.Connector = (*Connector)(nil)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewConnector fills defaults
func NewConnector(opts ConnectorOptions) *Connector {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.HTTP == nil {
		to := opts.Timeout
		if to <= 0 {
			to = 30 * time.Second
		}
		opts.HTTP = &http.Client{Timeout: to}
	}
	if opts.NewPacer == nil {
		delay := opts.Delay
		opts.NewPacer = func() Pacer { return NewPacer(delay) }
	}
	return &Connector{opts: opts, sources: map[string]*oauth.Source{}}
}

func (c *Connector) source(tokenURL, id, secret string) *oauth.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := tokenURL + "|" + id
	if s, ok := c.sources[key]; ok && s.ClientSecret == secret {
		return s
	}
	s := oauth.NewSource(tokenURL, id, secret, c.opts.HTTP, c.opts.Clock)
	c.sources[key] = s
	return s
}

// Retailer client for the customer
func (c *Connector) Retailer(ctx context.Context, cust *customers.Customer) (domain.Retailer, error) {
	if cust.RetailerClientID == "" || cust.RetailerClientSecret == "" {
		return nil, fmt.Errorf("customer %s retailer: %w", cust.ID, domain.ErrNoCredentials)
	}
	return NewRetailerClient(ClientOptions{
		BaseURL: c.opts.Retailer.BaseURL,
		Accept:  c.opts.Retailer.Accept,
		HTTP:    c.opts.HTTP,
		Tokens:  c.source(c.opts.Retailer.TokenURL, cust.RetailerClientID, cust.RetailerClientSecret),
		Pacer:   c.opts.NewPacer(),
	})
}

// Advertiser client for the customer, ErrNoCredentials when not enabled
func (c *Connector) Advertiser(ctx context.Context, cust *customers.Customer) (domain.Advertiser, error) {
	if !cust.HasAdvertising() {
		return nil, fmt.Errorf("customer %s advertiser: %w", cust.ID, domain.ErrNoCredentials)
	}
	return NewAdvertiserClient(ClientOptions{
		BaseURL: c.opts.Advertiser.BaseURL,
		Accept:  c.opts.Advertiser.Accept,
		HTTP:    c.opts.HTTP,
		Tokens:  c.source(c.opts.Advertiser.TokenURL, cust.AdvertiserClientID, cust.AdvertiserClientSecret),
		Pacer:   c.opts.NewPacer(),
	})
}
