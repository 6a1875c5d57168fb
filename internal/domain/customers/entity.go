package customers

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound when no customer has the requested id
var ErrNotFound = errors.New("customer not found")

// Customer is a seller account connected to the marketplace
type Customer struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Active                 bool       `json:"active"`
	RetailerClientID       string     `json:"-"`
	RetailerClientSecret   string     `json:"-"`
	AdvertiserClientID     string     `json:"-"`
	AdvertiserClientSecret string     `json:"-"`
	LastSyncAt             *time.Time `json:"last_sync_at,omitempty"`
}

// HasAdvertising when both advertising credentials are present
func (c *Customer) HasAdvertising() bool {
	return c.AdvertiserClientID != "" && c.AdvertiserClientSecret != ""
}

// Repository port
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	ListActive(ctx context.Context) ([]*Customer, error)
	TouchLastSync(ctx context.Context, id string, at time.Time) error
}
