package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/sellerpulse/internal/domain/customers"
)

type CustomerRepository struct {
	s *Store
}

func NewCustomerRepository(s *Store) *CustomerRepository { return &CustomerRepository{s: s} }

const customerColumns = `id, name, active, retailer_client_id, retailer_client_secret,
  advertiser_client_id, advertiser_client_secret, last_sync_at`

// Create inserts a customer, generating an id when empty
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	q := r.s.rebind(`
INSERT INTO customers
  (` + customerColumns + `, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`)
	_, err := r.s.db.ExecContext(ctx, q,
		c.ID, stringOrDash(c.Name), c.Active,
		c.RetailerClientID, c.RetailerClientSecret,
		c.AdvertiserClientID, c.AdvertiserClientSecret,
		nullTime(c.LastSyncAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func scanCustomer(sc interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	var last sql.NullTime
	if err := sc.Scan(&c.ID, &c.Name, &c.Active,
		&c.RetailerClientID, &c.RetailerClientSecret,
		&c.AdvertiserClientID, &c.AdvertiserClientSecret, &last); err != nil {
		return nil, err
	}
	c.Name = dashToEmpty(c.Name)
	c.LastSyncAt = timePtr(last)
	return &c, nil
}

// Get returns domain.ErrNotFound for unknown ids
func (r *CustomerRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	q := r.s.rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ?`)
	c, err := scanCustomer(r.s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepository) ListActive(ctx context.Context) ([]*domain.Customer, error) {
	q := r.s.rebind(`SELECT ` + customerColumns + ` FROM customers WHERE active = ? ORDER BY id`)
	rows, err := r.s.db.QueryContext(ctx, q, true)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) TouchLastSync(ctx context.Context, id string, at time.Time) error {
	q := r.s.rebind(`UPDATE customers SET last_sync_at = ? WHERE id = ?`)
	res, err := r.s.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch last sync: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
