package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no store.
	ErrNotFound = errors.New("store not found")
	// ErrSlugTaken is returned when an insert loses the race on the slug
	// unique constraint despite the availability pre-check.
	ErrSlugTaken = errors.New("slug is already taken")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

const storeColumns = `id, slug, name, COALESCE(logo_url, ''), theme_colors,
       COALESCE(contact_email, ''), COALESCE(shipping_policy, ''), tax_rate,
       COALESCE(stripe_secret_key, ''), COALESCE(stripe_publishable_key, ''),
       COALESCE(stripe_webhook_secret, ''), stripe_connected, created_by, created_at, updated_at`

func scanStore(row interface{ Scan(...any) error }) (Store, error) {
	var s Store
	var theme []byte
	err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.LogoURL, &theme, &s.ContactEmail,
		&s.ShippingPolicy, &s.TaxRate, &s.StripeSecretKey, &s.StripePublishableKey,
		&s.StripeWebhookSecret, &s.StripeConnected, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Store{}, err
	}
	if len(theme) > 0 {
		if err := json.Unmarshal(theme, &s.ThemeColors); err != nil {
			return Store{}, fmt.Errorf("failed to decode theme colors: %w", err)
		}
	}
	return s, nil
}

func (c *Conf) InsertStore(ctx context.Context, createdBy string, ns NewStore) (Store, error) {
	theme, err := json.Marshal(ns.ThemeColors)
	if err != nil {
		return Store{}, fmt.Errorf("failed to encode theme colors: %w", err)
	}

	query := `
		INSERT INTO stores (id, slug, name, logo_url, theme_colors, contact_email,
		                    shipping_policy, tax_rate, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, NOW(), NOW())
		RETURNING ` + storeColumns

	row := c.db.QueryRowContext(ctx, query, uuid.NewString(), ns.Slug, ns.Name, ns.LogoURL,
		theme, ns.ContactEmail, ns.ShippingPolicy, ns.TaxRate, createdBy)
	store, err := scanStore(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Store{}, ErrSlugTaken
		}
		return Store{}, fmt.Errorf("failed to insert store: %w", err)
	}
	return store, nil
}

func (c *Conf) GetStoreByID(ctx context.Context, id string) (Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	store, err := scanStore(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, fmt.Errorf("failed to query store: %w", err)
	}
	return store, nil
}

func (c *Conf) GetStoreBySlug(ctx context.Context, slug string) (Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE slug = $1`
	store, err := scanStore(c.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, fmt.Errorf("failed to query store by slug: %w", err)
	}
	return store, nil
}

// GetStoreByCampaign resolves the store owning the given campaign. Checkout
// and the webhook use it to pick up the tax rate and Stripe credentials.
func (c *Conf) GetStoreByCampaign(ctx context.Context, campaignID string) (Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE id = (SELECT store_id FROM campaigns WHERE id = $1)`
	store, err := scanStore(c.db.QueryRowContext(ctx, query, campaignID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Store{}, ErrNotFound
		}
		return Store{}, fmt.Errorf("failed to query store by campaign: %w", err)
	}
	return store, nil
}

func (c *Conf) ListStores(ctx context.Context, createdBy string) ([]Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE created_by = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, query, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var result []Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		result = append(result, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stores: %w", err)
	}
	return result, nil
}

func (c *Conf) UpdateStore(ctx context.Context, id string, us UpdateStore) (Store, error) {
	current, err := c.GetStoreByID(ctx, id)
	if err != nil {
		return Store{}, err
	}

	if us.Name != nil {
		current.Name = *us.Name
	}
	if us.LogoURL != nil {
		current.LogoURL = *us.LogoURL
	}
	if us.ThemeColors != nil {
		current.ThemeColors = *us.ThemeColors
	}
	if us.ContactEmail != nil {
		current.ContactEmail = *us.ContactEmail
	}
	if us.ShippingPolicy != nil {
		current.ShippingPolicy = *us.ShippingPolicy
	}
	if us.TaxRate != nil {
		current.TaxRate = *us.TaxRate
	}

	theme, err := json.Marshal(current.ThemeColors)
	if err != nil {
		return Store{}, fmt.Errorf("failed to encode theme colors: %w", err)
	}

	query := `
		UPDATE stores
		SET name = $1, logo_url = NULLIF($2, ''), theme_colors = $3,
		    contact_email = NULLIF($4, ''), shipping_policy = NULLIF($5, ''),
		    tax_rate = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING ` + storeColumns

	row := c.db.QueryRowContext(ctx, query, current.Name, current.LogoURL, theme,
		current.ContactEmail, current.ShippingPolicy, current.TaxRate, id)
	store, err := scanStore(row)
	if err != nil {
		return Store{}, fmt.Errorf("failed to update store: %w", err)
	}
	return store, nil
}

// UpdateStripeSettings stores the merchant's payment credentials and marks
// the store as connected.
func (c *Conf) UpdateStripeSettings(ctx context.Context, id string, ss StripeSettings) error {
	query := `
		UPDATE stores
		SET stripe_secret_key = $1, stripe_publishable_key = $2,
		    stripe_webhook_secret = $3, stripe_connected = TRUE, updated_at = NOW()
		WHERE id = $4`
	res, err := c.db.ExecContext(ctx, query, ss.SecretKey, ss.PublishableKey, ss.WebhookSecret, id)
	if err != nil {
		return fmt.Errorf("failed to update stripe settings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) DeleteStore(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSlugAvailable checks slug uniqueness, optionally excluding a store that
// is being renamed.
func (c *Conf) IsSlugAvailable(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM stores WHERE slug = $1 AND id <> $2`
	err := c.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check slug availability: %w", err)
	}
	return count == 0, nil
}
