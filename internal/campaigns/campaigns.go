package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no campaign.
	ErrNotFound = errors.New("campaign not found")
	// ErrSlugTaken is returned when the slug is already used within the store.
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

const campaignColumns = `id, store_id, slug, name, status, opens_at, closes_at, ships_at,
       ship_to_name, ship_to_address, COALESCE(ship_to_phone, ''),
       COALESCE(custom_message, ''), created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (Campaign, error) {
	var cm Campaign
	err := row.Scan(&cm.ID, &cm.StoreID, &cm.Slug, &cm.Name, &cm.Status, &cm.OpensAt,
		&cm.ClosesAt, &cm.ShipsAt, &cm.ShipToName, &cm.ShipToAddress, &cm.ShipToPhone,
		&cm.CustomMessage, &cm.CreatedAt, &cm.UpdatedAt)
	return cm, err
}

func (c *Conf) InsertCampaign(ctx context.Context, nc NewCampaign) (Campaign, error) {
	query := `
		INSERT INTO campaigns (id, store_id, slug, name, status, opens_at, closes_at, ships_at,
		                       ship_to_name, ship_to_address, ship_to_phone, custom_message,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'draft', $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NOW(), NOW())
		RETURNING ` + campaignColumns

	row := c.db.QueryRowContext(ctx, query, uuid.NewString(), nc.StoreID, nc.Slug, nc.Name,
		nc.OpensAt, nc.ClosesAt, nc.ShipsAt, nc.ShipToName, nc.ShipToAddress,
		nc.ShipToPhone, nc.CustomMessage)
	campaign, err := scanCampaign(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Campaign{}, ErrSlugTaken
		}
		return Campaign{}, fmt.Errorf("failed to insert campaign: %w", err)
	}
	return campaign, nil
}

func (c *Conf) GetCampaignByID(ctx context.Context, id string) (Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	campaign, err := scanCampaign(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("failed to query campaign: %w", err)
	}
	return campaign, nil
}

// GetCampaignBySlug resolves a campaign within a store, the public
// storefront path /:storeSlug/:campaignSlug.
func (c *Conf) GetCampaignBySlug(ctx context.Context, storeID, slug string) (Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE store_id = $1 AND slug = $2`
	campaign, err := scanCampaign(c.db.QueryRowContext(ctx, query, storeID, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("failed to query campaign by slug: %w", err)
	}
	return campaign, nil
}

func (c *Conf) ListCampaigns(ctx context.Context, storeID string) ([]Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE store_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var result []Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		result = append(result, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return result, nil
}

func (c *Conf) UpdateCampaign(ctx context.Context, id string, uc UpdateCampaign) (Campaign, error) {
	current, err := c.GetCampaignByID(ctx, id)
	if err != nil {
		return Campaign{}, err
	}

	if uc.Name != nil {
		current.Name = *uc.Name
	}
	if uc.Status != nil {
		current.Status = *uc.Status
	}
	if uc.OpensAt != nil {
		current.OpensAt = *uc.OpensAt
	}
	if uc.ClosesAt != nil {
		current.ClosesAt = *uc.ClosesAt
	}
	if uc.ShipsAt != nil {
		current.ShipsAt = *uc.ShipsAt
	}
	if uc.ShipToName != nil {
		current.ShipToName = *uc.ShipToName
	}
	if uc.ShipToAddress != nil {
		current.ShipToAddress = *uc.ShipToAddress
	}
	if uc.ShipToPhone != nil {
		current.ShipToPhone = *uc.ShipToPhone
	}
	if uc.CustomMessage != nil {
		current.CustomMessage = *uc.CustomMessage
	}

	if !current.OpensAt.Before(current.ClosesAt) || !current.ClosesAt.Before(current.ShipsAt) {
		return Campaign{}, fmt.Errorf("campaign dates must satisfy opens_at < closes_at < ships_at")
	}

	query := `
		UPDATE campaigns
		SET name = $1, status = $2, opens_at = $3, closes_at = $4, ships_at = $5,
		    ship_to_name = $6, ship_to_address = $7, ship_to_phone = NULLIF($8, ''),
		    custom_message = NULLIF($9, ''), updated_at = NOW()
		WHERE id = $10
		RETURNING ` + campaignColumns

	row := c.db.QueryRowContext(ctx, query, current.Name, current.Status, current.OpensAt,
		current.ClosesAt, current.ShipsAt, current.ShipToName, current.ShipToAddress,
		current.ShipToPhone, current.CustomMessage, id)
	campaign, err := scanCampaign(row)
	if err != nil {
		return Campaign{}, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

func (c *Conf) DeleteCampaign(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshStatuses applies the time-based transitions in bulk: draft
// campaigns whose window has opened become active, active campaigns whose
// window has closed become closed. Returns how many rows moved in each
// direction.
func (c *Conf) RefreshStatuses(ctx context.Context, now time.Time) (activated, closed int64, err error) {
	res, err := c.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'active', updated_at = NOW()
		WHERE status = 'draft' AND opens_at <= $1 AND closes_at > $1`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to activate campaigns: %w", err)
	}
	activated, _ = res.RowsAffected()

	res, err = c.db.ExecContext(ctx, `
		UPDATE campaigns SET status = 'closed', updated_at = NOW()
		WHERE (status = 'active' OR status = 'draft') AND closes_at <= $1`, now)
	if err != nil {
		return activated, 0, fmt.Errorf("failed to close campaigns: %w", err)
	}
	closed, _ = res.RowsAffected()
	return activated, closed, nil
}
