package products

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
	// ErrNotFound is returned when a lookup matches no product or variant.
	ErrNotFound = errors.New("product not found")
	// ErrVersionConflict is returned when a variant regeneration races a
	// concurrent edit of the same product's option groups.
	ErrVersionConflict = errors.New("product was modified concurrently")
	// ErrVariantsInUse is returned when regeneration or deletion would remove
	// variants that already appear on order lines.
	ErrVariantsInUse = errors.New("variants are referenced by existing orders")
)

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// skuInsertAttempts bounds retries when the random SKU suffix collides with
// an existing row.
const skuInsertAttempts = 3

type Conf struct {
	db      *sql.DB
	ceiling int
}

func NewConf(db *sql.DB, variantCeiling int) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if variantCeiling <= 0 {
		variantCeiling = DefaultVariantCeiling
	}
	return &Conf{db: db, ceiling: variantCeiling}, nil
}

// VariantCeiling exposes the configured matrix size bound.
func (c *Conf) VariantCeiling() int {
	return c.ceiling
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}

const productColumns = `id, campaign_id, title, COALESCE(description, ''), base_price_cents,
       COALESCE(category, ''), images, variant_groups, customization_config, status,
       sort_order, total_ordered, price_review_needed, version, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var images, groups, custom []byte
	err := row.Scan(&p.ID, &p.CampaignID, &p.Title, &p.Description, &p.BasePriceCents,
		&p.Category, &images, &groups, &custom, &p.Status, &p.SortOrder, &p.TotalOrdered,
		&p.PriceReviewNeeded, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return Product{}, fmt.Errorf("failed to decode images: %w", err)
	}
	if err := json.Unmarshal(groups, &p.VariantGroups); err != nil {
		return Product{}, fmt.Errorf("failed to decode variant groups: %w", err)
	}
	if len(custom) > 0 && string(custom) != "{}" {
		if err := json.Unmarshal(custom, &p.Customization); err != nil {
			return Product{}, fmt.Errorf("failed to decode customization config: %w", err)
		}
	}
	return p, nil
}

// InsertProduct creates the product and its full variant matrix in one
// transaction. Any combination that clamped to zero marks the product for
// price review.
func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	if err := ValidateGroups(np.VariantGroups); err != nil {
		return Product{}, err
	}
	variants, err := GenerateVariants(np.VariantGroups, np.BasePriceCents, c.ceiling)
	if err != nil {
		return Product{}, err
	}

	images, groups, custom, err := encodeProductJSON(np.Images, np.VariantGroups, np.Customization)
	if err != nil {
		return Product{}, err
	}

	var product Product
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO campaign_products (id, campaign_id, title, description, base_price_cents,
			                               category, images, variant_groups, customization_config,
			                               status, sort_order, total_ordered, price_review_needed,
			                               version, created_at, updated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $9,
			        'active', 0, 0, $10, 1, NOW(), NOW())
			RETURNING ` + productColumns

		row := tx.QueryRowContext(ctx, query, uuid.NewString(), np.CampaignID, np.Title,
			np.Description, np.BasePriceCents, np.Category, images, groups, custom,
			anyClamped(variants))
		product, err = scanProduct(row)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}

		return insertVariantsTx(ctx, tx, product.ID, variants)
	})
	if err != nil {
		return Product{}, err
	}
	return product, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM campaign_products WHERE id = $1`
	product, err := scanProduct(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return product, nil
}

// ListProducts returns a campaign's products ordered for the storefront.
// Hidden products are excluded unless includeHidden is set (admin views).
func (c *Conf) ListProducts(ctx context.Context, campaignID string, includeHidden bool, limit, offset int) ([]Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM campaign_products
		WHERE campaign_id = $1 AND ($2 OR status <> 'hidden')
		ORDER BY sort_order, created_at
		LIMIT $3 OFFSET $4`
	rows, err := c.db.QueryContext(ctx, query, campaignID, includeHidden, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result = append(result, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return result, nil
}

// UpdateProduct applies the given changes. When the option groups or the base
// price change, the entire variant set is regenerated and bulk-replaced in the
// same transaction, guarded by the product version so two admins cannot race
// to produce inconsistent matrices.
func (c *Conf) UpdateProduct(ctx context.Context, id string, expectedVersion int64, up UpdateProduct) (Product, error) {
	current, err := c.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if current.Version != expectedVersion {
		return Product{}, ErrVersionConflict
	}

	regenerate := up.VariantGroups != nil || up.BasePriceCents != nil

	if up.Title != nil {
		current.Title = *up.Title
	}
	if up.Description != nil {
		current.Description = *up.Description
	}
	if up.BasePriceCents != nil {
		current.BasePriceCents = *up.BasePriceCents
	}
	if up.Category != nil {
		current.Category = *up.Category
	}
	if up.Images != nil {
		current.Images = *up.Images
	}
	if up.VariantGroups != nil {
		current.VariantGroups = *up.VariantGroups
	}
	if up.Customization != nil {
		current.Customization = *up.Customization
	}
	if up.Status != nil {
		current.Status = *up.Status
	}
	if up.SortOrder != nil {
		current.SortOrder = *up.SortOrder
	}

	var variants []Variant
	if regenerate {
		if err := ValidateGroups(current.VariantGroups); err != nil {
			return Product{}, err
		}
		variants, err = GenerateVariants(current.VariantGroups, current.BasePriceCents, c.ceiling)
		if err != nil {
			return Product{}, err
		}
		current.PriceReviewNeeded = anyClamped(variants)
	}

	images, groups, custom, err := encodeProductJSON(current.Images, current.VariantGroups, current.Customization)
	if err != nil {
		return Product{}, err
	}

	var updated Product
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE campaign_products
			SET title = $1, description = NULLIF($2, ''), base_price_cents = $3,
			    category = NULLIF($4, ''), images = $5, variant_groups = $6,
			    customization_config = $7, status = $8, sort_order = $9,
			    price_review_needed = $10, version = version + 1, updated_at = NOW()
			WHERE id = $11 AND version = $12
			RETURNING ` + productColumns

		row := tx.QueryRowContext(ctx, query, current.Title, current.Description,
			current.BasePriceCents, current.Category, images, groups, custom,
			current.Status, current.SortOrder, current.PriceReviewNeeded, id, expectedVersion)
		updated, err = scanProduct(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrVersionConflict
			}
			return fmt.Errorf("failed to update product: %w", err)
		}

		if !regenerate {
			return nil
		}

		// Bulk replace: stale variants must never coexist with the new set.
		// Once an order line references a variant the FK blocks the delete;
		// surface that as a typed conflict instead of a generic failure.
		if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE campaign_product_id = $1`, id); err != nil {
			if isForeignKeyViolation(err) {
				return ErrVariantsInUse
			}
			return fmt.Errorf("failed to delete stale variants: %w", err)
		}
		return insertVariantsTx(ctx, tx, id, variants)
	})
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

func (c *Conf) DeleteProduct(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM campaign_products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrVariantsInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const variantColumns = `id, campaign_product_id, sku, option_combo, price_cents,
       COALESCE(image_url, ''), total_ordered, created_at, updated_at`

func scanVariant(row interface{ Scan(...any) error }) (Variant, error) {
	var v Variant
	var combo []byte
	err := row.Scan(&v.ID, &v.CampaignProductID, &v.SKU, &combo, &v.PriceCents,
		&v.ImageURL, &v.TotalOrdered, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Variant{}, err
	}
	if err := json.Unmarshal(combo, &v.OptionCombo); err != nil {
		return Variant{}, fmt.Errorf("failed to decode option combo: %w", err)
	}
	return v, nil
}

func (c *Conf) ListVariants(ctx context.Context, productID string) ([]Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM variants WHERE campaign_product_id = $1 ORDER BY sku`
	rows, err := c.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var result []Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return result, nil
}

// UpdateVariantImage changes the only mutable variant field. Price edits are
// deliberately unsupported; repricing goes through variant regeneration.
func (c *Conf) UpdateVariantImage(ctx context.Context, id, imageURL string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE variants SET image_url = NULLIF($1, ''), updated_at = NOW() WHERE id = $2`,
		imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update variant image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// VariantForPricing fetches a variant together with its owning product's
// customization config and campaign id. This is the read the pricing engine
// performs per cart line; see orders.VariantCatalog.
func (c *Conf) VariantForPricing(ctx context.Context, variantID string) (Variant, CustomizationConfig, string, error) {
	query := `
		SELECT v.id, v.campaign_product_id, v.sku, v.option_combo, v.price_cents,
		       COALESCE(v.image_url, ''), v.total_ordered, v.created_at, v.updated_at,
		       p.customization_config, p.campaign_id
		FROM variants v
		JOIN campaign_products p ON p.id = v.campaign_product_id
		WHERE v.id = $1`

	var v Variant
	var combo, custom []byte
	var campaignID string
	err := c.db.QueryRowContext(ctx, query, variantID).Scan(&v.ID, &v.CampaignProductID,
		&v.SKU, &combo, &v.PriceCents, &v.ImageURL, &v.TotalOrdered, &v.CreatedAt,
		&v.UpdatedAt, &custom, &campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Variant{}, CustomizationConfig{}, "", ErrNotFound
		}
		return Variant{}, CustomizationConfig{}, "", fmt.Errorf("failed to query variant for pricing: %w", err)
	}
	if err := json.Unmarshal(combo, &v.OptionCombo); err != nil {
		return Variant{}, CustomizationConfig{}, "", fmt.Errorf("failed to decode option combo: %w", err)
	}
	var cc CustomizationConfig
	if len(custom) > 0 && string(custom) != "{}" {
		if err := json.Unmarshal(custom, &cc); err != nil {
			return Variant{}, CustomizationConfig{}, "", fmt.Errorf("failed to decode customization config: %w", err)
		}
	}
	return v, cc, campaignID, nil
}

func insertVariantsTx(ctx context.Context, tx *sql.Tx, productID string, variants []Variant) error {
	// ON CONFLICT DO NOTHING keeps a suffix collision from aborting the whole
	// transaction; an unaffected row means the SKU was taken and we retry with
	// a fresh suffix.
	query := `
		INSERT INTO variants (id, campaign_product_id, sku, option_combo, price_cents,
		                      image_url, total_ordered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), 0, NOW(), NOW())
		ON CONFLICT (campaign_product_id, sku) DO NOTHING`

	for i := range variants {
		v := &variants[i]
		combo, err := json.Marshal(v.OptionCombo)
		if err != nil {
			return fmt.Errorf("failed to encode option combo: %w", err)
		}

		inserted := false
		for attempt := 0; attempt < skuInsertAttempts; attempt++ {
			res, err := tx.ExecContext(ctx, query, uuid.NewString(), productID, v.SKU,
				combo, v.PriceCents, v.ImageURL)
			if err != nil {
				return fmt.Errorf("failed to insert variant %s: %w", v.SKU, err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				inserted = true
				break
			}
			v.SKU = ReissueSKU(v.SKU)
		}
		if !inserted {
			return fmt.Errorf("failed to insert variant after %d sku attempts", skuInsertAttempts)
		}
	}
	return nil
}

func anyClamped(variants []Variant) bool {
	for _, v := range variants {
		if v.PriceClamped {
			return true
		}
	}
	return false
}

func encodeProductJSON(images []string, groups []VariantGroup, custom CustomizationConfig) ([]byte, []byte, []byte, error) {
	if images == nil {
		images = []string{}
	}
	if groups == nil {
		groups = []VariantGroup{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode images: %w", err)
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode variant groups: %w", err)
	}
	customJSON, err := json.Marshal(custom)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode customization config: %w", err)
	}
	return imagesJSON, groupsJSON, customJSON, nil
}
