package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no order.
var ErrNotFound = errors.New("order not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
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

// NewOrderNumber mints the customer-facing order reference.
func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// CreatePendingOrder persists the order and its lines in one transaction with
// status pending, carrying the totals computed at payment-intent creation.
func (c *Conf) CreatePendingOrder(ctx context.Context, orderID, campaignID, email, name, phone, paymentIntentID string, priced *PricedOrder) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orders (id, order_number, campaign_id, customer_email, customer_name,
			                    customer_phone, subtotal_cents, tax_cents, total_cents,
			                    stripe_payment_intent_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, 'pending', NOW(), NOW())
			RETURNING ` + orderColumns

		row := tx.QueryRowContext(ctx, query, orderID, NewOrderNumber(), campaignID, email,
			name, phone, priced.SubtotalCents, priced.TaxCents, priced.TotalCents, paymentIntentID)
		var err error
		order, err = scanOrder(row)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return insertItemsTx(ctx, tx, orderID, priced.Lines)
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// ConfirmPaid finalizes an order from the authoritative recompute done at
// webhook time: totals and lines are rewritten from the recomputed values,
// the status moves to completed, and each variant's (and product's)
// total_ordered counter is bumped with an atomic in-place increment so
// concurrent checkouts cannot lose updates.
func (c *Conf) ConfirmPaid(ctx context.Context, paymentIntentID string, priced *PricedOrder) (Order, error) {
	var order Order
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE orders
			SET status = 'completed', subtotal_cents = $1, tax_cents = $2,
			    total_cents = $3, updated_at = NOW()
			WHERE stripe_payment_intent_id = $4 AND status = 'pending'
			RETURNING ` + orderColumns

		row := tx.QueryRowContext(ctx, query, priced.SubtotalCents, priced.TaxCents,
			priced.TotalCents, paymentIntentID)
		var err error
		order, err = scanOrder(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to complete order: %w", err)
		}

		// The webhook recompute wins over whatever was written at intent time.
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}
		if err := insertItemsTx(ctx, tx, order.ID, priced.Lines); err != nil {
			return err
		}

		for _, line := range priced.Lines {
			res, err := tx.ExecContext(ctx, `
				UPDATE variants SET total_ordered = total_ordered + $1, updated_at = NOW()
				WHERE id = $2`, line.Quantity, line.VariantID)
			if err != nil {
				return fmt.Errorf("failed to increment variant counter: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("%w: %s", ErrUnknownVariant, line.VariantID)
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE campaign_products SET total_ordered = total_ordered + $1, updated_at = NOW()
				WHERE id = (SELECT campaign_product_id FROM variants WHERE id = $2)`,
				line.Quantity, line.VariantID)
			if err != nil {
				return fmt.Errorf("failed to increment product counter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.Items, err = c.listItems(ctx, order.ID)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// SetStatusByPaymentIntent moves an order identified by its payment intent to
// the given status, optionally appending a note. Used by the webhook for
// failed, mismatched and refunded payments.
func (c *Conf) SetStatusByPaymentIntent(ctx context.Context, paymentIntentID, status, note string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    notes = CASE WHEN $2 = '' THEN notes
		                 ELSE COALESCE(notes || E'\n', '') || $2 END,
		    updated_at = NOW()
		WHERE stripe_payment_intent_id = $3`, status, note, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus is the admin-facing status transition (fulfillment flow).
func (c *Conf) UpdateStatus(ctx context.Context, orderID, status string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNotes replaces the free-form admin notes on an order.
func (c *Conf) UpdateNotes(ctx context.Context, orderID, notes string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE orders SET notes = NULLIF($1, ''), updated_at = NOW() WHERE id = $2`, notes, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order notes: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const orderColumns = `id, order_number, campaign_id, customer_email, customer_name,
       COALESCE(customer_phone, ''), subtotal_cents, tax_cents, total_cents,
       COALESCE(stripe_payment_intent_id, ''), status, COALESCE(notes, ''),
       created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CampaignID, &o.CustomerEmail, &o.CustomerName,
		&o.CustomerPhone, &o.SubtotalCents, &o.TaxCents, &o.TotalCents,
		&o.StripePaymentIntentID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (c *Conf) GetOrderByID(ctx context.Context, id string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	order.Items, err = c.listItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Conf) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE stripe_payment_intent_id = $1`
	order, err := scanOrder(c.db.QueryRowContext(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order by payment intent: %w", err)
	}
	return order, nil
}

// ListOrders returns a campaign's orders, newest first, optionally filtered
// by status.
func (c *Conf) ListOrders(ctx context.Context, campaignID, status string, limit, offset int) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE campaign_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := c.db.QueryContext(ctx, query, campaignID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return result, nil
}

func (c *Conf) listItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.variant_id, COALESCE(v.sku, ''),
		       COALESCE(oi.customization_value, ''), oi.quantity,
		       oi.unit_price_cents, oi.total_price_cents, oi.created_at
		FROM order_items oi
		LEFT JOIN variants v ON v.id = oi.variant_id
		WHERE oi.order_id = $1
		ORDER BY oi.created_at, oi.id`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.SKU, &it.CustomizationValue,
			&it.Quantity, &it.UnitPriceCents, &it.TotalPriceCents, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID string, lines []PricedLine) error {
	query := `
		INSERT INTO order_items (id, order_id, variant_id, customization_value, quantity,
		                         unit_price_cents, total_price_cents, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW())`
	for _, line := range lines {
		_, err := tx.ExecContext(ctx, query, uuid.NewString(), orderID, line.VariantID,
			line.CustomizationValue, line.Quantity, line.UnitPriceCents, line.LineTotalCents)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}
