package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Store. Orders and their items are written in one
// transaction; order_number carries a unique index so a generator
// collision surfaces as a save error.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const orderColumns = `id, order_number, customer_id, status,
	total_amount, discount_amount, tax_amount, shipping_cost,
	ship_full_name, ship_address_line1, ship_address_line2, ship_city, ship_state, ship_postal_code, ship_country, ship_phone,
	bill_full_name, bill_address_line1, bill_address_line2, bill_city, bill_state, bill_postal_code, bill_country,
	COALESCE(notes, ''), tags, created_at, updated_at, delivered_at`

func (r *Repo) Save(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.ID == 0 {
		err = tx.QueryRow(ctx, `
			INSERT INTO orders(order_number, customer_id, status,
				total_amount, discount_amount, tax_amount, shipping_cost,
				ship_full_name, ship_address_line1, ship_address_line2, ship_city, ship_state, ship_postal_code, ship_country, ship_phone,
				bill_full_name, bill_address_line1, bill_address_line2, bill_city, bill_state, bill_postal_code, bill_country,
				notes, tags, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
			RETURNING id`,
			o.OrderNumber, o.CustomerID, string(o.Status),
			o.TotalAmount, o.DiscountAmount, o.TaxAmount, o.ShippingCost,
			o.ShippingAddress.FullName, o.ShippingAddress.AddressLine1, o.ShippingAddress.AddressLine2,
			o.ShippingAddress.City, o.ShippingAddress.State, o.ShippingAddress.PostalCode,
			o.ShippingAddress.Country, o.ShippingAddress.PhoneNumber,
			o.BillingAddress.FullName, o.BillingAddress.AddressLine1, o.BillingAddress.AddressLine2,
			o.BillingAddress.City, o.BillingAddress.State, o.BillingAddress.PostalCode,
			o.BillingAddress.Country,
			o.Notes, o.Tags, o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range o.Items {
			it := &o.Items[i]
			err = tx.QueryRow(ctx, `
				INSERT INTO order_items(order_id, product_id, product_name, quantity, unit_price, discount_amount, specifications)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
				RETURNING id`,
				o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.DiscountAmount, it.Specifications,
			).Scan(&it.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
	} else {
		// Items are immutable after creation; only the mutable order
		// columns are written back.
		ct, err := tx.Exec(ctx, `
			UPDATE orders
			SET status=$2, notes=$3, updated_at=$4, delivered_at=$5
			WHERE id=$1`,
			o.ID, string(o.Status), o.Notes, o.UpdatedAt, o.DeliveredAt,
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if ct.RowsAffected() != 1 {
			return ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number=$1`, orderNumber)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) FindByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
}

func (r *Repo) FindByStatus(ctx context.Context, status Status) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE status=$1 ORDER BY created_at DESC`, string(status))
}

func (r *Repo) FindByDateRange(ctx context.Context, start, end time.Time) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at DESC`, start, end)
}

func (r *Repo) FindByAmountRange(ctx context.Context, min, max decimal.Decimal) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE total_amount >= $1 AND total_amount <= $2 ORDER BY created_at DESC`, min, max)
}

func (r *Repo) CountByCustomerAndStatus(ctx context.Context, customerID string, status Status) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id=$1 AND status=$2`,
		customerID, string(status)).Scan(&n)
	return n, err
}

func (r *Repo) RevenueSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders
		WHERE status=$1 AND created_at >= $2`,
		string(StatusDelivered), since).Scan(&revenue)
	return revenue, err
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var refs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		refs = append(refs, &out[i])
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, found []*Order) error {
	if len(found) == 0 {
		return nil
	}
	byID := make(map[int64]*Order, len(found))
	ids := make([]int64, 0, len(found))
	for _, o := range found {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, discount_amount, COALESCE(specifications, '')
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		var orderID int64
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.DiscountAmount, &it.Specifications); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &status,
		&o.TotalAmount, &o.DiscountAmount, &o.TaxAmount, &o.ShippingCost,
		&o.ShippingAddress.FullName, &o.ShippingAddress.AddressLine1, &o.ShippingAddress.AddressLine2,
		&o.ShippingAddress.City, &o.ShippingAddress.State, &o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country, &o.ShippingAddress.PhoneNumber,
		&o.BillingAddress.FullName, &o.BillingAddress.AddressLine1, &o.BillingAddress.AddressLine2,
		&o.BillingAddress.City, &o.BillingAddress.State, &o.BillingAddress.PostalCode,
		&o.BillingAddress.Country,
		&o.Notes, &o.Tags, &o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}
