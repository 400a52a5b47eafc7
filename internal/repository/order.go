package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camelia-studio/camelia/internal/domain/coupon"
	"github.com/camelia-studio/camelia/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, order_number, tracking_code, user_id,
		customer_name, customer_email, customer_phone, shipping_address, billing_address,
		shipping_method, coupon_id, coupon_code, subtotal, discount, shipping_cost, total,
		status, tracking_number, cancellation_reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	// The stock guard: zero rows affected means the product cannot cover
	// the quantity, and the enclosing transaction rolls back in full.
	decrementStockSQL = `UPDATE products
		SET stock = stock - $2, sales_count = sales_count + $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	restoreStockSQL = `UPDATE products
		SET stock = stock + $2, sales_count = sales_count - $2, updated_at = now()
		WHERE id = $1`

	selectStockSQL = `SELECT stock FROM products WHERE id = $1`

	// The usage-cap guard: zero rows affected means the cap was consumed
	// by a concurrent order after validation.
	incrementCouponUsageSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`

	orderColumns = `id, order_number, tracking_code, COALESCE(user_id, ''),
		customer_name, customer_email, customer_phone, shipping_address, billing_address,
		shipping_method, COALESCE(coupon_id::text, ''), coupon_code, subtotal, discount,
		shipping_cost, total, status, tracking_number, cancellation_reason, notes,
		created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByTrackingSQL = `SELECT ` + orderColumns + ` FROM orders WHERE tracking_code = $1`

	getOrderItemsSQL = `SELECT product_id, quantity, unit_price FROM order_items
		WHERE order_id = $1 ORDER BY product_id`

	updateOrderSQL = `UPDATE orders SET status = $2, tracking_number = $3,
		cancellation_reason = $4, notes = $5, updated_at = $6 WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// order row, its items, the stock decrements, and the coupon usage increment
// commit or roll back as one unit.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order atomically with its stock decrements and coupon
// usage increment. A failed stock condition surfaces as
// order.InsufficientStockError, a failed coupon condition as
// coupon.ErrUsageLimitReached; either rolls back the whole order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, o.TrackingCode, o.UserID,
			o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.ShippingAddress, o.BillingAddress, o.ShippingMethod,
			o.CouponID, o.CouponCode,
			o.Subtotal, o.Discount, o.ShippingCost, o.Total,
			string(o.Status), o.TrackingNumber, o.CancellationReason, o.Notes,
			o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		for _, item := range o.Items {
			tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", item.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				available := 0
				// Best effort: report the stock the loser saw.
				_ = tx.QueryRow(ctx, selectStockSQL, item.ProductID).Scan(&available)
				return &order.InsufficientStockError{
					ProductID: item.ProductID,
					Available: available,
				}
			}

			_, err = tx.Exec(ctx, insertOrderItemSQL,
				uuid.New().String(), o.ID, item.ProductID, item.Quantity, item.UnitPrice,
			)
			if err != nil {
				return fmt.Errorf("inserting order item for %q: %w", item.ProductID, err)
			}
		}

		if o.CouponID != "" {
			tag, err := tx.Exec(ctx, incrementCouponUsageSQL, o.CouponID)
			if err != nil {
				return fmt.Errorf("incrementing coupon usage: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return coupon.ErrUsageLimitReached
			}
		}

		return nil
	})
	if err != nil {
		return mapOrderWriteError(err, o.ID)
	}
	return nil
}

func mapOrderWriteError(err error, id string) error {
	var stockErr *order.InsufficientStockError
	if errors.As(err, &stockErr) || errors.Is(err, coupon.ErrUsageLimitReached) ||
		errors.Is(err, order.ErrNotFound) {
		return err
	}
	return fmt.Errorf("writing order %q: %w", id, err)
}

// GetByID returns an order with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

// GetByTrackingCode returns an order by its public tracking code.
func (r *OrderRepository) GetByTrackingCode(ctx context.Context, code string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByTrackingSQL, code)
}

func (r *OrderRepository) getOne(ctx context.Context, query, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	return &o, nil
}

// Update persists the order's mutable fields.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), o.TrackingNumber, o.CancellationReason, o.Notes, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// CancelRestoringStock marks the order CANCELLED and returns every line
// item's quantity to stock in one transaction.
func (r *OrderRepository) CancelRestoringStock(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, restoreStockSQL, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restoring stock for %q: %w", item.ProductID, err)
			}
		}
		tag, err := tx.Exec(ctx, updateOrderSQL,
			o.ID, string(o.Status), o.TrackingNumber, o.CancellationReason, o.Notes, o.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapOrderWriteError(err, o.ID)
	}
	return nil
}

// DeleteRestoringStock removes the order after returning every line item's
// quantity to stock, in one transaction. Items go away via ON DELETE CASCADE.
func (r *OrderRepository) DeleteRestoringStock(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		itemRows, err := tx.Query(ctx, getOrderItemsSQL, id)
		if err != nil {
			return fmt.Errorf("getting order items: %w", err)
		}
		items, err := pgx.CollectRows(itemRows, scanOrderItem)
		if err != nil {
			return fmt.Errorf("getting order items: %w", err)
		}

		for _, item := range items {
			if _, err := tx.Exec(ctx, restoreStockSQL, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restoring stock for %q: %w", item.ProductID, err)
			}
		}

		tag, err := tx.Exec(ctx, deleteOrderSQL, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapOrderWriteError(err, id)
	}
	return nil
}

// Delete removes the order without restoring stock. Used for cancelled
// orders, whose quantities already went back when they were cancelled.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.TrackingCode, &o.UserID,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.BillingAddress, &o.ShippingMethod,
		&o.CouponID, &o.CouponCode,
		&o.Subtotal, &o.Discount, &o.ShippingCost, &o.Total,
		&status, &o.TrackingNumber, &o.CancellationReason, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item order.Item
		qty  int32
	)
	err := row.Scan(&item.ProductID, &qty, &item.UnitPrice)
	item.Quantity = int(qty)
	return item, err
}
