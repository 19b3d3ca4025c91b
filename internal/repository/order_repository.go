package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/BizPlanGen/internal/models"
)

// OrderRepository is the MySQL-backed order ledger.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	const query = `
INSERT INTO payment_orders (order_id, session_id, receipt, currency, amount, status, raw_payload)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, order.OrderID, order.SessionID, order.Receipt, order.Currency, order.Amount, order.Status, order.RawPayload)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	order.ID = id
	return nil
}

// FindByOrderID returns nil, nil when the order is unknown.
func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	const query = `
SELECT id, order_id, session_id, receipt, currency, amount, status, COALESCE(payment_id, ''), COALESCE(raw_payload, ''), created_at, COALESCE(updated_at, created_at)
FROM payment_orders WHERE order_id = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

// UpdateStatus moves an order that is not yet paid to status. A paid order is final, so the
// result reports whether this call made the change.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, paymentID, payload string) (bool, error) {
	const query = `
UPDATE payment_orders SET status = ?, payment_id = NULLIF(?, ''), raw_payload = ?, updated_at = NOW()
WHERE order_id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, query, status, paymentID, payload, orderID, models.OrderStatusPaid)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]models.PaymentOrder, error) {
	const query = `
SELECT id, order_id, session_id, receipt, currency, amount, status, COALESCE(payment_id, ''), COALESCE(raw_payload, ''), created_at, COALESCE(updated_at, created_at)
FROM payment_orders ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.PaymentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.PaymentOrder, error) {
	var o models.PaymentOrder
	var status string
	if err := s.Scan(&o.ID, &o.OrderID, &o.SessionID, &o.Receipt, &o.Currency, &o.Amount, &status, &o.PaymentID, &o.RawPayload, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}
