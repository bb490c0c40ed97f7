// Package repositories implements the data access layer (repository pattern)
// for Order Sentinel. Each repository type encapsulates all database queries
// for a domain entity. Detectors never issue SQL directly — all database
// access goes through this layer, which keeps query logic testable in
// isolation. Every read here is time-windowed and tolerates empty result sets;
// only connectivity/query failures are real errors.
package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
)

// OrderRepository handles read-only order queries
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderStats is an aggregate over a user's order history. Zero values mean
// "no matching orders", not an error.
type OrderStats struct {
	Avg float64 `db:"avg_total"`
	Max float64 `db:"max_total"`
}

// RecentPendingOrders returns pending orders created at or after since, each
// joined with the owning user's username for alert payloads.
func (r *OrderRepository) RecentPendingOrders(ctx context.Context, since time.Time) ([]*models.Order, error) {
	query := `
		SELECT o.id, o.order_number, o.user_id, o.status, o.total_amount,
		       o.created_at, o.updated_at, u.username
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.status = $1 AND o.created_at >= $2
		ORDER BY o.created_at
	`

	orders := make([]*models.Order, 0)
	if err := r.db.SelectContext(ctx, &orders, query, models.OrderStatusPending, since); err != nil {
		return nil, err
	}
	return orders, nil
}

// UserOrderStats returns the average and maximum order total for a user over
// orders with the given status created within [from, to). An empty window
// yields zero values.
func (r *OrderRepository) UserOrderStats(ctx context.Context, userID string, from, to time.Time, status string) (OrderStats, error) {
	query := `
		SELECT COALESCE(AVG(total_amount), 0) AS avg_total,
		       COALESCE(MAX(total_amount), 0) AS max_total
		FROM orders
		WHERE user_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	`

	var stats OrderStats
	if err := r.db.GetContext(ctx, &stats, query, userID, status, from, to); err != nil {
		return OrderStats{}, err
	}
	return stats, nil
}
