// Package models defines the database model types for Order Sentinel.
// Each type corresponds to a database table owned by the order platform.
// Models are pure data types — query logic belongs in the repositories layer,
// detection rules belong in the detection package.
package models

import "time"

// Order statuses as written by the order-placement service. The detection
// engine only ever reads these; it never transitions an order.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusRejected  = "rejected"
	OrderStatusCancelled = "cancelled"
)

// Order represents a purchase order. Read-only for the detection engine.
type Order struct {
	ID          string    `db:"id"`
	OrderNumber string    `db:"order_number"` // Unique human-facing number (e.g. "ORD-2026-000123")
	UserID      string    `db:"user_id"`
	Status      string    `db:"status"`
	TotalAmount float64   `db:"total_amount"` // Non-negative
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	// Joined fields (not stored in the orders table)
	UserName *string `db:"username"` // Owner's username (joined from users table)
}
