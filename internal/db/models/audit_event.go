// Package models - audit_event.go defines the AuditEvent model for the
// append-only request audit trail produced by the platform's HTTP layer.
package models

import (
	"strings"
	"time"
)

// AuditEvent represents one audited request. Append-only; the detection
// engine only reads these.
type AuditEvent struct {
	ID         string    `db:"id"`
	TenantID   *string   `db:"tenant_id"` // Nullable: single-tenant deployments leave this empty
	UserID     *string   `db:"user_id"`   // Nullable: unauthenticated requests have no actor
	Action     string    `db:"action"`    // May encode a sub-action, e.g. "auth.login"
	Resource   string    `db:"resource"`  // Resource name, e.g. "orders"
	ResourceID *string   `db:"resource_id"`
	IPAddress  string    `db:"ip_address"`
	StatusCode int       `db:"status_code"`
	Severity   string    `db:"severity"`
	CreatedAt  time.Time `db:"created_at"`
}

// IsAuthFailure reports whether the event is a failed login attempt.
// Failures against unknown accounts still count — UserID stays nil and the
// burst detector aggregates them per IP.
func (e *AuditEvent) IsAuthFailure() bool {
	return strings.Contains(e.Action, "login") && e.StatusCode >= 400
}
