// audit_event_repository.go implements AuditEventRepository, the read-only
// gateway over the platform's append-only audit trail: windowed scans plus the
// grouped failed-login aggregate the burst detector consumes.
package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
)

// AuditEventRepository handles read-only audit event queries
type AuditEventRepository struct {
	db *sqlx.DB
}

// NewAuditEventRepository creates a new AuditEventRepository
func NewAuditEventRepository(db *sqlx.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// AuthFailureGroup is one (ip, user) group of failed login attempts. UserID
// is nil when the failures targeted an unknown or unauthenticated account;
// those still aggregate per IP.
type AuthFailureGroup struct {
	IPAddress string  `db:"ip_address"`
	UserID    *string `db:"user_id"`
	Count     int     `db:"failure_count"`
}

// GroupedAuthFailures groups failed login events (action contains "login",
// status >= 400) since the given time by (ip, user) and returns only groups
// whose count strictly exceeds minCount.
func (r *AuditEventRepository) GroupedAuthFailures(ctx context.Context, since time.Time, minCount int) ([]*AuthFailureGroup, error) {
	query := `
		SELECT ip_address, user_id, COUNT(*) AS failure_count
		FROM audit_events
		WHERE action LIKE '%login%' AND status_code >= 400 AND created_at >= $1
		GROUP BY ip_address, user_id
		HAVING COUNT(*) > $2
		ORDER BY failure_count DESC
	`

	groups := make([]*AuthFailureGroup, 0)
	if err := r.db.SelectContext(ctx, &groups, query, since, minCount); err != nil {
		return nil, err
	}
	return groups, nil
}

// RecentAuthenticatedEvents returns audit events with a known actor created
// at or after since, newest first.
func (r *AuditEventRepository) RecentAuthenticatedEvents(ctx context.Context, since time.Time) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, tenant_id, user_id, action, resource, resource_id,
		       ip_address, status_code, severity, created_at
		FROM audit_events
		WHERE user_id IS NOT NULL AND created_at >= $1
		ORDER BY created_at DESC
	`

	events := make([]*models.AuditEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, since); err != nil {
		return nil, err
	}
	return events, nil
}

// UserActivityBetween returns a user's audit events created within [from, to).
func (r *AuditEventRepository) UserActivityBetween(ctx context.Context, userID string, from, to time.Time) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, tenant_id, user_id, action, resource, resource_id,
		       ip_address, status_code, severity, created_at
		FROM audit_events
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`

	events := make([]*models.AuditEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, userID, from, to); err != nil {
		return nil, err
	}
	return events, nil
}
