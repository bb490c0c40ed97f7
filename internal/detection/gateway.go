// Package detection implements the anomaly detection engine: per-user
// statistical baselines, the three rule-based detectors, and the sweep that
// fans them out. Detectors read through narrow gateway interfaces so the
// rules are testable without a database; the repositories package provides
// the production implementations.
package detection

import (
	"context"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/db/repositories"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

// OrderGateway is the slice of the order repository the detectors consume.
type OrderGateway interface {
	RecentPendingOrders(ctx context.Context, since time.Time) ([]*models.Order, error)
	UserOrderStats(ctx context.Context, userID string, from, to time.Time, status string) (repositories.OrderStats, error)
}

// AuditEventGateway is the slice of the audit event repository the detectors
// consume.
type AuditEventGateway interface {
	GroupedAuthFailures(ctx context.Context, since time.Time, minCount int) ([]*repositories.AuthFailureGroup, error)
	RecentAuthenticatedEvents(ctx context.Context, since time.Time) ([]*models.AuditEvent, error)
	UserActivityBetween(ctx context.Context, userID string, from, to time.Time) ([]*models.AuditEvent, error)
}

// UserGateway resolves users and responder sets.
type UserGateway interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	AdministratorIDs(ctx context.Context, requiredRole string) ([]string, error)
}

// FindingRecorder persists findings. Satisfied by repositories.FindingRepository.
type FindingRecorder interface {
	CreateFinding(ctx context.Context, finding *models.Finding) error
}

// AlertSender dispatches one alert over the requested channels. Satisfied by
// notify.Dispatcher; delivery is fire-and-forget so there is no error return.
type AlertSender interface {
	Send(ctx context.Context, channelNames []string, recipientIDs []string, p notify.Payload)
}

// Detector is one detection rule. Run scans its window anchored at now,
// records findings, and dispatches alerts. A returned error means the scan
// itself failed; per-item failures are handled inside Run.
type Detector interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}
