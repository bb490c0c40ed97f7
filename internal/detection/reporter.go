// reporter.go is the shared record-then-notify path every detector hit goes
// through: persist the finding first, then resolve the responder set and
// dispatch the alert. The finding row is the source of truth — any failure
// past the insert leaves the finding recorded but unnotified.
package detection

import (
	"context"
	"log/slog"

	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/notify"
	"github.com/order-sentinel/order-sentinel/internal/telemetry"
)

// Reporter persists findings and dispatches the corresponding alerts.
type Reporter struct {
	findings FindingRecorder
	users    UserGateway
	alerts   AlertSender
	channels []string
}

// NewReporter creates a Reporter. channels lists the channel ids requested
// for every alert; an empty list disables notification while findings are
// still recorded.
func NewReporter(findings FindingRecorder, users UserGateway, alerts AlertSender, channels []string) *Reporter {
	return &Reporter{findings: findings, users: users, alerts: alerts, channels: channels}
}

// Report records the finding and alerts the active administrators holding
// responderRole. Responder resolution failure and an empty responder set are
// both non-fatal: the finding stays recorded, the alert is skipped.
func (r *Reporter) Report(ctx context.Context, detector string, f *models.Finding, responderRole string, p notify.Payload) {
	if err := r.findings.CreateFinding(ctx, f); err != nil {
		telemetry.DetectorErrorsTotal.WithLabelValues(detector).Inc()
		slog.Error("failed to record finding",
			"detector", detector, "type", f.Type, "error", err)
		return
	}
	telemetry.FindingsTotal.WithLabelValues(f.Type).Inc()
	slog.Info("anomaly finding recorded",
		"detector", detector, "type", f.Type, "severity", f.Severity, "finding_id", f.ID)

	if r.alerts == nil || len(r.channels) == 0 {
		return
	}

	responders, err := r.users.AdministratorIDs(ctx, responderRole)
	if err != nil {
		slog.Error("could not resolve alert responders; finding recorded unnotified",
			"role", responderRole, "finding_id", f.ID, "error", err)
		return
	}
	if len(responders) == 0 {
		slog.Warn("no active responders for role; finding recorded unnotified",
			"role", responderRole, "finding_id", f.ID)
		return
	}

	r.alerts.Send(ctx, r.channels, responders, p)
}
