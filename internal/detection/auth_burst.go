// auth_burst.go implements the authentication failure burst detector:
// repeated failed logins from one source against one account (or against no
// particular account) inside a short window.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

// AuthFailureDetector flags (ip, account) pairs whose failed-login count over
// the window strictly exceeds the threshold: exactly threshold failures is
// not a burst, threshold+1 is. Failures that never resolved to an account
// aggregate per IP with a nil user.
type AuthFailureDetector struct {
	audit     AuditEventGateway
	reporter  *Reporter
	window    time.Duration
	threshold int
}

// NewAuthFailureDetector creates the detector. Window and threshold come from
// detection.auth_failure_window_minutes (default 30) and
// detection.auth_failure_threshold (default 5).
func NewAuthFailureDetector(audit AuditEventGateway, reporter *Reporter, cfg config.DetectionConfig) *AuthFailureDetector {
	threshold := cfg.AuthFailureThreshold
	if threshold <= 0 {
		threshold = 5
	}
	return &AuthFailureDetector{
		audit:     audit,
		reporter:  reporter,
		window:    minutesOrDefault(cfg.AuthFailureWindowMinutes, 30),
		threshold: threshold,
	}
}

func (d *AuthFailureDetector) Name() string { return "auth_failure" }

// Run fetches the grouped failure counts for the window and records one
// finding per flagged group.
func (d *AuthFailureDetector) Run(ctx context.Context, now time.Time) error {
	groups, err := d.audit.GroupedAuthFailures(ctx, now.Add(-d.window), d.threshold)
	if err != nil {
		return fmt.Errorf("scan auth failures: %w", err)
	}

	for _, g := range groups {
		// The gateway already filters on the count, but the strict comparison
		// is the rule itself, so it lives here too.
		if g.Count <= d.threshold {
			continue
		}

		details, err := models.EncodeDetails(models.AuthFailureDetails{
			IPAddress: g.IPAddress,
			UserID:    g.UserID,
			Count:     g.Count,
		})
		if err != nil {
			return fmt.Errorf("encode auth failure details: %w", err)
		}

		finding := &models.Finding{
			Type:     models.FindingTypeAuthFailure,
			Severity: models.SeverityHigh,
			UserID:   g.UserID,
			Details:  details,
		}

		target := "unknown account"
		metadata := map[string]string{
			"ip_address": g.IPAddress,
			"count":      fmt.Sprintf("%d", g.Count),
		}
		if g.UserID != nil {
			target = fmt.Sprintf("account %s", *g.UserID)
			metadata["user_id"] = *g.UserID
		}

		d.reporter.Report(ctx, d.Name(), finding, models.RoleSecurityAdmin, notify.Payload{
			Subject:  fmt.Sprintf("Authentication failure burst from %s", g.IPAddress),
			Severity: models.SeverityHigh,
			Message: fmt.Sprintf(
				"%d failed login attempts from %s against %s within the last %s.",
				g.Count, g.IPAddress, target, d.window),
			Metadata: metadata,
		})
	}

	return nil
}
