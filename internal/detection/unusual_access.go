// unusual_access.go implements the unusual access detector: authenticated
// activity touching resources or arriving from IPs the user has never used
// before.
package detection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

// UnusualAccessDetector compares each user's recent authenticated activity
// against their access baseline. A resource is unusual when it is absent
// from the baseline resource set; an IP is unusual when its baseline
// frequency is zero. Either kind of novelty produces one medium finding per
// user per sweep.
//
// A user with no baseline at all (new account, or first activity after a
// long silence) has everything flagged, which is intended: their first
// actions deserve review.
type UnusualAccessDetector struct {
	audit     AuditEventGateway
	users     UserGateway
	baselines *BaselineCalculator
	reporter  *Reporter
	window    time.Duration
}

// NewUnusualAccessDetector creates the detector. The evaluation window comes
// from detection.access_window_hours (default 2).
func NewUnusualAccessDetector(audit AuditEventGateway, users UserGateway, baselines *BaselineCalculator, reporter *Reporter, cfg config.DetectionConfig) *UnusualAccessDetector {
	return &UnusualAccessDetector{
		audit:     audit,
		users:     users,
		baselines: baselines,
		reporter:  reporter,
		window:    hoursOrDefault(cfg.AccessWindowHours, 2),
	}
}

func (d *UnusualAccessDetector) Name() string { return "unusual_access" }

// recentActivity is one user's activity inside the evaluation window.
type recentActivity struct {
	resources map[string]struct{}
	ips       map[string]struct{}
}

// Run builds the per-user activity map for the window in one pass, then
// evaluates each active user against their baseline. A failed baseline or
// username lookup affects that user only.
func (d *UnusualAccessDetector) Run(ctx context.Context, now time.Time) error {
	events, err := d.audit.RecentAuthenticatedEvents(ctx, now.Add(-d.window))
	if err != nil {
		return fmt.Errorf("scan recent activity: %w", err)
	}

	byUser := make(map[string]*recentActivity)
	for _, e := range events {
		activity, ok := byUser[*e.UserID]
		if !ok {
			activity = &recentActivity{
				resources: make(map[string]struct{}),
				ips:       make(map[string]struct{}),
			}
			byUser[*e.UserID] = activity
		}
		activity.resources[e.Resource] = struct{}{}
		activity.ips[e.IPAddress] = struct{}{}
	}

	for userID, recent := range byUser {
		baseline, err := d.baselines.AccessBaseline(ctx, userID, now)
		if err != nil {
			slog.Error("unusual-access detector: baseline lookup failed, skipping user",
				"user_id", userID, "error", err)
			continue
		}

		var unusualResources []string
		for resource := range recent.resources {
			if !baseline.Contains(resource) {
				unusualResources = append(unusualResources, resource)
			}
		}
		var unusualIPs []string
		for ip := range recent.ips {
			if baseline.IPCounts[ip] == 0 {
				unusualIPs = append(unusualIPs, ip)
			}
		}

		if len(unusualResources) == 0 && len(unusualIPs) == 0 {
			continue
		}

		// Map iteration order is random; sort so details and alerts are stable.
		sort.Strings(unusualResources)
		sort.Strings(unusualIPs)

		// Best effort: a failed lookup falls back to the raw id.
		username := userID
		if u, err := d.users.GetUserByID(ctx, userID); err == nil && u != nil {
			username = u.Username
		}

		details, err := models.EncodeDetails(models.UnusualAccessDetails{
			Username:         username,
			UnusualResources: unusualResources,
			UnusualIPs:       unusualIPs,
		})
		if err != nil {
			slog.Error("unusual-access detector: could not encode details",
				"user_id", userID, "error", err)
			continue
		}

		uid := userID
		finding := &models.Finding{
			Type:     models.FindingTypeUnusualAccess,
			Severity: models.SeverityMedium,
			UserID:   &uid,
			Details:  details,
		}

		d.reporter.Report(ctx, d.Name(), finding, models.RoleSecurityAdmin, notify.Payload{
			Subject:  fmt.Sprintf("Unusual access pattern for %s", username),
			Severity: models.SeverityMedium,
			Message: fmt.Sprintf(
				"User %s accessed %d new resource(s) and used %d new IP(s) in the last %s compared with their baseline.",
				username, len(unusualResources), len(unusualIPs), d.window),
			Metadata: map[string]string{
				"user_id":           userID,
				"unusual_resources": fmt.Sprintf("%d", len(unusualResources)),
				"unusual_ips":       fmt.Sprintf("%d", len(unusualIPs)),
			},
		})
	}

	return nil
}
