// high_value.go implements the high-value purchase detector: pending orders
// whose amount is far above the owner's own approved-order history.
package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

// HighValueDetector flags pending orders whose total exceeds both 3x the
// user's baseline average and 1.5x the user's baseline maximum. Both bounds
// must be exceeded: the average multiple alone would flag users with volatile
// but established spending, the maximum alone would flag a first slightly
// larger order.
//
// With no approved history the baseline is zero, so any positive amount is
// flagged — a brand-new account immediately placing an order is exactly the
// pattern worth a look.
type HighValueDetector struct {
	orders    OrderGateway
	baselines *BaselineCalculator
	reporter  *Reporter
	window    time.Duration
}

// NewHighValueDetector creates the detector. The scan window comes from
// detection.high_value_window_minutes (default 60).
func NewHighValueDetector(orders OrderGateway, baselines *BaselineCalculator, reporter *Reporter, cfg config.DetectionConfig) *HighValueDetector {
	return &HighValueDetector{
		orders:    orders,
		baselines: baselines,
		reporter:  reporter,
		window:    minutesOrDefault(cfg.HighValueWindowMinutes, 60),
	}
}

func (d *HighValueDetector) Name() string { return "high_purchase" }

// Run scans pending orders of the last window and evaluates each against the
// owner's purchase baseline. A failed baseline lookup skips that order only.
//
// TODO: the per-order baseline query becomes a hotspot once a sweep sees
// thousands of pending orders; batch it per user when that happens.
func (d *HighValueDetector) Run(ctx context.Context, now time.Time) error {
	orders, err := d.orders.RecentPendingOrders(ctx, now.Add(-d.window))
	if err != nil {
		return fmt.Errorf("scan pending orders: %w", err)
	}

	for _, order := range orders {
		stats, err := d.baselines.PurchaseBaseline(ctx, order.UserID, now)
		if err != nil {
			slog.Error("high-value detector: baseline lookup failed, skipping order",
				"order_id", order.ID, "user_id", order.UserID, "error", err)
			continue
		}

		if !(order.TotalAmount > 3*stats.Avg && order.TotalAmount > 1.5*stats.Max) {
			continue
		}

		details, err := models.EncodeDetails(models.HighPurchaseDetails{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Amount:      order.TotalAmount,
			Average:     stats.Avg,
		})
		if err != nil {
			slog.Error("high-value detector: could not encode details",
				"order_id", order.ID, "error", err)
			continue
		}

		username := order.UserID
		if order.UserName != nil && *order.UserName != "" {
			username = *order.UserName
		}

		userID := order.UserID
		finding := &models.Finding{
			Type:     models.FindingTypeHighPurchase,
			Severity: models.SeverityHigh,
			UserID:   &userID,
			Details:  details,
		}

		d.reporter.Report(ctx, d.Name(), finding, models.RolePurchaseAdmin, notify.Payload{
			Subject:  fmt.Sprintf("High-value purchase detected: %s", order.OrderNumber),
			Severity: models.SeverityHigh,
			Message: fmt.Sprintf(
				"Pending order %s by %s totals %.2f, far above the user's historical average of %.2f (max %.2f). Review before approval.",
				order.OrderNumber, username, order.TotalAmount, stats.Avg, stats.Max),
			Metadata: map[string]string{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"user_id":      order.UserID,
				"amount":       fmt.Sprintf("%.2f", order.TotalAmount),
			},
		})
	}

	return nil
}
