// baseline.go computes the per-user historical baselines the detectors
// compare current activity against. Both baselines deliberately end before
// the detection window begins, so the activity under evaluation never feeds
// the statistics it is judged by.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/db/repositories"
)

// AccessBaseline summarises a user's historical access pattern: the set of
// resources they touched and how often each source IP appeared.
type AccessBaseline struct {
	Resources map[string]struct{}
	IPCounts  map[string]int
}

// Contains reports whether the resource appears in the baseline.
func (b *AccessBaseline) Contains(resource string) bool {
	_, ok := b.Resources[resource]
	return ok
}

// BaselineCalculator derives baselines from the gateways. It holds no state
// between calls; every baseline is computed fresh from the store.
type BaselineCalculator struct {
	orders OrderGateway
	audit  AuditEventGateway

	purchaseWindow time.Duration // lookback for the purchase baseline
	purchaseLag    time.Duration // gap between baseline end and now
	accessWindow   time.Duration // lookback for the access baseline
	accessLag      time.Duration // gap between baseline end and now
}

// NewBaselineCalculator creates a calculator with windows taken from the
// detection configuration; non-positive values fall back to the reference
// windows (90-day purchase history ending one hour ago, 30-day access
// history ending two hours ago).
func NewBaselineCalculator(orders OrderGateway, audit AuditEventGateway, cfg config.DetectionConfig) *BaselineCalculator {
	return &BaselineCalculator{
		orders:         orders,
		audit:          audit,
		purchaseWindow: daysOrDefault(cfg.PurchaseBaselineDays, 90),
		purchaseLag:    minutesOrDefault(cfg.HighValueWindowMinutes, 60),
		accessWindow:   daysOrDefault(cfg.AccessBaselineDays, 30),
		accessLag:      hoursOrDefault(cfg.AccessWindowHours, 2),
	}
}

// PurchaseBaseline returns the average and maximum total of the user's
// approved orders over the baseline window ending one detection window ago.
// A user with no approved history gets zero statistics, which the high-value
// rule treats as "any positive amount is anomalous".
func (c *BaselineCalculator) PurchaseBaseline(ctx context.Context, userID string, now time.Time) (repositories.OrderStats, error) {
	to := now.Add(-c.purchaseLag)
	from := to.Add(-c.purchaseWindow)

	stats, err := c.orders.UserOrderStats(ctx, userID, from, to, models.OrderStatusApproved)
	if err != nil {
		return repositories.OrderStats{}, fmt.Errorf("purchase baseline for user %s: %w", userID, err)
	}
	return stats, nil
}

// AccessBaseline returns the user's historical resource set and IP frequency
// map over the baseline window ending one detection window ago. A user with
// no history gets empty sets, so everything recent is unusual.
func (c *BaselineCalculator) AccessBaseline(ctx context.Context, userID string, now time.Time) (*AccessBaseline, error) {
	to := now.Add(-c.accessLag)
	from := to.Add(-c.accessWindow)

	events, err := c.audit.UserActivityBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("access baseline for user %s: %w", userID, err)
	}

	baseline := &AccessBaseline{
		Resources: make(map[string]struct{}),
		IPCounts:  make(map[string]int),
	}
	for _, e := range events {
		baseline.Resources[e.Resource] = struct{}{}
		baseline.IPCounts[e.IPAddress]++
	}
	return baseline, nil
}

func daysOrDefault(days, def int) time.Duration {
	if days <= 0 {
		days = def
	}
	return time.Duration(days) * 24 * time.Hour
}

func hoursOrDefault(hours, def int) time.Duration {
	if hours <= 0 {
		hours = def
	}
	return time.Duration(hours) * time.Hour
}

func minutesOrDefault(minutes, def int) time.Duration {
	if minutes <= 0 {
		minutes = def
	}
	return time.Duration(minutes) * time.Minute
}
