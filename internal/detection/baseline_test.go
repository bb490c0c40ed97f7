package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/db/repositories"
)

func TestPurchaseBaseline_WindowEndsOneHourAgo(t *testing.T) {
	orders := &fakeOrderGateway{
		stats: map[string]repositories.OrderStats{
			"user-1": {Avg: 1000, Max: 2000},
		},
	}
	calc := NewBaselineCalculator(orders, &fakeAuditGateway{}, config.DetectionConfig{})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	stats, err := calc.PurchaseBaseline(context.Background(), "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stats.Avg)
	assert.Equal(t, 2000.0, stats.Max)

	require.Len(t, orders.statsCalls, 1)
	call := orders.statsCalls[0]
	assert.Equal(t, "user-1", call.userID)
	assert.Equal(t, models.OrderStatusApproved, call.status)
	assert.Equal(t, now.Add(-time.Hour), call.to, "baseline must end one hour before now")
	assert.Equal(t, now.Add(-time.Hour).Add(-90*24*time.Hour), call.from,
		"baseline must cover the 90 days before its end")
}

func TestPurchaseBaseline_NoHistoryIsZero(t *testing.T) {
	orders := &fakeOrderGateway{} // no stats configured: zero value back
	calc := NewBaselineCalculator(orders, &fakeAuditGateway{}, config.DetectionConfig{})

	stats, err := calc.PurchaseBaseline(context.Background(), "new-user", time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Avg)
	assert.Zero(t, stats.Max)
}

func TestPurchaseBaseline_GatewayError(t *testing.T) {
	orders := &fakeOrderGateway{statsErr: map[string]error{"user-1": errors.New("db gone")}}
	calc := NewBaselineCalculator(orders, &fakeAuditGateway{}, config.DetectionConfig{})

	_, err := calc.PurchaseBaseline(context.Background(), "user-1", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-1")
}

func TestAccessBaseline_WindowEndsTwoHoursAgo(t *testing.T) {
	audit := &fakeAuditGateway{
		activity: map[string][]*models.AuditEvent{
			"user-1": {
				{Resource: "orders", IPAddress: "10.0.0.1"},
				{Resource: "orders", IPAddress: "10.0.0.1"},
				{Resource: "reports", IPAddress: "10.0.0.2"},
			},
		},
	}
	calc := NewBaselineCalculator(&fakeOrderGateway{}, audit, config.DetectionConfig{})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	baseline, err := calc.AccessBaseline(context.Background(), "user-1", now)
	require.NoError(t, err)

	require.Len(t, audit.activityCalls, 1)
	call := audit.activityCalls[0]
	assert.Equal(t, now.Add(-2*time.Hour), call.to, "baseline must end two hours before now")
	assert.Equal(t, now.Add(-2*time.Hour).Add(-30*24*time.Hour), call.from,
		"baseline must cover the 30 days before its end")

	assert.True(t, baseline.Contains("orders"))
	assert.True(t, baseline.Contains("reports"))
	assert.False(t, baseline.Contains("billing"))
	assert.Equal(t, 2, baseline.IPCounts["10.0.0.1"])
	assert.Equal(t, 1, baseline.IPCounts["10.0.0.2"])
	assert.Zero(t, baseline.IPCounts["10.9.9.9"])
}

func TestAccessBaseline_NoHistoryIsEmpty(t *testing.T) {
	calc := NewBaselineCalculator(&fakeOrderGateway{}, &fakeAuditGateway{}, config.DetectionConfig{})

	baseline, err := calc.AccessBaseline(context.Background(), "new-user", time.Now())
	require.NoError(t, err)
	assert.Empty(t, baseline.Resources)
	assert.Empty(t, baseline.IPCounts)
}

func TestAccessBaseline_GatewayError(t *testing.T) {
	audit := &fakeAuditGateway{activityErr: map[string]error{"user-1": errors.New("db gone")}}
	calc := NewBaselineCalculator(&fakeOrderGateway{}, audit, config.DetectionConfig{})

	_, err := calc.AccessBaseline(context.Background(), "user-1", time.Now())
	require.Error(t, err)
}

func TestBaselineCalculator_ConfiguredWindows(t *testing.T) {
	orders := &fakeOrderGateway{}
	audit := &fakeAuditGateway{}
	calc := NewBaselineCalculator(orders, audit, config.DetectionConfig{
		PurchaseBaselineDays:   7,
		HighValueWindowMinutes: 30,
		AccessBaselineDays:     14,
		AccessWindowHours:      1,
	})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	_, err := calc.PurchaseBaseline(context.Background(), "user-1", now)
	require.NoError(t, err)
	_, err = calc.AccessBaseline(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-30*time.Minute), orders.statsCalls[0].to)
	assert.Equal(t, now.Add(-30*time.Minute).Add(-7*24*time.Hour), orders.statsCalls[0].from)
	assert.Equal(t, now.Add(-time.Hour), audit.activityCalls[0].to)
	assert.Equal(t, now.Add(-time.Hour).Add(-14*24*time.Hour), audit.activityCalls[0].from)
}
