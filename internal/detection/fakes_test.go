package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/db/repositories"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

// In-memory gateway fakes shared by the detector tests. Each fake records
// the arguments it was called with so tests can assert on windows and
// thresholds, not just on outcomes.

type statsCall struct {
	userID   string
	from, to time.Time
	status   string
}

type fakeOrderGateway struct {
	orders    []*models.Order
	ordersErr error

	stats      map[string]repositories.OrderStats
	statsErr   map[string]error
	statsCalls []statsCall

	pendingSince time.Time
}

func (f *fakeOrderGateway) RecentPendingOrders(_ context.Context, since time.Time) ([]*models.Order, error) {
	f.pendingSince = since
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.orders, nil
}

func (f *fakeOrderGateway) UserOrderStats(_ context.Context, userID string, from, to time.Time, status string) (repositories.OrderStats, error) {
	f.statsCalls = append(f.statsCalls, statsCall{userID: userID, from: from, to: to, status: status})
	if err := f.statsErr[userID]; err != nil {
		return repositories.OrderStats{}, err
	}
	return f.stats[userID], nil
}

type activityCall struct {
	userID   string
	from, to time.Time
}

type fakeAuditGateway struct {
	groups       []*repositories.AuthFailureGroup
	groupsErr    error
	groupsSince  time.Time
	groupsMinCnt int

	recent      []*models.AuditEvent
	recentErr   error
	recentSince time.Time

	activity      map[string][]*models.AuditEvent
	activityErr   map[string]error
	activityCalls []activityCall
}

func (f *fakeAuditGateway) GroupedAuthFailures(_ context.Context, since time.Time, minCount int) ([]*repositories.AuthFailureGroup, error) {
	f.groupsSince = since
	f.groupsMinCnt = minCount
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups, nil
}

func (f *fakeAuditGateway) RecentAuthenticatedEvents(_ context.Context, since time.Time) ([]*models.AuditEvent, error) {
	f.recentSince = since
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeAuditGateway) UserActivityBetween(_ context.Context, userID string, from, to time.Time) ([]*models.AuditEvent, error) {
	f.activityCalls = append(f.activityCalls, activityCall{userID: userID, from: from, to: to})
	if err := f.activityErr[userID]; err != nil {
		return nil, err
	}
	return f.activity[userID], nil
}

type fakeUserGateway struct {
	users     map[string]*models.User
	usersErr  error
	admins    []string
	adminsErr error

	adminCalls []string // requested roles, in order
}

func (f *fakeUserGateway) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users[userID], nil // nil, nil on miss, like the repository
}

func (f *fakeUserGateway) AdministratorIDs(_ context.Context, requiredRole string) ([]string, error) {
	f.adminCalls = append(f.adminCalls, requiredRole)
	if f.adminsErr != nil {
		return nil, f.adminsErr
	}
	return f.admins, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	created []*models.Finding
}

func (f *fakeRecorder) CreateFinding(_ context.Context, finding *models.Finding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	finding.ID = fmt.Sprintf("finding-%d", len(f.created)+1)
	finding.DetectedAt = time.Now()
	f.created = append(f.created, finding)
	return nil
}

func (f *fakeRecorder) findings() []*models.Finding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Finding(nil), f.created...)
}

type sentAlert struct {
	channels   []string
	recipients []string
	payload    notify.Payload
}

type fakeAlerts struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (f *fakeAlerts) Send(_ context.Context, channelNames []string, recipientIDs []string, p notify.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentAlert{channels: channelNames, recipients: recipientIDs, payload: p})
}

func (f *fakeAlerts) alerts() []sentAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentAlert(nil), f.sent...)
}
