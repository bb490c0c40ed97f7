package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/order-sentinel/order-sentinel/internal/db/models"
	"github.com/order-sentinel/order-sentinel/internal/notify"
)

func testFinding() *models.Finding {
	return &models.Finding{
		Type:     models.FindingTypeAuthFailure,
		Severity: models.SeverityHigh,
	}
}

func testPayload() notify.Payload {
	return notify.Payload{Subject: "subject", Message: "message", Severity: models.SeverityHigh}
}

func TestReport_RecordsThenNotifies(t *testing.T) {
	recorder := &fakeRecorder{}
	alerts := &fakeAlerts{}
	users := &fakeUserGateway{admins: []string{"sec-1", "sec-2"}}
	r := NewReporter(recorder, users, alerts, []string{"email", "inapp"})

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	require.Len(t, recorder.findings(), 1)
	sent := alerts.alerts()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"email", "inapp"}, sent[0].channels)
	assert.Equal(t, []string{"sec-1", "sec-2"}, sent[0].recipients)
}

func TestReport_RecordFailureSkipsNotification(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("insert failed")}
	alerts := &fakeAlerts{}
	users := &fakeUserGateway{admins: []string{"sec-1"}}
	r := NewReporter(recorder, users, alerts, []string{"email"})

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	assert.Empty(t, recorder.findings())
	assert.Empty(t, alerts.alerts(), "an unrecorded finding must not be alerted")
}

// An organisation with no one holding the responder role still gets the
// finding recorded; there is just no one to tell.
func TestReport_EmptyResponderSet(t *testing.T) {
	recorder := &fakeRecorder{}
	alerts := &fakeAlerts{}
	users := &fakeUserGateway{admins: []string{}}
	r := NewReporter(recorder, users, alerts, []string{"email"})

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	require.Len(t, recorder.findings(), 1)
	assert.Empty(t, alerts.alerts())
}

func TestReport_ResponderLookupFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	alerts := &fakeAlerts{}
	users := &fakeUserGateway{adminsErr: errors.New("db gone")}
	r := NewReporter(recorder, users, alerts, []string{"email"})

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	require.Len(t, recorder.findings(), 1, "responder lookup failure must not lose the finding")
	assert.Empty(t, alerts.alerts())
}

func TestReport_NoChannelsDisablesNotification(t *testing.T) {
	recorder := &fakeRecorder{}
	alerts := &fakeAlerts{}
	users := &fakeUserGateway{admins: []string{"sec-1"}}
	r := NewReporter(recorder, users, alerts, nil)

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	require.Len(t, recorder.findings(), 1)
	assert.Empty(t, users.adminCalls, "no channels: responder lookup is skipped entirely")
	assert.Empty(t, alerts.alerts())
}

// Reporting the same condition twice records two rows. Nothing in this path
// deduplicates — suppression would have to live upstream.
func TestReport_NoDeduplication(t *testing.T) {
	recorder := &fakeRecorder{}
	users := &fakeUserGateway{admins: []string{"sec-1"}}
	r := NewReporter(recorder, users, &fakeAlerts{}, []string{"email"})

	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())
	r.Report(context.Background(), "auth_failure", testFinding(), models.RoleSecurityAdmin, testPayload())

	findings := recorder.findings()
	require.Len(t, findings, 2)
	assert.NotEqual(t, findings[0].ID, findings[1].ID)
}
