package alertService

import (
	"testing"

	"MineGuard/internal/api/alert"
	"MineGuard/internal/entity"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestAcknowledgeIsIdempotent(t *testing.T) {
	store := newFakeAlertStore()
	svc := newTestAlertService(t, store, &fakeMailer{}, &fakeEventBus{})

	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-1", 0.95)))
	alertID := store.byDetection["det-1"]

	first, err := svc.Acknowledge(context.Background(), alertID)
	require.NoError(t, err)
	require.True(t, first.Acknowledged)

	// A repeat acknowledgement returns the row untouched, original
	// timestamp included.
	second, err := svc.Acknowledge(context.Background(), alertID)
	require.NoError(t, err)
	require.True(t, second.Acknowledged)
	require.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	svc := newTestAlertService(t, newFakeAlertStore(), &fakeMailer{}, &fakeEventBus{})

	_, err := svc.Acknowledge(context.Background(), "missing")
	require.ErrorIs(t, err, alert.ErrAlertNotFound)
}

func TestListAlertsFilters(t *testing.T) {
	store := newFakeAlertStore()
	svc := newTestAlertService(t, store, &fakeMailer{}, &fakeEventBus{})

	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-1", 0.95)))
	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-2", 0.8)))
	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-3", 0.65)))

	resp, err := svc.ListAlerts(context.Background(), alert.ListAlertsRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Data, 3)
	require.Equal(t, 50, resp.Limit)

	resp, err = svc.ListAlerts(context.Background(), alert.ListAlertsRequest{Severity: "critical"})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	require.Equal(t, entity.SeverityCritical, resp.Data[0].Severity)

	_, err = svc.Acknowledge(context.Background(), store.byDetection["det-1"])
	require.NoError(t, err)

	resp, err = svc.ListAlerts(context.Background(), alert.ListAlertsRequest{Acknowledged: "false"})
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.Total)
}

func TestGetStats(t *testing.T) {
	store := newFakeAlertStore()
	svc := newTestAlertService(t, store, &fakeMailer{}, &fakeEventBus{})

	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-1", 0.95)))
	require.NoError(t, svc.OnDetectionPersisted(context.Background(), violationDetection("det-2", 0.8)))

	require.NoError(t, svc.OnAlertCreated(context.Background(), store.byDetection["det-1"]))
	_, err := svc.Acknowledge(context.Background(), store.byDetection["det-2"])
	require.NoError(t, err)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.Unread)
	require.Equal(t, int64(1), stats.Acknowledged)
	require.Equal(t, int64(1), stats.EmailsSent)
	require.Equal(t, int64(1), stats.Critical)
	require.Equal(t, int64(1), stats.High)
}
