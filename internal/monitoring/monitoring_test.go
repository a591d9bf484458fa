package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chirp-social/chirp/internal/database/testutil"
	"github.com/chirp-social/chirp/internal/realtime"
)

func TestEvaluateAggregatesWorstStatus(t *testing.T) {
	manager := NewHealthManager()
	manager.Register(NewCheck("ok", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusUp}
	}))
	manager.Register(NewCheck("slow", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusDegraded, Details: "timeout"}
	}))

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)

	manager.Register(NewCheck("broken", func(context.Context) ProbeResult {
		return ProbeResult{Status: StatusDown, Details: "boom"}
	}))

	report = manager.Evaluate(context.Background())
	require.Equal(t, StatusDown, report.Status)
}

func TestEvaluateRecoversFromPanickingCheck(t *testing.T) {
	manager := NewHealthManager()
	manager.Register(NewCheck("panics", func(context.Context) ProbeResult {
		panic("probe exploded")
	}))

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDown, report.Status)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
	require.Equal(t, "panics", report.Checks[0].Component)
}

func TestResultFromErrorTreatsCancellationAsDegraded(t *testing.T) {
	result := ResultFromError("database", context.DeadlineExceeded, time.Millisecond)
	require.Equal(t, StatusDegraded, result.Status)

	result = ResultFromError("database", errors.New("connection refused"), 0)
	require.Equal(t, StatusDown, result.Status)

	result = ResultFromError("database", nil, time.Millisecond)
	require.Equal(t, StatusUp, result.Status)
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := runCheck(context.Background(), DatabaseCheck(db, time.Second))
	require.Equal(t, StatusUp, result.Status)
	require.Equal(t, "database", result.Component)

	result = runCheck(context.Background(), DatabaseCheck(nil, time.Second))
	require.Equal(t, StatusDown, result.Status)
}

func TestRedisCheckDisabledReportsUp(t *testing.T) {
	result := runCheck(context.Background(), RedisCheck(nil, false, time.Second))
	require.Equal(t, StatusUp, result.Status)
	require.Equal(t, "redis disabled", result.Details)

	result = runCheck(context.Background(), RedisCheck(nil, true, time.Second))
	require.Equal(t, StatusDegraded, result.Status)
}

func TestRealtimeCheckCountsOnlineUsers(t *testing.T) {
	registry := realtime.NewMemoryRegistry()
	registry.Connect("user-1")
	registry.Connect("user-2")

	result := runCheck(context.Background(), RealtimeCheck(registry))
	require.Equal(t, StatusUp, result.Status)
	require.Equal(t, "2 users online", result.Details)

	result = runCheck(context.Background(), RealtimeCheck(nil))
	require.Equal(t, StatusDegraded, result.Status)
}
