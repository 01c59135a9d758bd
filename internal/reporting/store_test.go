package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestMemoryStoreReportFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	reports := []*ScheduledReport{
		{
			ID: "r1", Name: "Due Active", Status: ReportStatusActive,
			ReportType: ReportOperational, CreatedBy: "alice",
			NextRun: timePtr(base.Add(1 * time.Hour)), CreatedAt: base,
		},
		{
			ID: "r2", Name: "Not Due Yet", Status: ReportStatusActive,
			ReportType: ReportOperational, CreatedBy: "bob",
			NextRun: timePtr(base.Add(48 * time.Hour)), CreatedAt: base.Add(time.Minute),
		},
		{
			ID: "r3", Name: "On Demand", Status: ReportStatusActive,
			ReportType: ReportExecutiveSummary, CreatedBy: "alice",
			NextRun: nil, CreatedAt: base.Add(2 * time.Minute),
		},
		{
			ID: "r4", Name: "Paused", Status: ReportStatusPaused,
			ReportType: ReportOperational, CreatedBy: "alice",
			NextRun: timePtr(base.Add(1 * time.Hour)), CreatedAt: base.Add(3 * time.Minute),
		},
	}
	for _, r := range reports {
		require.NoError(t, store.CreateReport(ctx, r))
	}

	t.Run("due before excludes nil and future next runs", func(t *testing.T) {
		due, err := store.ListReports(ctx, ReportFilter{
			Status:    ReportStatusActive,
			DueBefore: timePtr(base.Add(2 * time.Hour)),
		})
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "r1", due[0].ID)
	})

	t.Run("filter by creator", func(t *testing.T) {
		mine, err := store.ListReports(ctx, ReportFilter{CreatedBy: "alice"})
		require.NoError(t, err)
		assert.Len(t, mine, 3)
	})

	t.Run("filter by type", func(t *testing.T) {
		ops, err := store.ListReports(ctx, ReportFilter{ReportType: ReportOperational})
		require.NoError(t, err)
		assert.Len(t, ops, 3)
	})

	t.Run("ordering is stable by creation time", func(t *testing.T) {
		all, err := store.ListReports(ctx, ReportFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, []string{"r1", "r2", "r3", "r4"},
			[]string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
	})
}

func TestMemoryStoreValueSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	report := &ScheduledReport{ID: "r1", Name: "Original", Status: ReportStatusDraft}
	require.NoError(t, store.CreateReport(ctx, report))

	// Mutating the caller's struct after Create must not leak into the store.
	report.Name = "Mutated"

	stored, err := store.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Original", stored.Name)

	// Same for reads: mutating a fetched copy leaves the store untouched.
	stored.Name = "Mutated Again"
	fresh, err := store.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Original", fresh.Name)
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.UpdateReport(ctx, &ScheduledReport{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.DeleteReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetAlertRule(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LatestTriggeredExecution(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestTriggeredExecutionPicksNewestOpen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	executions := []*AlertExecution{
		{ID: "e1", AlertID: "a1", TriggeredAt: base, Status: AlertExecResolved},
		{ID: "e2", AlertID: "a1", TriggeredAt: base.Add(time.Hour), Status: AlertExecTriggered},
		{ID: "e3", AlertID: "a1", TriggeredAt: base.Add(2 * time.Hour), Status: AlertExecEscalated},
		{ID: "e4", AlertID: "other", TriggeredAt: base.Add(3 * time.Hour), Status: AlertExecTriggered},
	}
	for _, e := range executions {
		require.NoError(t, store.CreateAlertExecution(ctx, e))
	}

	latest, err := store.LatestTriggeredExecution(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "e3", latest.ID)
}

func TestAlertThresholdColumnRoundTrip(t *testing.T) {
	in := AlertThreshold{Limit: 8.5, Unit: "percentage", Baseline: "historical_average"}

	raw, err := in.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":8.5,"unit":"percentage","baseline":"historical_average"}`, string(raw.([]byte)))

	var out AlertThreshold
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, in, out)
}
