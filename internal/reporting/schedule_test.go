package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dayPtr(d int) *int { return &d }

func TestNextRunDaily(t *testing.T) {
	now := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyDaily, Time: "08:00"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 8, 11, 8, 0, 0, 0, time.UTC), *next)
}

func TestNextRunWeekly(t *testing.T) {
	// 2026-08-10 is a Monday.
	monday := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	t.Run("target later this week", func(t *testing.T) {
		wednesday := 3
		next := NextRun(ReportSchedule{Frequency: FrequencyWeekly, DayOfWeek: &wednesday, Time: "07:00"}, monday)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2026, 8, 12, 7, 0, 0, 0, time.UTC), *next)
	})

	t.Run("matching weekday rolls a full week", func(t *testing.T) {
		target := int(monday.Weekday())
		next := NextRun(ReportSchedule{Frequency: FrequencyWeekly, DayOfWeek: &target, Time: "07:00"}, monday)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2026, 8, 17, 7, 0, 0, 0, time.UTC), *next)
	})

	t.Run("no day pinned defaults to plus seven", func(t *testing.T) {
		next := NextRun(ReportSchedule{Frequency: FrequencyWeekly, Time: "07:00"}, monday)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2026, 8, 17, 7, 0, 0, 0, time.UTC), *next)
	})
}

func TestNextRunMonthlyClampsShortMonths(t *testing.T) {
	// One month after Jan 15 is February, which has no 31st in 2026.
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyMonthly, DayOfMonth: dayPtr(31), Time: "06:00"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC), *next)

	// Months with a 31st keep the pinned day.
	now = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	next = NextRun(ReportSchedule{Frequency: FrequencyMonthly, DayOfMonth: dayPtr(31), Time: "06:00"}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 31, 6, 0, 0, 0, time.UTC), *next)
}

func TestNextRunQuarterly(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyQuarterly, Time: "09:30"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 11, 1, 9, 30, 0, 0, time.UTC), *next)
}

func TestNextRunOnDemandIsNil(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, NextRun(ReportSchedule{Frequency: FrequencyOnDemand}, now))
}

func TestNextRunCustomCronOverride(t *testing.T) {
	now := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)

	next := NextRun(ReportSchedule{Frequency: FrequencyDaily, Time: "08:00", CustomCron: "0 * * * *"}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC), *next)

	// Invalid expressions fall back to the frequency arithmetic.
	next = NextRun(ReportSchedule{Frequency: FrequencyDaily, Time: "08:00", CustomCron: "not a cron"}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 8, 11, 8, 0, 0, 0, time.UTC), *next)
}

func TestNextRunMalformedClockDefaultsToMidnight(t *testing.T) {
	now := time.Date(2026, 8, 10, 14, 30, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyDaily, Time: "99:99"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), *next)
}

func TestNextRunMonthlyUnpinnedClampsShortMonths(t *testing.T) {
	// No pinned day: Jan 31 plus one month clamps to Feb 28 instead of
	// normalizing into early March.
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyMonthly, Time: "06:00"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 2, 28, 6, 0, 0, 0, time.UTC), *next)
}

func TestNextRunQuarterlyClampsShortMonths(t *testing.T) {
	now := time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)
	next := NextRun(ReportSchedule{Frequency: FrequencyQuarterly, Time: "09:30"}, now)

	require.NotNil(t, next)
	assert.Equal(t, time.Date(2027, 2, 28, 9, 30, 0, 0, time.UTC), *next)
}
