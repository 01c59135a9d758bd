package reporting

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next execution time for a schedule relative to now.
// A custom cron expression, when present and valid, overrides the frequency
// arithmetic. On-demand schedules have no next run (nil).
func NextRun(schedule ReportSchedule, now time.Time) *time.Time {
	if schedule.CustomCron != "" {
		if spec, err := cronParser.Parse(schedule.CustomCron); err == nil {
			next := spec.Next(now)
			return &next
		}
	}

	var next time.Time
	switch schedule.Frequency {
	case FrequencyDaily:
		next = now.AddDate(0, 0, 1)
	case FrequencyWeekly:
		next = now.AddDate(0, 0, 7)
		if schedule.DayOfWeek != nil {
			daysToAdd := (*schedule.DayOfWeek - int(now.Weekday()) + 7) % 7
			// Never schedule "today": a matching weekday rolls a full week.
			if daysToAdd == 0 {
				daysToAdd = 7
			}
			next = now.AddDate(0, 0, daysToAdd)
		}
	case FrequencyMonthly:
		next = addMonthsClamped(now, 1)
		if schedule.DayOfMonth != nil {
			next = pinDayOfMonth(next, *schedule.DayOfMonth)
		}
	case FrequencyQuarterly:
		next = addMonthsClamped(now, 3)
	case FrequencyOnDemand:
		return nil
	default:
		return nil
	}

	hours, minutes := parseClock(schedule.Time)
	next = time.Date(next.Year(), next.Month(), next.Day(), hours, minutes, 0, 0, next.Location())
	return &next
}

// addMonthsClamped advances by whole months, clamping the day to the target
// month's last day so Jan 31 plus one month is Feb 28/29, not Mar 2/3.
func addMonthsClamped(t time.Time, months int) time.Time {
	anchor := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), 0, 0, t.Location()).AddDate(0, months, 0)
	return pinDayOfMonth(anchor, t.Day())
}

// pinDayOfMonth sets the day within t's month, clamping to the last valid
// day so day 31 lands on Feb 28/29 rather than rolling into March.
func pinDayOfMonth(t time.Time, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := daysInMonth(t.Year(), t.Month()); day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseClock(clock string) (hours, minutes int) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	hours, _ = strconv.Atoi(parts[0])
	minutes, _ = strconv.Atoi(parts[1])
	if hours < 0 || hours > 23 {
		hours = 0
	}
	if minutes < 0 || minutes > 59 {
		minutes = 0
	}
	return hours, minutes
}
