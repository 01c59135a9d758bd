package reporting

import (
	"context"
)

// SeedDefaults installs the stock executive report and the two baseline
// alert rules when the registry is empty. Safe to call on every startup.
func (s *Service) SeedDefaults(ctx context.Context) error {
	reports, err := s.store.ListReports(ctx, ReportFilter{})
	if err != nil {
		return err
	}
	rules, err := s.store.ListAlertRules(ctx, AlertRuleFilter{})
	if err != nil {
		return err
	}
	if len(reports) > 0 || len(rules) > 0 {
		return nil
	}

	now := s.now()

	execDaily := &ScheduledReport{
		ID:          "exec-daily",
		Name:        "Executive Daily Dashboard",
		Description: "Daily executive summary with key performance indicators",
		ReportType:  ReportExecutiveSummary,
		Schedule: ReportSchedule{
			Frequency: FrequencyDaily,
			Time:      "08:00",
			Timezone:  "America/New_York",
		},
		Recipients: RecipientList{
			{
				ID:         "ceo",
				Name:       "Chief Executive Officer",
				Email:      "ceo@company.com",
				Role:       "executive",
				Department: "leadership",
				NotificationPreferences: NotificationPreferences{
					Email: true,
					InApp: true,
				},
			},
		},
		Format: FormatPDF,
		Filters: ReportFilters{
			DateRange: DateRangeFilter{Type: "last_n_days", Value: 1},
			Metrics:   []string{"revenue", "efficiency", "waste", "satisfaction"},
		},
		Status:    ReportStatusActive,
		NextRun:   NextRun(ReportSchedule{Frequency: FrequencyDaily, Time: "08:00", Timezone: "America/New_York"}, now),
		CreatedBy: "system",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateReport(ctx, execDaily); err != nil {
		return err
	}

	opsHourly := &ScheduledReport{
		ID:          "ops-hourly",
		Name:        "Operations Monitoring",
		Description: "Hourly operational metrics for kitchen management",
		ReportType:  ReportOperational,
		Schedule: ReportSchedule{
			Frequency:  FrequencyDaily,
			Time:       "00:00",
			Timezone:   "America/New_York",
			CustomCron: "0 * * * *",
		},
		Recipients: RecipientList{
			{
				ID:         "kitchen-manager",
				Name:       "Kitchen Manager",
				Email:      "kitchen@company.com",
				Role:       "manager",
				Department: "operations",
				NotificationPreferences: NotificationPreferences{
					Slack: true,
					InApp: true,
				},
			},
		},
		Format: FormatDashboardLink,
		Filters: ReportFilters{
			DateRange: DateRangeFilter{Type: "last_n_hours", Value: 1},
			Metrics:   []string{"orders", "efficiency", "capacity"},
		},
		Status:    ReportStatusActive,
		NextRun:   NextRun(ReportSchedule{Frequency: FrequencyDaily, CustomCron: "0 * * * *"}, now),
		CreatedBy: "system",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateReport(ctx, opsHourly); err != nil {
		return err
	}

	wasteCritical := &AlertRule{
		ID:          "waste-critical",
		Name:        "Critical Waste Level",
		Description: "Alert when daily waste exceeds acceptable threshold",
		Metric:      "daily_waste_percentage",
		Condition: AlertCondition{
			Operator:       OpGreaterThan,
			ComparisonType: "absolute",
		},
		Threshold: AlertThreshold{Limit: 8, Unit: "percentage"},
		Frequency: "daily",
		Priority:  PriorityCritical,
		Recipients: StringArray{
			"operations-manager",
			"kitchen-manager",
		},
		Channels: ChannelList{
			{Type: "email", Enabled: true},
			{Type: "slack", Enabled: true},
		},
		EscalationRules: EscalationRules{
			{
				Level:        1,
				DelayMinutes: 15,
				Recipients:   []string{"regional-manager"},
				Actions:      []string{"acknowledge", "investigate"},
			},
		},
		Status:    AlertStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAlertRule(ctx, wasteCritical); err != nil {
		return err
	}

	efficiencyWarning := &AlertRule{
		ID:          "efficiency-warning",
		Name:        "Kitchen Efficiency Warning",
		Description: "Alert when kitchen efficiency drops below target",
		Metric:      "kitchen_efficiency_percentage",
		Condition: AlertCondition{
			Operator:       OpLessThan,
			ComparisonType: "absolute",
			TimeWindow:     "2h",
		},
		Threshold: AlertThreshold{Limit: 80, Unit: "percentage"},
		Frequency: "hourly",
		Priority:  PriorityMedium,
		Recipients: StringArray{
			"kitchen-manager",
		},
		Channels: ChannelList{
			{Type: "slack", Enabled: true},
			{Type: "email", Enabled: false},
		},
		Status:    AlertStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.store.CreateAlertRule(ctx, efficiencyWarning)
}
