package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ReportData map[string]interface{}

// ReportGenerator produces the report payload for one execution. The
// simulated generator stands in until real renderers exist; ExecuteReport
// treats any error uniformly.
type ReportGenerator interface {
	Generate(ctx context.Context, report *ScheduledReport) (ReportData, error)
}

type simulatedGenerator struct{}

func (simulatedGenerator) Generate(ctx context.Context, report *ScheduledReport) (ReportData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch report.ReportType {
	case ReportExecutiveSummary:
		return ReportData{"kpis": ReportData{}, "trends": ReportData{}, "alerts": ReportData{}}, nil
	case ReportOperational:
		return ReportData{"metrics": ReportData{}, "stations": ReportData{}, "orders": ReportData{}}, nil
	case ReportCompliance:
		return ReportData{"standards": ReportData{}, "violations": ReportData{}, "audits": ReportData{}}, nil
	case ReportConsumptionAnalytics:
		return ReportData{"consumption": ReportData{}, "efficiency": ReportData{}, "forecasts": ReportData{}}, nil
	case ReportPerformance:
		return ReportData{"locations": ReportData{}, "trends": ReportData{}, "comparisons": ReportData{}}, nil
	default:
		return ReportData{}, nil
	}
}

const defaultReportTimeout = 30 * time.Second

// Service is the scheduled reporting and alert engine. All rule/report
// read-then-write paths are serialized behind one mutex so concurrent
// CheckAlerts calls cannot double-trigger a rule.
type Service struct {
	store         Store
	notifier      Notifier
	generator     ReportGenerator
	reportTimeout time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewService(store Store, notifier Notifier, generator ReportGenerator, reportTimeout time.Duration) *Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if generator == nil {
		generator = simulatedGenerator{}
	}
	if reportTimeout <= 0 {
		reportTimeout = defaultReportTimeout
	}
	return &Service{
		store:         store,
		notifier:      notifier,
		generator:     generator,
		reportTimeout: reportTimeout,
		now:           time.Now,
	}
}

// --- Report Management ---

func (s *Service) CreateScheduledReport(ctx context.Context, report *ScheduledReport) error {
	if report.Name == "" {
		return fmt.Errorf("%w: report name is required", ErrValidation)
	}
	if report.ReportType == "" {
		return fmt.Errorf("%w: report type is required", ErrValidation)
	}

	now := s.now()
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = ReportStatusDraft
	}
	report.RunCount = 0
	report.NextRun = NextRun(report.Schedule, now)
	report.CreatedAt = now
	report.UpdatedAt = now

	return s.store.CreateReport(ctx, report)
}

func (s *Service) GetScheduledReport(ctx context.Context, id string) (*ScheduledReport, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) GetScheduledReports(ctx context.Context, filter ReportFilter) ([]ScheduledReport, error) {
	return s.store.ListReports(ctx, filter)
}

// ReportUpdate carries the mutable report fields; nil means unchanged.
type ReportUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Schedule    *ReportSchedule `json:"schedule,omitempty"`
	Recipients  *RecipientList  `json:"recipients,omitempty"`
	Format      *ReportFormat   `json:"format,omitempty"`
	Filters     *ReportFilters  `json:"filters,omitempty"`
	Status      *ReportStatus   `json:"status,omitempty"`
}

func (s *Service) UpdateScheduledReport(ctx context.Context, id string, updates ReportUpdate) (*ScheduledReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if updates.Status != nil && !validReportTransition(report.Status, *updates.Status) {
		return nil, fmt.Errorf("%w: invalid status transition %s -> %s", ErrValidation, report.Status, *updates.Status)
	}

	if updates.Name != nil {
		report.Name = *updates.Name
	}
	if updates.Description != nil {
		report.Description = *updates.Description
	}
	if updates.Recipients != nil {
		report.Recipients = *updates.Recipients
	}
	if updates.Format != nil {
		report.Format = *updates.Format
	}
	if updates.Filters != nil {
		report.Filters = *updates.Filters
	}
	if updates.Status != nil {
		report.Status = *updates.Status
	}
	if updates.Schedule != nil {
		report.Schedule = *updates.Schedule
		report.NextRun = NextRun(report.Schedule, s.now())
	}
	report.UpdatedAt = s.now()

	if err := s.store.UpdateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) DeleteScheduledReport(ctx context.Context, id string) error {
	return s.store.DeleteReport(ctx, id)
}

// ExecuteReport runs one generation cycle for a report. A failed or timed
// out generation is recorded on the execution only; the report definition
// and its schedule state are untouched by failure.
func (s *Service) ExecuteReport(ctx context.Context, reportID string) (*ReportExecution, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	execution := &ReportExecution{
		ID:            uuid.NewString(),
		ReportID:      reportID,
		ExecutionTime: s.now(),
		Status:        ExecRunning,
		Metadata:      Metadata{"report_type": string(report.ReportType)},
	}
	if err := s.store.CreateExecution(ctx, execution); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.reportTimeout)
	defer cancel()

	start := s.now()
	data, genErr := s.generator.Generate(genCtx, report)
	if genErr != nil {
		execution.Status = ExecFailed
		if errors.Is(genErr, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			execution.ErrorMessage = "timeout: " + genErr.Error()
		} else {
			execution.ErrorMessage = genErr.Error()
		}
		if execution.ErrorMessage == "" {
			execution.ErrorMessage = "unknown error"
		}
		if err := s.store.UpdateExecution(ctx, execution); err != nil {
			return nil, err
		}
		return execution, nil
	}

	filePath := reportFilePath(report, s.now())
	encoded, _ := json.Marshal(data)

	execution.Status = ExecCompleted
	execution.DurationMs = s.now().Sub(start).Milliseconds()
	execution.FilePath = filePath
	execution.FileSize = int64(len(encoded))
	execution.RecipientsNotified = s.sendReportNotifications(ctx, report, filePath)

	if err := s.store.UpdateExecution(ctx, execution); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-fetch under the lock; the pre-generation snapshot may be stale if
	// another execution finished while this one was generating.
	current, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	current.LastRun = &execution.ExecutionTime
	current.RunCount++
	current.NextRun = NextRun(current.Schedule, s.now())
	current.UpdatedAt = s.now()
	if err := s.store.UpdateReport(ctx, current); err != nil {
		return nil, err
	}

	return execution, nil
}

func reportFilePath(report *ScheduledReport, t time.Time) string {
	return fmt.Sprintf("/reports/%s/%s_%s.%s", report.ReportType, report.ID, t.Format("2006-01-02_15-04"), report.Format)
}

func (s *Service) sendReportNotifications(ctx context.Context, report *ScheduledReport, filePath string) int {
	subject := fmt.Sprintf("Report ready: %s", report.Name)
	payload := map[string]string{"report_id": report.ID, "file_path": filePath}

	count := 0
	for _, recipient := range report.Recipients {
		prefs := recipient.NotificationPreferences
		for channelType, enabled := range map[string]bool{
			"email": prefs.Email,
			"slack": prefs.Slack,
			"teams": prefs.Teams,
		} {
			if !enabled {
				continue
			}
			if err := s.notifier.Send(ctx, channelType, subject, payload); err != nil {
				log.Printf("report notification via %s failed: %v", channelType, err)
				continue
			}
			count++
		}
	}
	return count
}

func (s *Service) ListExecutions(ctx context.Context, r ExecutionRange) ([]ReportExecution, error) {
	return s.store.ListExecutions(ctx, r)
}

// --- Alert Management ---

func (s *Service) CreateAlertRule(ctx context.Context, rule *AlertRule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: alert rule name is required", ErrValidation)
	}
	if rule.Metric == "" {
		return fmt.Errorf("%w: alert metric is required", ErrValidation)
	}
	if !validOperator(rule.Condition.Operator) {
		return fmt.Errorf("%w: unknown operator %q", ErrValidation, rule.Condition.Operator)
	}

	now := s.now()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Status == "" {
		rule.Status = AlertStatusActive
	}
	rule.TriggerCount = 0
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return s.store.CreateAlertRule(ctx, rule)
}

func (s *Service) GetAlertRule(ctx context.Context, id string) (*AlertRule, error) {
	return s.store.GetAlertRule(ctx, id)
}

func (s *Service) GetAlertRules(ctx context.Context, filter AlertRuleFilter) ([]AlertRule, error) {
	return s.store.ListAlertRules(ctx, filter)
}

func validOperator(op Operator) bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpEquals, OpNotEquals, OpGreaterThanOrEqual, OpLessThanOrEqual:
		return true
	}
	return false
}

func evaluateCondition(op Operator, value, threshold float64) bool {
	switch op {
	case OpGreaterThan:
		return value > threshold
	case OpLessThan:
		return value < threshold
	case OpGreaterThanOrEqual:
		return value >= threshold
	case OpLessThanOrEqual:
		return value <= threshold
	case OpEquals:
		return value == threshold
	case OpNotEquals:
		return value != threshold
	}
	return false
}

// CheckAlerts evaluates every rule whose metric is present in the supplied
// snapshot. A rule already in triggered state is suppressed until resolved.
// A resolved rule whose metric is no longer breaching is re-armed to active;
// one still breaching stays resolved, so re-triggering requires the metric
// to clear the threshold first.
func (s *Service) CheckAlerts(ctx context.Context, metrics map[string]float64) ([]AlertExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.store.ListAlertRules(ctx, AlertRuleFilter{})
	if err != nil {
		return nil, err
	}

	triggered := []AlertExecution{}
	now := s.now()

	for i := range rules {
		rule := rules[i]
		value, present := metrics[rule.Metric]
		if !present {
			continue
		}
		breach := evaluateCondition(rule.Condition.Operator, value, rule.Threshold.Limit)

		switch rule.Status {
		case AlertStatusResolved:
			if !breach {
				rule.Status = AlertStatusActive
				rule.UpdatedAt = now
				if err := s.store.UpdateAlertRule(ctx, &rule); err != nil {
					return nil, err
				}
			}
		case AlertStatusActive:
			if !breach {
				continue
			}
			execution := AlertExecution{
				ID:              uuid.NewString(),
				AlertID:         rule.ID,
				TriggeredAt:     now,
				Status:          AlertExecTriggered,
				TriggerValue:    value,
				ThresholdValue:  rule.Threshold.Limit,
				EscalationLevel: 1,
			}
			execution.NotificationsSent = s.sendAlertNotifications(ctx, &rule, &execution)
			if err := s.store.CreateAlertExecution(ctx, &execution); err != nil {
				return nil, err
			}

			rule.Status = AlertStatusTriggered
			rule.LastTriggered = &now
			rule.TriggerCount++
			rule.UpdatedAt = now
			if err := s.store.UpdateAlertRule(ctx, &rule); err != nil {
				return nil, err
			}

			triggered = append(triggered, execution)
		}
	}

	return triggered, nil
}

func (s *Service) sendAlertNotifications(ctx context.Context, rule *AlertRule, execution *AlertExecution) int {
	subject := fmt.Sprintf("Alert triggered: %s", rule.Name)
	payload := map[string]interface{}{
		"alert_id":        rule.ID,
		"metric":          rule.Metric,
		"trigger_value":   execution.TriggerValue,
		"threshold_value": execution.ThresholdValue,
		"priority":        rule.Priority,
	}

	count := 0
	for _, channel := range rule.Channels {
		if !channel.Enabled {
			continue
		}
		if err := s.notifier.Send(ctx, channel.Type, subject, payload); err != nil {
			log.Printf("alert notification via %s failed: %v", channel.Type, err)
			continue
		}
		count++
	}
	return count
}

// ResolveAlert marks the rule resolved and stamps resolution onto its most
// recent open execution. Unknown ids report false, not an error.
func (s *Service) ResolveAlert(ctx context.Context, alertID string, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, err := s.store.GetAlertRule(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	now := s.now()
	rule.Status = AlertStatusResolved
	rule.UpdatedAt = now
	if err := s.store.UpdateAlertRule(ctx, rule); err != nil {
		return false, err
	}

	execution, err := s.store.LatestTriggeredExecution(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	execution.Status = AlertExecResolved
	execution.ResolvedAt = &now
	execution.ResolutionNotes = notes
	if err := s.store.UpdateAlertExecution(ctx, execution); err != nil {
		return false, err
	}

	return true, nil
}

// EscalateDueAlerts advances unresolved executions whose current escalation
// level's delay has elapsed, notifying the level's additional recipients.
func (s *Service) EscalateDueAlerts(ctx context.Context, now time.Time) ([]AlertExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.store.ListAlertRules(ctx, AlertRuleFilter{Status: AlertStatusTriggered})
	if err != nil {
		return nil, err
	}

	escalated := []AlertExecution{}
	for i := range rules {
		rule := rules[i]
		if len(rule.EscalationRules) == 0 {
			continue
		}

		execution, err := s.store.LatestTriggeredExecution(ctx, rule.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}

		levels := append(EscalationRules{}, rule.EscalationRules...)
		sort.Slice(levels, func(a, b int) bool { return levels[a].Level < levels[b].Level })

		for _, level := range levels {
			if level.Level != execution.EscalationLevel {
				continue
			}
			due := execution.TriggeredAt.Add(time.Duration(level.DelayMinutes) * time.Minute)
			if now.Before(due) {
				break
			}

			subject := fmt.Sprintf("Alert escalated (level %d): %s", level.Level, rule.Name)
			payload := map[string]interface{}{
				"alert_id":   rule.ID,
				"recipients": level.Recipients,
				"actions":    level.Actions,
			}
			for _, channel := range rule.Channels {
				if !channel.Enabled {
					continue
				}
				if err := s.notifier.Send(ctx, channel.Type, subject, payload); err != nil {
					log.Printf("escalation notification via %s failed: %v", channel.Type, err)
					continue
				}
				execution.NotificationsSent++
			}

			execution.Status = AlertExecEscalated
			execution.EscalationLevel = level.Level + 1
			if err := s.store.UpdateAlertExecution(ctx, execution); err != nil {
				return nil, err
			}
			escalated = append(escalated, *execution)
			break
		}
	}

	return escalated, nil
}

// --- Analytics ---

type ExecutionSummary struct {
	TotalExecutions      int     `json:"total_executions"`
	SuccessfulExecutions int     `json:"successful_executions"`
	FailedExecutions     int     `json:"failed_executions"`
	AverageDurationMs    float64 `json:"average_duration_ms"`
}

type AlertSummary struct {
	TotalAlerts                int     `json:"total_alerts"`
	ActiveAlerts               int     `json:"active_alerts"`
	TriggeredAlerts            int     `json:"triggered_alerts"`
	AverageResolutionTimeHours float64 `json:"average_resolution_time_hours"`
}

type TopReport struct {
	ReportID       string  `json:"report_id"`
	ReportName     string  `json:"report_name"`
	ExecutionCount int     `json:"execution_count"`
	SuccessRate    float64 `json:"success_rate"`
}

type TopAlert struct {
	AlertID                string  `json:"alert_id"`
	AlertName              string  `json:"alert_name"`
	TriggerCount           int     `json:"trigger_count"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
}

type ReportingAnalytics struct {
	ExecutionSummary ExecutionSummary `json:"execution_summary"`
	AlertSummary     AlertSummary     `json:"alert_summary"`
	TopReports       []TopReport      `json:"top_reports"`
	TopAlerts        []TopAlert       `json:"top_alerts"`
}

// Analytics summarizes execution and alert history inside a date range.
func (s *Service) Analytics(ctx context.Context, start, end time.Time) (*ReportingAnalytics, error) {
	executions, err := s.store.ListExecutions(ctx, ExecutionRange{Start: &start, End: &end})
	if err != nil {
		return nil, err
	}
	alertExecutions, err := s.store.ListAlertExecutions(ctx, AlertExecutionRange{Start: &start, End: &end})
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListAlertRules(ctx, AlertRuleFilter{})
	if err != nil {
		return nil, err
	}

	var successful, failed int
	var totalDuration int64
	for _, e := range executions {
		switch e.Status {
		case ExecCompleted:
			successful++
			totalDuration += e.DurationMs
		case ExecFailed:
			failed++
		}
	}
	avgDuration := 0.0
	if successful > 0 {
		avgDuration = float64(totalDuration) / float64(successful)
	}

	var resolutionHours float64
	resolvedCount := 0
	for _, e := range alertExecutions {
		if e.Status == AlertExecResolved && e.ResolvedAt != nil {
			resolutionHours += e.ResolvedAt.Sub(e.TriggeredAt).Hours()
			resolvedCount++
		}
	}
	avgResolution := 0.0
	if resolvedCount > 0 {
		avgResolution = resolutionHours / float64(resolvedCount)
	}

	activeAlerts := 0
	for _, r := range rules {
		if r.Status == AlertStatusActive {
			activeAlerts++
		}
	}

	return &ReportingAnalytics{
		ExecutionSummary: ExecutionSummary{
			TotalExecutions:      len(executions),
			SuccessfulExecutions: successful,
			FailedExecutions:     failed,
			AverageDurationMs:    avgDuration,
		},
		AlertSummary: AlertSummary{
			TotalAlerts:                len(rules),
			ActiveAlerts:               activeAlerts,
			TriggeredAlerts:            len(alertExecutions),
			AverageResolutionTimeHours: avgResolution,
		},
		TopReports: s.topReports(ctx, executions),
		TopAlerts:  topAlerts(alertExecutions, rules),
	}, nil
}

func (s *Service) topReports(ctx context.Context, executions []ReportExecution) []TopReport {
	type reportStat struct {
		total      int
		successful int
		name       string
	}
	stats := make(map[string]*reportStat)
	for _, e := range executions {
		st, ok := stats[e.ReportID]
		if !ok {
			name := "Unknown"
			if report, err := s.store.GetReport(ctx, e.ReportID); err == nil {
				name = report.Name
			}
			st = &reportStat{name: name}
			stats[e.ReportID] = st
		}
		st.total++
		if e.Status == ExecCompleted {
			st.successful++
		}
	}

	top := make([]TopReport, 0, len(stats))
	for id, st := range stats {
		rate := 0.0
		if st.total > 0 {
			rate = float64(st.successful) / float64(st.total) * 100
		}
		top = append(top, TopReport{ReportID: id, ReportName: st.name, ExecutionCount: st.total, SuccessRate: rate})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].ExecutionCount == top[j].ExecutionCount {
			return top[i].ReportID < top[j].ReportID
		}
		return top[i].ExecutionCount > top[j].ExecutionCount
	})
	if len(top) > 5 {
		top = top[:5]
	}
	return top
}

func topAlerts(alertExecutions []AlertExecution, rules []AlertRule) []TopAlert {
	names := make(map[string]string, len(rules))
	for _, r := range rules {
		names[r.ID] = r.Name
	}

	type alertStat struct {
		triggers        int
		resolutionHours float64
		resolved        int
	}
	stats := make(map[string]*alertStat)
	for _, e := range alertExecutions {
		st, ok := stats[e.AlertID]
		if !ok {
			st = &alertStat{}
			stats[e.AlertID] = st
		}
		st.triggers++
		if e.ResolvedAt != nil {
			st.resolutionHours += e.ResolvedAt.Sub(e.TriggeredAt).Hours()
			st.resolved++
		}
	}

	top := make([]TopAlert, 0, len(stats))
	for id, st := range stats {
		name, ok := names[id]
		if !ok {
			name = "Unknown"
		}
		avg := 0.0
		if st.resolved > 0 {
			avg = st.resolutionHours / float64(st.resolved)
		}
		top = append(top, TopAlert{AlertID: id, AlertName: name, TriggerCount: st.triggers, AverageResolutionHours: avg})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TriggerCount == top[j].TriggerCount {
			return top[i].AlertID < top[j].AlertID
		}
		return top[i].TriggerCount > top[j].TriggerCount
	})
	if len(top) > 5 {
		top = top[:5]
	}
	return top
}
