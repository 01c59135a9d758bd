package reporting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

type ReportFilter struct {
	Status     ReportStatus
	ReportType ReportType
	CreatedBy  string
	// DueBefore selects reports whose next_run is set and not after the
	// given instant; used by the scheduler loop.
	DueBefore *time.Time
}

type AlertRuleFilter struct {
	Status   AlertStatus
	Priority AlertPriority
	Metric   string
}

type ExecutionRange struct {
	ReportID string
	Start    *time.Time
	End      *time.Time
}

type AlertExecutionRange struct {
	AlertID string
	Start   *time.Time
	End     *time.Time
}

// Store owns registry persistence so the engine stays stateless business
// logic. GormStore backs production; MemoryStore backs tests.
type Store interface {
	CreateReport(ctx context.Context, report *ScheduledReport) error
	GetReport(ctx context.Context, id string) (*ScheduledReport, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]ScheduledReport, error)
	UpdateReport(ctx context.Context, report *ScheduledReport) error
	DeleteReport(ctx context.Context, id string) error

	CreateAlertRule(ctx context.Context, rule *AlertRule) error
	GetAlertRule(ctx context.Context, id string) (*AlertRule, error)
	ListAlertRules(ctx context.Context, filter AlertRuleFilter) ([]AlertRule, error)
	UpdateAlertRule(ctx context.Context, rule *AlertRule) error

	CreateExecution(ctx context.Context, execution *ReportExecution) error
	UpdateExecution(ctx context.Context, execution *ReportExecution) error
	ListExecutions(ctx context.Context, r ExecutionRange) ([]ReportExecution, error)

	CreateAlertExecution(ctx context.Context, execution *AlertExecution) error
	UpdateAlertExecution(ctx context.Context, execution *AlertExecution) error
	ListAlertExecutions(ctx context.Context, r AlertExecutionRange) ([]AlertExecution, error)
	LatestTriggeredExecution(ctx context.Context, alertID string) (*AlertExecution, error)
}

// --- Gorm Store ---

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func mapGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateReport(ctx context.Context, report *ScheduledReport) error {
	return s.db.WithContext(ctx).Create(report).Error
}

func (s *GormStore) GetReport(ctx context.Context, id string) (*ScheduledReport, error) {
	var report ScheduledReport
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &report, nil
}

func (s *GormStore) ListReports(ctx context.Context, filter ReportFilter) ([]ScheduledReport, error) {
	q := s.db.WithContext(ctx).Model(&ScheduledReport{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ReportType != "" {
		q = q.Where("report_type = ?", filter.ReportType)
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.DueBefore != nil {
		q = q.Where("next_run IS NOT NULL AND next_run <= ?", *filter.DueBefore)
	}

	var reports []ScheduledReport
	if err := q.Order("created_at asc").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *GormStore) UpdateReport(ctx context.Context, report *ScheduledReport) error {
	result := s.db.WithContext(ctx).Model(&ScheduledReport{}).Where("id = ?", report.ID).Select("*").Omit("created_at").Updates(report)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteReport(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&ScheduledReport{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateAlertRule(ctx context.Context, rule *AlertRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *GormStore) GetAlertRule(ctx context.Context, id string) (*AlertRule, error) {
	var rule AlertRule
	if err := s.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &rule, nil
}

func (s *GormStore) ListAlertRules(ctx context.Context, filter AlertRuleFilter) ([]AlertRule, error) {
	q := s.db.WithContext(ctx).Model(&AlertRule{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.Metric != "" {
		q = q.Where("metric = ?", filter.Metric)
	}

	var rules []AlertRule
	if err := q.Order("created_at asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormStore) UpdateAlertRule(ctx context.Context, rule *AlertRule) error {
	result := s.db.WithContext(ctx).Model(&AlertRule{}).Where("id = ?", rule.ID).Select("*").Omit("created_at").Updates(rule)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateExecution(ctx context.Context, execution *ReportExecution) error {
	return s.db.WithContext(ctx).Create(execution).Error
}

func (s *GormStore) UpdateExecution(ctx context.Context, execution *ReportExecution) error {
	return s.db.WithContext(ctx).Model(&ReportExecution{}).Where("id = ?", execution.ID).Select("*").Updates(execution).Error
}

func (s *GormStore) ListExecutions(ctx context.Context, r ExecutionRange) ([]ReportExecution, error) {
	q := s.db.WithContext(ctx).Model(&ReportExecution{})
	if r.ReportID != "" {
		q = q.Where("report_id = ?", r.ReportID)
	}
	if r.Start != nil {
		q = q.Where("execution_time >= ?", *r.Start)
	}
	if r.End != nil {
		q = q.Where("execution_time <= ?", *r.End)
	}

	var executions []ReportExecution
	if err := q.Order("execution_time asc").Find(&executions).Error; err != nil {
		return nil, err
	}
	return executions, nil
}

func (s *GormStore) CreateAlertExecution(ctx context.Context, execution *AlertExecution) error {
	return s.db.WithContext(ctx).Create(execution).Error
}

func (s *GormStore) UpdateAlertExecution(ctx context.Context, execution *AlertExecution) error {
	return s.db.WithContext(ctx).Model(&AlertExecution{}).Where("id = ?", execution.ID).Select("*").Updates(execution).Error
}

func (s *GormStore) ListAlertExecutions(ctx context.Context, r AlertExecutionRange) ([]AlertExecution, error) {
	q := s.db.WithContext(ctx).Model(&AlertExecution{})
	if r.AlertID != "" {
		q = q.Where("alert_id = ?", r.AlertID)
	}
	if r.Start != nil {
		q = q.Where("triggered_at >= ?", *r.Start)
	}
	if r.End != nil {
		q = q.Where("triggered_at <= ?", *r.End)
	}

	var executions []AlertExecution
	if err := q.Order("triggered_at asc").Find(&executions).Error; err != nil {
		return nil, err
	}
	return executions, nil
}

func (s *GormStore) LatestTriggeredExecution(ctx context.Context, alertID string) (*AlertExecution, error) {
	var execution AlertExecution
	err := s.db.WithContext(ctx).
		Where("alert_id = ? AND status IN ?", alertID, []AlertExecutionStatus{AlertExecTriggered, AlertExecEscalated}).
		Order("triggered_at desc").
		First(&execution).Error
	if err != nil {
		return nil, mapGormErr(err)
	}
	return &execution, nil
}

// --- Memory Store ---

type MemoryStore struct {
	mu              sync.RWMutex
	reports         map[string]ScheduledReport
	rules           map[string]AlertRule
	executions      map[string]ReportExecution
	alertExecutions map[string]AlertExecution
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:         make(map[string]ScheduledReport),
		rules:           make(map[string]AlertRule),
		executions:      make(map[string]ReportExecution),
		alertExecutions: make(map[string]AlertExecution),
	}
}

func (s *MemoryStore) CreateReport(ctx context.Context, report *ScheduledReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = *report
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id string) (*ScheduledReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &report, nil
}

func (s *MemoryStore) ListReports(ctx context.Context, filter ReportFilter) ([]ScheduledReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ScheduledReport
	for _, r := range s.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.ReportType != "" && r.ReportType != filter.ReportType {
			continue
		}
		if filter.CreatedBy != "" && r.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.DueBefore != nil && (r.NextRun == nil || r.NextRun.After(*filter.DueBefore)) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateReport(ctx context.Context, report *ScheduledReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; !ok {
		return ErrNotFound
	}
	s.reports[report.ID] = *report
	return nil
}

func (s *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) CreateAlertRule(ctx context.Context, rule *AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = *rule
	return nil
}

func (s *MemoryStore) GetAlertRule(ctx context.Context, id string) (*AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rule, nil
}

func (s *MemoryStore) ListAlertRules(ctx context.Context, filter AlertRuleFilter) ([]AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AlertRule
	for _, r := range s.rules {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && r.Priority != filter.Priority {
			continue
		}
		if filter.Metric != "" && r.Metric != filter.Metric {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateAlertRule(ctx context.Context, rule *AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; !ok {
		return ErrNotFound
	}
	s.rules[rule.ID] = *rule
	return nil
}

func (s *MemoryStore) CreateExecution(ctx context.Context, execution *ReportExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execution.ID] = *execution
	return nil
}

func (s *MemoryStore) UpdateExecution(ctx context.Context, execution *ReportExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[execution.ID]; !ok {
		return ErrNotFound
	}
	s.executions[execution.ID] = *execution
	return nil
}

func (s *MemoryStore) ListExecutions(ctx context.Context, r ExecutionRange) ([]ReportExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReportExecution
	for _, e := range s.executions {
		if r.ReportID != "" && e.ReportID != r.ReportID {
			continue
		}
		if r.Start != nil && e.ExecutionTime.Before(*r.Start) {
			continue
		}
		if r.End != nil && e.ExecutionTime.After(*r.End) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExecutionTime.Equal(out[j].ExecutionTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExecutionTime.Before(out[j].ExecutionTime)
	})
	return out, nil
}

func (s *MemoryStore) CreateAlertExecution(ctx context.Context, execution *AlertExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertExecutions[execution.ID] = *execution
	return nil
}

func (s *MemoryStore) UpdateAlertExecution(ctx context.Context, execution *AlertExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alertExecutions[execution.ID]; !ok {
		return ErrNotFound
	}
	s.alertExecutions[execution.ID] = *execution
	return nil
}

func (s *MemoryStore) ListAlertExecutions(ctx context.Context, r AlertExecutionRange) ([]AlertExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AlertExecution
	for _, e := range s.alertExecutions {
		if r.AlertID != "" && e.AlertID != r.AlertID {
			continue
		}
		if r.Start != nil && e.TriggeredAt.Before(*r.Start) {
			continue
		}
		if r.End != nil && e.TriggeredAt.After(*r.End) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].TriggeredAt.Before(out[j].TriggeredAt)
	})
	return out, nil
}

func (s *MemoryStore) LatestTriggeredExecution(ctx context.Context, alertID string) (*AlertExecution, error) {
	executions, _ := s.ListAlertExecutions(ctx, AlertExecutionRange{AlertID: alertID})
	for i := len(executions) - 1; i >= 0; i-- {
		if executions[i].Status == AlertExecTriggered || executions[i].Status == AlertExecEscalated {
			e := executions[i]
			return &e, nil
		}
	}
	return nil, ErrNotFound
}
