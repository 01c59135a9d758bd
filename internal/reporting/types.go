package reporting

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type ReportType string

const (
	ReportExecutiveSummary     ReportType = "executive_summary"
	ReportOperational          ReportType = "operational"
	ReportCompliance           ReportType = "compliance"
	ReportConsumptionAnalytics ReportType = "consumption_analytics"
	ReportPerformance          ReportType = "performance"
)

type ReportStatus string

const (
	ReportStatusDraft    ReportStatus = "draft"
	ReportStatusActive   ReportStatus = "active"
	ReportStatusPaused   ReportStatus = "paused"
	ReportStatusArchived ReportStatus = "archived"
)

type ReportFormat string

const (
	FormatPDF           ReportFormat = "pdf"
	FormatExcel         ReportFormat = "excel"
	FormatCSV           ReportFormat = "csv"
	FormatJSON          ReportFormat = "json"
	FormatDashboardLink ReportFormat = "dashboard_link"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyOnDemand  Frequency = "on_demand"
)

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusPaused    AlertStatus = "paused"
	AlertStatusTriggered AlertStatus = "triggered"
	AlertStatusResolved  AlertStatus = "resolved"
)

type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

type Operator string

const (
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
)

type ExecutionStatus string

const (
	ExecQueued    ExecutionStatus = "queued"
	ExecRunning   ExecutionStatus = "running"
	ExecCompleted ExecutionStatus = "completed"
	ExecFailed    ExecutionStatus = "failed"
	ExecCancelled ExecutionStatus = "cancelled"
)

type AlertExecutionStatus string

const (
	AlertExecTriggered  AlertExecutionStatus = "triggered"
	AlertExecEscalated  AlertExecutionStatus = "escalated"
	AlertExecResolved   AlertExecutionStatus = "resolved"
	AlertExecSuppressed AlertExecutionStatus = "suppressed"
)

type ReportSchedule struct {
	Frequency  Frequency `json:"frequency"`
	DayOfWeek  *int      `json:"day_of_week,omitempty"`  // 0-6, Sunday first
	DayOfMonth *int      `json:"day_of_month,omitempty"` // 1-31, clamped to short months
	Time       string    `json:"time"`                   // HH:MM
	Timezone   string    `json:"timezone"`
	EndDate    string    `json:"end_date,omitempty"`
	CustomCron string    `json:"custom_cron,omitempty"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Slack bool `json:"slack"`
	Teams bool `json:"teams"`
	InApp bool `json:"in_app"`
}

type ReportRecipient struct {
	ID                      string                  `json:"id"`
	Name                    string                  `json:"name"`
	Email                   string                  `json:"email"`
	Role                    string                  `json:"role"`
	Department              string                  `json:"department"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
}

type DateRangeFilter struct {
	Type      string `json:"type"`
	Value     int    `json:"value,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type ReportFilters struct {
	DateRange         DateRangeFilter `json:"date_range"`
	Locations         []string        `json:"locations,omitempty"`
	Departments       []string        `json:"departments,omitempty"`
	ProductCategories []string        `json:"product_categories,omitempty"`
	Metrics           []string        `json:"metrics,omitempty"`
	ComparisonPeriod  bool            `json:"comparison_period,omitempty"`
}

type AlertCondition struct {
	Operator              Operator `json:"operator"`
	ComparisonType        string   `json:"comparison_type"`
	TimeWindow            string   `json:"time_window,omitempty"`
	ConsecutiveViolations int      `json:"consecutive_violations,omitempty"`
}

// AlertThreshold's limit serializes as "value". The Go field is named
// Limit so the type can also satisfy driver.Valuer for the jsonb column.
type AlertThreshold struct {
	Limit          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Baseline       string  `json:"baseline,omitempty"`
	BaselinePeriod string  `json:"baseline_period,omitempty"`
}

type EscalationRule struct {
	Level        int      `json:"level"`
	DelayMinutes int      `json:"delay_minutes"`
	Recipients   []string `json:"recipients"`
	Actions      []string `json:"actions,omitempty"`
}

type NotificationChannel struct {
	Type    string            `json:"type"` // email | slack | teams | webhook | sms | push
	Config  map[string]string `json:"config,omitempty"`
	Enabled bool              `json:"enabled"`
}

// JSON column wrappers so gorm can persist the nested document fields.

func jsonScan(dest interface{}, value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to scan JSON column: %v", value)
		}
	}
	return json.Unmarshal(bytes, dest)
}

func (s *ReportSchedule) Scan(value interface{}) error { return jsonScan(s, value) }
func (s ReportSchedule) Value() (driver.Value, error)  { return json.Marshal(s) }

func (f *ReportFilters) Scan(value interface{}) error { return jsonScan(f, value) }
func (f ReportFilters) Value() (driver.Value, error)  { return json.Marshal(f) }

func (c *AlertCondition) Scan(value interface{}) error { return jsonScan(c, value) }
func (c AlertCondition) Value() (driver.Value, error)  { return json.Marshal(c) }

func (t *AlertThreshold) Scan(value interface{}) error { return jsonScan(t, value) }
func (t AlertThreshold) Value() (driver.Value, error)  { return json.Marshal(t) }

type RecipientList []ReportRecipient

func (l *RecipientList) Scan(value interface{}) error { return jsonScan(l, value) }
func (l RecipientList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

type ChannelList []NotificationChannel

func (l *ChannelList) Scan(value interface{}) error { return jsonScan(l, value) }
func (l ChannelList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

type EscalationRules []EscalationRule

func (l *EscalationRules) Scan(value interface{}) error { return jsonScan(l, value) }
func (l EscalationRules) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

type StringArray []string

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	return jsonScan(a, value)
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

type Metadata map[string]interface{}

func (m *Metadata) Scan(value interface{}) error { return jsonScan(m, value) }
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// --- Registry Models ---

// ScheduledReport is a recurring report definition. NextRun is nil for
// on_demand schedules.
type ScheduledReport struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ReportType  ReportType     `gorm:"size:50;index" json:"report_type"`
	Schedule    ReportSchedule `gorm:"type:jsonb" json:"schedule"`
	Recipients  RecipientList  `gorm:"type:jsonb" json:"recipients"`
	Format      ReportFormat   `gorm:"size:20" json:"format"`
	Filters     ReportFilters  `gorm:"type:jsonb" json:"filters"`
	Status      ReportStatus   `gorm:"size:20;index" json:"status"`
	NextRun     *time.Time     `gorm:"index" json:"next_run"`
	LastRun     *time.Time     `json:"last_run,omitempty"`
	RunCount    int            `json:"run_count"`
	CreatedBy   string         `gorm:"size:100;index" json:"created_by"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// AlertRule is a recurring threshold check against one named metric.
type AlertRule struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Metric          string          `gorm:"size:100;index" json:"metric"`
	Condition       AlertCondition  `gorm:"type:jsonb" json:"condition"`
	Threshold       AlertThreshold  `gorm:"type:jsonb" json:"threshold"`
	Frequency       string          `gorm:"size:20" json:"frequency"` // real_time | hourly | daily
	Priority        AlertPriority   `gorm:"size:20;index" json:"priority"`
	Recipients      StringArray     `gorm:"type:jsonb" json:"recipients"`
	Channels        ChannelList     `gorm:"type:jsonb" json:"channels"`
	EscalationRules EscalationRules `gorm:"type:jsonb" json:"escalation_rules,omitempty"`
	Status          AlertStatus     `gorm:"size:20;index" json:"status"`
	LastTriggered   *time.Time      `json:"last_triggered,omitempty"`
	TriggerCount    int             `json:"trigger_count"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReportExecution is the append-only audit record of one report run.
type ReportExecution struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	ReportID           string          `gorm:"size:36;index" json:"report_id"`
	ExecutionTime      time.Time       `gorm:"index" json:"execution_time"`
	Status             ExecutionStatus `gorm:"size:20;index" json:"status"`
	DurationMs         int64           `json:"duration_ms,omitempty"`
	FilePath           string          `gorm:"size:512" json:"file_path,omitempty"`
	FileSize           int64           `json:"file_size,omitempty"`
	ErrorMessage       string          `gorm:"type:text" json:"error_message,omitempty"`
	RecipientsNotified int             `json:"recipients_notified"`
	Metadata           Metadata        `gorm:"type:jsonb" json:"metadata"`
}

// AlertExecution is the append-only audit record of one alert trigger.
type AlertExecution struct {
	ID                string               `gorm:"primaryKey;size:36" json:"id"`
	AlertID           string               `gorm:"size:36;index" json:"alert_id"`
	TriggeredAt       time.Time            `gorm:"index" json:"triggered_at"`
	ResolvedAt        *time.Time           `json:"resolved_at,omitempty"`
	Status            AlertExecutionStatus `gorm:"size:20;index" json:"status"`
	TriggerValue      float64              `json:"trigger_value"`
	ThresholdValue    float64              `json:"threshold_value"`
	NotificationsSent int                  `json:"notifications_sent"`
	EscalationLevel   int                  `json:"escalation_level"`
	ResolutionNotes   string               `gorm:"type:text" json:"resolution_notes,omitempty"`
}

// validReportTransition enforces draft -> active <-> paused -> archived.
func validReportTransition(from, to ReportStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case ReportStatusDraft:
		return to == ReportStatusActive
	case ReportStatusActive:
		return to == ReportStatusPaused
	case ReportStatusPaused:
		return to == ReportStatusActive || to == ReportStatusArchived
	case ReportStatusArchived:
		return false
	}
	return false
}
