package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gastro-analytics/internal/reporting"
)

type ReportingHTTPHandler struct {
	service *reporting.Service
}

func NewReportingHTTPHandler(service *reporting.Service) *ReportingHTTPHandler {
	return &ReportingHTTPHandler{service: service}
}

// Query structs
type ListReportsQuery struct {
	Status     string `form:"status"`
	ReportType string `form:"report_type"`
	CreatedBy  string `form:"created_by"`
}

type ListAlertsQuery struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Metric   string `form:"metric"`
}

type AnalyticsQuery struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
}

type CheckAlertsRequest struct {
	Metrics map[string]float64 `json:"metrics" binding:"required"`
}

type ResolveAlertRequest struct {
	Notes string `json:"notes"`
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

// --- Report Handlers ---

func (h *ReportingHTTPHandler) CreateReport(c *gin.Context) {
	var report reporting.ScheduledReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.service.CreateScheduledReport(ctx, &report); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Report created successfully", report))
}

func (h *ReportingHTTPHandler) ListReports(c *gin.Context) {
	var query ListReportsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	reports, err := h.service.GetScheduledReports(ctx, reporting.ReportFilter{
		Status:     reporting.ReportStatus(query.Status),
		ReportType: reporting.ReportType(query.ReportType),
		CreatedBy:  query.CreatedBy,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Reports retrieved successfully", reports, gin.H{
		"total": len(reports),
	}))
}

func (h *ReportingHTTPHandler) GetReport(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	report, err := h.service.GetScheduledReport(ctx, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Report retrieved successfully", report))
}

func (h *ReportingHTTPHandler) UpdateReport(c *gin.Context) {
	var updates reporting.ReportUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	report, err := h.service.UpdateScheduledReport(ctx, c.Param("id"), updates)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Report updated successfully", report))
}

func (h *ReportingHTTPHandler) DeleteReport(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	if err := h.service.DeleteScheduledReport(ctx, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Report deleted successfully", nil))
}

func (h *ReportingHTTPHandler) ExecuteReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	execution, err := h.service.ExecuteReport(ctx, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Report execution finished", execution))
}

func (h *ReportingHTTPHandler) ListExecutions(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	executions, err := h.service.ListExecutions(ctx, reporting.ExecutionRange{ReportID: c.Param("id")})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Executions retrieved successfully", executions, gin.H{
		"total": len(executions),
	}))
}

// --- Alert Handlers ---

func (h *ReportingHTTPHandler) CreateAlertRule(c *gin.Context) {
	var rule reporting.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := h.service.CreateAlertRule(ctx, &rule); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Alert rule created successfully", rule))
}

func (h *ReportingHTTPHandler) ListAlertRules(c *gin.Context) {
	var query ListAlertsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	rules, err := h.service.GetAlertRules(ctx, reporting.AlertRuleFilter{
		Status:   reporting.AlertStatus(query.Status),
		Priority: reporting.AlertPriority(query.Priority),
		Metric:   query.Metric,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Alert rules retrieved successfully", rules, gin.H{
		"total": len(rules),
	}))
}

func (h *ReportingHTTPHandler) GetAlertRule(c *gin.Context) {
	ctx, cancel := requestContext()
	defer cancel()

	rule, err := h.service.GetAlertRule(ctx, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Alert rule retrieved successfully", rule))
}

func (h *ReportingHTTPHandler) CheckAlerts(c *gin.Context) {
	var req CheckAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	triggered, err := h.service.CheckAlerts(ctx, req.Metrics)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Alert check completed", triggered, gin.H{
		"triggered": len(triggered),
	}))
}

func (h *ReportingHTTPHandler) ResolveAlert(c *gin.Context) {
	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	resolved, err := h.service.ResolveAlert(ctx, c.Param("id"), req.Notes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !resolved {
		c.JSON(http.StatusNotFound, errorResponse("Alert rule not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Alert resolved successfully", nil))
}

// --- Analytics ---

func (h *ReportingHTTPHandler) ReportingAnalytics(c *gin.Context) {
	var query AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query format: "+err.Error()))
		return
	}

	start, err := time.Parse(time.RFC3339, query.Start)
	if err != nil {
		if start, err = time.Parse("2006-01-02", query.Start); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid start date"))
			return
		}
	}
	end, err := time.Parse(time.RFC3339, query.End)
	if err != nil {
		if end, err = time.Parse("2006-01-02", query.End); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid end date"))
			return
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	analytics, err := h.service.Analytics(ctx, start, end)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Analytics retrieved successfully", analytics))
}
