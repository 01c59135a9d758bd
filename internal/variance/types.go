package variance

import (
	"time"

	"github.com/shopspring/decimal"
)

type IngredientType string

const (
	IngredientRawMaterial IngredientType = "raw_material"
	IngredientProduct     IngredientType = "product"
)

type AlertType string

const (
	AlertHighVariance      AlertType = "high_variance"
	AlertNegativeTrend     AlertType = "negative_trend"
	AlertOutlierDetected   AlertType = "outlier_detected"
	AlertThresholdExceeded AlertType = "threshold_exceeded"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type ImpactLevel string

const (
	ImpactNone   ImpactLevel = "none"
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
	TrendVolatile  TrendDirection = "volatile"
)

type ConsumptionPeriod struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// IngredientConsumptionRecord is one ingredient's reconciled consumption for
// a period at a location. Costs are pre-computed by the consumption feed.
type IngredientConsumptionRecord struct {
	IngredientID           string          `json:"ingredientId"`
	IngredientName         string          `json:"ingredientName"`
	IngredientType         IngredientType  `json:"ingredientType"`
	TheoreticalCost        decimal.Decimal `json:"theoreticalCost"`
	ActualCost             decimal.Decimal `json:"actualCost"`
	CostVariance           decimal.Decimal `json:"costVariance"`
	VariancePercentage     float64         `json:"variancePercentage"`
	Wastage                float64         `json:"wastage"`
	FractionalContribution float64         `json:"fractionalContribution"`
	WholeItemContribution  float64         `json:"wholeItemContribution"`
	TransactionIDs         []string        `json:"transactionIds"`
}

// NewIngredientRecord derives the variance fields from the cost pair so the
// variance identity holds by construction. A zero theoretical cost yields a
// zero percentage.
func NewIngredientRecord(id, name string, ingredientType IngredientType, theoretical, actual decimal.Decimal) IngredientConsumptionRecord {
	r := IngredientConsumptionRecord{
		IngredientID:    id,
		IngredientName:  name,
		IngredientType:  ingredientType,
		TheoreticalCost: theoretical,
		ActualCost:      actual,
	}
	r.CostVariance = actual.Sub(theoretical)
	r.VariancePercentage = variancePercent(r.CostVariance, theoretical)
	return r
}

type RecipeConsumptionSummary struct {
	RecipeID                  string          `json:"recipeId"`
	RecipeName                string          `json:"recipeName"`
	TheoreticalIngredientCost decimal.Decimal `json:"theoreticalIngredientCost"`
	ActualIngredientCost      decimal.Decimal `json:"actualIngredientCost"`
	IngredientVariance        decimal.Decimal `json:"ingredientVariance"`
	TotalProduced             int64           `json:"totalProduced"`
	FractionalSalesPercentage float64         `json:"fractionalSalesPercentage"`
}

type IngredientThreshold struct {
	IngredientID                 string  `json:"ingredientId"`
	AcceptableVariancePercentage float64 `json:"acceptableVariancePercentage"`
	WarningThreshold             float64 `json:"warningThreshold"`
	CriticalThreshold            float64 `json:"criticalThreshold"`
	TrendMonitoringDays          int     `json:"trendMonitoringDays"`
}

type RecipeThreshold struct {
	RecipeID                     string  `json:"recipeId"`
	AcceptableVariancePercentage float64 `json:"acceptableVariancePercentage"`
	WarningThreshold             float64 `json:"warningThreshold"`
	CriticalThreshold            float64 `json:"criticalThreshold"`
	// Recipes sold mostly as fractional portions get a wider tolerance band.
	FractionalSalesVarianceMultiplier float64 `json:"fractionalSalesVarianceMultiplier"`
}

type GlobalThresholds struct {
	OverallVarianceThreshold        float64 `json:"overallVarianceThreshold"`
	WastageWarningPercentage        float64 `json:"wastageWarningPercentage"`
	WastageCriticalPercentage       float64 `json:"wastageCriticalPercentage"`
	ProfitMarginWarningThreshold    float64 `json:"profitMarginWarningThreshold"`
	YieldEfficiencyWarningThreshold float64 `json:"yieldEfficiencyWarningThreshold"`
}

type EscalationLevel struct {
	Level                int      `json:"level"`
	ThresholdMultiplier  float64  `json:"thresholdMultiplier"`
	DelayMinutes         int      `json:"delayMinutes"`
	AdditionalRecipients []string `json:"additionalRecipients"`
}

type AlertSettings struct {
	EnableRealTimeAlerts bool              `json:"enableRealTimeAlerts"`
	AlertFrequency       string            `json:"alertFrequency"`
	RecipientRoles       []string          `json:"recipientRoles"`
	EscalationLevels     []EscalationLevel `json:"escalationLevels"`
}

type VarianceThresholds struct {
	LocationID           string                `json:"locationId"`
	IngredientThresholds []IngredientThreshold `json:"ingredientThresholds"`
	RecipeThresholds     []RecipeThreshold     `json:"recipeThresholds"`
	GlobalThresholds     GlobalThresholds      `json:"globalThresholds"`
	AlertSettings        AlertSettings         `json:"alertSettings"`
}

type CategoryVariance struct {
	CategoryName        string          `json:"categoryName"`
	TheoreticalCost     decimal.Decimal `json:"theoreticalCost"`
	ActualCost          decimal.Decimal `json:"actualCost"`
	Variance            decimal.Decimal `json:"variance"`
	VariancePercentage  float64         `json:"variancePercentage"`
	ContributionToTotal float64         `json:"contributionToTotal"`
	Trend               TrendDirection  `json:"trend"`
}

type RecipeVariance struct {
	RecipeID               string          `json:"recipeId"`
	RecipeName             string          `json:"recipeName"`
	FractionalSalesType    string          `json:"fractionalSalesType,omitempty"`
	TheoreticalCost        decimal.Decimal `json:"theoreticalCost"`
	ActualCost             decimal.Decimal `json:"actualCost"`
	Variance               decimal.Decimal `json:"variance"`
	VariancePercentage     float64         `json:"variancePercentage"`
	ProductionCount        int64           `json:"productionCount"`
	AverageVariancePerUnit decimal.Decimal `json:"averageVariancePerUnit"`
}

type VarianceDriver struct {
	Driver             string          `json:"driver"`
	Impact             decimal.Decimal `json:"impact"`
	ImpactPercentage   float64         `json:"impactPercentage"`
	AffectedItems      []string        `json:"affectedItems"`
	RecommendedActions []string        `json:"recommendedActions"`
}

type ConfidenceInterval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

type StatisticalOutlier struct {
	IngredientID       string  `json:"ingredientId"`
	IngredientName     string  `json:"ingredientName"`
	Variance           float64 `json:"variance"`
	StandardDeviations float64 `json:"standardDeviations"`
}

type VarianceStatistics struct {
	MeanVariance       float64              `json:"meanVariance"`
	MedianVariance     float64              `json:"medianVariance"`
	StandardDeviation  float64              `json:"standardDeviation"`
	ConfidenceInterval ConfidenceInterval   `json:"confidenceInterval"`
	Outliers           []StatisticalOutlier `json:"outliers"`
}

// ConsumptionVarianceAnalysis is the top-level report for a period and
// location. Created once per period close, read-only thereafter.
type ConsumptionVarianceAnalysis struct {
	Period                  string             `json:"period"`
	Location                string             `json:"location"`
	AnalysisType            string             `json:"analysisType"`
	TotalTheoreticalCost    decimal.Decimal    `json:"totalTheoreticalCost"`
	TotalActualCost         decimal.Decimal    `json:"totalActualCost"`
	TotalVariance           decimal.Decimal    `json:"totalVariance"`
	TotalVariancePercentage float64            `json:"totalVariancePercentage"`
	CategoryVariances       []CategoryVariance `json:"categoryVariances"`
	RecipeVariances         []RecipeVariance   `json:"recipeVariances"`
	VarianceDrivers         []VarianceDriver   `json:"varianceDrivers"`
	Statistics              VarianceStatistics `json:"statistics"`
	CalculatedAt            time.Time          `json:"calculatedAt"`
}

type ImpactAssessment struct {
	FinancialImpact   decimal.Decimal `json:"financialImpact"`
	OperationalImpact ImpactLevel     `json:"operationalImpact"`
	CustomerImpact    ImpactLevel     `json:"customerImpact"`
}

type VarianceAlert struct {
	ID                 string           `json:"id"`
	Type               AlertType        `json:"type"`
	Severity           AlertSeverity    `json:"severity"`
	EntityType         string           `json:"entityType"`
	EntityID           string           `json:"entityId"`
	EntityName         string           `json:"entityName"`
	Message            string           `json:"message"`
	CurrentValue       decimal.Decimal  `json:"currentValue"`
	ThresholdValue     float64          `json:"thresholdValue"`
	Variance           decimal.Decimal  `json:"variance"`
	VariancePercentage float64          `json:"variancePercentage"`
	Trend              TrendDirection   `json:"trend"`
	SuggestedActions   []string         `json:"suggestedActions"`
	ImpactAssessment   ImpactAssessment `json:"impactAssessment"`
	CreatedAt          time.Time        `json:"createdAt"`
	AcknowledgedAt     *time.Time       `json:"acknowledgedAt,omitempty"`
	ResolvedAt         *time.Time       `json:"resolvedAt,omitempty"`
}

// TrendWindowSize bounds the retained history per entity. Appends beyond the
// window evict the oldest point.
const TrendWindowSize = 30

type TrendDataPoint struct {
	Date               time.Time `json:"date"`
	TheoreticalValue   float64   `json:"theoreticalValue"`
	ActualValue        float64   `json:"actualValue"`
	Variance           float64   `json:"variance"`
	VariancePercentage float64   `json:"variancePercentage"`
	Volume             int       `json:"volume"`
}

type TrendSummary struct {
	Direction   TrendDirection `json:"direction"`
	Slope       float64        `json:"slope"`
	Confidence  float64        `json:"confidence"`
	Seasonality bool           `json:"seasonality"`
	Volatility  float64        `json:"volatility"`
}

type TrendForecast struct {
	NextPeriodPrediction float64            `json:"nextPeriodPrediction"`
	ConfidenceInterval   ConfidenceInterval `json:"confidenceInterval"`
	RiskAssessment       ImpactLevel        `json:"riskAssessment"`
	RecommendedActions   []string           `json:"recommendedActions"`
}

type VarianceTrendAnalysis struct {
	EntityID    string           `json:"entityId"`
	EntityName  string           `json:"entityName"`
	EntityType  string           `json:"entityType"`
	Timeframe   string           `json:"timeframe"`
	DataPoints  []TrendDataPoint `json:"dataPoints"`
	Trend       TrendSummary     `json:"trendAnalysis"`
	Forecasting TrendForecast    `json:"forecasting"`
}

type TestResult struct {
	Passed        bool    `json:"passed"`
	IsSignificant bool    `json:"isSignificant"`
	PValue        float64 `json:"pValue"`
	TestStatistic float64 `json:"testStatistic"`
}

type OutlierSeverity string

const (
	OutlierMild     OutlierSeverity = "mild"
	OutlierModerate OutlierSeverity = "moderate"
	OutlierExtreme  OutlierSeverity = "extreme"
)

type DistributionOutlier struct {
	EntityID   string          `json:"entityId"`
	EntityName string          `json:"entityName"`
	EntityType string          `json:"entityType"`
	Variance   float64         `json:"variance"`
	ZScore     float64         `json:"zScore"`
	Severity   OutlierSeverity `json:"severity"`
}

type PercentileTable struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type OverallMetrics struct {
	MeanVariance           float64 `json:"meanVariance"`
	MedianVariance         float64 `json:"medianVariance"`
	StandardDeviation      float64 `json:"standardDeviation"`
	CoefficientOfVariation float64 `json:"coefficientOfVariation"`
	Skewness               float64 `json:"skewness"`
	Kurtosis               float64 `json:"kurtosis"`
}

type DistributionAnalysis struct {
	NormalityTest TestResult            `json:"normalityTest"`
	Outliers      []DistributionOutlier `json:"outliers"`
	Percentiles   PercentileTable       `json:"percentiles"`
}

type CategoryComparison struct {
	CategoryName      string   `json:"categoryName"`
	MeanVariance      float64  `json:"meanVariance"`
	StandardDeviation float64  `json:"standardDeviation"`
	ItemCount         int      `json:"itemCount"`
	WorstPerformers   []string `json:"worstPerformers"`
	BestPerformers    []string `json:"bestPerformers"`
}

type FractionalSalesImpact struct {
	FractionalVariance         float64    `json:"fractionalVariance"`
	WholeItemVariance          float64    `json:"wholeItemVariance"`
	FractionalVolumePercentage float64    `json:"fractionalVolumePercentage"`
	VarianceDifference         float64    `json:"varianceDifference"`
	SignificanceTest           TestResult `json:"significanceTest"`
}

type StatisticalVarianceMetrics struct {
	Period                string                `json:"period"`
	LocationID            string                `json:"locationId"`
	CalculatedAt          time.Time             `json:"calculatedAt"`
	OverallMetrics        OverallMetrics        `json:"overallMetrics"`
	DistributionAnalysis  DistributionAnalysis  `json:"distributionAnalysis"`
	CategoryComparison    []CategoryComparison  `json:"categoryComparison"`
	FractionalSalesImpact FractionalSalesImpact `json:"fractionalSalesImpact"`
}

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

type Recommendation struct {
	Priority        RecommendationPriority `json:"priority"`
	Category        string                 `json:"category"`
	Action          string                 `json:"action"`
	ExpectedImpact  string                 `json:"expectedImpact"`
	TimeToImplement string                 `json:"timeToImplement"`
	CostEstimate    decimal.Decimal        `json:"costEstimate"`
}

// AnalysisResult bundles everything one AnalyzeVariance run produces.
type AnalysisResult struct {
	VarianceAnalysis   ConsumptionVarianceAnalysis `json:"varianceAnalysis"`
	Alerts             []VarianceAlert             `json:"alerts"`
	TrendAnalysis      []VarianceTrendAnalysis     `json:"trendAnalysis"`
	StatisticalMetrics StatisticalVarianceMetrics  `json:"statisticalMetrics"`
	Recommendations    []Recommendation            `json:"recommendations"`
}

// variancePercent guards the zero denominator; percentage math leaves
// decimal space here since the statistics layer is float64 throughout.
func variancePercent(variance, theoretical decimal.Decimal) float64 {
	if theoretical.IsZero() {
		return 0
	}
	pct, _ := variance.Div(theoretical).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
