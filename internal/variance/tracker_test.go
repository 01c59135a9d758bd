package variance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testPeriod() ConsumptionPeriod {
	return ConsumptionPeriod{
		ID:        "2026-08-w1",
		Location:  "downtown",
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewIngredientRecordVarianceIdentity(t *testing.T) {
	r := NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("112.50"))

	assert.True(t, r.CostVariance.Equal(r.ActualCost.Sub(r.TheoreticalCost)))
	assert.True(t, r.CostVariance.Equal(d("12.50")))
	assert.InDelta(t, 12.5, r.VariancePercentage, 1e-9)
}

func TestNewIngredientRecordZeroTheoretical(t *testing.T) {
	r := NewIngredientRecord("ing-1", "Saffron", IngredientRawMaterial, decimal.Zero, d("30.00"))

	assert.True(t, r.CostVariance.Equal(d("30.00")))
	assert.Equal(t, 0.0, r.VariancePercentage)
}

func TestAnalyzeVarianceEmptyInput(t *testing.T) {
	tracker := NewTracker(nil)

	result := tracker.AnalyzeVariance(nil, nil, testPeriod(), nil)

	assert.True(t, result.VarianceAnalysis.TotalTheoreticalCost.IsZero())
	assert.True(t, result.VarianceAnalysis.TotalVariance.IsZero())
	assert.Equal(t, 0.0, result.VarianceAnalysis.TotalVariancePercentage)
	assert.Empty(t, result.VarianceAnalysis.CategoryVariances)
	assert.Empty(t, result.VarianceAnalysis.VarianceDrivers)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.TrendAnalysis)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 0.0, result.StatisticalMetrics.OverallMetrics.MeanVariance)
}

func TestCalculateVarianceAnalysisTotals(t *testing.T) {
	tracker := NewTracker(StaticCategories{"ing-1": "Dairy", "ing-2": "Dairy"})

	records := []IngredientConsumptionRecord{
		NewIngredientRecord("ing-1", "Milk", IngredientRawMaterial, d("50.00"), d("55.00")),
		NewIngredientRecord("ing-2", "Butter", IngredientRawMaterial, d("50.00"), d("45.00")),
		NewIngredientRecord("ing-3", "Napkins", IngredientProduct, d("10.00"), d("12.00")),
	}

	analysis := tracker.calculateVarianceAnalysis(records, nil, testPeriod())

	assert.True(t, analysis.TotalTheoreticalCost.Equal(d("110.00")))
	assert.True(t, analysis.TotalActualCost.Equal(d("112.00")))
	assert.True(t, analysis.TotalVariance.Equal(d("2.00")))

	require.Len(t, analysis.CategoryVariances, 2)
	// Alphabetical ordering keeps output deterministic.
	assert.Equal(t, "Dairy", analysis.CategoryVariances[0].CategoryName)
	assert.Equal(t, "General", analysis.CategoryVariances[1].CategoryName)
	assert.True(t, analysis.CategoryVariances[0].Variance.Equal(d("0.00")))
	assert.True(t, analysis.CategoryVariances[1].Variance.Equal(d("2.00")))
}

func TestAnalyzeVarianceDriversWastage(t *testing.T) {
	withWaste := NewIngredientRecord("ing-1", "Lettuce", IngredientRawMaterial, d("20.00"), d("26.00"))
	withWaste.Wastage = 1.5
	clean := NewIngredientRecord("ing-2", "Salt", IngredientRawMaterial, d("5.00"), d("7.00"))

	drivers := analyzeVarianceDrivers([]IngredientConsumptionRecord{withWaste, clean})

	require.Len(t, drivers, 1)
	assert.Equal(t, "wastage", drivers[0].Driver)
	assert.True(t, drivers[0].Impact.Equal(d("6.00")))
	assert.InDelta(t, 75.0, drivers[0].ImpactPercentage, 1e-9)
	assert.Equal(t, []string{"Lettuce"}, drivers[0].AffectedItems)

	assert.Empty(t, analyzeVarianceDrivers([]IngredientConsumptionRecord{clean}))
}

func TestGenerateAlertsRequiresRegisteredThresholds(t *testing.T) {
	tracker := NewTracker(nil)
	records := []IngredientConsumptionRecord{
		NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("10.00"), d("100.00")),
	}

	alerts := tracker.GenerateAlerts(records, nil, "downtown")
	assert.Empty(t, alerts)
}

func TestGenerateAlertsIngredientTiers(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.SetThresholds("downtown", VarianceThresholds{
		IngredientThresholds: []IngredientThreshold{
			{IngredientID: "ing-1", WarningThreshold: 5, CriticalThreshold: 15},
		},
	})

	t.Run("critical takes precedence over warning", func(t *testing.T) {
		records := []IngredientConsumptionRecord{
			NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("120.00")),
		}
		alerts := tracker.GenerateAlerts(records, nil, "downtown")

		require.Len(t, alerts, 1)
		assert.Equal(t, AlertThresholdExceeded, alerts[0].Type)
		assert.Equal(t, SeverityCritical, alerts[0].Severity)
		assert.Equal(t, "ingredient", alerts[0].EntityType)
		assert.Equal(t, 15.0, alerts[0].ThresholdValue)
	})

	t.Run("warning tier", func(t *testing.T) {
		records := []IngredientConsumptionRecord{
			NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("110.00")),
		}
		alerts := tracker.GenerateAlerts(records, nil, "downtown")

		require.Len(t, alerts, 1)
		assert.Equal(t, AlertHighVariance, alerts[0].Type)
		assert.Equal(t, SeverityWarning, alerts[0].Severity)
	})

	t.Run("within tolerance emits nothing", func(t *testing.T) {
		records := []IngredientConsumptionRecord{
			NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("104.00")),
		}
		assert.Empty(t, tracker.GenerateAlerts(records, nil, "downtown"))
	})

	t.Run("negative variance alerts on magnitude", func(t *testing.T) {
		records := []IngredientConsumptionRecord{
			NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("80.00")),
		}
		alerts := tracker.GenerateAlerts(records, nil, "downtown")
		require.Len(t, alerts, 1)
		assert.Equal(t, SeverityCritical, alerts[0].Severity)
	})
}

func TestGenerateAlertsFractionalToleranceScaling(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.SetThresholds("downtown", VarianceThresholds{
		RecipeThresholds: []RecipeThreshold{
			{
				RecipeID:                          "rec-1",
				AcceptableVariancePercentage:      10,
				FractionalSalesVarianceMultiplier: 2,
			},
		},
	})

	summary := RecipeConsumptionSummary{
		RecipeID:                  "rec-1",
		RecipeName:                "Lasagna",
		TheoreticalIngredientCost: d("100.00"),
		ActualIngredientCost:      d("115.00"),
		IngredientVariance:        d("15.00"),
		TotalProduced:             40,
	}

	t.Run("mostly whole sales use the base tolerance", func(t *testing.T) {
		summary.FractionalSalesPercentage = 40
		alerts := tracker.GenerateAlerts(nil, []RecipeConsumptionSummary{summary}, "downtown")

		require.Len(t, alerts, 1)
		assert.Equal(t, "recipe", alerts[0].EntityType)
		assert.Equal(t, 10.0, alerts[0].ThresholdValue)
		assert.Equal(t, SeverityWarning, alerts[0].Severity)
	})

	t.Run("mostly fractional sales widen the band", func(t *testing.T) {
		// 15% variance sits inside the widened 20% tolerance.
		summary.FractionalSalesPercentage = 60
		assert.Empty(t, tracker.GenerateAlerts(nil, []RecipeConsumptionSummary{summary}, "downtown"))
	})

	t.Run("severity escalates past 1.5x the adjusted tolerance", func(t *testing.T) {
		summary.FractionalSalesPercentage = 40
		summary.ActualIngredientCost = d("120.00")
		summary.IngredientVariance = d("20.00")
		alerts := tracker.GenerateAlerts(nil, []RecipeConsumptionSummary{summary}, "downtown")

		require.Len(t, alerts, 1)
		assert.Equal(t, SeverityCritical, alerts[0].Severity)
	})
}

func TestStatisticalMetricsOutliersAndPercentiles(t *testing.T) {
	tracker := NewTracker(nil)

	records := []IngredientConsumptionRecord{
		NewIngredientRecord("ing-1", "A", IngredientRawMaterial, d("100.00"), d("101.00")),
		NewIngredientRecord("ing-2", "B", IngredientRawMaterial, d("100.00"), d("102.00")),
		NewIngredientRecord("ing-3", "C", IngredientRawMaterial, d("100.00"), d("101.50")),
		NewIngredientRecord("ing-4", "D", IngredientRawMaterial, d("100.00"), d("102.50")),
		NewIngredientRecord("ing-5", "E", IngredientRawMaterial, d("100.00"), d("150.00")),
	}

	metrics := tracker.StatisticalMetrics(records, nil, testPeriod())

	require.Len(t, metrics.DistributionAnalysis.Outliers, 1)
	outlier := metrics.DistributionAnalysis.Outliers[0]
	assert.Equal(t, "ing-5", outlier.EntityID)
	assert.Equal(t, 50.0, outlier.Variance)
	assert.Greater(t, outlier.ZScore, 0.0)

	assert.Equal(t, metrics.DistributionAnalysis.Percentiles.P50, metrics.OverallMetrics.MedianVariance)
	assert.True(t, metrics.DistributionAnalysis.NormalityTest.PValue >= 0)
}

func TestStatisticalMetricsFractionalSplit(t *testing.T) {
	tracker := NewTracker(nil)

	fractional := NewIngredientRecord("ing-1", "Cake", IngredientRawMaterial, d("100.00"), d("110.00"))
	fractional.FractionalContribution = 80
	fractional.WholeItemContribution = 20

	whole := NewIngredientRecord("ing-2", "Pie", IngredientRawMaterial, d("100.00"), d("102.00"))
	whole.WholeItemContribution = 100

	metrics := tracker.StatisticalMetrics([]IngredientConsumptionRecord{fractional, whole}, nil, testPeriod())

	impact := metrics.FractionalSalesImpact
	assert.InDelta(t, 10.0, impact.FractionalVariance, 1e-9)
	assert.InDelta(t, 2.0, impact.WholeItemVariance, 1e-9)
	assert.InDelta(t, 8.0, impact.VarianceDifference, 1e-9)
	assert.InDelta(t, 40.0, impact.FractionalVolumePercentage, 1e-9)
	// Single-observation groups cannot reach significance.
	assert.False(t, impact.SignificanceTest.IsSignificant)
}

func TestRecommendationsDeterministicAndOrdered(t *testing.T) {
	tracker := NewTracker(nil)

	analysis := ConsumptionVarianceAnalysis{
		CategoryVariances: []CategoryVariance{
			{CategoryName: "Dairy", Variance: d("40.00"), VariancePercentage: 12},
			{CategoryName: "Produce", Variance: d("5.00"), VariancePercentage: 3},
		},
	}
	metrics := StatisticalVarianceMetrics{
		DistributionAnalysis: DistributionAnalysis{
			Outliers: []DistributionOutlier{{EntityID: "ing-1"}},
		},
		FractionalSalesImpact: FractionalSalesImpact{
			SignificanceTest:   TestResult{IsSignificant: true},
			VarianceDifference: 4.2,
		},
	}
	trends := []VarianceTrendAnalysis{
		{EntityID: "ing-1", Trend: TrendSummary{Direction: TrendWorsening}},
	}

	first := tracker.Recommendations(analysis, nil, trends, metrics)
	second := tracker.Recommendations(analysis, nil, trends, metrics)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)

	// High priority recommendations sort ahead of medium ones; ties keep
	// their generation order.
	assert.Equal(t, "Waste Reduction", first[0].Category)
	assert.Equal(t, "Trend Reversal", first[1].Category)
	assert.Equal(t, "Fractional Sales", first[2].Category)
	assert.Equal(t, "Process Standardization", first[3].Category)
	assert.Equal(t, "Potential cost savings of $12.00 per period", first[0].ExpectedImpact)
}
