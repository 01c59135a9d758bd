package variance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendPoints(variancePercentages ...float64) []TrendDataPoint {
	points := make([]TrendDataPoint, len(variancePercentages))
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, pct := range variancePercentages {
		points[i] = TrendDataPoint{
			Date:               base.AddDate(0, 0, i),
			VariancePercentage: pct,
		}
	}
	return points
}

func TestTrendAnalysisWindowBound(t *testing.T) {
	tracker := NewTracker(nil)

	history := []VarianceTrendAnalysis{{
		EntityID:   "ing-1",
		EntityName: "Flour",
		EntityType: "ingredient",
		DataPoints: trendPoints(make([]float64, 45)...),
	}}
	for i := range history[0].DataPoints {
		history[0].DataPoints[i].VariancePercentage = float64(i)
	}

	record := NewIngredientRecord("ing-1", "Flour", IngredientRawMaterial, d("100.00"), d("103.00"))
	record.TransactionIDs = []string{"tx-1", "tx-2"}

	analyses := tracker.TrendAnalysis([]IngredientConsumptionRecord{record}, history)

	require.Len(t, analyses, 1)
	assert.Len(t, analyses[0].DataPoints, TrendWindowSize)

	// The newest point is the current record; the oldest history beyond the
	// window is evicted.
	last := analyses[0].DataPoints[len(analyses[0].DataPoints)-1]
	assert.InDelta(t, 3.0, last.VariancePercentage, 1e-9)
	assert.Equal(t, 2, last.Volume)
	assert.Equal(t, 16.0, analyses[0].DataPoints[0].VariancePercentage)
}

func TestTrendAnalysisNewEntityStartsFresh(t *testing.T) {
	tracker := NewTracker(nil)

	record := NewIngredientRecord("ing-9", "Basil", IngredientRawMaterial, d("10.00"), d("11.00"))
	analyses := tracker.TrendAnalysis([]IngredientConsumptionRecord{record}, nil)

	require.Len(t, analyses, 1)
	assert.Len(t, analyses[0].DataPoints, 1)
	assert.Equal(t, "ingredient", analyses[0].EntityType)
	assert.Equal(t, "daily", analyses[0].Timeframe)
}

func TestAnalyzeTrendDirection(t *testing.T) {
	t.Run("worsening on rising magnitude", func(t *testing.T) {
		summary := analyzeTrendDirection(trendPoints(1, 2, 3, 4, 5))
		assert.Equal(t, TrendWorsening, summary.Direction)
		assert.InDelta(t, 1.0, summary.Slope, 1e-9)
		assert.InDelta(t, 1.0, summary.Confidence, 1e-9)
	})

	t.Run("improving on falling magnitude", func(t *testing.T) {
		summary := analyzeTrendDirection(trendPoints(5, 4, 3, 2, 1))
		assert.Equal(t, TrendImproving, summary.Direction)
	})

	t.Run("stable on flat series", func(t *testing.T) {
		summary := analyzeTrendDirection(trendPoints(2, 2.1, 1.9, 2, 2.05))
		assert.Equal(t, TrendStable, summary.Direction)
	})

	t.Run("volatile wins over slope", func(t *testing.T) {
		// Spread dwarfs the typical level, so the spike series classifies
		// as volatile even though the fitted slope is rising.
		summary := analyzeTrendDirection(trendPoints(0, 0, 0, 0, 10))
		assert.Equal(t, TrendVolatile, summary.Direction)
	})

	t.Run("short series cannot be volatile", func(t *testing.T) {
		summary := analyzeTrendDirection(trendPoints(0, 10))
		assert.NotEqual(t, TrendVolatile, summary.Direction)
	})
}

func TestGenerateForecast(t *testing.T) {
	t.Run("extrapolates one step past the window", func(t *testing.T) {
		forecast := generateForecast(trendPoints(1, 2, 3, 4))
		assert.InDelta(t, 5.0, forecast.NextPeriodPrediction, 1e-9)
		assert.InDelta(t, 5.0, forecast.ConfidenceInterval.Lower, 1e-9)
		assert.InDelta(t, 5.0, forecast.ConfidenceInterval.Upper, 1e-9)
		assert.Equal(t, 95.0, forecast.ConfidenceInterval.Confidence)
	})

	t.Run("risk ladder", func(t *testing.T) {
		cases := []struct {
			series []float64
			risk   ImpactLevel
		}{
			{[]float64{1, 1, 1}, ImpactLow},
			{[]float64{6, 6, 6}, ImpactMedium},
			{[]float64{12, 12, 12}, ImpactHigh},
		}
		for _, tc := range cases {
			t.Run(fmt.Sprintf("level_%v", tc.risk), func(t *testing.T) {
				forecast := generateForecast(trendPoints(tc.series...))
				assert.Equal(t, tc.risk, forecast.RiskAssessment)
				assert.NotEmpty(t, forecast.RecommendedActions)
			})
		}
	})
}
