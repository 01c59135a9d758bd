package variance

import (
	"math"
	"time"
)

const (
	// Slope of |variance%| per appended point beyond which the series is
	// classified as moving rather than stable.
	trendSlopeThreshold = 0.25
	// Volatility above this multiple of the mean absolute variance level
	// classifies the series as volatile regardless of slope.
	trendVolatilityRatio = 1.5

	forecastHighRisk   = 10.0
	forecastMediumRisk = 5.0
)

// TrendAnalysis appends the current period's records onto their per-entity
// trend windows and rebuilds direction and forecast for each. The window
// never retains more than TrendWindowSize points; the oldest are evicted.
func (t *Tracker) TrendAnalysis(currentRecords []IngredientConsumptionRecord, historicalTrends []VarianceTrendAnalysis) []VarianceTrendAnalysis {
	byEntity := make(map[string]*VarianceTrendAnalysis, len(historicalTrends))
	for i := range historicalTrends {
		byEntity[historicalTrends[i].EntityID] = &historicalTrends[i]
	}

	analyses := make([]VarianceTrendAnalysis, 0, len(currentRecords))
	now := time.Now()

	for _, record := range currentRecords {
		theoretical, _ := record.TheoreticalCost.Float64()
		actual, _ := record.ActualCost.Float64()
		varianceValue, _ := record.CostVariance.Float64()

		newPoint := TrendDataPoint{
			Date:               now,
			TheoreticalValue:   theoretical,
			ActualValue:        actual,
			Variance:           varianceValue,
			VariancePercentage: record.VariancePercentage,
			Volume:             len(record.TransactionIDs),
		}

		var dataPoints []TrendDataPoint
		if existing, ok := byEntity[record.IngredientID]; ok {
			prior := existing.DataPoints
			if len(prior) > TrendWindowSize-1 {
				prior = prior[len(prior)-(TrendWindowSize-1):]
			}
			dataPoints = append(append([]TrendDataPoint{}, prior...), newPoint)
		} else {
			dataPoints = []TrendDataPoint{newPoint}
		}

		analyses = append(analyses, VarianceTrendAnalysis{
			EntityID:    record.IngredientID,
			EntityName:  record.IngredientName,
			EntityType:  "ingredient",
			Timeframe:   "daily",
			DataPoints:  dataPoints,
			Trend:       analyzeTrendDirection(dataPoints),
			Forecasting: generateForecast(dataPoints),
		})
	}

	return analyses
}

// analyzeTrendDirection fits the absolute variance percentage series by
// ordinary least squares. Confidence is the regression R².
func analyzeTrendDirection(dataPoints []TrendDataPoint) TrendSummary {
	raw := make([]float64, len(dataPoints))
	absSeries := make([]float64, len(dataPoints))
	for i, p := range dataPoints {
		raw[i] = p.VariancePercentage
		absSeries[i] = math.Abs(p.VariancePercentage)
	}

	slope, _, r2, _ := olsFit(absSeries)
	volatility := populationStdDev(raw, mean(raw))
	meanAbs := mean(absSeries)

	direction := TrendStable
	switch {
	case len(dataPoints) >= 3 && volatility > trendVolatilityRatio*math.Max(meanAbs, 1):
		direction = TrendVolatile
	case slope > trendSlopeThreshold:
		direction = TrendWorsening
	case slope < -trendSlopeThreshold:
		direction = TrendImproving
	}

	return TrendSummary{
		Direction:  direction,
		Slope:      slope,
		Confidence: r2,
		Volatility: volatility,
	}
}

// generateForecast extrapolates the fitted line one step past the window and
// frames it with a symmetric interval from the residual spread.
func generateForecast(dataPoints []TrendDataPoint) TrendForecast {
	series := make([]float64, len(dataPoints))
	for i, p := range dataPoints {
		series[i] = p.VariancePercentage
	}

	slope, intercept, _, residualStd := olsFit(series)
	prediction := intercept + slope*float64(len(series))
	margin := 1.96 * residualStd

	risk := ImpactLow
	actions := []string{"Continue routine monitoring"}
	switch {
	case math.Abs(prediction) > forecastHighRisk:
		risk = ImpactHigh
		actions = []string{"Investigate root cause before next period", "Tighten portion controls"}
	case math.Abs(prediction) > forecastMediumRisk:
		risk = ImpactMedium
		actions = []string{"Monitor closely", "Review if variance increases"}
	}

	return TrendForecast{
		NextPeriodPrediction: prediction,
		ConfidenceInterval: ConfidenceInterval{
			Lower:      prediction - margin,
			Upper:      prediction + margin,
			Confidence: 95,
		},
		RiskAssessment:     risk,
		RecommendedActions: actions,
	}
}
