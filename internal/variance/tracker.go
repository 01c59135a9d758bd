package variance

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryResolver maps an ingredient to its reporting category. The
// category breakdown is only as good as this mapping, so it is injected
// rather than hardcoded.
type CategoryResolver interface {
	CategoryFor(ingredientID string) string
}

const defaultCategory = "General"

// StaticCategories is a fixed in-memory resolver; unmapped ingredients fall
// back to the default category.
type StaticCategories map[string]string

func (s StaticCategories) CategoryFor(ingredientID string) string {
	if c, ok := s[ingredientID]; ok && c != "" {
		return c
	}
	return defaultCategory
}

// Tracker is the consumption variance engine. Thresholds are registered per
// location; everything else operates on caller-supplied snapshots.
type Tracker struct {
	mu         sync.RWMutex
	thresholds map[string]VarianceThresholds
	categories CategoryResolver
}

func NewTracker(categories CategoryResolver) *Tracker {
	if categories == nil {
		categories = StaticCategories{}
	}
	return &Tracker{
		thresholds: make(map[string]VarianceThresholds),
		categories: categories,
	}
}

func (t *Tracker) SetThresholds(locationID string, thresholds VarianceThresholds) {
	t.mu.Lock()
	defer t.mu.Unlock()
	thresholds.LocationID = locationID
	t.thresholds[locationID] = thresholds
}

func (t *Tracker) Thresholds(locationID string) (VarianceThresholds, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	th, ok := t.thresholds[locationID]
	return th, ok
}

// AnalyzeVariance composes the full analysis pipeline for one period:
// aggregate breakdowns, threshold alerts, trend windows, distribution
// statistics and the recommendation list. Pure over its inputs aside from
// the threshold registry lookup; degenerate input yields zeroed output.
func (t *Tracker) AnalyzeVariance(
	ingredientRecords []IngredientConsumptionRecord,
	recipeSummaries []RecipeConsumptionSummary,
	period ConsumptionPeriod,
	historicalTrends []VarianceTrendAnalysis,
) AnalysisResult {
	varianceAnalysis := t.calculateVarianceAnalysis(ingredientRecords, recipeSummaries, period)
	alerts := t.GenerateAlerts(ingredientRecords, recipeSummaries, period.Location)
	trendAnalysis := t.TrendAnalysis(ingredientRecords, historicalTrends)
	statisticalMetrics := t.StatisticalMetrics(ingredientRecords, recipeSummaries, period)
	recommendations := t.Recommendations(varianceAnalysis, alerts, trendAnalysis, statisticalMetrics)

	return AnalysisResult{
		VarianceAnalysis:   varianceAnalysis,
		Alerts:             alerts,
		TrendAnalysis:      trendAnalysis,
		StatisticalMetrics: statisticalMetrics,
		Recommendations:    recommendations,
	}
}

func (t *Tracker) calculateVarianceAnalysis(
	ingredientRecords []IngredientConsumptionRecord,
	recipeSummaries []RecipeConsumptionSummary,
	period ConsumptionPeriod,
) ConsumptionVarianceAnalysis {
	totalTheoretical := decimal.Zero
	totalActual := decimal.Zero
	for _, r := range ingredientRecords {
		totalTheoretical = totalTheoretical.Add(r.TheoreticalCost)
		totalActual = totalActual.Add(r.ActualCost)
	}
	totalVariance := totalActual.Sub(totalTheoretical)
	totalVariancePercentage := variancePercent(totalVariance, totalTheoretical)

	// Category breakdown, keyed through the injected resolver.
	type categoryBucket struct {
		theoretical decimal.Decimal
		actual      decimal.Decimal
		items       []IngredientConsumptionRecord
	}
	buckets := make(map[string]*categoryBucket)
	for _, r := range ingredientRecords {
		name := t.categories.CategoryFor(r.IngredientID)
		b, ok := buckets[name]
		if !ok {
			b = &categoryBucket{theoretical: decimal.Zero, actual: decimal.Zero}
			buckets[name] = b
		}
		b.theoretical = b.theoretical.Add(r.TheoreticalCost)
		b.actual = b.actual.Add(r.ActualCost)
		b.items = append(b.items, r)
	}

	categoryNames := make([]string, 0, len(buckets))
	for name := range buckets {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	categoryVariances := make([]CategoryVariance, 0, len(buckets))
	for _, name := range categoryNames {
		b := buckets[name]
		variance := b.actual.Sub(b.theoretical)
		contribution := 0.0
		if totalTheoretical.IsPositive() {
			contribution, _ = b.theoretical.Div(totalTheoretical).Mul(decimal.NewFromInt(100)).Float64()
		}
		categoryVariances = append(categoryVariances, CategoryVariance{
			CategoryName:        name,
			TheoreticalCost:     b.theoretical,
			ActualCost:          b.actual,
			Variance:            variance,
			VariancePercentage:  variancePercent(variance, b.theoretical),
			ContributionToTotal: contribution,
			Trend:               TrendStable,
		})
	}

	recipeVariances := make([]RecipeVariance, 0, len(recipeSummaries))
	for _, recipe := range recipeSummaries {
		avgPerUnit := decimal.Zero
		if recipe.TotalProduced > 0 {
			avgPerUnit = recipe.IngredientVariance.Div(decimal.NewFromInt(recipe.TotalProduced))
		}
		recipeVariances = append(recipeVariances, RecipeVariance{
			RecipeID:               recipe.RecipeID,
			RecipeName:             recipe.RecipeName,
			FractionalSalesType:    fractionalSalesType(recipe),
			TheoreticalCost:        recipe.TheoreticalIngredientCost,
			ActualCost:             recipe.ActualIngredientCost,
			Variance:               recipe.IngredientVariance,
			VariancePercentage:     variancePercent(recipe.IngredientVariance, recipe.TheoreticalIngredientCost),
			ProductionCount:        recipe.TotalProduced,
			AverageVariancePerUnit: avgPerUnit,
		})
	}

	return ConsumptionVarianceAnalysis{
		Period:                  period.ID,
		Location:                period.Location,
		AnalysisType:            "custom",
		TotalTheoreticalCost:    totalTheoretical,
		TotalActualCost:         totalActual,
		TotalVariance:           totalVariance,
		TotalVariancePercentage: totalVariancePercentage,
		CategoryVariances:       categoryVariances,
		RecipeVariances:         recipeVariances,
		VarianceDrivers:         analyzeVarianceDrivers(ingredientRecords),
		Statistics:              calculateStatistics(ingredientRecords),
		CalculatedAt:            time.Now(),
	}
}

func fractionalSalesType(recipe RecipeConsumptionSummary) string {
	if recipe.FractionalSalesPercentage > 50 {
		return "mixed"
	}
	return ""
}

// analyzeVarianceDrivers buckets records by cause. Wastage is the only
// driver currently attributed by the consumption feed.
func analyzeVarianceDrivers(ingredientRecords []IngredientConsumptionRecord) []VarianceDriver {
	impact := decimal.Zero
	totalAbs := decimal.Zero
	var affected []string
	for _, r := range ingredientRecords {
		totalAbs = totalAbs.Add(r.CostVariance.Abs())
		if r.Wastage > 0 {
			impact = impact.Add(r.CostVariance.Abs())
			affected = append(affected, r.IngredientName)
		}
	}
	if len(affected) == 0 {
		return []VarianceDriver{}
	}

	impactPercentage := 0.0
	if totalAbs.IsPositive() {
		impactPercentage, _ = impact.Div(totalAbs).Mul(decimal.NewFromInt(100)).Float64()
	}

	return []VarianceDriver{{
		Driver:           "wastage",
		Impact:           impact,
		ImpactPercentage: impactPercentage,
		AffectedItems:    affected,
		RecommendedActions: []string{
			"Review storage procedures",
			"Improve portion control",
			"Train staff on waste reduction",
		},
	}}
}

func calculateStatistics(ingredientRecords []IngredientConsumptionRecord) VarianceStatistics {
	variances := make([]float64, len(ingredientRecords))
	for i, r := range ingredientRecords {
		variances[i] = r.VariancePercentage
	}

	m := mean(variances)
	sorted := sortedCopy(variances)
	median := medianFloor(sorted)
	stdDev := populationStdDev(variances, m)

	var outliers []StatisticalOutlier
	for _, r := range ingredientRecords {
		if stdDev > 0 && math.Abs(r.VariancePercentage-m) > 2*stdDev {
			outliers = append(outliers, StatisticalOutlier{
				IngredientID:       r.IngredientID,
				IngredientName:     r.IngredientName,
				Variance:           r.VariancePercentage,
				StandardDeviations: math.Abs(r.VariancePercentage-m) / stdDev,
			})
		}
	}

	return VarianceStatistics{
		MeanVariance:      m,
		MedianVariance:    median,
		StandardDeviation: stdDev,
		ConfidenceInterval: ConfidenceInterval{
			Lower:      m - 1.96*stdDev,
			Upper:      m + 1.96*stdDev,
			Confidence: 95,
		},
		Outliers: outliers,
	}
}

// GenerateAlerts evaluates every record and recipe against the location's
// registered thresholds. Without a registered threshold set the location
// cannot alert and the result is empty; there are no implicit defaults.
func (t *Tracker) GenerateAlerts(
	ingredientRecords []IngredientConsumptionRecord,
	recipeSummaries []RecipeConsumptionSummary,
	locationID string,
) []VarianceAlert {
	thresholds, ok := t.Thresholds(locationID)
	if !ok {
		return []VarianceAlert{}
	}

	ingredientThresholds := make(map[string]IngredientThreshold, len(thresholds.IngredientThresholds))
	for _, th := range thresholds.IngredientThresholds {
		ingredientThresholds[th.IngredientID] = th
	}
	recipeThresholds := make(map[string]RecipeThreshold, len(thresholds.RecipeThresholds))
	for _, th := range thresholds.RecipeThresholds {
		recipeThresholds[th.RecipeID] = th
	}

	alerts := []VarianceAlert{}

	for _, record := range ingredientRecords {
		threshold, ok := ingredientThresholds[record.IngredientID]
		if !ok {
			continue
		}

		// Critical takes precedence; a record never emits both tiers.
		switch {
		case math.Abs(record.VariancePercentage) > threshold.CriticalThreshold:
			alerts = append(alerts, VarianceAlert{
				ID:                 fmt.Sprintf("ingredient-%s-%s", record.IngredientID, uuid.NewString()),
				Type:               AlertThresholdExceeded,
				Severity:           SeverityCritical,
				EntityType:         "ingredient",
				EntityID:           record.IngredientID,
				EntityName:         record.IngredientName,
				Message:            fmt.Sprintf("%s variance (%.1f%%) exceeds critical threshold", record.IngredientName, record.VariancePercentage),
				CurrentValue:       record.ActualCost,
				ThresholdValue:     threshold.CriticalThreshold,
				Variance:           record.CostVariance,
				VariancePercentage: record.VariancePercentage,
				Trend:              TrendStable,
				SuggestedActions: []string{
					"Review recipe specifications",
					"Check portion control procedures",
					"Investigate storage conditions",
					"Train staff on proper handling",
				},
				ImpactAssessment: ingredientImpact(record),
				CreatedAt:        time.Now(),
			})
		case math.Abs(record.VariancePercentage) > threshold.WarningThreshold:
			alerts = append(alerts, VarianceAlert{
				ID:                 fmt.Sprintf("ingredient-%s-%s", record.IngredientID, uuid.NewString()),
				Type:               AlertHighVariance,
				Severity:           SeverityWarning,
				EntityType:         "ingredient",
				EntityID:           record.IngredientID,
				EntityName:         record.IngredientName,
				Message:            fmt.Sprintf("%s variance (%.1f%%) exceeds warning threshold", record.IngredientName, record.VariancePercentage),
				CurrentValue:       record.ActualCost,
				ThresholdValue:     threshold.WarningThreshold,
				Variance:           record.CostVariance,
				VariancePercentage: record.VariancePercentage,
				Trend:              TrendStable,
				SuggestedActions: []string{
					"Monitor closely",
					"Review preparation procedures",
					"Check inventory handling",
				},
				ImpactAssessment: ImpactAssessment{
					FinancialImpact:   record.CostVariance.Abs(),
					OperationalImpact: ImpactMedium,
					CustomerImpact:    ImpactLow,
				},
				CreatedAt: time.Now(),
			})
		}
	}

	for _, recipe := range recipeSummaries {
		threshold, ok := recipeThresholds[recipe.RecipeID]
		if !ok {
			continue
		}

		adjustedThreshold := threshold.AcceptableVariancePercentage
		if recipe.FractionalSalesPercentage > 50 {
			adjustedThreshold *= threshold.FractionalSalesVarianceMultiplier
		}

		recipePct := variancePercent(recipe.IngredientVariance, recipe.TheoreticalIngredientCost)
		if math.Abs(recipePct) <= adjustedThreshold {
			continue
		}

		severity := SeverityWarning
		if math.Abs(recipePct) > adjustedThreshold*1.5 {
			severity = SeverityCritical
		}

		alerts = append(alerts, VarianceAlert{
			ID:                 fmt.Sprintf("recipe-%s-%s", recipe.RecipeID, uuid.NewString()),
			Type:               AlertThresholdExceeded,
			Severity:           severity,
			EntityType:         "recipe",
			EntityID:           recipe.RecipeID,
			EntityName:         recipe.RecipeName,
			Message:            fmt.Sprintf("%s variance (%.1f%%) exceeds threshold", recipe.RecipeName, recipePct),
			CurrentValue:       recipe.ActualIngredientCost,
			ThresholdValue:     adjustedThreshold,
			Variance:           recipe.IngredientVariance,
			VariancePercentage: recipePct,
			Trend:              TrendStable,
			SuggestedActions: []string{
				"Review recipe yield calculations",
				"Audit fractional portion sizes",
				"Check ingredient substitutions",
				"Verify cooking procedures",
			},
			ImpactAssessment: recipeImpact(recipe),
			CreatedAt:        time.Now(),
		})
	}

	return alerts
}

func ingredientImpact(record IngredientConsumptionRecord) ImpactAssessment {
	operational := ImpactMedium
	if math.Abs(record.VariancePercentage) > 15 {
		operational = ImpactHigh
	}
	customer := ImpactLow
	if record.IngredientType == IngredientProduct {
		customer = ImpactMedium
	}
	return ImpactAssessment{
		FinancialImpact:   record.CostVariance.Abs(),
		OperationalImpact: operational,
		CustomerImpact:    customer,
	}
}

func recipeImpact(recipe RecipeConsumptionSummary) ImpactAssessment {
	operational := ImpactMedium
	if recipe.FractionalSalesPercentage > 70 {
		operational = ImpactHigh
	}
	customer := ImpactLow
	if recipe.FractionalSalesPercentage > 50 {
		customer = ImpactMedium
	}
	return ImpactAssessment{
		FinancialImpact:   recipe.IngredientVariance.Abs(),
		OperationalImpact: operational,
		CustomerImpact:    customer,
	}
}

// StatisticalMetrics builds the period's distribution summary over the
// variance percentages.
func (t *Tracker) StatisticalMetrics(
	ingredientRecords []IngredientConsumptionRecord,
	recipeSummaries []RecipeConsumptionSummary,
	period ConsumptionPeriod,
) StatisticalVarianceMetrics {
	variances := make([]float64, len(ingredientRecords))
	for i, r := range ingredientRecords {
		variances[i] = r.VariancePercentage
	}

	m := mean(variances)
	sorted := sortedCopy(variances)
	median := medianFloor(sorted)
	stdDev := populationStdDev(variances, m)

	cv := 0.0
	if m != 0 {
		cv = stdDev / math.Abs(m) * 100
	}

	lowerBound, upperBound := iqrBounds(sorted)
	outliers := []DistributionOutlier{}
	for _, r := range ingredientRecords {
		if r.VariancePercentage < lowerBound || r.VariancePercentage > upperBound {
			z := zScore(r.VariancePercentage, m, stdDev)
			outliers = append(outliers, DistributionOutlier{
				EntityID:   r.IngredientID,
				EntityName: r.IngredientName,
				EntityType: "ingredient",
				Variance:   r.VariancePercentage,
				ZScore:     z,
				Severity:   outlierSeverity(z),
			})
		}
	}

	percentiles := PercentileTable{
		P10: percentileFloor(sorted, 0.10),
		P25: percentileFloor(sorted, 0.25),
		P50: median,
		P75: percentileFloor(sorted, 0.75),
		P90: percentileFloor(sorted, 0.90),
		P95: percentileFloor(sorted, 0.95),
		P99: percentileFloor(sorted, 0.99),
	}

	// Fractional vs whole-item split with a proper significance test.
	var fractional, whole []float64
	totalFractional, totalWhole := 0.0, 0.0
	for _, r := range ingredientRecords {
		if r.FractionalContribution > 0 {
			fractional = append(fractional, r.VariancePercentage)
		}
		if r.WholeItemContribution > r.FractionalContribution {
			whole = append(whole, r.VariancePercentage)
		}
		totalFractional += r.FractionalContribution
		totalWhole += r.WholeItemContribution
	}

	fractionalVolumePercentage := 0.0
	if totalFractional+totalWhole > 0 {
		fractionalVolumePercentage = totalFractional / (totalFractional + totalWhole) * 100
	}

	return StatisticalVarianceMetrics{
		Period:       period.ID,
		LocationID:   period.Location,
		CalculatedAt: time.Now(),
		OverallMetrics: OverallMetrics{
			MeanVariance:           m,
			MedianVariance:         median,
			StandardDeviation:      stdDev,
			CoefficientOfVariation: cv,
			Skewness:               skewness(variances, m, stdDev),
			Kurtosis:               kurtosisExcess(variances, m, stdDev),
		},
		DistributionAnalysis: DistributionAnalysis{
			NormalityTest: jarqueBera(variances),
			Outliers:      outliers,
			Percentiles:   percentiles,
		},
		CategoryComparison: t.categoryComparison(ingredientRecords),
		FractionalSalesImpact: FractionalSalesImpact{
			FractionalVariance:         mean(fractional),
			WholeItemVariance:          mean(whole),
			FractionalVolumePercentage: fractionalVolumePercentage,
			VarianceDifference:         mean(fractional) - mean(whole),
			SignificanceTest:           welchTTest(fractional, whole),
		},
	}
}

func (t *Tracker) categoryComparison(ingredientRecords []IngredientConsumptionRecord) []CategoryComparison {
	grouped := make(map[string][]IngredientConsumptionRecord)
	for _, r := range ingredientRecords {
		name := t.categories.CategoryFor(r.IngredientID)
		grouped[name] = append(grouped[name], r)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	comparisons := make([]CategoryComparison, 0, len(grouped))
	for _, name := range names {
		records := grouped[name]
		variances := make([]float64, len(records))
		for i, r := range records {
			variances[i] = r.VariancePercentage
		}
		m := mean(variances)
		sd := populationStdDev(variances, m)

		worst := append([]IngredientConsumptionRecord{}, records...)
		sort.SliceStable(worst, func(i, j int) bool {
			return math.Abs(worst[i].VariancePercentage) > math.Abs(worst[j].VariancePercentage)
		})
		best := append([]IngredientConsumptionRecord{}, records...)
		sort.SliceStable(best, func(i, j int) bool {
			return math.Abs(best[i].VariancePercentage) < math.Abs(best[j].VariancePercentage)
		})

		comparisons = append(comparisons, CategoryComparison{
			CategoryName:      name,
			MeanVariance:      m,
			StandardDeviation: sd,
			ItemCount:         len(records),
			WorstPerformers:   topNames(worst, 5),
			BestPerformers:    topNames(best, 5),
		})
	}
	return comparisons
}

func topNames(records []IngredientConsumptionRecord, n int) []string {
	if len(records) < n {
		n = len(records)
	}
	names := make([]string, 0, n)
	for _, r := range records[:n] {
		names = append(names, r.IngredientName)
	}
	return names
}

// Recommendations is rule based: fixed thresholds trigger fixed templates.
// Output is deterministic for identical inputs and sorted high to low.
func (t *Tracker) Recommendations(
	varianceAnalysis ConsumptionVarianceAnalysis,
	alerts []VarianceAlert,
	trendAnalysis []VarianceTrendAnalysis,
	statisticalMetrics StatisticalVarianceMetrics,
) []Recommendation {
	recommendations := []Recommendation{}

	highVarianceTotal := decimal.Zero
	highVarianceCategories := 0
	for _, c := range varianceAnalysis.CategoryVariances {
		if math.Abs(c.VariancePercentage) > 10 {
			highVarianceCategories++
			highVarianceTotal = highVarianceTotal.Add(c.Variance.Abs())
		}
	}
	if highVarianceCategories > 0 {
		savings := highVarianceTotal.Mul(decimal.NewFromFloat(0.3))
		recommendations = append(recommendations, Recommendation{
			Priority:        PriorityHigh,
			Category:        "Waste Reduction",
			Action:          "Implement stricter portion control procedures for high-variance ingredients",
			ExpectedImpact:  fmt.Sprintf("Potential cost savings of $%s per period", savings.StringFixed(2)),
			TimeToImplement: "2-4 weeks",
			CostEstimate:    decimal.NewFromInt(500),
		})
	}

	if statisticalMetrics.FractionalSalesImpact.SignificanceTest.IsSignificant {
		recommendations = append(recommendations, Recommendation{
			Priority:        PriorityMedium,
			Category:        "Fractional Sales",
			Action:          "Optimize fractional portion sizes to reduce variance",
			ExpectedImpact:  fmt.Sprintf("Reduce fractional sales variance by %.1f%%", math.Abs(statisticalMetrics.FractionalSalesImpact.VarianceDifference)),
			TimeToImplement: "3-6 weeks",
			CostEstimate:    decimal.NewFromInt(800),
		})
	}

	if len(statisticalMetrics.DistributionAnalysis.Outliers) > 0 {
		recommendations = append(recommendations, Recommendation{
			Priority:        PriorityMedium,
			Category:        "Process Standardization",
			Action:          "Review processes for ingredients with extreme variance outliers",
			ExpectedImpact:  "Improve consistency and reduce waste variability",
			TimeToImplement: "4-8 weeks",
			CostEstimate:    decimal.NewFromInt(1200),
		})
	}

	worsening := 0
	for _, tr := range trendAnalysis {
		if tr.Trend.Direction == TrendWorsening {
			worsening++
		}
	}
	if worsening > 0 {
		recommendations = append(recommendations, Recommendation{
			Priority:        PriorityHigh,
			Category:        "Trend Reversal",
			Action:          fmt.Sprintf("Address worsening trends in %d ingredients", worsening),
			ExpectedImpact:  "Prevent further deterioration of variance metrics",
			TimeToImplement: "1-2 weeks",
			CostEstimate:    decimal.NewFromInt(300),
		})
	}

	priorityRank := map[RecommendationPriority]int{PriorityHigh: 3, PriorityMedium: 2, PriorityLow: 1}
	sort.SliceStable(recommendations, func(i, j int) bool {
		return priorityRank[recommendations[i].Priority] > priorityRank[recommendations[j].Priority]
	})

	return recommendations
}
