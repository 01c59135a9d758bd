package variance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedianFloorTakesUpperMiddle(t *testing.T) {
	assert.Equal(t, 0.0, medianFloor(nil))
	assert.Equal(t, 5.0, medianFloor([]float64{5}))
	// Even length resolves to the upper-middle element, no interpolation.
	assert.Equal(t, 3.0, medianFloor([]float64{1, 2, 3, 4}))
	assert.Equal(t, 3.0, medianFloor([]float64{1, 2, 3, 4, 5}))
}

func TestPercentileFloorIndexing(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	assert.Equal(t, 30.0, percentileFloor(sorted, 0.25)) // idx 2
	assert.Equal(t, 60.0, percentileFloor(sorted, 0.50)) // idx 5
	assert.Equal(t, 80.0, percentileFloor(sorted, 0.75)) // idx 7
	// 0.99 * 10 = 9.9 floors to the last element.
	assert.Equal(t, 100.0, percentileFloor(sorted, 0.99))
	assert.Equal(t, 0.0, percentileFloor(nil, 0.5))
}

func TestPopulationStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := mean(values)
	// Classic population example: sigma is exactly 2 when dividing by N.
	assert.InDelta(t, 2.0, populationStdDev(values, m), 1e-12)
}

func TestIQRBounds(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	// q1 = sorted[2] = 3, q3 = sorted[6] = 7, iqr = 4
	lower, upper := iqrBounds(sorted)
	assert.InDelta(t, -3.0, lower, 1e-12)
	assert.InDelta(t, 13.0, upper, 1e-12)
}

func TestOutlierSeverityBoundaries(t *testing.T) {
	assert.Equal(t, OutlierMild, outlierSeverity(1.5))
	assert.Equal(t, OutlierMild, outlierSeverity(2.0))
	assert.Equal(t, OutlierModerate, outlierSeverity(2.5))
	assert.Equal(t, OutlierModerate, outlierSeverity(-2.5))
	assert.Equal(t, OutlierExtreme, outlierSeverity(3.5))
	assert.Equal(t, OutlierExtreme, outlierSeverity(-3.5))
}

func TestWelchTTest(t *testing.T) {
	t.Run("degenerate samples are not significant", func(t *testing.T) {
		result := welchTTest([]float64{1}, []float64{1, 2, 3})
		assert.False(t, result.IsSignificant)
		assert.Equal(t, 1.0, result.PValue)

		// Identical constant samples have zero pooled spread.
		result = welchTTest([]float64{2, 2, 2}, []float64{2, 2, 2})
		assert.False(t, result.IsSignificant)
		assert.Equal(t, 1.0, result.PValue)
	})

	t.Run("well separated samples are significant", func(t *testing.T) {
		sample1 := []float64{1.0, 1.1, 0.9, 1.05, 0.95, 1.02}
		sample2 := []float64{9.0, 9.1, 8.9, 9.05, 8.95, 9.02}
		result := welchTTest(sample1, sample2)
		assert.True(t, result.IsSignificant)
		assert.Less(t, result.PValue, 0.001)
		assert.Negative(t, result.TestStatistic)
	})

	t.Run("same distribution is not significant", func(t *testing.T) {
		sample := []float64{5, 6, 4, 5.5, 4.5, 5.2, 4.8}
		result := welchTTest(sample, sample)
		assert.False(t, result.IsSignificant)
		assert.InDelta(t, 1.0, result.PValue, 1e-9)
	})
}

func TestJarqueBera(t *testing.T) {
	t.Run("tiny or constant samples pass trivially", func(t *testing.T) {
		result := jarqueBera([]float64{1, 2})
		assert.True(t, result.Passed)
		assert.Equal(t, 1.0, result.PValue)

		result = jarqueBera([]float64{3, 3, 3, 3})
		assert.True(t, result.Passed)
		assert.Equal(t, 1.0, result.PValue)
	})

	t.Run("symmetric sample passes", func(t *testing.T) {
		// Symmetric around zero, no heavy tails; JB stays small.
		result := jarqueBera([]float64{-2, -1, 0, 1, 2})
		assert.True(t, result.Passed)
		assert.Greater(t, result.PValue, 0.05)
	})
}

func TestOLSFit(t *testing.T) {
	t.Run("perfect line", func(t *testing.T) {
		slope, intercept, r2, residualStd := olsFit([]float64{3, 5, 7, 9})
		assert.InDelta(t, 2.0, slope, 1e-12)
		assert.InDelta(t, 3.0, intercept, 1e-12)
		assert.InDelta(t, 1.0, r2, 1e-12)
		assert.InDelta(t, 0.0, residualStd, 1e-12)
	})

	t.Run("constant series", func(t *testing.T) {
		slope, intercept, r2, _ := olsFit([]float64{4, 4, 4})
		assert.Equal(t, 0.0, slope)
		assert.Equal(t, 4.0, intercept)
		assert.Equal(t, 1.0, r2)
	})

	t.Run("single point", func(t *testing.T) {
		slope, intercept, r2, residualStd := olsFit([]float64{7})
		assert.Equal(t, 0.0, slope)
		assert.Equal(t, 7.0, intercept)
		assert.Equal(t, 1.0, r2)
		assert.Equal(t, 0.0, residualStd)
	})

	t.Run("empty", func(t *testing.T) {
		slope, intercept, r2, residualStd := olsFit(nil)
		assert.Zero(t, slope)
		assert.Zero(t, intercept)
		assert.Zero(t, r2)
		assert.Zero(t, residualStd)
	})
}
