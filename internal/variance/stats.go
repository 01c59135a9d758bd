package variance

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Descriptive statistics are hand-rolled because the analysis contract fixes
// simplified semantics: floor-index percentiles with no interpolation,
// middle-element median, and population (divide by N) standard deviation.
// Library routines interpolate and use sample variance, which would shift
// every downstream threshold comparison.

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// medianFloor takes the middle element of the sorted slice. Even-length
// inputs resolve to the upper-middle element, not an interpolated midpoint.
func medianFloor(sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)/2]
}

// percentileFloor indexes the sorted slice at floor(n*p).
func percentileFloor(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func populationStdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// sampleVariance divides by n-1; used only by the Welch t-test.
func sampleVariance(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values)-1)
}

func skewness(values []float64, m, stdDev float64) float64 {
	if len(values) == 0 || stdDev == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Pow((v-m)/stdDev, 3)
	}
	return sum / float64(len(values))
}

// kurtosisExcess returns the fourth standardized moment minus 3.
func kurtosisExcess(values []float64, m, stdDev float64) float64 {
	if len(values) == 0 || stdDev == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Pow((v-m)/stdDev, 4)
	}
	return sum/float64(len(values)) - 3
}

// iqrBounds returns the Tukey fences over the sorted slice.
func iqrBounds(sorted []float64) (lower, upper float64) {
	q1 := percentileFloor(sorted, 0.25)
	q3 := percentileFloor(sorted, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

func zScore(v, m, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (v - m) / stdDev
}

func outlierSeverity(z float64) OutlierSeverity {
	switch abs := math.Abs(z); {
	case abs > 3:
		return OutlierExtreme
	case abs > 2:
		return OutlierModerate
	default:
		return OutlierMild
	}
}

// welchTTest runs a two-sided Welch two-sample t-test (unequal variances,
// Welch-Satterthwaite degrees of freedom). Samples with fewer than two
// observations on either side, or zero spread on both, are reported as not
// significant with p=1 rather than erroring.
func welchTTest(sample1, sample2 []float64) TestResult {
	if len(sample1) < 2 || len(sample2) < 2 {
		return TestResult{IsSignificant: false, PValue: 1, TestStatistic: 0}
	}

	m1, m2 := mean(sample1), mean(sample2)
	v1, v2 := sampleVariance(sample1, m1), sampleVariance(sample2, m2)
	n1, n2 := float64(len(sample1)), float64(len(sample2))

	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		return TestResult{IsSignificant: false, PValue: 1, TestStatistic: 0}
	}

	t := (m1 - m2) / math.Sqrt(se2)
	df := se2 * se2 / ((v1*v1)/(n1*n1*(n1-1)) + (v2*v2)/(n2*n2*(n2-1)))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))

	return TestResult{
		IsSignificant: p < 0.05,
		PValue:        p,
		TestStatistic: t,
	}
}

// jarqueBera tests normality from skewness and excess kurtosis against a
// chi-squared distribution with two degrees of freedom. Fewer than three
// observations pass trivially.
func jarqueBera(values []float64) TestResult {
	n := float64(len(values))
	if n < 3 {
		return TestResult{Passed: true, PValue: 1, TestStatistic: 0}
	}

	m := mean(values)
	sd := populationStdDev(values, m)
	if sd == 0 {
		return TestResult{Passed: true, PValue: 1, TestStatistic: 0}
	}

	s := skewness(values, m, sd)
	k := kurtosisExcess(values, m, sd)
	jb := n / 6 * (s*s + k*k/4)

	p := 1 - distuv.ChiSquared{K: 2}.CDF(jb)
	return TestResult{
		Passed:        p > 0.05,
		PValue:        p,
		TestStatistic: jb,
	}
}

// olsFit regresses ys against their index positions and reports the slope,
// intercept, coefficient of determination and residual standard deviation.
func olsFit(ys []float64) (slope, intercept, r2, residualStd float64) {
	n := float64(len(ys))
	if len(ys) < 2 {
		if len(ys) == 1 {
			return 0, ys[0], 1, 0
		}
		return 0, 0, 0, 0
	}

	meanX := (n - 1) / 2
	meanY := mean(ys)

	var sxx, sxy float64
	for i, y := range ys {
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (y - meanY)
	}
	slope = sxy / sxx
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for i, y := range ys {
		pred := intercept + slope*float64(i)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		r2 = 1
	} else {
		r2 = 1 - ssRes/ssTot
	}
	residualStd = math.Sqrt(ssRes / n)
	return slope, intercept, r2, residualStd
}
