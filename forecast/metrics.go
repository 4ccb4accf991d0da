package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the in-sample accuracy scores of the model that produced a
// forecast. They are computed on the normalized scale for every model, which
// keeps the cross-model RMSE comparison fair regardless of the raw KPI
// magnitude.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// Interval carries the per-point 95% confidence band. Both slices have the
// same length as the forecast and lower[i] <= forecast[i] <= upper[i] holds
// for every point.
type Interval struct {
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// Trend summarises the direction and pronouncedness of the series' movement
// on the original scale.
type Trend struct {
	Direction string  `json:"direction"`
	Slope     float64 `json:"slope"`
	Strength  float64 `json:"strength"`
}

const (
	// z95 is the two-sided 95% normal quantile used for the confidence band.
	z95 = 1.96

	// minStdError floors the residual standard error so a perfectly fitting
	// model still reports a nonzero band on a non-degenerate series.
	minStdError = 0.01
)

// computeMetrics scores fitted against actual on the normalized scale.
// MAPE skips zero-valued actual points to avoid division by zero; a series
// whose normalized values are all zero reports a MAPE of zero.
func computeMetrics(actual, fitted []float64) Metrics {
	var absSum, sqSum, pctSum float64
	pctCount := 0

	for i := range actual {
		r := actual[i] - fitted[i]
		absSum += math.Abs(r)
		sqSum += r * r
		if actual[i] != 0 {
			pctSum += math.Abs(r / actual[i])
			pctCount++
		}
	}

	n := float64(len(actual))
	m := Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
	}
	if pctCount > 0 {
		m.MAPE = pctSum / float64(pctCount) * 100
	}
	return m
}

// residualStdError is the standard deviation of the in-sample residuals on
// the normalized scale, floored at minStdError.
func residualStdError(actual, fitted []float64) float64 {
	residuals := make([]float64, len(actual))
	for i := range actual {
		residuals[i] = actual[i] - fitted[i]
	}
	sd := stat.StdDev(residuals, nil)
	if math.IsNaN(sd) || sd < minStdError {
		return minStdError
	}
	return sd
}

// confidenceInterval builds the symmetric 95% band around forecast on the
// original scale. stdErr is on the normalized scale; span converts the band
// width back to original units. A degenerate span (constant series) yields
// a zero-width band, which still satisfies lower <= forecast <= upper.
func confidenceInterval(forecast []float64, stdErr, span float64) Interval {
	width := z95 * stdErr * span
	iv := Interval{
		Lower: make([]float64, len(forecast)),
		Upper: make([]float64, len(forecast)),
	}
	for i, f := range forecast {
		iv.Lower[i] = f - width
		iv.Upper[i] = f + width
	}
	return iv
}

// computeTrend fits a line over the time index of the original-scale series.
// The slope sign gives the direction, its magnitude is reported untouched
// and the R² of the fit serves as the strength score.
func computeTrend(series []float64) Trend {
	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, series, nil, false)

	direction := "stable"
	switch {
	case beta > trendEpsilon:
		direction = "increasing"
	case beta < -trendEpsilon:
		direction = "decreasing"
	}

	strength := stat.RSquared(xs, series, nil, alpha, beta)
	if math.IsNaN(strength) || math.IsInf(strength, 0) || strength < 0 {
		strength = 0
	}

	return Trend{Direction: direction, Slope: beta, Strength: strength}
}

// trendEpsilon separates numerically-zero slopes from real movement.
const trendEpsilon = 1e-10
