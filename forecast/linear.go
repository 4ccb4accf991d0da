package forecast

import (
	"context"

	"gonum.org/v1/gonum/stat"
)

// linearModel fits an ordinary least squares line over the time index and
// extrapolates it. It is the unconditional fallback of the engine: it accepts
// any series of at least two points and cannot fail.
type linearModel struct{}

var _ Model = (*linearModel)(nil)

func (linearModel) Name() string { return ModelLinearRegression }

func (linearModel) MinObservations() int { return 2 }

func (linearModel) Fit(_ context.Context, series []float64, horizon int) (*Fit, error) {
	n := len(series)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, series, nil, false)

	fit := &Fit{
		Fitted:   make([]float64, n),
		Forecast: make([]float64, horizon),
	}
	for i := 0; i < n; i++ {
		fit.Fitted[i] = alpha + beta*float64(i)
	}
	for h := 0; h < horizon; h++ {
		fit.Forecast[h] = alpha + beta*float64(n+h)
	}
	return fit, nil
}
