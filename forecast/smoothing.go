package forecast

import "context"

// smoothingModel implements exponential smoothing. For series of at least
// eight points it runs Holt's linear method and grid-searches the smoothing
// constants by one-step-ahead squared error. Shorter series fall back to
// simple exponential smoothing with a drift term taken from the mean first
// difference.
type smoothingModel struct{}

var _ Model = (*smoothingModel)(nil)

func (smoothingModel) Name() string { return ModelExponentialSmoothing }

func (smoothingModel) MinObservations() int { return 4 }

const holtMinObservations = 8

var (
	holtAlphas = []float64{0.2, 0.4, 0.6, 0.8}
	holtBetas  = []float64{0.1, 0.2, 0.3}
)

func (smoothingModel) Fit(ctx context.Context, series []float64, horizon int) (*Fit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(series) >= holtMinObservations {
		return holtFit(series, horizon), nil
	}
	return simpleSmoothingFit(series, horizon), nil
}

// holtFit searches the alpha/beta grid and returns the fit of the winning
// pair. The one-step-ahead predictions of each candidate double as its
// fitted values, so the search criterion and the reported accuracy agree.
func holtFit(series []float64, horizon int) *Fit {
	var best *Fit
	bestSSE := 0.0

	for _, alpha := range holtAlphas {
		for _, beta := range holtBetas {
			fit, sse := holtRun(series, horizon, alpha, beta)
			if best == nil || sse < bestSSE {
				best, bestSSE = fit, sse
			}
		}
	}
	return best
}

// holtRun executes Holt's linear method with the given constants. Level and
// trend are seeded from the first two observations; the first two fitted
// positions carry the actuals since no prediction exists for them yet.
func holtRun(series []float64, horizon int, alpha, beta float64) (*Fit, float64) {
	n := len(series)
	fit := &Fit{
		Fitted:   make([]float64, n),
		Forecast: make([]float64, horizon),
	}

	level := series[0]
	trend := series[1] - series[0]
	fit.Fitted[0] = series[0]
	fit.Fitted[1] = series[1]

	var sse float64
	for t := 2; t < n; t++ {
		pred := level + trend
		fit.Fitted[t] = pred
		r := series[t] - pred
		sse += r * r

		prevLevel := level
		level = alpha*series[t] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	for h := 0; h < horizon; h++ {
		fit.Forecast[h] = level + float64(h+1)*trend
	}
	return fit, sse
}

// simpleSmoothingFit handles short series: single exponential smoothing with
// a fixed constant plus a drift extrapolation from the mean first difference.
func simpleSmoothingFit(series []float64, horizon int) *Fit {
	const alpha = 0.5
	n := len(series)
	fit := &Fit{
		Fitted:   make([]float64, n),
		Forecast: make([]float64, horizon),
	}

	level := series[0]
	fit.Fitted[0] = series[0]
	for t := 1; t < n; t++ {
		fit.Fitted[t] = level
		level = alpha*series[t] + (1-alpha)*level
	}

	var drift float64
	for t := 1; t < n; t++ {
		drift += series[t] - series[t-1]
	}
	drift /= float64(n - 1)

	for h := 0; h < horizon; h++ {
		fit.Forecast[h] = level + float64(h+1)*drift
	}
	return fit
}
