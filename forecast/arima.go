package forecast

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errNoViableOrder = errors.New("no autoregressive order produced a stable fit")

// arimaModel fits autoregressive models over differenced series. The order
// (p, d) is selected by AIC over a small grid; coefficients come from a QR
// least-squares solve. There is no moving-average term, so the model family
// is ARI(p, d).
type arimaModel struct{}

var _ Model = (*arimaModel)(nil)

func (arimaModel) Name() string { return ModelARIMA }

func (arimaModel) MinObservations() int { return 10 }

const (
	arimaMaxP = 3
	arimaMaxD = 2
)

// arCandidate is one fitted (p, d) combination from the order search.
type arCandidate struct {
	p, d  int
	coefs []float64
	preds []float64
	aic   float64
}

func (arimaModel) Fit(ctx context.Context, series []float64, horizon int) (*Fit, error) {
	var best *arCandidate

	for d := 0; d <= arimaMaxD; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		diffed := difference(series, d)
		for p := 0; p <= arimaMaxP; p++ {
			cand, ok := fitAR(diffed, p)
			if !ok {
				continue
			}
			cand.d = d
			if best == nil || cand.aic < best.aic {
				best = cand
			}
		}
	}

	if best == nil {
		return nil, &ModelFitError{Model: ModelARIMA, Err: errNoViableOrder}
	}
	return integrateAR(series, best, horizon), nil
}

// difference applies d rounds of first differencing.
func difference(series []float64, d int) []float64 {
	out := series
	for k := 0; k < d; k++ {
		next := make([]float64, len(out)-1)
		for i := range next {
			next[i] = out[i+1] - out[i]
		}
		out = next
	}
	return out
}

// fitAR estimates an AR(p) with intercept on the given series by least
// squares. It returns false when the series is too short for the order or
// the solve is degenerate.
func fitAR(series []float64, p int) (*arCandidate, bool) {
	m := len(series)
	rows := m - p
	if rows < p+3 {
		return nil, false
	}

	design := mat.NewDense(rows, p+1, nil)
	target := mat.NewDense(rows, 1, nil)
	for t := p; t < m; t++ {
		r := t - p
		design.Set(r, 0, 1)
		for i := 1; i <= p; i++ {
			design.Set(r, i, series[t-i])
		}
		target.Set(r, 0, series[t])
	}

	var qr mat.QR
	qr.Factorize(design)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, target); err != nil {
		return nil, false
	}

	coefs := make([]float64, p+1)
	for i := range coefs {
		coefs[i] = sol.At(i, 0)
		if math.IsNaN(coefs[i]) || math.IsInf(coefs[i], 0) {
			return nil, false
		}
	}

	preds := make([]float64, rows)
	var sse float64
	for t := p; t < m; t++ {
		pred := coefs[0]
		for i := 1; i <= p; i++ {
			pred += coefs[i] * series[t-i]
		}
		preds[t-p] = pred
		r := series[t] - pred
		sse += r * r
	}
	if sse <= 0 {
		sse = 1e-12
	}

	n := float64(rows)
	aic := n*math.Log(sse/n) + 2*float64(p+2)
	return &arCandidate{p: p, coefs: coefs, preds: preds, aic: aic}, true
}

// integrateAR turns the winning differenced-scale candidate back into
// level-scale fitted values and forecasts. Warm-up positions with no
// prediction carry the actual observation.
func integrateAR(series []float64, c *arCandidate, horizon int) *Fit {
	n := len(series)
	fit := &Fit{
		Fitted:   make([]float64, n),
		Forecast: make([]float64, horizon),
	}
	copy(fit.Fitted, series)

	ds1 := difference(series, 1)

	// Fitted values. preds[j] predicts the differenced series at index j+p.
	warm := c.p + c.d
	for t := warm; t < n; t++ {
		switch c.d {
		case 0:
			fit.Fitted[t] = c.preds[t-c.p]
		case 1:
			fit.Fitted[t] = series[t-1] + c.preds[t-1-c.p]
		case 2:
			fit.Fitted[t] = series[t-1] + ds1[t-2] + c.preds[t-2-c.p]
		}
	}

	// Forecasts: extrapolate the differenced series recursively, then
	// integrate the predicted differences back to levels.
	diffed := difference(series, c.d)
	lags := append([]float64(nil), diffed...)
	future := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		pred := c.coefs[0]
		for i := 1; i <= c.p; i++ {
			pred += c.coefs[i] * lags[len(lags)-i]
		}
		future[h] = pred
		lags = append(lags, pred)
	}

	switch c.d {
	case 0:
		copy(fit.Forecast, future)
	case 1:
		level := series[n-1]
		for h := 0; h < horizon; h++ {
			level += future[h]
			fit.Forecast[h] = level
		}
	case 2:
		level := series[n-1]
		slope := ds1[len(ds1)-1]
		for h := 0; h < horizon; h++ {
			slope += future[h]
			level += slope
			fit.Forecast[h] = level
		}
	}
	return fit
}
