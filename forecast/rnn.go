package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand"
)

// rnnModel is the neural member of the model chain: a small tanh recurrent
// network trained with truncated backpropagation through time over sliding
// windows of recent observations. Weights are seeded deterministically so the
// same series always yields the same forecast.
type rnnModel struct{}

var _ Model = (*rnnModel)(nil)

func (rnnModel) Name() string { return ModelLSTM }

func (rnnModel) MinObservations() int { return rnnLookback + 10 }

const (
	rnnLookback = 5
	rnnHidden   = 8
	rnnEpochs   = 80
	rnnLearn    = 0.05
	rnnSeed     = 42
)

var errTrainingDiverged = errors.New("training diverged")

func (rnnModel) Fit(ctx context.Context, series []float64, horizon int) (*Fit, error) {
	net := newRecurrentNet(rand.New(rand.NewSource(rnnSeed)))

	windows := len(series) - rnnLookback
	for epoch := 0; epoch < rnnEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var loss float64
		for w := 0; w < windows; w++ {
			loss += net.train(series[w:w+rnnLookback], series[w+rnnLookback])
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, &ModelFitError{Model: ModelLSTM, Err: errTrainingDiverged}
		}
	}

	n := len(series)
	fit := &Fit{
		Fitted:   make([]float64, n),
		Forecast: make([]float64, horizon),
	}
	copy(fit.Fitted, series[:rnnLookback])
	for t := rnnLookback; t < n; t++ {
		fit.Fitted[t] = net.predict(series[t-rnnLookback : t])
	}

	window := append([]float64(nil), series[n-rnnLookback:]...)
	for h := 0; h < horizon; h++ {
		next := net.predict(window)
		fit.Forecast[h] = next
		window = append(window[1:], next)
	}
	return fit, nil
}

// recurrentNet is a single tanh recurrent cell with a scalar input and a
// linear readout of the final hidden state.
type recurrentNet struct {
	wx []float64   // input weights, one per hidden unit
	wh [][]float64 // hidden-to-hidden weights
	bh []float64   // hidden bias
	wo []float64   // readout weights
	bo float64     // readout bias
}

func newRecurrentNet(rng *rand.Rand) *recurrentNet {
	uniform := func() float64 { return rng.Float64()*0.6 - 0.3 }
	net := &recurrentNet{
		wx: make([]float64, rnnHidden),
		wh: make([][]float64, rnnHidden),
		bh: make([]float64, rnnHidden),
		wo: make([]float64, rnnHidden),
	}
	for i := 0; i < rnnHidden; i++ {
		net.wx[i] = uniform()
		net.wo[i] = uniform()
		net.wh[i] = make([]float64, rnnHidden)
		for j := 0; j < rnnHidden; j++ {
			net.wh[i][j] = uniform()
		}
	}
	return net
}

// forward runs the cell over a window and returns every hidden state plus
// the readout. states[0] is the zero initial state.
func (n *recurrentNet) forward(window []float64) ([][]float64, float64) {
	states := make([][]float64, len(window)+1)
	states[0] = make([]float64, rnnHidden)
	for t, x := range window {
		h := make([]float64, rnnHidden)
		for i := 0; i < rnnHidden; i++ {
			z := n.wx[i]*x + n.bh[i]
			for j := 0; j < rnnHidden; j++ {
				z += n.wh[i][j] * states[t][j]
			}
			h[i] = math.Tanh(z)
		}
		states[t+1] = h
	}

	out := n.bo
	last := states[len(window)]
	for i := 0; i < rnnHidden; i++ {
		out += n.wo[i] * last[i]
	}
	return states, out
}

func (n *recurrentNet) predict(window []float64) float64 {
	_, out := n.forward(window)
	return out
}

// train runs one stochastic gradient step on a single window and returns the
// squared error before the update.
func (n *recurrentNet) train(window []float64, target float64) float64 {
	states, out := n.forward(window)
	diff := out - target
	loss := diff * diff

	grad := 2 * diff
	last := states[len(window)]

	dh := make([]float64, rnnHidden)
	for i := 0; i < rnnHidden; i++ {
		dh[i] = grad * n.wo[i]
		n.wo[i] -= rnnLearn * grad * last[i]
	}
	n.bo -= rnnLearn * grad

	for t := len(window); t >= 1; t-- {
		prev := states[t-1]
		x := window[t-1]
		dz := make([]float64, rnnHidden)
		for i := 0; i < rnnHidden; i++ {
			dz[i] = dh[i] * (1 - states[t][i]*states[t][i])
		}
		next := make([]float64, rnnHidden)
		for i := 0; i < rnnHidden; i++ {
			n.wx[i] -= rnnLearn * dz[i] * x
			n.bh[i] -= rnnLearn * dz[i]
			for j := 0; j < rnnHidden; j++ {
				next[j] += n.wh[i][j] * dz[i]
				n.wh[i][j] -= rnnLearn * dz[i] * prev[j]
			}
		}
		dh = next
	}
	return loss
}
