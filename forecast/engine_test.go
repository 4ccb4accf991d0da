package forecast

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestEngineAutoSelection(t *testing.T) {
	e := NewEngine()
	series := linearSeries(20, 10, 2.5)

	res, err := e.Forecast(context.Background(), series, 5, ModelAuto)
	require.NoError(t, err)

	assert.Len(t, res.Forecast, 5)
	assert.NotEmpty(t, res.ModelUsed)
	assert.NotEmpty(t, res.ModelsAttempted)
	assert.Contains(t, res.ModelsAttempted, res.ModelUsed)

	require.Len(t, res.ConfidenceIntervals.Lower, 5)
	require.Len(t, res.ConfidenceIntervals.Upper, 5)
	for i := range res.Forecast {
		assert.LessOrEqual(t, res.ConfidenceIntervals.Lower[i], res.Forecast[i])
		assert.GreaterOrEqual(t, res.ConfidenceIntervals.Upper[i], res.Forecast[i])
	}
}

func TestEngineIncreasingTrend(t *testing.T) {
	e := NewEngine()

	res, err := e.Forecast(context.Background(), linearSeries(10, 1, 1), 3, ModelAuto)
	require.NoError(t, err)

	assert.Equal(t, "increasing", res.Trend.Direction)
	assert.Greater(t, res.Trend.Slope, 0.0)
	assert.InDelta(t, 1.0, res.Trend.Strength, 1e-6)
}

func TestEngineExplicitLinearRegression(t *testing.T) {
	e := NewEngine()
	series := []float64{3, 6, 9, 12, 15}

	res, err := e.Forecast(context.Background(), series, 2, ModelLinearRegression)
	require.NoError(t, err)

	assert.Equal(t, ModelLinearRegression, res.ModelUsed)
	assert.InDelta(t, 18, res.Forecast[0], 1e-6)
	assert.InDelta(t, 21, res.Forecast[1], 1e-6)
}

func TestEngineExplicitFallback(t *testing.T) {
	e := NewEngine()

	// Too short for the neural model, so the chain falls back.
	res, err := e.Forecast(context.Background(), []float64{1, 2, 3, 4, 5, 6}, 2, ModelLSTM)
	require.NoError(t, err)
	assert.NotEqual(t, ModelLSTM, res.ModelUsed)
}

func TestEngineUnknownModel(t *testing.T) {
	e := NewEngine()

	_, err := e.Forecast(context.Background(), linearSeries(10, 0, 1), 2, "prophet")
	var vErr *DataValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "prophet")
}

func TestEngineValidation(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	_, err := e.Forecast(ctx, linearSeries(10, 0, 1), 0, ModelAuto)
	var vErr *DataValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = e.Forecast(ctx, []float64{1, math.NaN(), 3, 4}, 2, ModelAuto)
	assert.ErrorAs(t, err, &vErr)

	_, err = e.Forecast(ctx, []float64{1}, 1, ModelAuto)
	var iErr *InsufficientDataError
	assert.ErrorAs(t, err, &iErr)

	_, err = e.Forecast(ctx, []float64{1, 2, 3}, 5, ModelAuto)
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, 3, iErr.Observations)
	assert.Equal(t, 5, iErr.Required)
}

func TestEngineConstantSeries(t *testing.T) {
	e := NewEngine()
	series := make([]float64, 12)
	for i := range series {
		series[i] = 50
	}

	res, err := e.Forecast(context.Background(), series, 3, ModelAuto)
	require.NoError(t, err)

	assert.Equal(t, "stable", res.Trend.Direction)
	for _, f := range res.Forecast {
		assert.InDelta(t, 50, f, 1e-6)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Forecast(ctx, linearSeries(20, 0, 1), 3, ModelAuto)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineDeterministic(t *testing.T) {
	e := NewEngine()
	series := []float64{5, 9, 4, 11, 8, 14, 10, 16, 13, 19, 15, 22, 18, 25, 21}

	a, err := e.Forecast(context.Background(), series, 4, ModelAuto)
	require.NoError(t, err)
	b, err := e.Forecast(context.Background(), series, 4, ModelAuto)
	require.NoError(t, err)

	assert.Equal(t, a.ModelUsed, b.ModelUsed)
	assert.Equal(t, a.Forecast, b.Forecast)
}
