package anomaly

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/forecast"
)

func TestAgentIdentity(t *testing.T) {
	a := New()

	assert.Equal(t, "anomaly", a.ID())
	assert.NotEmpty(t, a.Name())
	assert.Contains(t, a.Capabilities(), "anomaly_detection")
	assert.Equal(t, core.AgentIdle, a.Status())
}

func TestAgentInvokeDetectsSpike(t *testing.T) {
	a := New()
	series := make([]float64, 20)
	for i := range series {
		series[i] = 100
	}
	series[9] = 200

	payload, err := json.Marshal(Request{KPI: "dropped_calls", Series: series})
	require.NoError(t, err)

	out, err := a.Invoke(context.Background(), payload)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "dropped_calls", resp.KPI)
	assert.Equal(t, SensitivityMedium, resp.Sensitivity)
	assert.Equal(t, SeverityCritical, resp.Summary.Status)
	assert.Equal(t, 1, resp.Summary.CriticalCount)
	assert.Equal(t, TrendStable, resp.Trend)

	require.Len(t, resp.Anomalies, 1)
	got := resp.Anomalies[0]
	assert.Equal(t, 9, got.Index)
	assert.Equal(t, 200.0, got.Value)
	assert.Equal(t, MethodZScore, got.Method)
	assert.Equal(t, SeverityCritical, got.Severity)
	assert.Greater(t, got.Score, 3.0)
	assert.Equal(t, core.AgentIdle, a.Status())
}

func TestAgentInvokeIQRFlagsOutlier(t *testing.T) {
	a := New()
	payload, err := json.Marshal(Request{
		KPI:     "latency_ms",
		Series:  []float64{10, 12, 11, 13, 12, 14, 11, 13, 12, 50},
		Methods: []string{MethodIQR},
	})
	require.NoError(t, err)

	out, err := a.Invoke(context.Background(), payload)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Len(t, resp.Anomalies, 1)
	got := resp.Anomalies[0]
	assert.Equal(t, 9, got.Index)
	assert.Equal(t, MethodIQR, got.Method)
	assert.Equal(t, SeverityCritical, got.Severity)
	// Medium fences on this series sit at Q1-3*IQR and Q3+3*IQR.
	assert.InDelta(t, 5.0, got.LowerBound, 1e-9)
	assert.InDelta(t, 19.0, got.UpperBound, 1e-9)
}

func TestAgentSensitivityChangesSeverity(t *testing.T) {
	a := New()
	series := []float64{10, 12, 11, 13, 12, 14, 11, 13, 12, 18}

	run := func(sensitivity string) Response {
		t.Helper()
		payload, err := json.Marshal(Request{
			Series:      series,
			Sensitivity: sensitivity,
			Methods:     []string{MethodIQR},
		})
		require.NoError(t, err)
		out, err := a.Invoke(context.Background(), payload)
		require.NoError(t, err)
		var resp Response
		require.NoError(t, json.Unmarshal(out, &resp))
		return resp
	}

	assert.Equal(t, SeverityCritical, run(SensitivityHigh).Summary.Status)
	assert.Equal(t, SeverityWarning, run(SensitivityLow).Summary.Status)
}

func TestAgentConstantSeriesHasNoAnomalies(t *testing.T) {
	a := New()
	payload, err := json.Marshal(Request{Series: []float64{5, 5, 5, 5, 5, 5}})
	require.NoError(t, err)

	out, err := a.Invoke(context.Background(), payload)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Empty(t, resp.Anomalies)
	assert.Equal(t, SeverityNormal, resp.Summary.Status)
	assert.Equal(t, TrendStable, resp.Trend)
}

func TestAgentInvokeMalformedPayload(t *testing.T) {
	a := New()

	_, err := a.Invoke(context.Background(), core.Payload(`{"series": "not a list"}`))
	var vErr *forecast.DataValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, core.AgentError, a.Status())
}

func TestAgentInvokeRejectsUnknownSensitivity(t *testing.T) {
	a := New()
	payload, err := json.Marshal(Request{
		Series:      []float64{1, 2, 3, 4, 5},
		Sensitivity: "paranoid",
	})
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), payload)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sensitivity", vErr.Field)
}

func TestAgentInvokeShortSeries(t *testing.T) {
	a := New()
	payload, err := json.Marshal(Request{Series: []float64{1, 2}})
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), payload)
	var iErr *forecast.InsufficientDataError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, core.AgentError, a.Status())
}

func TestClassifyTrend(t *testing.T) {
	assert.Equal(t, TrendWorsening, classifyTrend([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, TrendImproving, classifyTrend([]float64{5, 4, 3, 2, 1}))
	assert.Equal(t, TrendStable, classifyTrend([]float64{3, 4, 3, 4, 3, 4}))
	// Only the trailing window counts: a long rise ending in a slide.
	assert.Equal(t, TrendImproving, classifyTrend([]float64{1, 2, 3, 9, 8, 7, 6, 5}))
}
