package kpiflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpiflow/kpiflow/agents/forecasting"
	"github.com/kpiflow/kpiflow/agents/insight"
	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/internal/testutil"
	"github.com/kpiflow/kpiflow/llm"
)

func startApp(t *testing.T, app *App) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = app.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func awaitResult(t *testing.T, app *App, taskID string) core.Result {
	t.Helper()
	var result core.Result
	require.Eventually(t, func() bool {
		s, err := app.Status(taskID)
		if err != nil || !s.Terminal() {
			return false
		}
		result, err = app.Result(taskID)
		return err == nil
	}, 10*time.Second, 10*time.Millisecond)
	return result
}

func TestForecastEndToEnd(t *testing.T) {
	app := New()
	require.NoError(t, app.RegisterAgent(forecasting.New()))
	startApp(t, app)

	payload := testutil.MustJSON(t, forecasting.Request{
		KPI:     "weekly_signups",
		Series:  testutil.NoisySeries(12, 40, 4, 1.5, 7),
		Horizon: 4,
	})

	taskID, err := app.Submit(forecasting.AgentID, payload)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	raw := awaitResult(t, app, taskID)

	var resp forecasting.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "weekly_signups", resp.KPI)
	assert.Len(t, resp.Forecast, 4)
	assert.Equal(t, "increasing", resp.Trend.Direction)
	for i := range resp.Forecast {
		assert.LessOrEqual(t, resp.ConfidenceIntervals.Lower[i], resp.Forecast[i])
		assert.GreaterOrEqual(t, resp.ConfidenceIntervals.Upper[i], resp.Forecast[i])
	}

	cached, ok := app.CachedResult(taskID)
	require.True(t, ok)
	assert.JSONEq(t, string(raw), string(cached))
}

func TestForecastThenInsight(t *testing.T) {
	app := New()
	require.NoError(t, app.RegisterAgent(forecasting.New()))
	require.NoError(t, app.RegisterAgent(insight.New(&llm.Static{
		Response: "Signups continue to grow steadily.",
	})))
	startApp(t, app)

	payload := testutil.MustJSON(t, forecasting.Request{
		KPI:     "weekly_signups",
		Series:  testutil.LinearSeries(10, 40, 4),
		Horizon: 3,
	})

	forecastID, err := app.Submit(forecasting.AgentID, payload)
	require.NoError(t, err)
	raw := awaitResult(t, app, forecastID)

	var fresp forecasting.Response
	require.NoError(t, json.Unmarshal(raw, &fresp))

	insightPayload := testutil.MustJSON(t, insight.Request{Forecast: fresp})

	insightID, err := app.Submit(insight.AgentID, insightPayload)
	require.NoError(t, err)
	raw = awaitResult(t, app, insightID)

	var iresp insight.Response
	require.NoError(t, json.Unmarshal(raw, &iresp))
	assert.Equal(t, "weekly_signups", iresp.KPI)
	assert.Equal(t, "Signups continue to grow steadily.", iresp.Insight)
}

func TestSubmitUnknownAgent(t *testing.T) {
	app := New()

	_, err := app.Submit("nope", core.Payload(`{}`))
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	stats, err := app.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Queued)
}

func TestFailedForecastSurfacesError(t *testing.T) {
	app := New()
	require.NoError(t, app.RegisterAgent(forecasting.New()))
	startApp(t, app)

	payload := testutil.MustJSON(t, forecasting.Request{
		KPI:     "sparse_kpi",
		Series:  []float64{1, 2},
		Horizon: 5,
	})

	taskID, err := app.Submit(forecasting.AgentID, payload)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, err := app.Status(taskID)
		return err == nil && s == core.TaskFailed
	}, 10*time.Second, 10*time.Millisecond)

	_, err = app.Result(taskID)
	var fErr *core.TaskFailedError
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "insufficient")
}

func TestAgentsSnapshot(t *testing.T) {
	app := New()
	require.NoError(t, app.RegisterAgent(forecasting.New()))

	infos := app.Agents()
	require.Len(t, infos, 1)
	assert.Equal(t, forecasting.AgentID, infos[0].ID)
	assert.Equal(t, core.AgentIdle, infos[0].Status)
}