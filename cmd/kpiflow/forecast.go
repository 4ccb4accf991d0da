package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpiflow/kpiflow/agents/forecasting"
	"github.com/kpiflow/kpiflow/agents/insight"
	"github.com/kpiflow/kpiflow/forecast"
	"github.com/kpiflow/kpiflow/llm"
	"github.com/kpiflow/kpiflow/llm/anthropic"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast a KPI series",
	Long:  `Run the model chain over the series and print the forecast with confidence intervals.`,
	RunE:  runForecast,
}

var (
	horizon     int
	modelName   string
	withInsight bool
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().IntVar(&horizon, "horizon", 5, "Number of future points to forecast")
	forecastCmd.Flags().StringVar(&modelName, "model", forecast.ModelAuto, "Forecasting model (auto, arima, exponential_smoothing, lstm, linear_regression)")
	forecastCmd.Flags().BoolVar(&withInsight, "insight", false, "Generate an LLM narrative about the forecast")
}

func runForecast(cmd *cobra.Command, args []string) error {
	kpi, series, err := loadInput()
	if err != nil {
		return err
	}

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.RegisterAgent(forecasting.New()); err != nil {
		return fmt.Errorf("register forecasting agent: %w", err)
	}
	if withInsight {
		if err := app.RegisterAgent(insight.New(insightProvider())); err != nil {
			return fmt.Errorf("register insight agent: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	payload, err := json.Marshal(forecasting.Request{
		KPI:     kpi,
		Series:  series,
		Horizon: horizon,
		Model:   modelName,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	taskID, err := app.Submit(forecasting.AgentID, payload)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	raw, err := awaitResult(app, taskID)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	var resp forecasting.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	printForecast(&resp, len(series))

	if !withInsight {
		return nil
	}

	insightPayload, err := json.Marshal(insight.Request{Forecast: resp})
	if err != nil {
		return fmt.Errorf("marshal insight request: %w", err)
	}
	insightID, err := app.Submit(insight.AgentID, insightPayload)
	if err != nil {
		return fmt.Errorf("submit insight: %w", err)
	}
	raw, err = awaitResult(app, insightID)
	if err != nil {
		return fmt.Errorf("insight failed: %w", err)
	}
	var iresp insight.Response
	if err := json.Unmarshal(raw, &iresp); err != nil {
		return fmt.Errorf("decode insight: %w", err)
	}
	fmt.Printf("\nInsight (%s/%s):\n%s\n", iresp.Provider.Provider, iresp.Provider.Model, iresp.Insight)
	return nil
}

func insightProvider() llm.Provider {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return anthropic.New()
	}
	return &llm.Static{Response: "No LLM credentials configured; set ANTHROPIC_API_KEY for a generated narrative."}
}

func printForecast(resp *forecasting.Response, observations int) {
	fmt.Printf("KPI %q: %d observations, model %s (attempted %v)\n",
		resp.KPI, observations, resp.ModelUsed, resp.ModelsAttempted)
	fmt.Printf("trend %s, slope %.4f, strength %.2f\n",
		resp.Trend.Direction, resp.Trend.Slope, resp.Trend.Strength)
	fmt.Printf("accuracy: MAE %.4f RMSE %.4f MAPE %.2f%%\n",
		resp.Metrics.MAE, resp.Metrics.RMSE, resp.Metrics.MAPE)
	fmt.Println("forecast:")
	for i, f := range resp.Forecast {
		fmt.Printf("  t+%d: %.2f  [%.2f, %.2f]\n", i+1, f,
			resp.ConfidenceIntervals.Lower[i], resp.ConfidenceIntervals.Upper[i])
	}
}
