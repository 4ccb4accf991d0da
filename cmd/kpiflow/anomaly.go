package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpiflow/kpiflow/agents/anomaly"
)

var anomalyCmd = &cobra.Command{
	Use:   "anomaly",
	Short: "Detect anomalies in a KPI series",
	Long:  `Flag outlying observations by z-score and IQR fences and classify the series severity.`,
	RunE:  runAnomaly,
}

var (
	sensitivity string
	methods     []string
)

func init() {
	rootCmd.AddCommand(anomalyCmd)

	anomalyCmd.Flags().StringVar(&sensitivity, "sensitivity", anomaly.SensitivityMedium, "Detection sensitivity (low, medium, high)")
	anomalyCmd.Flags().StringSliceVar(&methods, "methods", nil, "Detection methods (z_score, iqr); defaults to both")
}

func runAnomaly(cmd *cobra.Command, args []string) error {
	kpi, series, err := loadInput()
	if err != nil {
		return err
	}

	app, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.RegisterAgent(anomaly.New()); err != nil {
		return fmt.Errorf("register anomaly agent: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	payload, err := json.Marshal(anomaly.Request{
		KPI:         kpi,
		Series:      series,
		Sensitivity: sensitivity,
		Methods:     methods,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	taskID, err := app.Submit(anomaly.AgentID, payload)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	raw, err := awaitResult(app, taskID)
	if err != nil {
		return fmt.Errorf("anomaly detection failed: %w", err)
	}

	var resp anomaly.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	printAnomalies(&resp, len(series))
	return nil
}

func printAnomalies(resp *anomaly.Response, observations int) {
	fmt.Printf("KPI %q: %d observations, sensitivity %s, methods %v\n",
		resp.KPI, observations, resp.Sensitivity, resp.Methods)
	fmt.Printf("status %s (%d critical, %d warning), trend %s\n",
		resp.Summary.Status, resp.Summary.CriticalCount, resp.Summary.WarningCount, resp.Trend)
	if len(resp.Anomalies) == 0 {
		fmt.Println("no anomalies detected")
		return
	}
	fmt.Println("anomalies:")
	for _, a := range resp.Anomalies {
		fmt.Printf("  index %d: %.2f  (%s, %s, score %.2f)\n",
			a.Index, a.Value, a.Method, a.Severity, a.Score)
	}
}
