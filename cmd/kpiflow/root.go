package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpiflow/kpiflow"
	"github.com/kpiflow/kpiflow/core"
	tasksqlite "github.com/kpiflow/kpiflow/task/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "kpiflow",
	Short: "KPI telemetry pipeline",
	Long:  `kpiflow runs forecasting and anomaly analysis over a KPI series read from CSV.`,
}

var (
	csvPath     string
	column      string
	kpiName     string
	storePath   string
	taskTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv", "", "Path to the CSV file containing the KPI series (required)")
	rootCmd.PersistentFlags().StringVar(&column, "column", "value", "CSV column holding the KPI values")
	rootCmd.PersistentFlags().StringVar(&kpiName, "kpi", "", "KPI name for the report (defaults to the column name)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Optional SQLite path for a durable task log")
	rootCmd.PersistentFlags().DurationVar(&taskTimeout, "timeout", 2*time.Minute, "Per-task execution timeout")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadInput resolves the shared flags into a named series. Every subcommand
// starts here.
func loadInput() (kpi string, series []float64, err error) {
	if csvPath == "" {
		return "", nil, fmt.Errorf("--csv is required")
	}
	kpi = kpiName
	if kpi == "" {
		kpi = column
	}
	series, err = readSeries(csvPath, column)
	return kpi, series, err
}

// newApp builds the pipeline with the shared store and timeout flags applied.
// The returned cleanup closes the task store and must run after the
// orchestrator stops.
func newApp() (*kpiflow.App, func(), error) {
	opts := []func(o *kpiflow.Options){
		func(o *kpiflow.Options) { o.TaskTimeout = taskTimeout },
	}
	cleanup := func() {}
	if storePath != "" {
		store, err := tasksqlite.New(storePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open task store: %w", err)
		}
		cleanup = func() { _ = store.Close() }
		opts = append(opts, func(o *kpiflow.Options) { o.TaskStore = store })
	}
	return kpiflow.New(opts...), cleanup, nil
}

// readSeries extracts one numeric column from a CSV file with a header row.
func readSeries(path, column string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one data row", path)
	}

	col := -1
	for i, name := range records[0] {
		if name == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%s: column %q not found in header %v", path, column, records[0])
	}

	series := make([]float64, 0, len(records)-1)
	for i, row := range records[1:] {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d column %q: %w", path, i+2, column, err)
		}
		series = append(series, v)
	}
	return series, nil
}

func awaitResult(app *kpiflow.App, taskID string) (core.Result, error) {
	for {
		status, err := app.Status(taskID)
		if err != nil {
			return nil, err
		}
		if status.Terminal() {
			return app.Result(taskID)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
