// Command kpiflow runs the KPI pipeline against a series read from a CSV
// file. It wires the registry, queue and orchestrator, and exposes one
// subcommand per analysis agent.
//
// Usage:
//
//	kpiflow forecast --csv metrics.csv --column revenue --horizon 6
//	kpiflow forecast --csv metrics.csv --model arima --store tasks.db --insight
//	kpiflow anomaly --csv metrics.csv --column dropped_calls --sensitivity high
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Best effort: a missing .env file is fine.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
