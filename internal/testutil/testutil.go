// Package testutil contains helpers used across tests to reduce boilerplate
// when constructing KPI series and JSON payloads. These helpers are
// intentionally minimal and not intended for production usage.
package testutil

import (
	"encoding/json"
	"math/rand"
	"testing"
)

// LinearSeries builds n points on the line start + step*i.
func LinearSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// NoisySeries builds a linear series with deterministic uniform noise of the
// given amplitude, seeded so tests are reproducible.
func NoisySeries(n int, start, step, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := LinearSeries(n, start, step)
	for i := range out {
		out[i] += (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// ConstantSeries builds n identical points.
func ConstantSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// MustJSON marshals v, failing the test on error.
func MustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %T: %v", v, err)
	}
	return b
}
