package anomaly

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Detection methods.
const (
	MethodZScore = "z_score"
	MethodIQR    = "iqr"
)

// Sensitivity presets. Higher sensitivity lowers the detection thresholds.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// Severity levels assigned to individual anomalies and to the overall series.
const (
	SeverityNormal   = "normal"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Trend directions over the most recent observations.
const (
	TrendStable    = "stable"
	TrendImproving = "improving"
	TrendWorsening = "worsening"
)

// trendLookback is how many trailing observations the trend classifier sees.
const trendLookback = 5

// zThresholds holds the warning and critical z-score cutoffs for a
// sensitivity level.
type zThresholds struct {
	warning  float64
	critical float64
}

// iqrMultipliers holds the warning and critical IQR fence multipliers for a
// sensitivity level.
type iqrMultipliers struct {
	warning  float64
	critical float64
}

var zscoreBySensitivity = map[string]zThresholds{
	SensitivityHigh:   {warning: 1.5, critical: 2.5},
	SensitivityMedium: {warning: 2.0, critical: 3.0},
	SensitivityLow:    {warning: 2.5, critical: 3.5},
}

var iqrBySensitivity = map[string]iqrMultipliers{
	SensitivityHigh:   {warning: 1.0, critical: 1.5},
	SensitivityMedium: {warning: 1.5, critical: 3.0},
	SensitivityLow:    {warning: 2.0, critical: 3.0},
}

// Anomaly is one flagged observation. Threshold is set for z-score hits,
// LowerBound and UpperBound for IQR hits.
type Anomaly struct {
	Index      int     `json:"index"`
	Value      float64 `json:"value"`
	Method     string  `json:"method"`
	Severity   string  `json:"severity"`
	Score      float64 `json:"score"`
	Threshold  float64 `json:"threshold,omitempty"`
	LowerBound float64 `json:"lower_bound,omitempty"`
	UpperBound float64 `json:"upper_bound,omitempty"`
}

// Summary rolls individual anomalies up into a series-level verdict: critical
// wins over warning, warning over normal.
type Summary struct {
	Status         string `json:"status"`
	CriticalCount  int    `json:"critical_count"`
	WarningCount   int    `json:"warning_count"`
	TotalAnomalies int    `json:"total_anomalies"`
}

// detectZScore flags observations whose standardized distance from the mean
// exceeds the sensitivity thresholds. A zero-variance series has no outliers
// by this measure and yields nothing.
func detectZScore(series []float64, sensitivity string) []Anomaly {
	th := zscoreBySensitivity[sensitivity]
	mean := stat.Mean(series, nil)
	sd := stat.StdDev(series, nil)
	if sd == 0 {
		return nil
	}

	var out []Anomaly
	for i, v := range series {
		z := math.Abs(v-mean) / sd
		switch {
		case z >= th.critical:
			out = append(out, Anomaly{
				Index: i, Value: v, Method: MethodZScore,
				Severity: SeverityCritical, Score: z, Threshold: th.critical,
			})
		case z >= th.warning:
			out = append(out, Anomaly{
				Index: i, Value: v, Method: MethodZScore,
				Severity: SeverityWarning, Score: z, Threshold: th.warning,
			})
		}
	}
	return out
}

// detectIQR flags observations outside the Tukey fences built from the
// quartiles of the original-scale series. A zero-IQR series yields nothing.
func detectIQR(series []float64, sensitivity string) []Anomaly {
	mult := iqrBySensitivity[sensitivity]

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	if iqr == 0 {
		return nil
	}

	warnLo, warnHi := q1-mult.warning*iqr, q3+mult.warning*iqr
	critLo, critHi := q1-mult.critical*iqr, q3+mult.critical*iqr

	var out []Anomaly
	for i, v := range series {
		switch {
		case v < critLo || v > critHi:
			out = append(out, Anomaly{
				Index: i, Value: v, Method: MethodIQR,
				Severity:   SeverityCritical,
				Score:      math.Min(math.Abs(v-critLo), math.Abs(v-critHi)),
				LowerBound: critLo, UpperBound: critHi,
			})
		case v < warnLo || v > warnHi:
			out = append(out, Anomaly{
				Index: i, Value: v, Method: MethodIQR,
				Severity:   SeverityWarning,
				Score:      math.Min(math.Abs(v-warnLo), math.Abs(v-warnHi)),
				LowerBound: warnLo, UpperBound: warnHi,
			})
		}
	}
	return out
}

// summarize classifies the series from its anomaly list.
func summarize(anomalies []Anomaly) Summary {
	s := Summary{Status: SeverityNormal, TotalAnomalies: len(anomalies)}
	for _, a := range anomalies {
		switch a.Severity {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityWarning:
			s.WarningCount++
		}
	}
	if s.CriticalCount > 0 {
		s.Status = SeverityCritical
	} else if s.WarningCount > 0 {
		s.Status = SeverityWarning
	}
	return s
}

// classifyTrend counts rises against falls over the trailing lookback window.
// KPI series here measure load and error counters, so a rising tail reads as
// worsening.
func classifyTrend(series []float64) string {
	start := len(series) - trendLookback
	if start < 0 {
		start = 0
	}
	tail := series[start:]
	if len(tail) < 2 {
		return TrendStable
	}

	rises, falls := 0, 0
	for i := 0; i < len(tail)-1; i++ {
		switch {
		case tail[i+1] > tail[i]:
			rises++
		case tail[i+1] < tail[i]:
			falls++
		}
	}

	switch {
	case rises > falls:
		return TrendWorsening
	case falls > rises:
		return TrendImproving
	default:
		return TrendStable
	}
}
