package forecast

import "math"

// Normalize rescales series to the unit interval using a min-max transform.
// Raw KPI magnitudes can span many orders of magnitude (telecom counters in
// the billions) and iterative optimizers lose numerical stability at that
// scale, so every candidate model fits on the normalized copy. The caller's
// slice is never mutated.
//
// A constant series (max == min) maps to all zeros instead of dividing by
// zero; Denormalize restores the constant.
func Normalize(series []float64) (norm []float64, min, max float64) {
	min, max = series[0], series[0]
	for _, v := range series {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	norm = make([]float64, len(series))
	span := max - min
	if span == 0 {
		return norm, min, max
	}
	for i, v := range series {
		norm[i] = (v - min) / span
	}
	return norm, min, max
}

// Denormalize maps values from the unit interval back to the original scale
// described by min and max. For a degenerate scale (max == min) every value
// maps back to the constant min.
func Denormalize(norm []float64, min, max float64) []float64 {
	out := make([]float64, len(norm))
	span := max - min
	for i, v := range norm {
		if span == 0 {
			out[i] = min
		} else {
			out[i] = v*span + min
		}
	}
	return out
}

// ValidateSeries rejects series that cannot cross the validation boundary:
// empty input and non-finite observations.
func ValidateSeries(series []float64) error {
	if len(series) == 0 {
		return &DataValidationError{Reason: "series is empty"}
	}
	for _, v := range series {
		if math.IsNaN(v) {
			return &DataValidationError{Reason: "series contains NaN values"}
		}
		if math.IsInf(v, 0) {
			return &DataValidationError{Reason: "series contains infinite values"}
		}
	}
	return nil
}
