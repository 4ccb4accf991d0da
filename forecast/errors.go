package forecast

import "fmt"

// DataValidationError reports input that cannot be forecast at all:
// non-finite values, an empty series or a malformed request.
type DataValidationError struct {
	Reason string
}

func (e *DataValidationError) Error() string {
	return "data validation failed: " + e.Reason
}

// InsufficientDataError reports a series too short for the requested
// forecast horizon.
type InsufficientDataError struct {
	Observations int
	Required     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d observations, need at least %d", e.Observations, e.Required)
}

// ModelFitError reports the failure of one candidate model. It never
// propagates past the fallback chain: the engine logs it, excludes the model
// from comparison and moves on.
type ModelFitError struct {
	Model string
	Err   error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model %s failed to fit: %v", e.Model, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// AllModelsFailedError reports that every candidate model, including the
// linear-regression fallback, failed. Unreachable by construction for
// validated input; kept so the failure mode is a descriptive error rather
// than a panic if that assumption is ever violated.
type AllModelsFailedError struct {
	Attempted []string
}

func (e *AllModelsFailedError) Error() string {
	return fmt.Sprintf("all forecasting models failed (attempted: %v)", e.Attempted)
}
