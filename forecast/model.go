package forecast

import "context"

// Model identifiers accepted in requests. ModelAuto selects the best
// candidate by normalized RMSE; the others name one specific model.
const (
	ModelAuto                 = "auto"
	ModelARIMA                = "arima"
	ModelExponentialSmoothing = "exponential_smoothing"
	ModelLSTM                 = "lstm"
	ModelLinearRegression     = "linear_regression"
)

// DefaultPriority is the order models are attempted in auto mode and the
// fallback order after an explicitly requested model fails. The ordering is
// deliberately configurable (Options.Priority): the comparison is metric
// sensitive and worth validating against synthetic data rather than frozen.
var DefaultPriority = []string{
	ModelARIMA,
	ModelExponentialSmoothing,
	ModelLSTM,
	ModelLinearRegression,
}

// Fit is the output of one candidate model, entirely on the normalized
// scale. Fitted holds the in-sample one-step predictions aligned with the
// training series so every model is scored on identical residuals.
type Fit struct {
	// Forecast holds the next-horizon predictions, normalized scale.
	Forecast []float64

	// Fitted holds in-sample predictions, same length as the training
	// series. Positions the model cannot predict (warm-up observations)
	// carry the actual value.
	Fitted []float64
}

// Model is one swappable forecasting strategy: normalized series in, Fit
// out. Implementations report the minimum series length they need; the
// engine skips a model entirely rather than attempting it below that.
type Model interface {
	// Name returns the request-facing model identifier.
	Name() string

	// MinObservations is the shortest series the model will attempt.
	MinObservations() int

	// Fit trains on the normalized series and produces horizon predictions.
	// Failures are returned as *ModelFitError so the engine can distinguish
	// a failed candidate from a programming error.
	Fit(ctx context.Context, series []float64, horizon int) (*Fit, error)
}
