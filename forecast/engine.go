package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/kpiflow/kpiflow/logging"
)

// Result is the full outcome of a forecast run on the original scale.
type Result struct {
	ModelUsed           string    `json:"model_used"`
	Forecast            []float64 `json:"forecast"`
	Trend               Trend     `json:"trend"`
	Metrics             Metrics   `json:"metrics"`
	ConfidenceIntervals Interval  `json:"confidence_intervals"`
	ModelsAttempted     []string  `json:"models_attempted"`
}

// Engine runs the model chain over a KPI series. It normalizes the series
// once, fits candidate models on the normalized scale so their RMSE scores
// are comparable, and maps only the winning forecast back to original units.
type Engine struct {
	models   map[string]Model
	priority []string
	logger   *logging.PipelineLogger
}

// Options configure engine construction.
type Options struct {
	// Priority is the order models are attempted in, both for the auto
	// chain and for fallback after an explicit request fails.
	Priority []string

	Logger *logging.PipelineLogger
}

// NewEngine builds an engine with the full model chain registered.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Priority: DefaultPriority,
		Logger:   logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	models := map[string]Model{
		ModelARIMA:                arimaModel{},
		ModelExponentialSmoothing: smoothingModel{},
		ModelLSTM:                 rnnModel{},
		ModelLinearRegression:     linearModel{},
	}

	return &Engine{
		models:   models,
		priority: opts.Priority,
		logger:   opts.Logger.WithComponent("forecast"),
	}
}

// Forecast predicts the next horizon points of series. model is one of the
// model name constants or ModelAuto; auto mode tries every model in priority
// order and keeps the one with the lowest in-sample RMSE, while an explicit
// model is tried first and the rest of the chain serves as fallback.
func (e *Engine) Forecast(ctx context.Context, series []float64, horizon int, model string) (*Result, error) {
	if horizon <= 0 {
		return nil, &DataValidationError{Reason: "horizon must be positive"}
	}
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}
	if len(series) < 2 {
		return nil, &InsufficientDataError{Observations: len(series), Required: 2}
	}
	if len(series) < horizon {
		return nil, &InsufficientDataError{Observations: len(series), Required: horizon}
	}

	order, err := e.attemptOrder(model)
	if err != nil {
		return nil, err
	}

	norm, min, max := Normalize(series)
	span := max - min

	type scored struct {
		name string
		fit  *Fit
		rmse float64
	}

	var attempted []string
	var best *scored
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := e.models[name]
		if len(series) < m.MinObservations() {
			e.logger.Debug("skipping model, series too short",
				"model", name, "observations", len(series), "required", m.MinObservations())
			continue
		}

		attempted = append(attempted, name)
		start := time.Now()
		fit, fitErr := m.Fit(ctx, norm, horizon)
		e.logger.LogModelFit(name, len(series), time.Since(start), fitErr == nil, fitErr)
		if fitErr != nil {
			if errors.Is(fitErr, context.Canceled) || errors.Is(fitErr, context.DeadlineExceeded) {
				return nil, fitErr
			}
			continue
		}

		rmse := computeMetrics(norm, fit.Fitted).RMSE
		if best == nil || rmse < best.rmse {
			best = &scored{name: name, fit: fit, rmse: rmse}
		}
		if model != ModelAuto {
			// Explicit mode keeps the first model that succeeds.
			break
		}
	}

	if best == nil {
		return nil, &AllModelsFailedError{Attempted: attempted}
	}

	return e.assemble(series, norm, best.name, best.fit, attempted, min, span), nil
}

// attemptOrder resolves the list of models to try for the requested mode.
// Explicit requests get the named model first followed by the remaining
// chain in priority order.
func (e *Engine) attemptOrder(model string) ([]string, error) {
	if model == "" || model == ModelAuto {
		return e.priority, nil
	}
	if _, ok := e.models[model]; !ok {
		return nil, &DataValidationError{Reason: "unknown model: " + model}
	}
	order := []string{model}
	for _, name := range e.priority {
		if name != model {
			order = append(order, name)
		}
	}
	return order, nil
}

func (e *Engine) assemble(series, norm []float64, name string, fit *Fit, attempted []string, min, span float64) *Result {
	forecast := Denormalize(fit.Forecast, min, min+span)
	stdErr := residualStdError(norm, fit.Fitted)

	return &Result{
		ModelUsed:           name,
		Forecast:            forecast,
		Trend:               computeTrend(series),
		Metrics:             computeMetrics(norm, fit.Fitted),
		ConfidenceIntervals: confidenceInterval(forecast, stdErr, span),
		ModelsAttempted:     attempted,
	}
}
