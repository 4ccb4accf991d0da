// Package forecasting exposes the forecast engine as an orchestratable agent.
// It accepts a JSON payload naming a KPI series and horizon, runs the model
// chain and returns the full forecast result as the task output.
package forecasting

import (
	"context"
	"encoding/json"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/forecast"
	"github.com/kpiflow/kpiflow/logging"
)

// AgentID is the identifier tasks use to address this agent.
const AgentID = "forecasting"

// Request is the payload schema accepted by the agent.
type Request struct {
	KPI     string    `json:"kpi"`
	Series  []float64 `json:"series"`
	Horizon int       `json:"horizon"`
	Model   string    `json:"model,omitempty"`
}

// Response wraps the engine result with the KPI it was computed for.
type Response struct {
	KPI string `json:"kpi"`
	*forecast.Result
}

// Agent runs KPI forecasts. It is safe for use by a single orchestrator
// worker; Status reflects whether a forecast is currently in flight.
type Agent struct {
	core.StatusTracker
	engine *forecast.Engine
	logger *logging.PipelineLogger
}

var _ core.Agent = (*Agent)(nil)

// Options configure agent construction.
type Options struct {
	Engine *forecast.Engine
	Logger *logging.PipelineLogger
}

// New builds a forecasting agent with a default engine unless one is
// supplied.
func New(optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Engine == nil {
		opts.Engine = forecast.NewEngine(func(o *forecast.Options) {
			o.Logger = opts.Logger
		})
	}
	return &Agent{
		engine: opts.Engine,
		logger: opts.Logger.WithComponent("agent.forecasting"),
	}
}

// ID returns the stable agent identifier.
func (a *Agent) ID() string { return AgentID }

// Name returns the human-readable agent name.
func (a *Agent) Name() string { return "KPI Forecasting Agent" }

// Capabilities lists what this agent can do.
func (a *Agent) Capabilities() []string {
	return []string{"forecast", "trend_analysis", "confidence_intervals"}
}

// Invoke parses the payload, runs the forecast and returns the serialized
// response. The agent reports busy for the duration of the call and error
// status after a failed run until the next invocation.
func (a *Agent) Invoke(ctx context.Context, payload core.Payload) (core.Result, error) {
	a.SetStatus(core.AgentBusy)

	req, err := parseRequest(payload)
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}

	res, err := a.engine.Forecast(ctx, req.Series, req.Horizon, req.Model)
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}

	out, err := json.Marshal(Response{KPI: req.KPI, Result: res})
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}
	a.SetStatus(core.AgentIdle)
	return out, nil
}

// parseRequest decodes and validates the payload so invalid requests fail
// here instead of inside the engine.
func parseRequest(payload core.Payload) (*Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, &forecast.DataValidationError{Reason: "malformed payload: " + err.Error()}
	}
	if req.Model == "" {
		req.Model = forecast.ModelAuto
	}
	if req.Horizon <= 0 {
		return nil, &forecast.DataValidationError{Reason: "horizon must be positive"}
	}
	if err := forecast.ValidateSeries(req.Series); err != nil {
		return nil, err
	}
	if len(req.Series) < req.Horizon {
		return nil, &forecast.InsufficientDataError{Observations: len(req.Series), Required: req.Horizon}
	}
	return &req, nil
}
