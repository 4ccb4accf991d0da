// Package anomaly exposes statistical outlier detection as an orchestratable
// agent. It accepts a JSON payload naming a KPI series, flags observations by
// z-score and interquartile-range fences, and classifies the series severity
// and recent trend.
package anomaly

import (
	"context"
	"encoding/json"

	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/forecast"
	"github.com/kpiflow/kpiflow/logging"
)

// AgentID is the identifier tasks use to address this agent.
const AgentID = "anomaly"

// MinObservations is the shortest series the quartile fences are defined on.
const MinObservations = 4

// Request is the payload schema accepted by the agent. Sensitivity defaults
// to medium and Methods to both detectors.
type Request struct {
	KPI         string    `json:"kpi"`
	Series      []float64 `json:"series"`
	Sensitivity string    `json:"sensitivity,omitempty"`
	Methods     []string  `json:"methods,omitempty"`
}

// Response reports every flagged observation together with the rolled-up
// series verdict and trailing trend.
type Response struct {
	KPI         string    `json:"kpi"`
	Sensitivity string    `json:"sensitivity"`
	Methods     []string  `json:"methods"`
	Anomalies   []Anomaly `json:"anomalies"`
	Summary     Summary   `json:"summary"`
	Trend       string    `json:"trend"`
}

// Agent detects KPI anomalies. It is safe for use by a single orchestrator
// worker; Status reflects whether a detection run is currently in flight.
type Agent struct {
	core.StatusTracker
	logger *logging.PipelineLogger
}

var _ core.Agent = (*Agent)(nil)

// Options configure agent construction.
type Options struct {
	Logger *logging.PipelineLogger
}

// New builds an anomaly detection agent.
func New(optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		logger: opts.Logger.WithComponent("agent.anomaly"),
	}
}

// ID returns the stable agent identifier.
func (a *Agent) ID() string { return AgentID }

// Name returns the human-readable agent name.
func (a *Agent) Name() string { return "KPI Anomaly Detection Agent" }

// Capabilities lists what this agent can do.
func (a *Agent) Capabilities() []string {
	return []string{"anomaly_detection", "severity_classification", "trend_analysis"}
}

// Invoke parses the payload, runs the requested detectors and returns the
// serialized response. The agent reports busy for the duration of the call
// and error status after a failed run until the next invocation.
func (a *Agent) Invoke(ctx context.Context, payload core.Payload) (core.Result, error) {
	a.SetStatus(core.AgentBusy)

	req, err := parseRequest(payload)
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}

	var anomalies []Anomaly
	for _, method := range req.Methods {
		switch method {
		case MethodZScore:
			anomalies = append(anomalies, detectZScore(req.Series, req.Sensitivity)...)
		case MethodIQR:
			anomalies = append(anomalies, detectIQR(req.Series, req.Sensitivity)...)
		}
	}
	if anomalies == nil {
		anomalies = []Anomaly{}
	}

	resp := Response{
		KPI:         req.KPI,
		Sensitivity: req.Sensitivity,
		Methods:     req.Methods,
		Anomalies:   anomalies,
		Summary:     summarize(anomalies),
		Trend:       classifyTrend(req.Series),
	}
	a.logger.Info("anomaly detection complete",
		"kpi", req.KPI,
		"status", resp.Summary.Status,
		"anomalies", len(anomalies))

	out, err := json.Marshal(resp)
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}
	a.SetStatus(core.AgentIdle)
	return out, nil
}

// parseRequest decodes and validates the payload, filling in the sensitivity
// and method defaults.
func parseRequest(payload core.Payload) (*Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, &forecast.DataValidationError{Reason: "malformed payload: " + err.Error()}
	}
	if req.Sensitivity == "" {
		req.Sensitivity = SensitivityMedium
	}
	if _, ok := zscoreBySensitivity[req.Sensitivity]; !ok {
		return nil, &core.ValidationError{Field: "sensitivity", Message: "must be low, medium or high"}
	}
	if len(req.Methods) == 0 {
		req.Methods = []string{MethodZScore, MethodIQR}
	}
	for _, m := range req.Methods {
		if m != MethodZScore && m != MethodIQR {
			return nil, &core.ValidationError{Field: "methods", Message: "unknown method " + m}
		}
	}
	if err := forecast.ValidateSeries(req.Series); err != nil {
		return nil, err
	}
	if len(req.Series) < MinObservations {
		return nil, &forecast.InsufficientDataError{Observations: len(req.Series), Required: MinObservations}
	}
	return &req, nil
}
