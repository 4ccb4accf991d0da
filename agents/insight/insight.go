// Package insight turns forecast results into short natural-language
// narratives using a completion provider.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kpiflow/kpiflow/agents/forecasting"
	"github.com/kpiflow/kpiflow/core"
	"github.com/kpiflow/kpiflow/llm"
	"github.com/kpiflow/kpiflow/logging"
)

// AgentID is the identifier tasks use to address this agent.
const AgentID = "insight"

// Request is the payload schema: a completed forecast plus optional context
// about what the KPI measures.
type Request struct {
	Forecast    forecasting.Response `json:"forecast"`
	Description string               `json:"description,omitempty"`
}

// Response carries the generated narrative and which provider produced it.
type Response struct {
	KPI      string           `json:"kpi"`
	Insight  string           `json:"insight"`
	Provider llm.ProviderInfo `json:"provider"`
}

// Agent renders a forecast into a prompt and asks the provider for a short
// analyst-style summary.
type Agent struct {
	core.StatusTracker
	provider llm.Provider
	logger   *logging.PipelineLogger
}

var _ core.Agent = (*Agent)(nil)

// Options configure agent construction.
type Options struct {
	Logger *logging.PipelineLogger
}

// New builds an insight agent backed by the given provider.
func New(provider llm.Provider, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger: logging.NewLogger(logging.DefaultLoggerConfig()),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		provider: provider,
		logger:   opts.Logger.WithComponent("agent.insight"),
	}
}

// ID returns the stable agent identifier.
func (a *Agent) ID() string { return AgentID }

// Name returns the human-readable agent name.
func (a *Agent) Name() string { return "KPI Insight Agent" }

// Capabilities lists what this agent can do.
func (a *Agent) Capabilities() []string {
	return []string{"insight", "narrative_summary"}
}

// Invoke builds the prompt from the forecast payload and returns the
// provider's narrative.
func (a *Agent) Invoke(ctx context.Context, payload core.Payload) (core.Result, error) {
	a.SetStatus(core.AgentBusy)

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		a.SetStatus(core.AgentError)
		return nil, &core.ValidationError{Field: "payload", Message: "malformed payload: " + err.Error()}
	}
	if req.Forecast.Result == nil {
		a.SetStatus(core.AgentError)
		return nil, &core.ValidationError{Field: "forecast", Message: "forecast result is required"}
	}

	text, err := a.provider.Complete(ctx, buildPrompt(&req))
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, fmt.Errorf("insight generation failed: %w", err)
	}

	out, err := json.Marshal(Response{
		KPI:      req.Forecast.KPI,
		Insight:  strings.TrimSpace(text),
		Provider: a.provider.Info(),
	})
	if err != nil {
		a.SetStatus(core.AgentError)
		return nil, err
	}
	a.SetStatus(core.AgentIdle)
	return out, nil
}

func buildPrompt(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a KPI analyst. Summarize the following forecast in two or three sentences for a business audience.\n\n")
	if req.Forecast.KPI != "" {
		fmt.Fprintf(&b, "KPI: %s\n", req.Forecast.KPI)
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Description)
	}
	r := req.Forecast.Result
	fmt.Fprintf(&b, "Model used: %s\n", r.ModelUsed)
	fmt.Fprintf(&b, "Forecast values: %v\n", r.Forecast)
	fmt.Fprintf(&b, "Trend: %s (slope %.4f, strength %.2f)\n", r.Trend.Direction, r.Trend.Slope, r.Trend.Strength)
	fmt.Fprintf(&b, "Accuracy: RMSE %.4f, MAPE %.2f%%\n", r.Metrics.RMSE, r.Metrics.MAPE)
	b.WriteString("\nMention the trend direction, the expected range and any caveat about forecast accuracy.")
	return b.String()
}
