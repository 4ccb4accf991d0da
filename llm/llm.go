// Package llm defines the completion provider abstraction used by the
// insight agent. Concrete adapters for hosted APIs live in the anthropic and
// openai subpackages; Static serves canned responses for tests and offline
// runs.
package llm

import "context"

// Provider produces a text completion for a prompt.
type Provider interface {
	// Complete returns the model's response to the prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Info describes the backing provider and model.
	Info() ProviderInfo
}

// ProviderInfo identifies a provider for logging and introspection.
type ProviderInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Static is a Provider that returns a fixed response. Useful in tests and
// when no API credentials are available.
type Static struct {
	Response string
}

var _ Provider = (*Static)(nil)

// Complete returns the configured response unless the context is done.
func (s *Static) Complete(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Response, nil
}

// Info identifies the static provider.
func (s *Static) Info() ProviderInfo {
	return ProviderInfo{Provider: "static", Model: "static"}
}
