// Package llm defines the provider abstraction the agent queries for its
// next action.
//
// Two interchangeable backends implement it: an OpenAI-compatible chat
// completions provider (pkg/llm/openai) and a raw Ollama generate provider
// (pkg/llm/ollama). The agent runs the identical loop over either; every
// text payload passes through the action Normalizer regardless of any
// JSON-formatting hints requested at the transport layer, because those
// hints are never assumed reliable.
package llm

import (
	"context"

	"github.com/imann24/ai-browser-agent/pkg/types"
)

// Provider is an LLM query backend.
type Provider interface {
	// Complete sends the role-tagged message sequence to the model and
	// returns the assistant's full response. Blocking; honors ctx
	// cancellation. Returns an error only for transport-level failures:
	// malformed response content is the Normalizer's job, not the
	// provider's.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}
