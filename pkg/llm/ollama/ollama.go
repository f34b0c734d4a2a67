// Package ollama provides a provider speaking Ollama's raw generate API.
//
// Unlike the chat-style OpenAI backend, Ollama's /api/generate takes one
// prompt string, so the role-tagged history is flattened before sending.
// The request asks for JSON format at the transport layer, but the agent
// still runs the response through the action Normalizer.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/imann24/ai-browser-agent/pkg/types"
)

const (
	// DefaultBaseURL is the default local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "llama3:8b"

	defaultTemperature = 0.1
	defaultNumPredict  = 100
)

// Provider implements llm.Provider against Ollama's generate endpoint.
type Provider struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	systemPrompt string
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets the Ollama endpoint.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithSystemPrompt sets a system prompt sent with every request.
func WithSystemPrompt(prompt string) ProviderOption {
	return func(p *Provider) {
		p.systemPrompt = prompt
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider creates an Ollama provider with the given options.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// generateRequest is the wire shape of POST /api/generate.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options"`
}

// generateResponse is the subset of the reply the provider consumes.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete flattens the message history into one prompt, queries the
// generate endpoint, and returns the text payload as an assistant message.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	system := p.systemPrompt
	prompt := flattenMessages(messages, &system)

	reqBody := generateRequest{
		Model:  p.model,
		Prompt: prompt,
		System: system,
		Stream: false,
		Format: "json", // transport-layer hint; never assumed reliable
		Options: map[string]any{
			"temperature": defaultTemperature,
			"num_predict": defaultNumPredict,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return types.NewAssistantMessage(gen.Response), nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the Ollama endpoint being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// flattenMessages renders a role-tagged history as one prompt string.
// A leading system message is lifted into the request's system field when
// no explicit system prompt was configured.
func flattenMessages(messages []*types.Message, system *string) string {
	var parts []string
	for i, msg := range messages {
		if i == 0 && msg.Role == types.RoleSystem && *system == "" {
			*system = msg.Content
			continue
		}

		switch msg.Role {
		case types.RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		case types.RoleSystem:
			parts = append(parts, msg.Content)
		default:
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
