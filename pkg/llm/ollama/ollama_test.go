package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imann24/ai-browser-agent/pkg/types"
)

func TestCompleteSendsGenerateRequest(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(generateResponse{
			Response: `{"action":"finish","result":"done"}`,
			Done:     true,
		})
	}))
	defer server.Close()

	p := NewProvider(WithBaseURL(server.URL), WithModel("llama3:8b"))
	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("respond with JSON"),
		types.NewUserMessage("open example.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, `{"action":"finish","result":"done"}`, msg.Content)

	assert.Equal(t, "llama3:8b", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.1, got.Options["temperature"])
	assert.Equal(t, float64(100), got.Options["num_predict"])

	// A leading system message is lifted into the system field.
	assert.Equal(t, "respond with JSON", got.System)
	assert.Equal(t, "open example.com", got.Prompt)
}

func TestCompleteFlattensHistory(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(generateResponse{Response: "{}", Done: true})
	}))
	defer server.Close()

	p := NewProvider(WithBaseURL(server.URL))
	_, err := p.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("open example.com"),
		types.NewAssistantMessage(`{"action":"navigate","url":"https://example.com"}`),
		types.NewUserMessage("Navigated to https://example.com. Page content: hello..."),
	})
	require.NoError(t, err)

	assert.Contains(t, got.Prompt, "open example.com")
	assert.Contains(t, got.Prompt, `Assistant: {"action":"navigate"`)
	assert.Contains(t, got.Prompt, "Navigated to https://example.com")
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewProvider(WithBaseURL(server.URL))
	_, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCompleteContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	p := NewProvider(WithBaseURL(server.URL))
	_, err := p.Complete(ctx, []*types.Message{types.NewUserMessage("hi")})
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	p := NewProvider()
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())
}
