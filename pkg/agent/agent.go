// Package agent drives the LLM/browser action loop.
//
// One Agent owns the conversation with the model for the lifetime of a
// process but holds no per-task state: each Execute call builds a fresh
// history, runs the loop until a terminal action, and returns a result
// string. The browser session is shared across tasks and is closed only
// by its owner, never by the agent.
package agent

import (
	"time"

	"github.com/imann24/ai-browser-agent/pkg/action"
	"github.com/imann24/ai-browser-agent/pkg/browser"
	"github.com/imann24/ai-browser-agent/pkg/config"
	"github.com/imann24/ai-browser-agent/pkg/llm"
	"github.com/imann24/ai-browser-agent/pkg/llm/tokenizer"
	"github.com/imann24/ai-browser-agent/pkg/logging"
)

const (
	// MaxNavigations caps the number of navigate actions per task to
	// prevent infinite loops. The cap is an invariant, not a setting.
	MaxNavigations = 10

	// DefaultTimeout is the wall-clock budget for one task.
	DefaultTimeout = 180 * time.Second

	// observationPrefixLen bounds how much page text is fed back to the
	// model after each navigation.
	observationPrefixLen = 1000
)

// Reason classifies why a task reached its terminal state.
type Reason string

const (
	ReasonFinished          Reason = "finished"            // the model completed the task
	ReasonFound             Reason = "found"               // the model located the requested information
	ReasonMaxDepth          Reason = "max-depth"           // the navigation cap was hit
	ReasonNavigationFailure Reason = "navigation-failure"  // a navigation did not succeed
	ReasonError             Reason = "error"               // an unexpected failure terminated the task
	ReasonTimeout           Reason = "timeout"             // the wall-clock budget expired
	// ReasonMalformed marks a task that terminated through the
	// Normalizer's verbatim fallback. The result string looks like a
	// finish, but callers should not treat it as one: the model's output
	// was incoherent, not a genuine completion.
	ReasonMalformed Reason = "malformed-response"
)

// ExecutionResult is the terminal outcome of one task.
type ExecutionResult struct {
	// Message is the string returned to the caller.
	Message string

	// Reason classifies the terminal state.
	Reason Reason
}

// Agent runs browsing tasks by alternating LLM queries with browser
// actions. It is not safe for concurrent Execute calls on one Session;
// callers serialize tasks.
type Agent struct {
	provider     llm.Provider
	session      *browser.Session
	normalizer   *action.Normalizer
	whitelist    *config.URLWhitelist
	tokenizer    *tokenizer.Tokenizer
	timeout      time.Duration
	systemPrompt string
	log          *logging.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithTimeout overrides the per-task wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.timeout = d
	}
}

// WithWhitelist restricts navigation targets.
func WithWhitelist(w *config.URLWhitelist) Option {
	return func(a *Agent) {
		a.whitelist = w
	}
}

// WithSystemPrompt overrides the action-format system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithTokenizer enables context-size logging before each LLM call.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(a *Agent) {
		a.tokenizer = t
	}
}

// NewAgent creates an agent over the given query backend and browser
// session. The session is borrowed, not owned: the agent never closes it.
func NewAgent(provider llm.Provider, session *browser.Session, opts ...Option) *Agent {
	log, err := logging.NewLogger("agent")
	if err != nil {
		log.Warnf("agent logger fell back to stderr: %v", err)
	}

	a := &Agent{
		provider:     provider,
		session:      session,
		normalizer:   action.NewNormalizer(),
		timeout:      DefaultTimeout,
		systemPrompt: SystemPrompt,
		log:          log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
