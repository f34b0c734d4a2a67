// Package action converts raw LLM output into structured browser actions.
//
// Models are asked to reply with a single JSON object such as
// {"action": "navigate", "url": "https://example.com"}, but in practice
// replies arrive wrapped in prose, fenced code blocks, or with broken JSON
// syntax. The Normalizer in this package runs a tiered recovery pipeline
// that always produces an Action, so callers never deal with parse errors.
package action

// Kind identifies the type of action the model requested.
type Kind string

const (
	KindNavigate Kind = "navigate" // KindNavigate opens a URL in the browser session.
	KindFind     Kind = "find"     // KindFind reports information located on a page.
	KindFinish   Kind = "finish"   // KindFinish completes the task with a result.
	KindUnknown  Kind = "unknown"  // KindUnknown marks a parseable response with an unrecognized action tag.
)

// Action is one structured instruction derived from a single LLM turn.
// Exactly one field beyond Kind is meaningful for each kind.
type Action struct {
	Kind Kind

	// URL is the navigation target (KindNavigate).
	URL string

	// Text is the located information (KindFind).
	Text string

	// Result is the task outcome description (KindFinish).
	Result string

	// Raw preserves the original tag or payload for unknown actions,
	// so unrecognized shapes are surfaced rather than dropped.
	Raw string
}

// Outcome records which recovery tier produced an Action.
type Outcome string

const (
	// OutcomeParsed means the response was valid JSON as-is (tier 1).
	OutcomeParsed Outcome = "parsed"

	// OutcomeRecovered means the action was extracted or repaired from
	// malformed text (tiers 2-4).
	OutcomeRecovered Outcome = "recovered"

	// OutcomeFallback means nothing parseable was found and the original
	// text was wrapped verbatim in a synthetic finish action (tier 5).
	OutcomeFallback Outcome = "fallback"
)

// Result pairs an Action with the recovery outcome that produced it.
type Result struct {
	Action  *Action
	Outcome Outcome
}

// envelope is the wire shape the model is prompted to produce.
type envelope struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Text   string `json:"text"`
	Result string `json:"result"`
}

// fromEnvelope maps a decoded envelope to an Action. A missing or
// unrecognized action tag yields KindUnknown, never an error.
func fromEnvelope(env *envelope, raw string) *Action {
	switch Kind(env.Action) {
	case KindNavigate:
		return &Action{Kind: KindNavigate, URL: env.URL}
	case KindFind:
		return &Action{Kind: KindFind, Text: env.Text}
	case KindFinish:
		return &Action{Kind: KindFinish, Result: env.Result}
	default:
		return &Action{Kind: KindUnknown, Raw: env.Action, Text: raw}
	}
}
