package action

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencedBlockRe matches a JSON object inside a fenced code block,
	// with or without a "json" language tag.
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	// braceObjectRe matches balanced-brace object substrings with up to
	// one level of nesting.
	braceObjectRe = regexp.MustCompile(`(?s)\{(?:[^{}]|\{[^{}]*\})*\}`)

	// bareKeyRe matches an unquoted object key following "{" or ",".
	bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

	// trailingCommaRe matches a trailing comma before a closing brace.
	trailingCommaRe = regexp.MustCompile(`,(\s*})`)

	// repeatedCommaRe matches consecutive commas.
	repeatedCommaRe = regexp.MustCompile(`,\s*,`)
)

// Normalizer converts raw LLM text into a well-formed Action. It never
// fails: text that survives no recovery tier is wrapped verbatim in a
// synthetic finish action so the model's output is never dropped.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize runs the recovery tiers against raw and returns the first
// Action produced. The tiers are, in order: direct JSON parse, fenced
// code block extraction, balanced-brace scan, heuristic repair, and the
// verbatim fallback.
func (n *Normalizer) Normalize(raw string) *Result {
	trimmed := strings.TrimSpace(raw)

	// Tier 1: the entire text is one JSON object.
	if act, ok := decodeObject(trimmed); ok {
		return &Result{Action: act, Outcome: OutcomeParsed}
	}

	// Tier 2: JSON inside a fenced code block.
	for _, m := range fencedBlockRe.FindAllStringSubmatch(raw, -1) {
		if act, ok := decodeObject(m[1]); ok {
			return &Result{Action: act, Outcome: OutcomeRecovered}
		}
	}

	// Tier 3: any balanced-brace object substring.
	for _, candidate := range braceObjectRe.FindAllString(raw, -1) {
		if act, ok := decodeObject(candidate); ok {
			return &Result{Action: act, Outcome: OutcomeRecovered}
		}
	}

	// Tier 4: heuristic repair of common formatting mistakes.
	if act, ok := decodeObject(repair(raw)); ok {
		return &Result{Action: act, Outcome: OutcomeRecovered}
	}

	// Tier 5: wrap the original text verbatim so it is never lost.
	return &Result{
		Action:  &Action{Kind: KindFinish, Result: raw},
		Outcome: OutcomeFallback,
	}
}

// decodeObject parses text as a single JSON object and maps it to an
// Action. Returns false when text is not a JSON object at all; a valid
// object with a missing or non-string action tag maps to KindUnknown.
func decodeObject(text string) (*Action, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, false
	}

	env := &envelope{
		Action: stringField(fields, "action"),
		URL:    stringField(fields, "url"),
		Text:   stringField(fields, "text"),
		Result: stringField(fields, "result"),
	}
	return fromEnvelope(env, text), true
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// repair applies best-effort fixes for the malformed JSON models most
// often produce: prose around the object, unquoted keys, trailing commas,
// and doubled commas.
func repair(text string) string {
	// Isolate the text between the first "{" and the last "}".
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	cleaned := text[start : end+1]

	cleaned = bareKeyRe.ReplaceAllString(cleaned, `${1}"${2}":`)
	cleaned = trailingCommaRe.ReplaceAllString(cleaned, "$1")
	for repeatedCommaRe.MatchString(cleaned) {
		cleaned = repeatedCommaRe.ReplaceAllString(cleaned, ",")
	}
	return cleaned
}
