// Package tokenizer estimates prompt sizes so the agent can log context
// growth before each LLM call.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/imann24/ai-browser-agent/pkg/types"
)

// defaultEncoding is the cl100k_base BPE used by current chat models.
const defaultEncoding = "cl100k_base"

// perMessageOverhead approximates the tokens a chat API spends on role
// framing per message.
const perMessageOverhead = 4

// Tokenizer counts tokens with tiktoken when the encoding is available
// and falls back to a bytes/4 estimate when it is not (the encoding may
// need a network fetch on first use).
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenizer creates a tokenizer. It never fails: if the encoding
// cannot be loaded the returned tokenizer estimates instead.
func NewTokenizer() *Tokenizer {
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return &Tokenizer{}
	}
	return &Tokenizer{encoding: enc}
}

// CountTokens returns the token count of text.
func (t *Tokenizer) CountTokens(text string) int {
	if t.encoding == nil {
		return estimate(text)
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens returns the approximate token cost of sending the
// message sequence, including per-message framing overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.CountTokens(msg.Content) + perMessageOverhead
	}
	return total
}

// estimate is the rule-of-thumb fallback of one token per four bytes.
func estimate(text string) int {
	return (len(text) + 3) / 4
}
