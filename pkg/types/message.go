package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem marks transport-level formatting instructions.
	RoleUser      MessageRole = "user"      // RoleUser marks instructions and page observations.
	RoleAssistant MessageRole = "assistant" // RoleAssistant marks LLM responses (serialized actions).
)

// Message is a single turn in a task's conversation history.
// Histories are append-only for the lifetime of a task and are
// discarded when the task ends.
type Message struct {
	Role    MessageRole
	Content string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}
