package conversation

import "encoding/json"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Status tracks an assistant message's lifecycle. Only assistant messages
// ever carry StatusStreaming; every other role commits as complete.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
)

// Usage is the token accounting reported by the assistant for one turn.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// ToolInvocation records a single tool call made during an assistant turn.
// Identity within a turn is ToolCallID. Result stays nil until the matching
// result frame arrives; it is kept raw because tool payloads are free-form.
type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Message is one committed entry of the conversation log. Locally minted
// messages use ids of the form "<role>:<sequence>"; re-hydrated history may
// carry opaque server-provided ids.
type Message struct {
	ID      string           `json:"id"`
	Role    Role             `json:"role"`
	Status  Status           `json:"status,omitempty"`
	Content string           `json:"content"`
	Tools   []ToolInvocation `json:"tools,omitempty"`
	Usage   *Usage           `json:"usage,omitempty"`
}

// StreamBuffer accumulates one in-flight assistant turn keyed by request id.
// It is discarded the moment the turn's completion signal commits a terminal
// message; it never outlives ingestion.
type StreamBuffer struct {
	Content   string
	Tools     []ToolInvocation
	Usage     *Usage
	MessageID string
}

// State is the authoritative conversation state. It is only ever advanced
// through Reduce; nothing outside this package mutates it.
type State struct {
	Messages []Message
	Streams  map[string]StreamBuffer
	Seq      int
}

// NewState returns the initial empty conversation state.
func NewState() State {
	return State{Streams: make(map[string]StreamBuffer)}
}
