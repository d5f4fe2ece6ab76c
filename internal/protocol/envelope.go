package protocol

// Envelope type tags seen on the agent websocket.
const (
	// TypeChatStream carries streamed response frames for one turn.
	TypeChatStream = "chat-stream-response"
	// TypeChatRequest is the outbound chat request envelope.
	TypeChatRequest = "chat-request"

	// Internal agent channels, filtered out of the conversation entirely.
	TypeAgentState = "agent-state"
	TypeMCPServers = "mcp-servers"
)

// Envelope is the minimal shape every websocket text frame shares.
type Envelope struct {
	Type string `json:"type"`
}

// IsInternal reports whether an envelope type belongs to the agent's
// heartbeat/metadata channels, which never surface as messages.
func IsInternal(envelopeType string) bool {
	return envelopeType == TypeAgentState || envelopeType == TypeMCPServers
}

// StreamEnvelope is a chat-stream response frame. Body holds zero or more
// protocol lines; Done with an empty Body signals turn completion.
type StreamEnvelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Body string `json:"body"`
	Done bool   `json:"done"`
}

// ChatRequestEnvelope is the outbound chat request sent over the
// websocket. The agent relays Init against URL on the caller's behalf.
type ChatRequestEnvelope struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	URL  string      `json:"url"`
	Init RequestInit `json:"init"`
}

// RequestInit mirrors a fetch-style request descriptor.
type RequestInit struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// ChatPayload is the JSON body of a chat request: prior history plus the
// new user message.
type ChatPayload struct {
	Messages []HistoryEntry `json:"messages"`
}

// HistoryEntry is one conversation entry in a chat request body.
type HistoryEntry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}
