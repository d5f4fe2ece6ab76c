package conversation

// Event is the closed set of transitions the reducer accepts. Components
// outside this package never touch State directly; they dispatch one of
// these through a Store.
type Event interface {
	event()
}

// UserMessageSubmitted appends a complete user message. Callers are
// responsible for not double-submitting identical content.
type UserMessageSubmitted struct {
	Content string
}

// TextDeltaReceived merges a streamed text fragment into the turn
// identified by RequestID.
type TextDeltaReceived struct {
	RequestID string
	Text      string
}

// ToolStarted registers a tool call on the turn's buffer. Duplicate start
// frames for the same ToolCallID are ignored.
type ToolStarted struct {
	RequestID string
	Call      ToolInvocation
}

// ToolResultReceived attaches a result to a previously started tool call,
// or inserts a synthetic invocation when the start frame was lost.
type ToolResultReceived struct {
	RequestID string
	Call      ToolInvocation
}

// UsageReceived stores the latest usage snapshot on the turn's buffer.
type UsageReceived struct {
	RequestID string
	Usage     Usage
}

// StreamCompleted commits the turn's buffer into a terminal assistant
// message and discards the buffer. A completion for an unknown request id
// is a no-op.
type StreamCompleted struct {
	RequestID string
}

// SystemNoted appends a system message.
type SystemNoted struct {
	Content string
}

// ErrorNoted appends an error message.
type ErrorNoted struct {
	Content string
}

// HistoryReplaced swaps the message list wholesale with normalized server
// history, resets in-flight buffers, and fast-forwards the sequence
// counter to the recovered watermark.
type HistoryReplaced struct {
	Messages []Message
}

// Cleared resets to the initial empty state.
type Cleared struct{}

func (UserMessageSubmitted) event() {}
func (TextDeltaReceived) event()    {}
func (ToolStarted) event()          {}
func (ToolResultReceived) event()   {}
func (UsageReceived) event()        {}
func (StreamCompleted) event()      {}
func (SystemNoted) event()          {}
func (ErrorNoted) event()           {}
func (HistoryReplaced) event()      {}
func (Cleared) event()              {}
