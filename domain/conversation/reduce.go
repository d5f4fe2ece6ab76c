package conversation

import "fmt"

// Reduce applies one event to the conversation state and returns the next
// state. It is pure: the input state is never modified, and the same
// (state, event) pair always yields the same result. Every transition is
// total over the event set; unknown concrete types fall through unchanged.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case UserMessageSubmitted:
		seq := s.Seq + 1
		return State{
			Messages: appendMessage(s.Messages, Message{
				ID:      fmt.Sprintf("user:%d", seq),
				Role:    RoleUser,
				Status:  StatusComplete,
				Content: ev.Content,
			}),
			Streams: s.Streams,
			Seq:     seq,
		}

	case TextDeltaReceived:
		buf := s.Streams[ev.RequestID]
		seq := s.Seq
		if buf.MessageID == "" {
			seq++
			buf.MessageID = fmt.Sprintf("assistant:%d", seq)
		}
		buf.Content = MergeText(buf.Content, ev.Text)
		messages := withoutStreaming(s.Messages, buf.MessageID)
		messages = append(messages, Message{
			ID:      buf.MessageID,
			Role:    RoleAssistant,
			Status:  StatusStreaming,
			Content: buf.Content,
			Tools:   buf.Tools,
		})
		return State{Messages: messages, Streams: withStream(s.Streams, ev.RequestID, buf), Seq: seq}

	case ToolStarted:
		buf := s.Streams[ev.RequestID]
		for _, t := range buf.Tools {
			if t.ToolCallID == ev.Call.ToolCallID {
				return s
			}
		}
		tools := make([]ToolInvocation, len(buf.Tools), len(buf.Tools)+1)
		copy(tools, buf.Tools)
		buf.Tools = append(tools, ToolInvocation{ToolCallID: ev.Call.ToolCallID, ToolName: ev.Call.ToolName})
		return State{
			Messages: refreshTools(s.Messages, buf.MessageID, buf.Tools),
			Streams:  withStream(s.Streams, ev.RequestID, buf),
			Seq:      s.Seq,
		}

	case ToolResultReceived:
		buf := s.Streams[ev.RequestID]
		tools := make([]ToolInvocation, len(buf.Tools), len(buf.Tools)+1)
		copy(tools, buf.Tools)
		matched := false
		for i := range tools {
			if tools[i].ToolCallID == ev.Call.ToolCallID {
				tools[i].Result = ev.Call.Result
				matched = true
				break
			}
		}
		if !matched {
			// Start frame was lost; tolerate with a synthetic invocation.
			tools = append(tools, ev.Call)
		}
		buf.Tools = tools
		return State{
			Messages: refreshTools(s.Messages, buf.MessageID, buf.Tools),
			Streams:  withStream(s.Streams, ev.RequestID, buf),
			Seq:      s.Seq,
		}

	case UsageReceived:
		buf := s.Streams[ev.RequestID]
		u := ev.Usage
		buf.Usage = &u
		return State{Messages: s.Messages, Streams: withStream(s.Streams, ev.RequestID, buf), Seq: s.Seq}

	case StreamCompleted:
		buf, ok := s.Streams[ev.RequestID]
		if !ok {
			// Completion for an already-finalized or never-started turn.
			return s
		}
		seq := s.Seq
		if buf.MessageID == "" {
			// Tool-only turn, no text frames arrived.
			seq++
			buf.MessageID = fmt.Sprintf("assistant:%d", seq)
		}
		streams := cloneStreams(s.Streams)
		delete(streams, ev.RequestID)
		messages := withoutStreaming(s.Messages, buf.MessageID)
		messages = append(messages, Message{
			ID:      buf.MessageID,
			Role:    RoleAssistant,
			Status:  StatusComplete,
			Content: buf.Content,
			Tools:   buf.Tools,
			Usage:   buf.Usage,
		})
		return State{Messages: messages, Streams: streams, Seq: seq}

	case SystemNoted:
		seq := s.Seq + 1
		return State{
			Messages: appendMessage(s.Messages, Message{
				ID:      fmt.Sprintf("system:%d", seq),
				Role:    RoleSystem,
				Status:  StatusComplete,
				Content: ev.Content,
			}),
			Streams: s.Streams,
			Seq:     seq,
		}

	case ErrorNoted:
		seq := s.Seq + 1
		return State{
			Messages: appendMessage(s.Messages, Message{
				ID:      fmt.Sprintf("error:%d", seq),
				Role:    RoleError,
				Status:  StatusComplete,
				Content: ev.Content,
			}),
			Streams: s.Streams,
			Seq:     seq,
		}

	case HistoryReplaced:
		messages, watermark := NormalizeMessages(ev.Messages)
		seq := s.Seq
		if watermark > seq {
			seq = watermark
		}
		return State{Messages: messages, Streams: make(map[string]StreamBuffer), Seq: seq}

	case Cleared:
		return NewState()
	}
	return s
}

func appendMessage(messages []Message, m Message) []Message {
	out := make([]Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, m)
}

// withoutStreaming drops the streaming assistant message carrying the given
// id, if present. Removal-then-append keeps the single-occurrence invariant
// for a turn's streaming message without a secondary pass.
func withoutStreaming(messages []Message, id string) []Message {
	out := make([]Message, 0, len(messages)+1)
	for _, m := range messages {
		if m.Role == RoleAssistant && m.Status == StatusStreaming && m.ID == id {
			continue
		}
		out = append(out, m)
	}
	return out
}

// refreshTools updates the tool list on the turn's streaming message, if it
// exists, leaving its text untouched.
func refreshTools(messages []Message, id string, tools []ToolInvocation) []Message {
	if id == "" {
		return messages
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role == RoleAssistant && m.Status == StatusStreaming && m.ID == id {
			out[i].Tools = tools
		}
	}
	return out
}

func withStream(streams map[string]StreamBuffer, id string, buf StreamBuffer) map[string]StreamBuffer {
	out := cloneStreams(streams)
	out[id] = buf
	return out
}

func cloneStreams(streams map[string]StreamBuffer) map[string]StreamBuffer {
	out := make(map[string]StreamBuffer, len(streams))
	for k, v := range streams {
		out[k] = v
	}
	return out
}
