// Package protocol implements the line-oriented frame protocol the
// assistant streams inside chat-stream envelopes, and the envelope types
// exchanged over the agent websocket.
package protocol

import (
	"encoding/json"
	"strings"

	"github.com/vinylgrove/companion/domain/conversation"
)

// FrameKind is the closed set of frame types on the wire. Downstream code
// switches exhaustively over these instead of comparing prefix strings.
type FrameKind int

const (
	FrameTextDelta FrameKind = iota
	FrameToolStart
	FrameToolResult
	FrameUsageDelta
	FrameUsageFinal
	FrameMeta
)

func (k FrameKind) String() string {
	switch k {
	case FrameTextDelta:
		return "text_delta"
	case FrameToolStart:
		return "tool_start"
	case FrameToolResult:
		return "tool_result"
	case FrameUsageDelta:
		return "usage_delta"
	case FrameUsageFinal:
		return "usage_final"
	case FrameMeta:
		return "meta"
	}
	return "unknown"
}

// Wire prefixes, fixed by the upstream frame source.
const (
	prefixTextDelta  = "0"
	prefixToolStart  = "9"
	prefixToolResult = "a"
	prefixUsageDelta = "e"
	prefixUsageFinal = "d"
	prefixMeta       = "f"
)

// Frame is one decoded unit of the wire protocol. Only the field matching
// Kind is populated. Frames are ephemeral; they exist only during
// ingestion and are never persisted.
type Frame struct {
	Kind  FrameKind
	Text  string
	Tool  *conversation.ToolInvocation
	Usage *conversation.Usage
}

// DecodeLine parses a single protocol line of the shape
// "<prefix>:<payload>". A trailing newline is stripped first. Lines with
// an unknown prefix, no colon, or an empty payload (except Meta, which may
// legitimately carry none) decode to nil and are dropped. Malformed JSON
// in a tool or usage payload also yields nil: a frame we cannot act on
// must not corrupt the tool list. Text payloads fall back to the raw
// string when they are not valid JSON, which protects plain unescaped
// deltas.
func DecodeLine(line string) *Frame {
	line = strings.TrimSuffix(line, "\n")
	prefix, payload, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	if payload == "" && prefix != prefixMeta {
		return nil
	}

	switch prefix {
	case prefixTextDelta:
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			text = payload
		}
		return &Frame{Kind: FrameTextDelta, Text: text}

	case prefixToolStart:
		var call conversation.ToolInvocation
		if err := json.Unmarshal([]byte(payload), &call); err != nil {
			return nil
		}
		return &Frame{Kind: FrameToolStart, Tool: &call}

	case prefixToolResult:
		var result conversation.ToolInvocation
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil
		}
		return &Frame{Kind: FrameToolResult, Tool: &result}

	case prefixUsageDelta, prefixUsageFinal:
		var usage conversation.Usage
		if err := json.Unmarshal([]byte(payload), &usage); err != nil {
			return nil
		}
		kind := FrameUsageDelta
		if prefix == prefixUsageFinal {
			kind = FrameUsageFinal
		}
		return &Frame{Kind: kind, Usage: &usage}

	case prefixMeta:
		return &Frame{Kind: FrameMeta}
	}
	return nil
}

// SplitFrames decodes every line of an envelope body, dropping lines that
// do not decode.
func SplitFrames(body string) []Frame {
	var frames []Frame
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		if f := DecodeLine(line); f != nil {
			frames = append(frames, *f)
		}
	}
	return frames
}
