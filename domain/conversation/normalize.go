package conversation

import (
	"fmt"
	"strings"
)

// NormalizeMessages guarantees unique, stable ids over a batch of
// externally sourced messages. The server message log has been observed to
// return duplicate or non-sequential ids for user/assistant entries, so
// ids are validated here at the boundary and never trusted downstream.
//
// A message without an id gets one synthesized from its role and 1-based
// position. Any id already seen earlier in the batch gets a "#n" suffix,
// incremented until unused. The second return value is the highest
// sequence number found among "<role>:<digits>" ids, so the caller can
// fast-forward its own counter past re-hydrated history.
func NormalizeMessages(in []Message) ([]Message, int) {
	seen := make(map[string]struct{}, len(in))
	out := make([]Message, len(in))
	watermark := 0
	for i, m := range in {
		id := m.ID
		if id == "" {
			role := string(m.Role)
			if role == "" {
				role = "message"
			}
			id = fmt.Sprintf("%s:%d", role, i+1)
		}
		if _, dup := seen[id]; dup {
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s#%d", id, n)
				if _, taken := seen[candidate]; !taken {
					id = candidate
					break
				}
			}
		}
		seen[id] = struct{}{}
		m.ID = id
		out[i] = m
		if seq, ok := sequenceOf(id); ok && seq > watermark {
			watermark = seq
		}
	}
	return out, watermark
}

// sequenceOf extracts N from ids shaped "<role>:<digits>" for the locally
// minted roles. Suffixed ids like "user:4#1" still report 4.
func sequenceOf(id string) (int, bool) {
	role, rest, ok := strings.Cut(id, ":")
	if !ok {
		return 0, false
	}
	switch Role(role) {
	case RoleUser, RoleAssistant, RoleSystem, RoleError:
	default:
		return 0, false
	}
	n := 0
	digits := 0
	for _, r := range rest {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	return n, true
}
