package conversation

import "strings"

// MergeText reconciles an incoming streamed fragment with the text already
// accumulated for a turn. The upstream frame source has been observed to
// retransmit deltas that restate trailing characters of earlier deltas, so
// plain concatenation would duplicate text. Order matters: this is not
// commutative.
func MergeText(prev, next string) string {
	if prev == "" {
		return next
	}
	if next == "" {
		return prev
	}
	// Server resent a superset of what we already have.
	if strings.HasPrefix(next, prev) {
		return next
	}
	// Increment is already fully contained.
	if strings.HasSuffix(prev, next) {
		return prev
	}
	// Longest suffix of prev that is a prefix of next.
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for overlap := max; overlap > 0; overlap-- {
		if prev[len(prev)-overlap:] == next[:overlap] {
			return prev + next[overlap:]
		}
	}
	return prev + next
}
