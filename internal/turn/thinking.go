package turn

import (
	"regexp"
	"strings"
)

// thinkingRe matches a reasoning trace region. (?s) lets the trace span
// lines; the non-greedy body stops at the first close marker.
var thinkingRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)

// ExtractThinking splits a raw model reply into its reasoning trace and
// the display text. The first trace region becomes the trace; every trace
// region is removed from the display text, which keeps extraction
// idempotent: running it on the returned display text finds no further
// trace and leaves the string unchanged.
func ExtractThinking(raw string) (thinking, display string) {
	m := thinkingRe.FindStringSubmatch(raw)
	if m == nil {
		return "", raw
	}
	thinking = strings.TrimSpace(m[1])
	display = strings.TrimSpace(thinkingRe.ReplaceAllString(raw, ""))
	return thinking, display
}
