package parser

import (
	"regexp"
	"strings"
)

// wrappingFence matches an answer that is entirely one fenced block, as some
// models return markdown wrapped in ```markdown ... ```.
var wrappingFence = regexp.MustCompile("(?s)^```(?:markdown|md)[ \t]*\n(.*?)\n?```$")

// CleanResponse trims the model's answer and removes a fence wrapping all of
// it, so the markdown inside renders as markdown. Fences inside the answer
// are kept.
func CleanResponse(raw string) string {
	text := strings.TrimSpace(raw)
	m := wrappingFence.FindStringSubmatch(text)
	if m == nil || strings.Contains(m[1], "\n```") {
		return text
	}
	return strings.TrimSpace(m[1])
}
