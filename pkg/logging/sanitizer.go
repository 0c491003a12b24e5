package logging

import (
	"regexp"
)

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// Sanitizer redacts credentials from free text: log lines, problem
// descriptions and log records.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: Placeholder,
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// Anthropic, before the generic sk- prefix
		`sk-ant-[a-zA-Z0-9-]{40,}`,
		// OpenAI
		`sk-[A-Za-z0-9_-]{20,}`,
		// Google AI
		`AIza[a-zA-Z0-9_-]{35}`,
		// GitHub
		`gh[pousr]_[A-Za-z0-9]{36}`,
		// AWS access key
		`AKIA[0-9A-Z]{16}`,
		`(?i)aws[_-]?secret[_-]?access[_-]?key["'\s:=]+[A-Za-z0-9/+=]{40}`,
		// Slack
		`xox[baprs]-[0-9a-zA-Z-]{10,}`,
		// JWT
		`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)password["'\s:=]+[^\s"']{8,}`,
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		// user:password@ in URLs
		`://[^/\s:@]+:[^/\s@]+@`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	out, _ := s.Redact(input)
	return out
}

// Redact is Sanitize that also reports how many secrets were replaced.
func (s *Sanitizer) Redact(input string) (string, int) {
	result := input
	count := 0
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllStringFunc(result, func(m string) string {
			if m == s.redacted {
				return m
			}
			count++
			if len(m) > 3 && m[:3] == "://" {
				return "://" + s.redacted + "@"
			}
			return s.redacted
		})
	}
	return result, count
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
