package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Location is what a log tells us about where a failure happened.
type Location struct {
	Exception string `json:"exception,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Method    string `json:"method,omitempty"`
	NeedsCode bool   `json:"needs_code"`
}

var (
	// at com.example.OrderService.place(OrderService.java:42)
	javaFrame = regexp.MustCompile(`at ([\w.$]+)\((.*?):(\d+)\)`)
	// File "/app/orders/service.py", line 42, in place
	pythonFrame = regexp.MustCompile(`File "([^"]+)", line (\d+)(?:, in (\S+))?`)
	// /home/app/orders/service.go:42 +0x1d
	goFrame = regexp.MustCompile(`^\s*(\S+\.go):(\d+)(?:\s+\+0x[0-9a-f]+)?\s*$`)
)

// ParseLog extracts the exception name and the first stack frame from raw
// log text. The first frame found wins.
func ParseLog(text string) Location {
	var loc Location
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		if exc, ok := exceptionName(line); ok {
			loc.Exception = exc
			break
		}
	}

	for _, line := range lines {
		if m := javaFrame.FindStringSubmatch(line); m != nil {
			loc.File = m[2]
			loc.Line, _ = strconv.Atoi(m[3])
			parts := strings.Split(m[1], ".")
			loc.Method = parts[len(parts)-1]
			loc.NeedsCode = true
			break
		}
		if m := pythonFrame.FindStringSubmatch(line); m != nil {
			loc.File = m[1]
			loc.Line, _ = strconv.Atoi(m[2])
			loc.Method = m[3]
			loc.NeedsCode = true
			break
		}
		if m := goFrame.FindStringSubmatch(line); m != nil {
			loc.File = m[1]
			loc.Line, _ = strconv.Atoi(m[2])
			loc.NeedsCode = true
			break
		}
	}

	return loc
}

func exceptionName(line string) (string, bool) {
	if !strings.Contains(line, ":") {
		return "", false
	}
	if strings.Contains(line, "Exception") {
		head, _, _ := strings.Cut(line, ":")
		return strings.TrimSpace(head), true
	}
	// Python and Go style: "ValueError: ...", "panic: runtime error: ..."
	head, _, _ := strings.Cut(strings.TrimSpace(line), ":")
	if head == "panic" || (strings.HasSuffix(head, "Error") && !strings.ContainsAny(head, " \t")) {
		return head, true
	}
	return "", false
}
