package codesearch

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadSnippet returns the lines around line (1-based): context lines before
// it and context-1 after. A non-positive line returns the head of the file.
func ReadSnippet(path string, line, context int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	lines := splitLines(strings.ToValidUTF8(string(data), "�"))
	if context < 0 {
		context = 0
	}

	var start, end int
	if line <= 0 {
		start, end = 0, min(len(lines), 2*context)
	} else {
		start = max(0, line-context-1)
		end = min(len(lines), line+context-1)
	}
	if start >= end {
		return "", nil
	}
	return strings.Join(lines[start:end], ""), nil
}

// ReadFile reads up to maxBytes of path. truncated reports whether the file
// was longer.
func ReadFile(path string, maxBytes int) (content string, truncated bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("%s: %w", path, ErrNotAFile)
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxBytes {
		data = data[:maxBytes]
		truncated = true
	}
	return strings.ToValidUTF8(string(data), "�"), truncated, nil
}

// splitLines splits s keeping line terminators.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
