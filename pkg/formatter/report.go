package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/model"
)

// Markdown renders the analysis as a standalone markdown report.
func Markdown(a *model.Analysis, t *i18n.Translations) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t.T("report_title", nil))
	fmt.Fprintf(&b, "- **%s**: %s\n", t.T("report_generated", nil), a.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "- **%s**: %s\n", t.T("report_model", nil), backendLabel(a.Backend))
	fmt.Fprintf(&b, "- **%s**: %s\n", t.T("report_duration", nil), duration(a.DurationMS))

	req := a.Request
	if req.HasProblem() {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", t.T("report_problem", nil), req.Problem)
	}
	if req.HasLog() {
		fence := codeFence(req.Log)
		fmt.Fprintf(&b, "\n## %s\n\n%s\n%s\n%s\n", t.T("report_log", nil), fence, req.Log, fence)
	}
	if len(req.CodeFiles) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", t.T("report_files", nil))
		for _, f := range req.CodeFiles {
			fmt.Fprintf(&b, "- `%s`\n", fileLabel(f))
		}
	}
	if len(req.Warnings) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", t.T("report_warnings", nil))
		for _, w := range req.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if a.Failed() {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", t.T("report_error", nil), a.Error)
	} else {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", t.T("report_result", nil), strings.TrimRight(a.Result, "\n"))
	}
	return b.String()
}

// Text renders the analysis as a plain text report.
func Text(a *model.Analysis, t *i18n.Translations) string {
	var b strings.Builder

	title := t.T("report_title", nil)
	fmt.Fprintf(&b, "%s\n%s\n\n", title, strings.Repeat("=", len([]rune(title))))
	fmt.Fprintf(&b, "%s: %s\n", t.T("report_generated", nil), a.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "%s: %s\n", t.T("report_model", nil), backendLabel(a.Backend))
	fmt.Fprintf(&b, "%s: %s\n", t.T("report_duration", nil), duration(a.DurationMS))

	section := func(title, body string) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))), body)
	}

	req := a.Request
	if req.HasProblem() {
		section(t.T("report_problem", nil), req.Problem)
	}
	if req.HasLog() {
		section(t.T("report_log", nil), req.Log)
	}
	if len(req.CodeFiles) > 0 {
		names := make([]string, len(req.CodeFiles))
		for i, f := range req.CodeFiles {
			names[i] = "  " + fileLabel(f)
		}
		section(t.T("report_files", nil), strings.Join(names, "\n"))
	}
	if len(req.Warnings) > 0 {
		section(t.T("report_warnings", nil), "  "+strings.Join(req.Warnings, "\n  "))
	}

	if a.Failed() {
		section(t.T("report_error", nil), a.Error)
	} else {
		section(t.T("report_result", nil), strings.TrimRight(a.Result, "\n"))
	}
	return b.String()
}

// ExportReport writes the analysis to path: markdown for .md and .markdown
// files, plain text otherwise.
func ExportReport(path string, a *model.Analysis, t *i18n.Translations) error {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		content = Markdown(a, t)
	default:
		content = Text(a, t)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// codeFence returns a backtick fence longer than any run inside s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
