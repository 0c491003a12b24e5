package prompts

import (
	"strings"

	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/model"
)

// ConnectionTest is sent by `logmind config test`.
const ConnectionTest = "Hello, this is a connection test. Please respond with 'Connection successful'."

// BuildAnalysisPrompt assembles the prompt for req. The problem, log and code
// contents are copied verbatim; guidance overrides the closing instruction
// when the matching field is set.
func BuildAnalysisPrompt(t *i18n.Translations, req *model.Request, guidance config.AnalysisGuidance) string {
	var b strings.Builder

	b.WriteString(t.T("prompt_header", nil))
	b.WriteString("\n")

	if req.HasProblem() {
		section(&b, t.T("prompt_problem_label", nil), req.Problem)
	}
	if req.HasLog() {
		section(&b, t.T("prompt_log_label", nil), req.Log)
	}

	if len(req.CodeFiles) > 0 {
		b.WriteString(t.T("prompt_code_label", nil))
		b.WriteString("\n")
		fileLabel := t.T("prompt_file_label", nil)
		for _, f := range req.CodeFiles {
			b.WriteString("\n")
			b.WriteString(fileLabel)
			b.WriteString(" ")
			b.WriteString(f.Name)
			b.WriteString(":\n")
			b.WriteString(f.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if g := closingGuidance(t, req, guidance); g != "" {
		b.WriteString(g)
		b.WriteString("\n")
	}

	return b.String()
}

func section(b *strings.Builder, label, body string) {
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}

func closingGuidance(t *i18n.Translations, req *model.Request, guidance config.AnalysisGuidance) string {
	switch {
	case req.HasProblem() && req.HasLog():
		return pick(guidance.WithDescriptionAndLog, t.T("guidance_description_and_log", nil))
	case req.HasProblem():
		return pick(guidance.WithDescriptionOnly, t.T("guidance_description_only", nil))
	case req.HasLog():
		return pick(guidance.WithLogOnly, t.T("guidance_log_only", nil))
	}
	return ""
}

func pick(configured, fallback string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return fallback
}
