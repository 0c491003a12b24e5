package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/fatih/color"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/model"
)

const (
	FormatHuman    = "human"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatText     = "text"

	// DefaultReportFile is where the terminal UI exports reports.
	DefaultReportFile = "logmind_report.md"

	defaultWidth = 80
)

var Formats = []string{FormatHuman, FormatMarkdown, FormatJSON, FormatYAML, FormatText}

func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// DisplayResults formats and writes the analysis to w
func DisplayResults(w io.Writer, analysis *model.Analysis, format string, t *i18n.Translations) error {
	switch format {
	case FormatJSON:
		return displayJSON(w, analysis)
	case FormatYAML:
		return displayYAML(w, analysis)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(analysis, t))
		return err
	case FormatText:
		_, err := io.WriteString(w, Text(analysis, t))
		return err
	case FormatHuman, "":
		displayHuman(w, analysis, t, termWidth(w))
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

func displayJSON(w io.Writer, analysis *model.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis)
}

func displayYAML(w io.Writer, analysis *model.Analysis) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(analysis); err != nil {
		return err
	}
	return enc.Close()
}

func displayHuman(w io.Writer, analysis *model.Analysis, t *i18n.Translations, width int) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)

	cyan.Fprintf(w, "🧠 %s\n", strings.ToUpper(t.T("report_title", nil)))
	fmt.Fprintf(w, "   %s: %s   %s: %s\n\n",
		t.T("report_model", nil), backendLabel(analysis.Backend),
		t.T("report_duration", nil), duration(analysis.DurationMS))

	if len(analysis.Request.Warnings) > 0 {
		yellow.Fprintf(w, "⚠️  %s:\n", strings.ToUpper(t.T("report_warnings", nil)))
		for _, warning := range analysis.Request.Warnings {
			fmt.Fprintf(w, "   • %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	if len(analysis.Request.CodeFiles) > 0 {
		cyan.Fprintf(w, "📄 %s:\n", strings.ToUpper(t.T("report_files", nil)))
		for _, f := range analysis.Request.CodeFiles {
			fmt.Fprintf(w, "   • %s\n", color.CyanString(fileLabel(f)))
		}
		fmt.Fprintln(w)
	}

	if analysis.Failed() {
		red.Fprintf(w, "❌ %s:\n", strings.ToUpper(t.T("report_error", nil)))
		fmt.Fprintln(w, wrapText(analysis.Error, width, 3))
		fmt.Fprintln(w)
	} else {
		green.Fprintf(w, "💡 %s:\n", strings.ToUpper(t.T("report_result", nil)))
		fmt.Fprintln(w, renderMarkdown(analysis.Result, width))
	}

	fmt.Fprintln(w, strings.Repeat("─", width))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o markdown, -o json or -o yaml for reusable output"))
}

// renderMarkdown renders model output, which is usually markdown, for the
// terminal. Plain wrapping is used if glamour cannot render it.
func renderMarkdown(text string, width int) string {
	style := styles.DarkStyleConfig
	if color.NoColor {
		style = styles.NoTTYStyleConfig
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		if out, err := r.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return wrapText(text, width, 3)
}

func wrapText(text string, width int, margin uint) string {
	return indent.String(wordwrap.String(text, width-int(margin)), margin)
}

func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
			return min(width, 120)
		}
	}
	return defaultWidth
}

func backendLabel(b model.Backend) string {
	if b.ModelType == "" {
		return b.Model
	}
	return fmt.Sprintf("%s (%s)", b.Model, b.ModelType)
}

func duration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func fileLabel(f model.CodeFile) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Name, f.Line)
	}
	return f.Name
}
