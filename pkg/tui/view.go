package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/helmcode/logmind/pkg/formatter"
)

func (m Model) View() string {
	if !m.ready {
		return "\n  " + m.trans.T("status_ready", nil) + "..."
	}

	header := titleStyle.Render(m.trans.T("ui_title", nil)) + "  " + backendStyle.Render(m.backendLabel())

	var inputs []string
	if m.showProblem {
		inputs = append(inputs, m.panel(focusProblem, m.trans.T("ui_problem_label", nil), m.problem.View(), m.leftWidth()))
	}
	inputs = append(inputs,
		m.panel(focusLog, m.trans.T("ui_log_label", nil), m.log.View(), m.leftWidth()),
		m.panel(focusFolder, m.trans.T("ui_folders_label", nil), m.folderView(), m.leftWidth()),
	)
	left := lipgloss.JoinVertical(lipgloss.Left, inputs...)
	result := m.panel(focusResult, m.trans.T("ui_result_label", nil), m.result.View(), m.rightWidth())

	var body string
	if m.width >= twoColumnWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, result)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, left, result)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.statusBar())
}

func (m Model) leftWidth() int {
	if m.width >= twoColumnWidth {
		return m.width / 2
	}
	return m.width
}

func (m Model) rightWidth() int {
	if m.width >= twoColumnWidth {
		return m.width - m.width/2
	}
	return m.width
}

// panel draws a bordered box of the given outer width.
func (m Model) panel(f focusField, label, content string, width int) string {
	style := panelStyle
	if m.focus == f {
		style = focusedPanelStyle
	}
	return style.Width(max(width-2, 1)).Render(labelStyle.Render(label) + "\n" + content)
}

func (m Model) folderView() string {
	width := max(m.leftWidth()-4, 10)
	lines := []string{m.folderInput.View()}

	if len(m.folders) == 0 {
		lines = append(lines, dimStyle.Render(truncate.StringWithTail(m.trans.T("ui_folder_hint", nil), uint(width), "…")))
		for len(lines) < 1+folderRows {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}

	// Keep the selection visible.
	start := 0
	if m.selected >= folderRows {
		start = m.selected - folderRows + 1
	}
	for i := start; i < len(m.folders) && i < start+folderRows; i++ {
		f := m.folders[i]
		entry := m.trans.GetMessage("ui_folder_entry", f.count, map[string]interface{}{"Path": f.path})
		entry = truncate.StringWithTail(entry, uint(width-2), "…")
		if i == m.selected {
			lines = append(lines, selectedFolderStyle.Render("› "+entry))
		} else {
			lines = append(lines, "  "+entry)
		}
	}
	for len(lines) < 1+folderRows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusBar() string {
	text := statusStyles[m.statusKind].Render(m.status)
	if m.running {
		text = m.spinner.View() + " " + text
	}
	help := dimStyle.Render(m.trans.T("ui_help", nil))
	line := text + dimStyle.Render(" │ ") + help
	return statusBarStyle.Width(m.width).MaxWidth(m.width).Render(line)
}

func (m Model) backendLabel() string {
	b := m.cfg.ActiveBackend()
	return fmt.Sprintf("%s (%s)", b.ModelName, m.cfg.AIConfig.ModelType)
}

// rerender fills the result panel from output at the current width.
func (m Model) rerender() Model {
	switch {
	case m.output == "":
		m.result.SetContent(dimStyle.Render(m.trans.T("ui_result_empty", nil)))
	case m.outputFailed:
		m.result.SetContent(errorStyle.Render(wrap(m.output, m.result.Width)))
	default:
		m.result.SetContent(renderResult(m.output, m.result.Width))
	}
	m.result.GotoTop()
	return m
}

func (m Model) reportMarkdown() string {
	return formatter.Markdown(m.last, m.trans)
}

// renderResult renders the model's markdown answer, falling back to plain
// wrapped text.
func renderResult(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.DarkStyleConfig),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err == nil {
		if out, err := r.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return wrap(text, width)
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}
