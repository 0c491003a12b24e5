package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.setSize(msg.Width, msg.Height)
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case preparedMsg:
		return m.handlePrepared(msg)

	case analysisDoneMsg:
		return m.handleDone(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.running {
			m = m.abort()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Analyze):
		return m.startAnalysis()

	case key.Matches(msg, m.keys.Stop):
		return m.stopAnalysis(), nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyReport(), nil

	case key.Matches(msg, m.keys.Export):
		return m.exportReport(), nil

	case key.Matches(msg, m.keys.Clear):
		return m.clear(), nil

	case key.Matches(msg, m.keys.Next):
		return m.cycleFocus(1), nil

	case key.Matches(msg, m.keys.Prev):
		return m.cycleFocus(-1), nil
	}

	if m.focus == focusFolder {
		switch {
		case key.Matches(msg, m.keys.AddFolder):
			return m.addFolder(), nil
		case key.Matches(msg, m.keys.RemoveFolder):
			return m.removeFolder(), nil
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.folders)-1 {
				m.selected++
			}
			return m, nil
		}
	}

	return m.updateFocused(msg)
}

// updateFocused hands msg to the widget that has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusProblem:
		m.problem, cmd = m.problem.Update(msg)
	case focusLog:
		m.log, cmd = m.log.Update(msg)
	case focusFolder:
		m.folderInput, cmd = m.folderInput.Update(msg)
	case focusResult:
		m.result, cmd = m.result.Update(msg)
	}
	return m, cmd
}

// Rows taken by each panel besides its content: border and label.
const (
	panelChrome = 3
	folderRows  = 3
	minResult   = 5
	// twoColumnWidth is the terminal width from which the result is shown
	// next to the inputs instead of below them.
	twoColumnWidth = 110
)

func (m Model) setSize(w, h int) Model {
	m.width, m.height = w, h

	panels := 2
	if m.showProblem {
		panels++
	}
	// Title and status bar take a row each.
	body := max(h-2, 0)
	inputs := body - panels*panelChrome - (1 + folderRows)

	leftW, rightW := w, w
	if w >= twoColumnWidth {
		leftW = w / 2
		rightW = w - leftW
		m.result.Height = max(body-panelChrome, minResult)
	} else {
		inputs -= panelChrome + minResult
	}

	problemH := 0
	if m.showProblem {
		problemH = clamp(rows(m.cfg.UIConfig.ProblemDescription.MinHeight), 2, inputs/3)
	}
	logH := max(inputs-problemH, 3)
	if w < twoColumnWidth {
		logH = clamp(rows(m.cfg.UIConfig.LogInput.MinHeight), 3, inputs-problemH)
		m.result.Height = max(body-panels*panelChrome-(1+folderRows)-problemH-logH, minResult)
	}

	inner := max(leftW-4, 10)
	m.problem.SetWidth(inner)
	m.problem.SetHeight(max(problemH, 1))
	m.log.SetWidth(inner)
	m.log.SetHeight(logH)
	m.folderInput.Width = max(inner-4, 5)
	m.result.Width = max(rightW-4, 10)

	return m.rerender()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
