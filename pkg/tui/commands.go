package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/clip"
	"github.com/helmcode/logmind/pkg/codesearch"
	"github.com/helmcode/logmind/pkg/formatter"
	"github.com/helmcode/logmind/pkg/model"
)

// preparedMsg reports that the prompt for request id is built.
type preparedMsg struct {
	id     int
	runner Runner
	req    *model.Request
	err    error
}

// analysisDoneMsg carries the outcome of request id.
type analysisDoneMsg struct {
	id       int
	analysis *model.Analysis
	err      error
}

// Replaced in tests.
var (
	copyToClipboard = clip.WriteAll
	writeReport     = formatter.ExportReport
)

func prepareCmd(ctx context.Context, id int, newRunner func() (Runner, error), in model.Input) tea.Cmd {
	return func() tea.Msg {
		r, err := newRunner()
		if err != nil {
			return preparedMsg{id: id, err: err}
		}
		req, err := r.Prepare(ctx, in)
		return preparedMsg{id: id, runner: r, req: req, err: err}
	}
}

func (m Model) runCmd(ctx context.Context, id int, r Runner, req *model.Request) tea.Cmd {
	store, logger := m.store, m.logger
	return func() tea.Msg {
		a, err := r.Run(ctx, req)
		if store != nil && a != nil && !errors.Is(err, apperr.ErrAnalysisStopped) {
			if serr := store.Save(context.Background(), a); serr != nil {
				logger.Warn("failed to save analysis to history", "id", a.ID, "error", serr)
			}
		}
		return analysisDoneMsg{id: id, analysis: a, err: err}
	}
}

// startAnalysis begins a new request unless one is already in flight.
func (m Model) startAnalysis() (Model, tea.Cmd) {
	if m.running {
		return m.setStatus(m.trans.T("status_already_running", nil), statusBusy), nil
	}
	in := m.input()
	hasProblem := strings.TrimSpace(in.Problem) != ""
	hasLog := strings.TrimSpace(in.Log) != ""
	if !hasProblem && !hasLog {
		return m.setStatus(m.trans.T("status_empty_input", nil), statusError), nil
	}

	var status string
	switch {
	case hasProblem && hasLog:
		status = m.trans.T("status_analyzing_both", nil)
	case hasLog:
		status = m.trans.T("status_analyzing_log", nil)
	default:
		status = m.trans.T("status_analyzing_problem", nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.requestID++
	m.running = true
	m.ctx, m.cancel = ctx, cancel
	m = m.setStatus(status, statusBusy)
	return m, tea.Batch(prepareCmd(ctx, m.requestID, m.newRunner, in), m.spinner.Tick)
}

// stopAnalysis cancels the request in flight. Its result, if it still
// arrives, no longer matches requestID and is dropped.
func (m Model) stopAnalysis() Model {
	if !m.running {
		return m.setStatus(m.trans.T("status_not_running", nil), statusInfo)
	}
	m = m.abort()
	m.output = m.trans.T("ui_analysis_stopped", nil)
	m.outputFailed = false
	m = m.rerender()
	return m.setStatus(m.trans.T("status_stopped", nil), statusError)
}

func (m Model) abort() Model {
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = nil, nil
	m.running = false
	m.requestID++
	return m
}

func (m Model) handlePrepared(msg preparedMsg) (Model, tea.Cmd) {
	if msg.id != m.requestID || !m.running {
		return m, nil
	}
	if msg.err != nil {
		return m.finish(nil, msg.err), nil
	}
	m = m.setStatus(m.trans.T("status_calling_model", nil), statusBusy)
	return m, m.runCmd(m.ctx, msg.id, msg.runner, msg.req)
}

func (m Model) handleDone(msg analysisDoneMsg) Model {
	if msg.id != m.requestID || !m.running {
		return m
	}
	return m.finish(msg.analysis, msg.err)
}

func (m Model) finish(a *model.Analysis, err error) Model {
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = nil, nil
	m.running = false
	if a != nil {
		m.last = a
	}

	if err != nil {
		m.output = m.trans.T("ui_analysis_failed", map[string]interface{}{"Error": errorText(err)})
		m.outputFailed = true
		m = m.rerender()
		return m.setStatus(m.trans.T("status_failed", nil), statusError)
	}

	m.output = a.Result
	m.outputFailed = false
	m = m.rerender()
	return m.setStatus(m.trans.T("status_done", nil), statusSuccess)
}

// errorText is the message and suggestion of an application error, or the
// error text otherwise.
func errorText(err error) string {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		text := appErr.Error()
		if s := apperr.Suggestion(err); s != "" {
			text += "\n" + s
		}
		return text
	}
	return err.Error()
}

func (m Model) addFolder() Model {
	raw := strings.TrimSpace(m.folderInput.Value())
	if raw == "" {
		return m
	}
	path, err := filepath.Abs(raw)
	if err != nil {
		path = raw
	}
	for i, f := range m.folders {
		if f.path == path {
			m.selected = i
			return m.setStatus(m.trans.T("status_folder_duplicate", map[string]interface{}{"Path": path}), statusError)
		}
	}
	if err := codesearch.ValidateFolder(path); err != nil {
		return m.setStatus(m.trans.T("status_folder_invalid", map[string]interface{}{"Error": err.Error()}), statusError)
	}
	count, err := codesearch.CountCodeFiles(path)
	if err != nil {
		return m.setStatus(m.trans.T("status_folder_invalid", map[string]interface{}{"Error": err.Error()}), statusError)
	}

	m.folders = append(m.folders, folder{path: path, count: count})
	m.selected = len(m.folders) - 1
	m.folderInput.Reset()
	return m.setStatus(m.trans.T("status_folder_added", map[string]interface{}{"Path": path}), statusSuccess)
}

func (m Model) removeFolder() Model {
	if len(m.folders) == 0 {
		return m
	}
	removed := m.folders[m.selected]
	m.folders = append(m.folders[:m.selected:m.selected], m.folders[m.selected+1:]...)
	if m.selected >= len(m.folders) {
		m.selected = max(0, len(m.folders)-1)
	}
	return m.setStatus(m.trans.T("status_folder_removed", map[string]interface{}{"Path": removed.path}), statusInfo)
}

func (m Model) copyReport() Model {
	if m.last == nil {
		return m.setStatus(m.trans.T("status_nothing_to_copy", nil), statusError)
	}
	res, err := copyToClipboard(m.reportMarkdown())
	switch {
	case err != nil:
		return m.setStatus(m.trans.T("status_copy_failed", map[string]interface{}{"Error": err.Error()}), statusError)
	case res.Method == clip.MethodFile:
		return m.setStatus(m.trans.T("status_copied_file", map[string]interface{}{"Path": res.FilePath}), statusSuccess)
	default:
		return m.setStatus(m.trans.T("status_copied", nil), statusSuccess)
	}
}

func (m Model) exportReport() Model {
	if m.last == nil {
		return m.setStatus(m.trans.T("status_nothing_to_copy", nil), statusError)
	}
	if err := writeReport(m.exportPath, m.last, m.trans); err != nil {
		return m.setStatus(m.trans.T("status_export_failed", map[string]interface{}{"Error": err.Error()}), statusError)
	}
	path, err := filepath.Abs(m.exportPath)
	if err != nil {
		path = m.exportPath
	}
	return m.setStatus(m.trans.T("status_exported", map[string]interface{}{"Path": path}), statusSuccess)
}

// clear empties every field and drops any analysis in flight.
func (m Model) clear() Model {
	if m.running {
		m = m.abort()
	}
	m.problem.Reset()
	m.log.Reset()
	m.folderInput.Reset()
	m.folders = nil
	m.selected = 0
	m.last = nil
	m.output = ""
	m = m.rerender()
	return m.setStatus(m.trans.T("status_cleared", nil), statusInfo)
}
