package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/logmind/pkg/analyzer"
	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/clip"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/history"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/logging"
	"github.com/helmcode/logmind/pkg/model"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.response, f.err
}

func (f *fakeLLM) GetModel() string { return "fake-model" }

func newTestModel(t *testing.T, cfg *config.Config, l *fakeLLM, store *history.Store) Model {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	trans := i18n.Default()
	m := New(Options{
		Config:       cfg,
		Translations: trans,
		NewRunner: func() (Runner, error) {
			return analyzer.New(cfg, l, analyzer.WithTranslations(trans), analyzer.WithLogger(logging.NewNop())), nil
		},
		History:    store,
		ExportPath: filepath.Join(t.TempDir(), "report.md"),
		Logger:     logging.NewNop(),
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: k})
}

// analysisMsgs runs cmd and returns the analysis messages it produced.
func analysisMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, analysisMsgs(c)...)
		}
		return out
	case preparedMsg, analysisDoneMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

// drain feeds analysis messages back until the request settles.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range analysisMsgs(cmd) {
		var next tea.Cmd
		m, next = update(t, m, msg)
		m = drain(t, m, next)
	}
	return m
}

func status(id string) string {
	return i18n.Default().T(id, nil)
}

func TestNew_Defaults(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)

	assert.True(t, m.ready)
	assert.Equal(t, focusProblem, m.focus)
	assert.Equal(t, status("status_ready"), m.status)
	assert.Equal(t, 2000, m.problem.CharLimit)
	assert.Equal(t, 10000, m.log.CharLimit)
	assert.Contains(t, m.View(), "Problem description")
}

func TestNew_ProblemDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.UIConfig.ProblemDescription.Enabled = false
	m := newTestModel(t, cfg, &fakeLLM{}, nil)

	assert.Equal(t, focusLog, m.focus)
	assert.Equal(t, []focusField{focusLog, focusFolder, focusResult}, m.fields())
	assert.NotContains(t, m.View(), "Problem description")

	m.problem.SetValue("ignored")
	assert.Empty(t, m.input().Problem)
}

func TestFocusCycle(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, focusLog, m.focus)
	m, _ = press(t, m, tea.KeyTab)
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, focusResult, m.focus)
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, focusProblem, m.focus)
	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, focusResult, m.focus)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)

	m, cmd := press(t, m, tea.KeyCtrlR)
	assert.Nil(t, cmd)
	assert.False(t, m.running)
	assert.Equal(t, status("status_empty_input"), m.status)
}

func TestAnalyze_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := newTestModel(t, nil, &fakeLLM{response: "Root cause: nil order"}, store)
	m.log.SetValue("panic: runtime error: invalid memory address")

	m, cmd := press(t, m, tea.KeyCtrlR)
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Equal(t, status("status_analyzing_log"), m.status)

	m = drain(t, m, cmd)
	assert.False(t, m.running)
	assert.Equal(t, status("status_done"), m.status)
	assert.Equal(t, "Root cause: nil order", m.output)
	require.NotNil(t, m.last)
	assert.False(t, m.last.Failed())

	saved, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, m.last.ID, saved[0].ID)
}

func TestAnalyze_StatusByInput(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.problem.SetValue("checkout is slow")
	m, _ = press(t, m, tea.KeyCtrlR)
	assert.Equal(t, status("status_analyzing_problem"), m.status)

	m = newTestModel(t, nil, &fakeLLM{}, nil)
	m.problem.SetValue("checkout is slow")
	m.log.SetValue("timeout after 30s")
	m, _ = press(t, m, tea.KeyCtrlR)
	assert.Equal(t, status("status_analyzing_both"), m.status)
}

func TestAnalyze_IgnoredWhileRunning(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.log.SetValue("boom")

	m, _ = press(t, m, tea.KeyCtrlR)
	id := m.requestID

	m, cmd := press(t, m, tea.KeyCtrlR)
	assert.Nil(t, cmd)
	assert.Equal(t, id, m.requestID)
	assert.True(t, m.running)
	assert.Equal(t, status("status_already_running"), m.status)
}

func TestAnalyze_APIFailure(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{err: &fakeAPIError{}}, nil)
	m.log.SetValue("boom")

	m, cmd := press(t, m, tea.KeyCtrlR)
	assert.NotPanics(t, func() { m = drain(t, m, cmd) })

	assert.False(t, m.running)
	assert.Equal(t, status("status_failed"), m.status)
	assert.True(t, m.outputFailed)
	assert.Contains(t, m.output, "AI analysis failed")
	assert.Contains(t, m.output, "invalid api key")
	require.NotNil(t, m.last)
	assert.True(t, m.last.Failed())
}

type fakeAPIError struct{}

func (fakeAPIError) Error() string { return "status 401: invalid api key" }

func TestAnalyze_BackendNotReady(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.newRunner = func() (Runner, error) {
		return nil, apperr.ErrBackendNotReady.WithError(errors.New("ai_config.remote.api_key is empty"))
	}
	m.log.SetValue("boom")

	m, cmd := press(t, m, tea.KeyCtrlR)
	m = drain(t, m, cmd)

	assert.Equal(t, status("status_failed"), m.status)
	assert.Contains(t, m.output, "api_key is empty")
	assert.Contains(t, m.output, "logmind config set")
	assert.Nil(t, m.last)
}

func TestStop_DiscardsLateResult(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{response: "too late"}, nil)
	m.log.SetValue("boom")

	m, cmd := press(t, m, tea.KeyCtrlR)
	msgs := analysisMsgs(cmd)
	require.Len(t, msgs, 1)

	m, runCmd := update(t, m, msgs[0])
	require.NotNil(t, runCmd)
	assert.Equal(t, status("status_calling_model"), m.status)

	m, _ = press(t, m, tea.KeyEsc)
	assert.False(t, m.running)
	assert.Equal(t, status("status_stopped"), m.status)

	assert.Equal(t, status("ui_analysis_stopped"), m.output)

	// The request still completes in the background.
	m = drain(t, m, runCmd)
	assert.Equal(t, status("status_stopped"), m.status)
	assert.Equal(t, status("ui_analysis_stopped"), m.output)
	assert.Nil(t, m.last)
}

func TestStop_ReplacesPreviousResult(t *testing.T) {
	m := finished(t)
	require.Equal(t, "## Cause\nnil order", m.output)

	m, _ = press(t, m, tea.KeyCtrlR)
	m, _ = press(t, m, tea.KeyEsc)

	assert.Equal(t, status("ui_analysis_stopped"), m.output)
	assert.False(t, m.outputFailed)
	assert.NotContains(t, m.result.View(), "nil order")
}

func TestStop_StaleResultAfterRestart(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{response: "answer"}, nil)
	m.log.SetValue("boom")

	m, first := press(t, m, tea.KeyCtrlR)
	m, _ = press(t, m, tea.KeyEsc)
	m, second := press(t, m, tea.KeyCtrlR)
	require.True(t, m.running)

	stale := analysisMsgs(first)
	require.Len(t, stale, 1)
	m, cmd := update(t, m, stale[0])
	assert.Nil(t, cmd)
	assert.Equal(t, status("status_analyzing_log"), m.status)

	m = drain(t, m, second)
	assert.Equal(t, status("status_done"), m.status)
	assert.Equal(t, "answer", m.output)
}

func TestStop_NotRunning(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m, _ = press(t, m, tea.KeyEsc)
	assert.Equal(t, status("status_not_running"), m.status)
}

func focusFolders(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyTab)
	m, _ = press(t, m, tea.KeyTab)
	require.Equal(t, focusFolder, m.focus)
	return m
}

func TestFolders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.py"), []byte("pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x\n"), 0o644))

	m := focusFolders(t, newTestModel(t, nil, &fakeLLM{}, nil))

	m.folderInput.SetValue(dir)
	m, _ = press(t, m, tea.KeyEnter)
	require.Len(t, m.folders, 1)
	assert.Equal(t, 2, m.folders[0].count)
	assert.Empty(t, m.folderInput.Value())
	assert.Contains(t, m.folderView(), "(2 code files)")

	m.folderInput.SetValue(dir)
	m, _ = press(t, m, tea.KeyEnter)
	assert.Len(t, m.folders, 1)
	assert.Contains(t, m.status, "Folder already added")

	m.folderInput.SetValue(filepath.Join(dir, "missing"))
	m, _ = press(t, m, tea.KeyEnter)
	assert.Len(t, m.folders, 1)
	assert.Contains(t, m.status, "Cannot add folder")

	m.folderInput.SetValue(filepath.Join(dir, "main.go"))
	m, _ = press(t, m, tea.KeyEnter)
	assert.Len(t, m.folders, 1)

	assert.Equal(t, []string{dir}, m.input().Folders)

	m, _ = press(t, m, tea.KeyCtrlD)
	assert.Empty(t, m.folders)
	assert.Contains(t, m.status, "Removed code folder")
}

func TestFolders_Selection(t *testing.T) {
	m := focusFolders(t, newTestModel(t, nil, &fakeLLM{}, nil))
	for _, name := range []string{"a", "b", "c"} {
		dir := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		m.folderInput.SetValue(dir)
		m, _ = press(t, m, tea.KeyEnter)
	}
	require.Len(t, m.folders, 3)
	assert.Equal(t, 2, m.selected)

	m, _ = press(t, m, tea.KeyUp)
	m, _ = press(t, m, tea.KeyUp)
	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, 0, m.selected)

	first := m.folders[0].path
	m, _ = press(t, m, tea.KeyCtrlD)
	require.Len(t, m.folders, 2)
	assert.NotEqual(t, first, m.folders[0].path)
}

func TestFolders_RemoveOnlyFromFolderPanel(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.folders = []folder{{path: "/a", count: 1}}

	m, _ = press(t, m, tea.KeyTab)
	require.Equal(t, focusLog, m.focus)
	m.log.SetValue("abc")
	m.log.CursorStart()

	m, _ = press(t, m, tea.KeyCtrlD)
	assert.Len(t, m.folders, 1)
	assert.Equal(t, "bc", m.log.Value())

	m, _ = press(t, m, tea.KeyTab)
	require.Equal(t, focusFolder, m.focus)
	m, _ = press(t, m, tea.KeyCtrlD)
	assert.Empty(t, m.folders)
}

func finished(t *testing.T) Model {
	t.Helper()
	m := newTestModel(t, nil, &fakeLLM{response: "## Cause\nnil order"}, nil)
	m.log.SetValue("boom")
	m, cmd := press(t, m, tea.KeyCtrlR)
	m = drain(t, m, cmd)
	require.NotNil(t, m.last)
	return m
}

func TestCopy(t *testing.T) {
	orig := copyToClipboard
	t.Cleanup(func() { copyToClipboard = orig })

	var copied string
	copyToClipboard = func(text string) (clip.Result, error) {
		copied = text
		return clip.Result{Method: clip.MethodNative}, nil
	}

	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m, _ = press(t, m, tea.KeyCtrlY)
	assert.Equal(t, status("status_nothing_to_copy"), m.status)

	m = finished(t)
	m, _ = press(t, m, tea.KeyCtrlY)
	assert.Equal(t, status("status_copied"), m.status)
	assert.Contains(t, copied, "# LogMind analysis report")
	assert.Contains(t, copied, "## Cause\nnil order")

	copyToClipboard = func(string) (clip.Result, error) {
		return clip.Result{Method: clip.MethodFile, FilePath: "/tmp/logmind-report-1.md"}, nil
	}
	m, _ = press(t, m, tea.KeyCtrlY)
	assert.Contains(t, m.status, "/tmp/logmind-report-1.md")

	copyToClipboard = func(string) (clip.Result, error) { return clip.Result{}, errors.New("no display") }
	m, _ = press(t, m, tea.KeyCtrlY)
	assert.Contains(t, m.status, "no display")
}

func TestExport(t *testing.T) {
	m := finished(t)

	m, _ = press(t, m, tea.KeyCtrlE)
	assert.Contains(t, m.status, "Report exported to")

	data, err := os.ReadFile(m.exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# LogMind analysis report")
	assert.Contains(t, string(data), "nil order")
}

func TestClear(t *testing.T) {
	m := finished(t)
	m.problem.SetValue("something")
	m.folders = []folder{{path: "/src", count: 3}}

	m, _ = press(t, m, tea.KeyCtrlL)
	assert.Empty(t, m.problem.Value())
	assert.Empty(t, m.log.Value())
	assert.Empty(t, m.folders)
	assert.Nil(t, m.last)
	assert.Empty(t, m.output)
	assert.Equal(t, status("status_cleared"), m.status)
}

func TestClear_AbortsRunning(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{response: "late"}, nil)
	m.log.SetValue("boom")

	m, cmd := press(t, m, tea.KeyCtrlR)
	m, _ = press(t, m, tea.KeyCtrlL)
	assert.False(t, m.running)

	m = drain(t, m, cmd)
	assert.Empty(t, m.output)
	assert.Equal(t, status("status_cleared"), m.status)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.log.SetValue("boom")
	m, _ = press(t, m, tea.KeyCtrlR)

	m, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.running)
}

func TestResize_TwoColumns(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 50})

	assert.Equal(t, 76, m.result.Width)
	assert.Equal(t, 45, m.result.Height)
	assert.Contains(t, m.View(), "Analysis result")
}

func TestInput(t *testing.T) {
	m := newTestModel(t, nil, &fakeLLM{}, nil)
	m.problem.SetValue("p")
	m.log.SetValue("l")
	m.folders = []folder{{path: "/a"}, {path: "/b"}}

	assert.Equal(t, model.Input{Problem: "p", Log: "l", Folders: []string{"/a", "/b"}}, m.input())
}
