package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/helmcode/logmind/pkg/analyzer"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/formatter"
	"github.com/helmcode/logmind/pkg/history"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/model"
)

// Runner prepares and sends analyses. *analyzer.Analyzer implements it.
type Runner interface {
	Prepare(ctx context.Context, in model.Input) (*model.Request, error)
	Run(ctx context.Context, req *model.Request) (*model.Analysis, error)
}

type focusField int

const (
	focusProblem focusField = iota
	focusLog
	focusFolder
	focusResult
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusBusy
	statusSuccess
	statusError
)

// pixelsPerLine converts the configured minimum heights, given in pixels,
// to terminal rows.
const pixelsPerLine = 30

type folder struct {
	path  string
	count int
}

// Options configure the terminal UI.
type Options struct {
	Config       *config.Config
	Translations *i18n.Translations
	// NewRunner is called when an analysis starts, so configuration problems
	// show up in the result panel instead of preventing startup.
	NewRunner func() (Runner, error)
	// History, when set, receives every finished analysis.
	History    *history.Store
	ExportPath string
	Logger     *slog.Logger
}

type Model struct {
	width  int
	height int
	ready  bool

	cfg        *config.Config
	trans      *i18n.Translations
	newRunner  func() (Runner, error)
	store      *history.Store
	exportPath string
	logger     *slog.Logger
	keys       KeyMap

	problem     textarea.Model
	log         textarea.Model
	folderInput textinput.Model
	result      viewport.Model
	spinner     spinner.Model

	showProblem bool
	focus       focusField
	folders     []folder
	selected    int

	// requestID identifies the analysis whose result is still wanted.
	// Stopping or clearing bumps it so late results are dropped.
	requestID int
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	last      *model.Analysis

	// output is what the result panel shows, rendered again on resize.
	output       string
	outputFailed bool

	status     string
	statusKind statusKind
}

// New creates the UI model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	trans := opts.Translations
	if trans == nil {
		trans = i18n.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newRunner := opts.NewRunner
	if newRunner == nil {
		newRunner = func() (Runner, error) {
			a, err := analyzer.NewFromConfig(cfg, analyzer.WithTranslations(trans), analyzer.WithLogger(logger))
			if err != nil {
				return nil, err
			}
			return a, nil
		}
	}
	exportPath := opts.ExportPath
	if exportPath == "" {
		exportPath = formatter.DefaultReportFile
	}

	pd := cfg.UIConfig.ProblemDescription

	problem := textarea.New()
	problem.Placeholder = pd.PlaceholderText
	if problem.Placeholder == "" {
		problem.Placeholder = trans.T("ui_problem_placeholder", nil)
	}
	problem.CharLimit = pd.MaxLength
	problem.ShowLineNumbers = false
	problem.SetHeight(rows(pd.MinHeight))

	logArea := textarea.New()
	logArea.Placeholder = trans.T("ui_log_placeholder", nil)
	logArea.CharLimit = cfg.UIConfig.LogInput.MaxLength
	logArea.ShowLineNumbers = false
	logArea.SetHeight(rows(cfg.UIConfig.LogInput.MinHeight))

	fi := textinput.New()
	fi.Placeholder = trans.T("ui_folder_placeholder", nil)
	fi.Prompt = "📁 "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyles[statusBusy]

	m := Model{
		cfg:         cfg,
		trans:       trans,
		newRunner:   newRunner,
		store:       opts.History,
		exportPath:  exportPath,
		logger:      logger,
		keys:        DefaultKeyMap(),
		problem:     problem,
		log:         logArea,
		folderInput: fi,
		result:      viewport.New(0, 0),
		spinner:     sp,
		showProblem: pd.Enabled,
	}

	first := focusProblem
	if !m.showProblem {
		first = focusLog
	}
	m = m.setFocus(first)
	m = m.setStatus(trans.T("status_ready", nil), statusInfo)
	return m.rerender()
}

// Run starts the UI on the alternate screen and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok && m.cancel != nil {
		m.cancel()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func rows(px int) int {
	return max(3, px/pixelsPerLine)
}

func (m Model) fields() []focusField {
	if m.showProblem {
		return []focusField{focusProblem, focusLog, focusFolder, focusResult}
	}
	return []focusField{focusLog, focusFolder, focusResult}
}

func (m Model) setFocus(f focusField) Model {
	m.focus = f
	m.problem.Blur()
	m.log.Blur()
	m.folderInput.Blur()
	switch f {
	case focusProblem:
		m.problem.Focus()
	case focusLog:
		m.log.Focus()
	case focusFolder:
		m.folderInput.Focus()
	}
	return m
}

func (m Model) cycleFocus(step int) Model {
	fields := m.fields()
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + step + len(fields)) % len(fields)
	return m.setFocus(fields[idx])
}

func (m Model) setStatus(text string, kind statusKind) Model {
	m.status = text
	m.statusKind = kind
	return m
}

func (m Model) folderPaths() []string {
	paths := make([]string, len(m.folders))
	for i, f := range m.folders {
		paths[i] = f.path
	}
	return paths
}

func (m Model) input() model.Input {
	in := model.Input{
		Log:     m.log.Value(),
		Folders: m.folderPaths(),
	}
	if m.showProblem {
		in.Problem = m.problem.Value()
	}
	return in
}
