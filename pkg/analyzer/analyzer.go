package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/codesearch"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/llm"
	"github.com/helmcode/logmind/pkg/logging"
	"github.com/helmcode/logmind/pkg/model"
	"github.com/helmcode/logmind/pkg/parser"
	"github.com/helmcode/logmind/pkg/prompts"
)

// maxAlternatives bounds the other candidates listed when a frame's file
// name matches several sources.
const maxAlternatives = 3

type Analyzer struct {
	llm       llm.LLM
	cfg       *config.Config
	trans     *i18n.Translations
	sanitizer *logging.Sanitizer
	logger    *slog.Logger
}

type Option func(*Analyzer)

func WithTranslations(t *i18n.Translations) Option {
	return func(a *Analyzer) { a.trans = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an analyzer that sends prompts to l using the bounds and
// guidance in cfg.
func New(cfg *config.Config, l llm.LLM, opts ...Option) *Analyzer {
	a := &Analyzer{
		llm:       l,
		cfg:       cfg,
		sanitizer: logging.NewSanitizer(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.trans == nil {
		t, err := i18n.NewTranslations(cfg.Language)
		if err != nil {
			t = i18n.Default()
		}
		a.trans = t
	}
	return a
}

// NewFromConfig checks that the active backend is usable and creates an
// analyzer talking to it.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.CheckReady(); err != nil {
		return nil, err
	}
	client, err := llm.NewFromConfig(cfg)
	if err != nil {
		return nil, apperr.New(apperr.TypeConfiguration, "cannot create the AI client", err)
	}
	return New(cfg, client, opts...), nil
}

// Backend describes where Run sends prompts.
func (a *Analyzer) Backend() model.Backend {
	b := model.Backend{
		ModelType: a.cfg.AIConfig.ModelType,
		Model:     a.llm.GetModel(),
	}
	if active := a.cfg.ActiveBackend(); active != nil {
		b.BaseURL = active.BaseURL
	}
	return b
}

// Analyze prepares in and sends it. On a model failure the returned
// analysis carries the error text alongside the returned error.
func (a *Analyzer) Analyze(ctx context.Context, in model.Input) (*model.Analysis, error) {
	req, err := a.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, req)
}

// Prepare bounds the inputs, collects the code the log points at and builds
// the prompt. Problems with folders or files become warnings.
func (a *Analyzer) Prepare(ctx context.Context, in model.Input) (*model.Request, error) {
	req := &model.Request{
		Problem: strings.TrimSpace(in.Problem),
		Log:     strings.TrimSpace(in.Log),
	}
	if !req.HasProblem() && !req.HasLog() {
		return nil, apperr.ErrEmptyInput
	}

	ui := a.cfg.UIConfig
	if p, cut := truncateRunes(req.Problem, ui.ProblemDescription.MaxLength); cut {
		req.Problem = p
		a.warn(req, "warn_problem_truncated", map[string]interface{}{"Max": ui.ProblemDescription.MaxLength})
	}
	if l, cut := truncateRunes(req.Log, ui.LogInput.MaxLength); cut {
		req.Log = l
		a.warn(req, "warn_log_truncated", map[string]interface{}{"Max": ui.LogInput.MaxLength})
	}

	if a.cfg.AnalysisConfig.RedactSecrets {
		var n, m int
		req.Problem, n = a.sanitizer.Redact(req.Problem)
		req.Log, m = a.sanitizer.Redact(req.Log)
		if n+m > 0 {
			req.Warnings = append(req.Warnings, a.trans.GetMessage("warn_secrets_redacted", n+m, nil))
		}
	}

	if req.HasLog() {
		req.Location = parser.ParseLog(req.Log)
		a.logger.Debug("parsed log",
			"exception", req.Location.Exception,
			"file", req.Location.File,
			"line", req.Location.Line)
	}

	if req.Location.NeedsCode {
		if err := a.collectFrameCode(ctx, req, in.Folders); err != nil {
			return nil, err
		}
	}
	a.collectAttachments(req, in.Files)

	req.Prompt = prompts.BuildAnalysisPrompt(a.trans, req, a.cfg.AnalysisConfig.AnalysisGuidance)
	return req, nil
}

// Run sends the prepared prompt. The analysis is returned even when the call
// fails so it can be shown and recorded.
func (a *Analyzer) Run(ctx context.Context, req *model.Request) (*model.Analysis, error) {
	analysis := model.NewAnalysis(*req, a.Backend())
	a.logger.Debug("calling model",
		"model_type", analysis.Backend.ModelType,
		"model", analysis.Backend.Model,
		"prompt_chars", utf8.RuneCountInString(req.Prompt))

	start := time.Now()
	out, err := a.llm.Chat(ctx, req.Prompt)
	elapsed := time.Since(start)
	if err != nil {
		var wrapped error
		if errors.Is(err, context.Canceled) {
			wrapped = apperr.ErrAnalysisStopped.WithError(err)
		} else {
			wrapped = apperr.ErrAIRequest.WithError(err)
		}
		analysis.Finish("", wrapped, elapsed)
		a.logger.Warn("model call failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return analysis, wrapped
	}

	analysis.Finish(parser.CleanResponse(out), nil, elapsed)
	a.logger.Debug("model call finished", "duration_ms", analysis.DurationMS)
	return analysis, nil
}

func (a *Analyzer) collectFrameCode(ctx context.Context, req *model.Request, folders []string) error {
	loc := req.Location
	if len(folders) == 0 {
		a.warn(req, "warn_no_folders", map[string]interface{}{"File": loc.File})
		return nil
	}

	res, err := codesearch.Search(ctx, folders, loc.File)
	if err != nil {
		return fmt.Errorf("search code folders: %w", err)
	}
	for _, s := range res.Skipped {
		a.warn(req, "warn_folder_skipped", map[string]interface{}{"Path": s.Path, "Error": s.Err})
	}

	best, ok := res.Best()
	if !ok {
		a.warn(req, "warn_no_code_match", map[string]interface{}{"File": loc.File})
		return nil
	}
	a.logger.Debug("code search", "file", loc.File, "matches", len(res.Matches), "chosen", best.Path)

	if others := alternatives(res.Matches, best); len(others) > 0 {
		a.warn(req, "warn_other_matches", map[string]interface{}{
			"Chosen": best.Display,
			"Others": strings.Join(others, ", "),
		})
	}

	snippet, err := codesearch.ReadSnippet(best.Path, loc.Line, a.cfg.AnalysisConfig.ContextLines)
	if err != nil {
		a.warn(req, "warn_file_unreadable", map[string]interface{}{"Path": best.Path, "Error": err})
		return nil
	}
	req.CodeFiles = append(req.CodeFiles, model.CodeFile{
		Name:    best.Display,
		Path:    best.Path,
		Line:    loc.Line,
		Content: snippet,
	})
	return nil
}

// alternatives lists the display names of the other exact matches.
func alternatives(matches []codesearch.Match, best codesearch.Match) []string {
	var out []string
	for _, m := range matches {
		if m.Path == best.Path || m.Exact != best.Exact {
			continue
		}
		out = append(out, m.Display)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}

func (a *Analyzer) collectAttachments(req *model.Request, files []string) {
	seen := make(map[string]bool, len(req.CodeFiles))
	for _, f := range req.CodeFiles {
		seen[f.Path] = true
	}

	maxBytes := a.cfg.AnalysisConfig.MaxCodeFileBytes
	for _, spec := range files {
		path, line := ParseAttachment(spec)
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			continue
		}

		cf := model.CodeFile{Name: filepath.ToSlash(path), Path: abs, Line: line}
		if line > 0 {
			cf.Content, err = codesearch.ReadSnippet(abs, line, a.cfg.AnalysisConfig.ContextLines)
		} else {
			cf.Content, cf.Truncated, err = codesearch.ReadFile(abs, maxBytes)
		}
		if err != nil {
			a.warn(req, "warn_file_unreadable", map[string]interface{}{"Path": path, "Error": err})
			continue
		}
		if cf.Truncated {
			a.warn(req, "warn_file_truncated", map[string]interface{}{"Path": path, "Max": maxBytes})
		}
		seen[abs] = true
		req.CodeFiles = append(req.CodeFiles, cf)
	}
}

// ParseAttachment splits "path:line". A suffix that is not a positive number
// is part of the path.
func ParseAttachment(spec string) (string, int) {
	spec = strings.TrimSpace(spec)
	i := strings.LastIndexByte(spec, ':')
	if i <= 0 || i == len(spec)-1 {
		return spec, 0
	}
	n, err := strconv.Atoi(spec[i+1:])
	if err != nil || n <= 0 {
		return spec, 0
	}
	return spec[:i], n
}

func (a *Analyzer) warn(req *model.Request, id string, data map[string]interface{}) {
	msg := a.trans.T(id, data)
	req.Warnings = append(req.Warnings, msg)
	a.logger.Debug("analysis warning", "warning", msg)
}

// truncateRunes keeps the first limit runes of s. A non-positive limit means
// no bound.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	i := 0
	for n := 0; n < limit; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], true
}
