package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/llm"
	"github.com/helmcode/logmind/pkg/logging"
	"github.com/helmcode/logmind/pkg/model"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Chat(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.response, f.err
}

func (f *fakeLLM) GetModel() string { return "fake-model" }

func newTestAnalyzer(t *testing.T, cfg *config.Config, l llm.LLM) *Analyzer {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return New(cfg, l, WithLogger(logging.NewNop()), WithTranslations(i18n.Default()))
}

func writeSource(t *testing.T, path string, lines int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&b, "// line %d\n", i)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

const orderLog = `2025-04-05 10:32:15 ERROR [OrderService] - place failed
java.lang.NullPointerException: order is null
	at com.shop.orders.OrderService.place(OrderService.java:15)`

func TestPrepare_EmptyInput(t *testing.T) {
	a := newTestAnalyzer(t, nil, &fakeLLM{})

	_, err := a.Prepare(context.Background(), model.Input{Problem: "  \n", Log: "\t"})
	assert.ErrorIs(t, err, apperr.ErrEmptyInput)
}

func TestPrepare_FindsCodeForFrame(t *testing.T) {
	root := t.TempDir()
	writeSource(t, filepath.Join(root, "orders", "OrderService.java"), 40)

	a := newTestAnalyzer(t, nil, &fakeLLM{})
	req, err := a.Prepare(context.Background(), model.Input{
		Problem: "orders cannot be placed",
		Log:     orderLog,
		Folders: []string{root},
	})
	require.NoError(t, err)

	assert.Equal(t, "java.lang.NullPointerException", req.Location.Exception)
	require.Len(t, req.CodeFiles, 1)
	cf := req.CodeFiles[0]
	assert.Equal(t, "orders/OrderService.java", cf.Name)
	assert.Equal(t, 15, cf.Line)
	assert.True(t, strings.HasPrefix(cf.Content, "// line 5\n"))
	assert.True(t, strings.HasSuffix(cf.Content, "// line 24\n"))
	assert.Empty(t, req.Warnings)

	assert.Contains(t, req.Prompt, "orders cannot be placed")
	assert.Contains(t, req.Prompt, orderLog)
	assert.Contains(t, req.Prompt, "File orders/OrderService.java:\n"+cf.Content)
}

func TestPrepare_Warnings(t *testing.T) {
	t.Run("no folders", func(t *testing.T) {
		a := newTestAnalyzer(t, nil, &fakeLLM{})
		req, err := a.Prepare(context.Background(), model.Input{Log: orderLog})
		require.NoError(t, err)
		assert.Empty(t, req.CodeFiles)
		assert.Equal(t, []string{"The log points at OrderService.java but no code folders were given"}, req.Warnings)
	})

	t.Run("invalid folder and no match", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "gone")
		empty := t.TempDir()

		a := newTestAnalyzer(t, nil, &fakeLLM{})
		req, err := a.Prepare(context.Background(), model.Input{Log: orderLog, Folders: []string{missing, empty}})
		require.NoError(t, err)

		require.Len(t, req.Warnings, 2)
		assert.Contains(t, req.Warnings[0], "Skipped code folder "+missing)
		assert.Equal(t, "No source file matching OrderService.java was found in the code folders", req.Warnings[1])
		assert.NotEmpty(t, req.Prompt, "analysis proceeds without code")
	})

	t.Run("several candidates", func(t *testing.T) {
		root := t.TempDir()
		writeSource(t, filepath.Join(root, "orders", "OrderService.java"), 5)
		writeSource(t, filepath.Join(root, "legacy", "OrderService.java"), 5)

		a := newTestAnalyzer(t, nil, &fakeLLM{})
		req, err := a.Prepare(context.Background(), model.Input{Log: orderLog, Folders: []string{root}})
		require.NoError(t, err)

		require.Len(t, req.CodeFiles, 1)
		require.Len(t, req.Warnings, 1)
		assert.Contains(t, req.Warnings[0], "Using "+req.CodeFiles[0].Name)
	})
}

func TestPrepare_Truncates(t *testing.T) {
	cfg := config.Default()
	cfg.UIConfig.ProblemDescription.MaxLength = 5
	cfg.UIConfig.LogInput.MaxLength = 4

	a := newTestAnalyzer(t, cfg, &fakeLLM{})
	req, err := a.Prepare(context.Background(), model.Input{Problem: "数据库连接超时了", Log: "abcdefgh"})
	require.NoError(t, err)

	assert.Equal(t, "数据库连接", req.Problem)
	assert.Equal(t, "abcd", req.Log)
	assert.Equal(t, []string{
		"Problem description truncated to 5 characters",
		"Log truncated to 4 characters",
	}, req.Warnings)
}

func TestPrepare_RedactsSecretsWhenEnabled(t *testing.T) {
	log := "login failed password=hunter2hunter2 for admin"

	a := newTestAnalyzer(t, nil, &fakeLLM{})
	req, err := a.Prepare(context.Background(), model.Input{Log: log})
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "hunter2hunter2", "redaction is opt-in")

	cfg := config.Default()
	cfg.AnalysisConfig.RedactSecrets = true
	a = newTestAnalyzer(t, cfg, &fakeLLM{})
	req, err = a.Prepare(context.Background(), model.Input{Log: log})
	require.NoError(t, err)
	assert.NotContains(t, req.Prompt, "hunter2hunter2")
	assert.Contains(t, req.Log, logging.Placeholder)
	assert.Equal(t, []string{"Redacted 1 secret from the input"}, req.Warnings)
}

func TestPrepare_Attachments(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "handler.go")
	big := filepath.Join(dir, "big.py")
	writeSource(t, small, 30)
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 64)), 0o644))

	cfg := config.Default()
	cfg.AnalysisConfig.MaxCodeFileBytes = 16
	cfg.AnalysisConfig.ContextLines = 2

	a := newTestAnalyzer(t, cfg, &fakeLLM{})
	req, err := a.Prepare(context.Background(), model.Input{
		Problem: "handler returns 500",
		Files:   []string{small + ":10", big, filepath.Join(dir, "missing.go")},
	})
	require.NoError(t, err)

	require.Len(t, req.CodeFiles, 2)
	assert.Equal(t, "// line 8\n// line 9\n// line 10\n// line 11\n", req.CodeFiles[0].Content)
	assert.Equal(t, 10, req.CodeFiles[0].Line)
	assert.Equal(t, strings.Repeat("x", 16), req.CodeFiles[1].Content)
	assert.True(t, req.CodeFiles[1].Truncated)

	require.Len(t, req.Warnings, 2)
	assert.Contains(t, req.Warnings[0], "truncated to 16 bytes")
	assert.Contains(t, req.Warnings[1], "Could not read")
}

func TestParseAttachment(t *testing.T) {
	tests := []struct {
		in   string
		path string
		line int
	}{
		{"src/main.go", "src/main.go", 0},
		{"src/main.go:42", "src/main.go", 42},
		{"src/main.go:0", "src/main.go:0", 0},
		{"src/main.go:abc", "src/main.go:abc", 0},
		{`C:\src\main.go`, `C:\src\main.go`, 0},
		{`C:\src\main.go:7`, `C:\src\main.go`, 7},
		{"trailing:", "trailing:", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		path, line := ParseAttachment(tt.in)
		assert.Equal(t, tt.path, path, tt.in)
		assert.Equal(t, tt.line, line, tt.in)
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()

	t.Run("success", func(t *testing.T) {
		fake := &fakeLLM{response: "Root cause: order is nil"}
		a := newTestAnalyzer(t, cfg, fake)

		analysis, err := a.Analyze(context.Background(), model.Input{Problem: "p", Log: "l"})
		require.NoError(t, err)

		assert.Equal(t, "Root cause: order is nil", analysis.Result)
		assert.False(t, analysis.Failed())
		assert.NotEmpty(t, analysis.ID)
		assert.Equal(t, model.Backend{ModelType: "local", Model: "fake-model", BaseURL: "http://localhost:11434/v1"}, analysis.Backend)
		require.Len(t, fake.prompts, 1)
		assert.Equal(t, analysis.Request.Prompt, fake.prompts[0])
	})

	t.Run("wrapping fence removed", func(t *testing.T) {
		fake := &fakeLLM{response: "```markdown\n## Root cause\norder is nil\n```\n"}
		analysis, err := newTestAnalyzer(t, cfg, fake).Analyze(context.Background(), model.Input{Log: "l"})
		require.NoError(t, err)
		assert.Equal(t, "## Root cause\norder is nil", analysis.Result)
	})

	t.Run("api failure is returned, not raised", func(t *testing.T) {
		apiErr := &llm.APIError{StatusCode: 401, Message: "invalid api key"}
		a := newTestAnalyzer(t, cfg, &fakeLLM{err: apiErr})

		var analysis *model.Analysis
		var err error
		require.NotPanics(t, func() {
			analysis, err = a.Analyze(context.Background(), model.Input{Log: "boom"})
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAIRequest)

		var got *llm.APIError
		require.True(t, errors.As(err, &got))
		assert.Equal(t, 401, got.StatusCode)
		assert.NotEmpty(t, apperr.Suggestion(err))

		require.NotNil(t, analysis)
		assert.True(t, analysis.Failed())
		assert.Contains(t, analysis.Error, "invalid api key")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		a := newTestAnalyzer(t, cfg, &fakeLLM{})
		req, err := a.Prepare(context.Background(), model.Input{Log: "boom"})
		require.NoError(t, err)

		_, err = a.Run(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrAnalysisStopped)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewFromConfig_RequiresReadyBackend(t *testing.T) {
	cfg := config.Default()
	cfg.AIConfig.ModelType = config.ModelTypeRemote

	_, err := NewFromConfig(cfg)
	assert.ErrorIs(t, err, apperr.ErrBackendNotReady)

	cfg.AIConfig.Remote.APIKey = "sk-test"
	a, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", a.Backend().Model)
}
