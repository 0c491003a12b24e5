package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helmcode/logmind/pkg/analyzer"
	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/clip"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/formatter"
	"github.com/helmcode/logmind/pkg/k8s"
	"github.com/helmcode/logmind/pkg/llm"
	"github.com/helmcode/logmind/pkg/model"
)

var (
	logFile      string
	podRef       string
	container    string
	tailLines    int64
	previous     bool
	kubeconfig   string
	kubeContext  string
	codeDirs     []string
	codeFiles    []string
	outputFormat string
	exportPath   string
	copyReport   bool
	backend      string
	modelName    string
	temperature  float64
	maxTokens    int
	noHistory    bool
	dryRun       bool
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [PROBLEM]",
		Short: "Analyze logs and code with an AI model",
		Long: `Send a problem description, error logs and the related source code to an
OpenAI-compatible model and print its analysis.

Examples:
  # Analyze a stack trace using the code it points at
  logmind analyze "orders fail at checkout" -l app.log -d ./src

  # Read the log from stdin
  kubectl logs deploy/orders | logmind analyze -l -

  # Pull logs and events straight from a pod
  logmind analyze "pod keeps restarting" --pod shop/orders-7d9f --previous

  # Attach a file around a given line and get markdown back
  logmind analyze -l app.log -f internal/db/pool.go:88 -o markdown

  # Only show the prompt that would be sent
  logmind analyze -l app.log -d ./src --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&logFile, "log", "l", "", "Log file to analyze (- for stdin)")
	cmd.Flags().StringVar(&podRef, "pod", "", "Read logs and events from a pod (namespace/name or name)")
	cmd.Flags().StringVarP(&container, "container", "c", "", "Container of --pod (default: the pod's default container)")
	cmd.Flags().Int64Var(&tailLines, "tail", 500, "Lines of --pod logs to read (0 for all)")
	cmd.Flags().BoolVarP(&previous, "previous", "p", false, "Read the logs of the previous --pod container instance")
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	cmd.Flags().StringVar(&kubeContext, "context", "", "Kubeconfig context (overrides current-context)")
	cmd.Flags().StringArrayVarP(&codeDirs, "dir", "d", nil, "Code folder to search for the file in the stack trace (repeatable)")
	cmd.Flags().StringArrayVarP(&codeFiles, "file", "f", nil, "Source file to include, optionally FILE:LINE (repeatable)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format ("+strings.Join(formatter.Formats, ", ")+")")
	cmd.Flags().StringVar(&exportPath, "export", "", "Also write the report to this file (.md for markdown, text otherwise)")
	cmd.Flags().BoolVar(&copyReport, "copy", false, "Copy the markdown report to the clipboard")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend to use for this run (local, remote)")
	cmd.Flags().StringVar(&modelName, "model", "", "Model to use for this run")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature for this run")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum tokens of the answer for this run")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this analysis in the history")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the prompt without calling the model")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if !formatter.ValidFormat(outputFormat) {
		return apperr.New(apperr.TypeInput, fmt.Sprintf("unsupported output format %q", outputFormat), nil).
			WithSuggestion("Use one of: " + strings.Join(formatter.Formats, ", "))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	trans := translations(cfg)
	stderr := cmd.ErrOrStderr()

	logText, err := collectLog(ctx, cmd.InOrStdin(), stderr)
	if err != nil {
		return err
	}

	in := model.Input{
		Problem: strings.Join(args, " "),
		Log:     logText,
		Folders: codeDirs,
		Files:   codeFiles,
	}

	if dryRun {
		return printPrompt(ctx, cmd, cfg, in)
	}

	a, err := analyzer.NewFromConfig(cfg, analyzer.WithTranslations(trans), analyzer.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	s := newSpinner("Collecting code and building the prompt...")
	s.Start()
	req, err := a.Prepare(ctx, in)
	s.Stop()
	if err != nil {
		return err
	}
	for _, w := range req.Warnings {
		printWarning(stderr, w)
	}
	printSuccess(stderr, describeRequest(req))

	b := a.Backend()
	s = newSpinner(fmt.Sprintf("Analyzing with %s (%s)...", b.Model, b.ModelType))
	s.Start()
	analysis, err := a.Run(ctx, req)
	s.Stop()

	if !noHistory && cfg.HistoryConfig.Enabled {
		saveHistory(ctx, cfg, analysis, stderr)
	}
	if err != nil {
		if outputFormat != formatter.FormatHuman {
			_ = formatter.DisplayResults(cmd.OutOrStdout(), analysis, outputFormat, trans)
		}
		return err
	}
	printSuccess(stderr, "Analysis complete")

	if err := formatter.DisplayResults(cmd.OutOrStdout(), analysis, outputFormat, trans); err != nil {
		return err
	}

	if exportPath != "" {
		if err := formatter.ExportReport(exportPath, analysis, trans); err != nil {
			printError(stderr, fmt.Sprintf("Export failed: %v", err))
		} else {
			printSuccess(stderr, "Report exported to "+exportPath)
		}
	}
	if copyReport {
		res, err := clip.WriteAll(formatter.Markdown(analysis, trans))
		switch {
		case err != nil:
			printError(stderr, fmt.Sprintf("Copy failed: %v", err))
		case res.Method == clip.MethodFile:
			printWarning(stderr, "No clipboard available; report written to "+res.FilePath)
		default:
			printSuccess(stderr, "Report copied to clipboard")
		}
	}
	return nil
}

// collectLog reads --log and --pod. Both may be given; the pod output
// follows the file.
func collectLog(ctx context.Context, stdin io.Reader, stderr io.Writer) (string, error) {
	var parts []string

	switch logFile {
	case "":
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", apperr.New(apperr.TypeInput, "cannot read the log from stdin", err)
		}
		parts = append(parts, string(data))
	default:
		data, err := os.ReadFile(logFile)
		if err != nil {
			return "", apperr.New(apperr.TypeInput, "cannot read the log file", err).
				WithSuggestion("Check the path given to --log")
		}
		parts = append(parts, string(data))
	}

	if podRef != "" {
		s := newSpinner("Connecting to Kubernetes cluster...")
		s.Start()
		client, err := k8s.NewClient(kubeconfig, kubeContext)
		if err != nil {
			s.Stop()
			return "", apperr.New(apperr.TypeKubernetes, "failed to connect to cluster", err).
				WithSuggestion("Check --kubeconfig and --context")
		}
		ns, pod, err := client.ParsePodRef(podRef)
		if err != nil {
			s.Stop()
			return "", apperr.New(apperr.TypeInput, "invalid --pod value", err)
		}

		s.Suffix = fmt.Sprintf(" Reading logs of %s/%s...", ns, pod)
		logs, err := client.CollectLogs(ctx, ns, pod, k8s.LogOptions{
			Container: container,
			TailLines: tailLines,
			Previous:  previous,
		})
		s.Stop()
		if err != nil {
			return "", apperr.New(apperr.TypeKubernetes, "failed to read pod logs", err)
		}
		printSuccess(stderr, fmt.Sprintf("Read logs of %s/%s", ns, pod))
		parts = append(parts, logs)
	}

	return strings.Join(parts, "\n"), nil
}

// printPrompt builds the prompt without calling the model. The backend only
// needs to be described, not reachable.
func printPrompt(ctx context.Context, cmd *cobra.Command, cfg *config.Config, in model.Input) error {
	client, err := llm.NewFromConfig(cfg)
	if err != nil {
		return apperr.New(apperr.TypeConfiguration, "cannot create the AI client", err)
	}
	a := analyzer.New(cfg, client, analyzer.WithTranslations(translations(cfg)), analyzer.WithLogger(slog.Default()))

	req, err := a.Prepare(ctx, in)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	for _, w := range req.Warnings {
		printWarning(stderr, w)
	}
	printSuccess(stderr, describeRequest(req))
	fmt.Fprintln(stderr, color.HiBlackString("Prompt for %s (%s):", client.GetModel(), cfg.AIConfig.ModelType))

	_, err = io.WriteString(cmd.OutOrStdout(), req.Prompt)
	return err
}

func describeRequest(req *model.Request) string {
	msg := fmt.Sprintf("Prompt ready (%d characters", len([]rune(req.Prompt)))
	if n := len(req.CodeFiles); n > 0 {
		msg += fmt.Sprintf(", %d code file(s)", n)
	}
	if loc := req.Location; loc.File != "" {
		msg += fmt.Sprintf(", frame %s:%d", loc.File, loc.Line)
	}
	return msg + ")"
}

func saveHistory(ctx context.Context, cfg *config.Config, analysis *model.Analysis, stderr io.Writer) {
	if analysis == nil {
		return
	}
	store, err := openHistory(cfg)
	if err != nil {
		slog.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Save(context.WithoutCancel(ctx), analysis); err != nil {
		slog.Warn("failed to save analysis to history", "id", analysis.ID, "error", err)
		return
	}
	slog.Debug("analysis saved", "id", analysis.ID)
	if verbose {
		fmt.Fprintln(stderr, color.HiBlackString("Saved as %s (logmind history show %s)", analysis.ShortID(), analysis.ShortID()))
	}
}
