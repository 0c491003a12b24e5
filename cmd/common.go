package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/history"
	"github.com/helmcode/logmind/pkg/i18n"
	"github.com/helmcode/logmind/pkg/logging"
)

// Environment variable holding the config file path when --config is not given.
const configEnv = "LOGMIND_CONFIG"

var (
	configPath string
	verbose    bool
	language   string
)

// overrideFlags maps per-run override keys to the flags that set them.
var overrideFlags = map[string]string{
	config.KeyModelType:   "backend",
	config.KeyModel:       "model",
	config.KeyTemperature: "temperature",
	config.KeyMaxTokens:   "max-tokens",
}

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Path to the configuration file (env "+configEnv+")")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().StringVar(&language, "lang", "", "Language for prompts and output (en, zh)")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose)
	}
}

// newViper binds the global and override flags of cmd on top of the
// LOGMIND_* environment.
func newViper(cmd *cobra.Command) *viper.Viper {
	v := config.NewViper()
	if f := cmd.Flags().Lookup("config"); f != nil {
		_ = v.BindPFlag("config", f)
	}
	for key, name := range overrideFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	return v
}

// resolveConfigPath returns --config, then $LOGMIND_CONFIG, then the default.
func resolveConfigPath(cmd *cobra.Command) string {
	if p := newViper(cmd).GetString("config"); p != "" {
		return p
	}
	return config.DefaultFileName
}

// loadConfig reads the configuration for a run. A malformed file is
// reported and replaced by the defaults for this run only. The result, with
// flag and environment overrides applied, must pass validation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := newViper(cmd)
	cfg := config.LoadOrDefault(resolveConfigPath(cmd), slog.Default())
	if language != "" {
		cfg.Language = language
	}
	config.ApplyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, apperr.New(apperr.TypeInput, "invalid settings for this run", err).
			WithSuggestion("Check --backend, --model, --temperature, --max-tokens, --lang and the LOGMIND_* environment variables, or fix the file with: logmind config set KEY VALUE")
	}
	return cfg, nil
}

// loadConfigStrict is used by commands that write the file back.
func loadConfigStrict(cmd *cobra.Command) (*config.Config, string, error) {
	path := resolveConfigPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrMalformed) {
			return nil, path, apperr.New(apperr.TypeConfiguration, "cannot read the configuration file", err).
				WithSuggestion("Fix the JSON by hand or recreate it with: logmind config init --force")
		}
		return nil, path, err
	}
	return cfg, path, nil
}

func translations(cfg *config.Config) *i18n.Translations {
	t, err := i18n.NewTranslations(cfg.Language)
	if err != nil {
		slog.Warn("falling back to English", "language", cfg.Language, "error", err)
		return i18n.Default()
	}
	return t
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, apperr.New(apperr.TypeStorage, "cannot open the analysis history", err).
			WithSuggestion("Check history_config.path, or disable history with: logmind config set history_config.enabled false")
	}
	return store, nil
}

// newSpinner draws on stderr so stdout only carries results.
func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriterFile(os.Stderr))
	s.Suffix = " " + suffix
	return s
}

func printSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "✓ %s\n", msg)
}

func printError(w io.Writer, msg string) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "✗ %s\n", msg)
}

func printWarning(w io.Writer, msg string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(w, "⚠ %s\n", msg)
}

// PrintFatal reports err on stderr with its suggestion, if any.
func PrintFatal(err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		printError(os.Stderr, appErr.Error())
	} else {
		printError(os.Stderr, fmt.Sprintf("Error: %v", err))
	}
	if s := apperr.Suggestion(err); s != "" {
		fmt.Fprintf(os.Stderr, "💡 %s\n", color.HiBlackString(s))
	}
}
