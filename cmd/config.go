package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/config"
	"github.com/helmcode/logmind/pkg/llm"
	"github.com/helmcode/logmind/pkg/prompts"
)

var (
	showFormat  string
	showSecrets bool
	initForce   bool
	testBackend string
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, create and edit the configuration file",
		Long: `Manage logmind_config.json. The file is looked up at --config, then
$LOGMIND_CONFIG, then the working directory, and created with defaults when
missing.

Examples:
  # Point the remote backend at OpenAI
  logmind config set ai_config.model_type remote
  logmind config set ai_config.remote.api_key sk-...

  # Check that the selected backend answers
  logmind config test`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigPathCmd(),
		newConfigInitCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigTestCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigStrict(cmd)
			if err != nil {
				return err
			}
			if !showSecrets {
				cfg = cfg.Redacted()
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			switch showFormat {
			case "json":
			case "yaml":
				// Round-trip through a map to keep the JSON key names.
				var doc map[string]interface{}
				if err := json.Unmarshal(data, &doc); err != nil {
					return err
				}
				if data, err = yaml.Marshal(doc); err != nil {
					return err
				}
			default:
				return apperr.New(apperr.TypeInput, fmt.Sprintf("unsupported output format %q", showFormat), nil).
					WithSuggestion("Use -o json or -o yaml")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&showFormat, "output", "o", "json", "Output format (json, yaml)")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print api keys and the proxy password in clear")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(cmd)
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath(cmd)
			if _, err := os.Stat(path); err == nil && !initForce {
				return apperr.New(apperr.TypeConfiguration, "configuration file already exists: "+path, nil).
					WithSuggestion("Use --force to overwrite it with the defaults")
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Wrote default configuration to "+path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfigStrict(cmd)
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return unknownKey(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one configuration value",
		Long: `Change one configuration value, addressed by its dotted JSON path.

Examples:
  logmind config set ai_config.local.model_name llama3:8b
  logmind config set proxy_config.enabled true
  logmind config set proxy_config.port 7890
  logmind config set language zh`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			cfg, path, err := loadConfigStrict(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return unknownKey(err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			shown := value
			if isSecretKey(key) {
				shown = "****"
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Set %s = %s", key, shown))
			return nil
		},
	}
}

func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a short request to check that a backend answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			modelType := testBackend
			if modelType == "" {
				modelType = cfg.AIConfig.ModelType
			}

			client, err := llm.NewConnectionTester(cfg, modelType)
			if err != nil {
				return apperr.New(apperr.TypeConfiguration, "cannot create the AI client", err).
					WithSuggestion("Run: logmind config show")
			}

			timeout := time.Duration(cfg.AIConfig.AnalysisParams.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			s := newSpinner(fmt.Sprintf("Testing %s backend %s at %s...", modelType, client.GetModel(), client.GetBaseURL()))
			s.Start()
			reply, err := client.Chat(ctx, prompts.ConnectionTest)
			s.Stop()
			if err != nil {
				return apperr.ErrAIRequest.WithError(err)
			}

			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Connection successful (%s): %s", client.GetModel(), strings.TrimSpace(reply)))
			return nil
		},
	}
	cmd.Flags().StringVar(&testBackend, "backend", "", "Backend to test (local, remote; default: ai_config.model_type)")
	return cmd
}

func unknownKey(err error) error {
	return apperr.New(apperr.TypeInput, "invalid configuration key or value", err).
		WithSuggestion("Valid keys: " + strings.Join(config.Keys(), ", "))
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password")
}
