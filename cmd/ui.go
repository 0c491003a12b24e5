package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helmcode/logmind/pkg/history"
	"github.com/helmcode/logmind/pkg/logging"
	"github.com/helmcode/logmind/pkg/tui"
)

func NewUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive terminal UI",
		Long: `Open the terminal UI: enter a problem description and an error log, add
the code folders to search, then press ctrl+r to analyze.`,
		Args: cobra.NoArgs,
		RunE: RunUI,
	}
}

// RunUI launches the terminal UI. It is also what logmind runs without a
// subcommand.
func RunUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryConfig.Enabled {
		s, err := openHistory(cfg)
		if err != nil {
			// The UI works without history.
			slog.Warn("history disabled for this session", "error", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	err = tui.Run(tui.Options{
		Config:       cfg,
		Translations: translations(cfg),
		History:      store,
		// Log lines would draw over the alternate screen.
		Logger: logging.NewNop(),
	})
	if err != nil {
		return fmt.Errorf("error running the terminal UI: %w", err)
	}
	return nil
}
