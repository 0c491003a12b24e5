package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/helmcode/logmind/pkg/apperr"
	"github.com/helmcode/logmind/pkg/formatter"
	"github.com/helmcode/logmind/pkg/history"
	"github.com/helmcode/logmind/pkg/model"
)

var (
	historyLimit  int
	historyFormat string
)

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past analyses",
		Long: `Past analyses are kept in a local SQLite database (history_config.path,
default ~/.logmind/history.db). IDs can be shortened to any unique prefix.`,
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.List(cmd.Context(), historyLimit)
			if err != nil {
				return apperr.New(apperr.TypeStorage, "cannot list the analysis history", err)
			}

			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, color.HiBlackString("No analyses recorded yet."))
				return nil
			}

			bold := color.New(color.Bold)
			bold.Fprintf(w, "%-8s  %-16s  %-24s  %-8s  %s\n", "ID", "DATE", "MODEL", "TIME", "TITLE")
			for _, it := range items {
				mark := color.GreenString("✓")
				if it.Failed {
					mark = color.RedString("✗")
				}
				fmt.Fprintf(w, "%-8s  %-16s  %-24s  %-8s  %s %s\n",
					model.ShortID(it.ID),
					it.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate.StringWithTail(it.Model, 24, "…"),
					(time.Duration(it.DurationMS) * time.Millisecond).Round(100*time.Millisecond),
					mark,
					it.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of analyses to list (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			a, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return historyLookupError(err, args[0])
			}
			return formatter.DisplayResults(cmd.OutOrStdout(), a, historyFormat, translations(cfg))
		},
	}
	cmd.Flags().StringVarP(&historyFormat, "output", "o", formatter.FormatHuman, "Output format (human, markdown, json, yaml, text)")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a past analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return historyLookupError(err, args[0])
			}
			printSuccess(cmd.OutOrStdout(), "Deleted analysis "+args[0])
			return nil
		},
	}
}

func historyLookupError(err error, id string) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return apperr.New(apperr.TypeInput, "no analysis with id "+id, err).
			WithSuggestion("Run: logmind history list")
	case errors.Is(err, history.ErrAmbiguous):
		return apperr.New(apperr.TypeInput, "id "+id+" matches several analyses", err).
			WithSuggestion("Use more characters of the id")
	default:
		return apperr.New(apperr.TypeStorage, "cannot read the analysis history", err)
	}
}
