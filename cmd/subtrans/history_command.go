package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subtrans/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded translation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded yet")
					return nil
				}
				fmt.Fprintln(out, renderRunsTable(runs))
				return nil
			}

			run, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", runID)
			}
			files, err := store.Files(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Status)
			fmt.Fprintf(out, "%s → %s with %s\n", run.SourceLanguage, run.TargetLanguage, run.Model)
			if run.OutputDir != "" {
				fmt.Fprintf(out, "Output: %s\n", run.OutputDir)
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
			}
			fmt.Fprintln(out, renderFilesTable(files))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show the files of one run (id or unique prefix)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	return cmd
}
