package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtrans/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify credentials, directories, service reachability and mkvmerge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			path := ctx.configPath
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, path, colorize))
			fmt.Fprintln(out, renderStatusLine("Languages", statusInfo,
				fmt.Sprintf("%s → %s", cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage), colorize))
			fmt.Fprintln(out, renderStatusLine("Model", statusInfo, cfg.Translation.Model, colorize))
			output := cfg.Paths.OutputDir
			if cfg.Storage.Enabled() {
				output = fmt.Sprintf("bucket %s at %s", cfg.Storage.Bucket, cfg.Storage.Endpoint)
			}
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, output, colorize))

			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipNetwork: offline})
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range checkLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the translation service and bucket probes")
	return cmd
}
