package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"subtrans/internal/fileutil"
	"subtrans/internal/logging"
	"subtrans/internal/srt"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var input, output, suffix string
	var removeAds bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip [bracketed] and (parenthesized) annotations from .srt files",
		Long: "Remove sound-effect and speaker annotations such as [door slams] or (laughs),\n" +
			"drop cues left empty, and renumber the remaining cues from 1.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if err := overridePath(cmd, "input", &cfg.Paths.InputDir, input); err != nil {
				return err
			}
			if err := overridePath(cmd, "output", &cfg.Paths.OutputDir, output); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "clean")

			paths, err := fileutil.ListSubtitleFiles(cfg.Paths.InputDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no .srt files found in %s", cfg.Paths.InputDir)
			}
			sources, err := fileutil.ReadSources(paths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := 0
			for _, src := range sources {
				file, err := srt.Parse(src.Content, srt.ParseOptions{Lenient: !cfg.Translation.StrictParsing})
				if err != nil {
					failed++
					logging.WarnWithContext(logger, "subtitle parse failed", "clean_parse_failed",
						logging.String(logging.FieldFile, src.Name), logging.Error(err))
					fmt.Fprintln(out, renderStatusLine(src.Name, statusError, err.Error(), colorize))
					continue
				}
				cleaned, stats := srt.StripAnnotations(file, srt.CleanOptions{RemoveAds: removeAds})
				target := filepath.Join(cfg.Paths.OutputDir, fileutil.OutputName(src.Name, suffix))
				if err := fileutil.WriteFileAtomic(target, []byte(srt.Format(cleaned)), 0o644); err != nil {
					failed++
					fmt.Fprintln(out, renderStatusLine(src.Name, statusError, err.Error(), colorize))
					continue
				}
				logger.Info("subtitle cleaned",
					logging.String(logging.FieldEventType, "clean_complete"),
					logging.String(logging.FieldFile, src.Name),
					logging.Int("stripped_cues", stats.StrippedCues),
					logging.Int("removed_cues", stats.RemovedCues),
					logging.Int("removed_ads", stats.RemovedAds),
				)
				detail := fmt.Sprintf("%d cues stripped, %d removed", stats.StrippedCues, stats.RemovedCues+stats.RemovedAds)
				fmt.Fprintln(out, renderStatusLine(src.Name, statusOK, detail, colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be cleaned", failed, len(sources))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Directory containing .srt files (default paths.input_dir)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory for cleaned files (default paths.output_dir)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Suffix appended to output file stems")
	cmd.Flags().BoolVar(&removeAds, "remove-ads", false, "Also drop cues that look like release-group advertisements")
	return cmd
}
