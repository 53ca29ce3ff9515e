package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"subtrans/internal/logging"
	"subtrans/internal/muxer"
)

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var input, subtitles, output, lang, charset, suffix string

	cmd := &cobra.Command{
		Use:   "mux",
		Short: "Merge same-name .srt files into .mp4/.mkv videos with mkvmerge",
		Args:  cobra.NoArgs,
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
			subtitleDir := cfg.Paths.InputDir
			if err := overridePath(cmd, "subtitles", &subtitleDir, subtitles); err != nil {
				return err
			}
			overrideString(cmd, "language", &cfg.Mux.Language, lang)
			overrideString(cmd, "charset", &cfg.Mux.Charset, charset)
			overrideString(cmd, "suffix", &cfg.Mux.OutputSuffix, suffix)

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			pairs, missing, err := muxer.FindPairs(cfg.Paths.InputDir, subtitleDir, cfg.Paths.OutputDir, cfg.Mux.OutputSuffix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, video := range missing {
				logging.WarnWithContext(logger, "no matching subtitle for video", "mux_subtitle_missing",
					logging.String("video", filepath.Base(video)),
					logging.String(logging.FieldImpact, "video skipped"),
				)
				fmt.Fprintln(out, renderStatusLine(filepath.Base(video), statusWarn, "no matching .srt, skipped", colorize))
			}
			if len(pairs) == 0 {
				return fmt.Errorf("no video/subtitle pairs found in %s", cfg.Paths.InputDir)
			}

			m := muxer.New(logger)
			results := m.MuxAll(cmd.Context(), pairs, cfg.Mux.Language, cfg.Mux.Charset)
			failed := 0
			for _, res := range results {
				name := filepath.Base(res.Pair.Video)
				if res.Err != nil {
					failed++
					fmt.Fprintln(out, renderStatusLine(name, statusError, res.Err.Error(), colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(name, statusOK, "→ "+filepath.Base(res.Result.OutputPath), colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d merges failed", failed, len(results))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "Directory containing videos (default paths.input_dir)")
	f.StringVar(&subtitles, "subtitles", "", "Directory containing subtitles (default: the video directory)")
	f.StringVarP(&output, "output", "o", "", "Directory for merged videos (default paths.output_dir)")
	f.StringVarP(&lang, "language", "l", "", "Subtitle track language (default mux.language)")
	f.StringVar(&charset, "charset", "", "Subtitle character set (default mux.charset)")
	f.StringVar(&suffix, "suffix", "", "Suffix appended to merged file stems (default mux.output_suffix)")
	return cmd
}
