package muxer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subtrans/internal/language"
	"subtrans/internal/logging"
	"subtrans/internal/services"
)

// mkvmerge command and binary name.
const mkvmergeCommand = "mkvmerge"

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Request describes one mkvmerge invocation.
type Request struct {
	VideoPath    string
	SubtitlePath string
	OutputPath   string
	Language     string // any code or name language.ToISO3 understands
	Charset      string
}

// Result reports a finished merge.
type Result struct {
	OutputPath string
	Language   string
	TrackName  string
}

// PairResult is the outcome of one pair in MuxAll.
type PairResult struct {
	Pair   Pair
	Result Result
	Err    error
}

// Muxer embeds SRT subtitles into MKV containers using mkvmerge.
type Muxer struct {
	logger *slog.Logger
	run    CommandRunner
}

// Option configures a Muxer.
type Option func(*Muxer)

// WithCommandRunner replaces the exec-based runner, for tests.
func WithCommandRunner(r CommandRunner) Option {
	return func(m *Muxer) {
		if r != nil {
			m.run = r
		}
	}
}

// New constructs a subtitle muxer.
func New(logger *slog.Logger, opts ...Option) *Muxer {
	m := &Muxer{
		logger: logging.NewComponentLogger(logger, "muxer"),
		run:    defaultCommandRunner,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mux merges one subtitle into a copy of the video.
// The operation is atomic: a temporary file is created and renamed on success.
func (m *Muxer) Mux(ctx context.Context, req Request) (Result, error) {
	if m == nil {
		return Result{}, errors.New("muxer not initialized")
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "muxer", "mux", "video path is required", nil)
	}
	if strings.TrimSpace(req.SubtitlePath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "muxer", "mux", "subtitle path is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "muxer", "mux", "output path is required", nil)
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return Result{}, services.Wrap(services.ErrIO, "muxer", "stat video", req.VideoPath, err)
	}
	if _, err := os.Stat(req.SubtitlePath); err != nil {
		return Result{}, services.Wrap(services.ErrIO, "muxer", "stat subtitle", req.SubtitlePath, err)
	}

	dir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrIO, "muxer", "mkdir", dir, err)
	}
	tmpPath := filepath.Join(dir, ".mux-"+filepath.Base(req.OutputPath))

	args, result := buildMkvmergeArgs(req, tmpPath)

	m.logger.Debug("executing mkvmerge",
		logging.String("video_path", req.VideoPath),
		logging.String("subtitle_path", req.SubtitlePath),
		logging.String("language", result.Language),
		logging.String("args", strings.Join(args, " ")),
	)

	if err := m.run(ctx, mkvmergeCommand, args...); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("mkvmerge failed: %w", err)
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return Result{}, fmt.Errorf("mkvmerge did not produce output file: %w", err)
	}

	if err := os.Rename(tmpPath, req.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, services.Wrap(services.ErrIO, "muxer", "rename", req.OutputPath, err)
	}
	result.OutputPath = req.OutputPath

	m.logger.Info("subtitle merged",
		logging.String(logging.FieldEventType, "subtitle_mux_complete"),
		logging.String("video", filepath.Base(req.VideoPath)),
		logging.String("subtitle", filepath.Base(req.SubtitlePath)),
		logging.String("output", filepath.Base(req.OutputPath)),
	)
	return result, nil
}

// MuxAll merges every pair in order. A failed pair is logged and recorded;
// processing continues with the next one. Cancellation stops the loop.
func (m *Muxer) MuxAll(ctx context.Context, pairs []Pair, lang, charset string) []PairResult {
	results := make([]PairResult, 0, len(pairs))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			results = append(results, PairResult{Pair: pair, Err: err})
			continue
		}
		res, err := m.Mux(ctx, Request{
			VideoPath:    pair.Video,
			SubtitlePath: pair.Subtitle,
			OutputPath:   pair.Output,
			Language:     lang,
			Charset:      charset,
		})
		if err != nil {
			logging.ErrorWithContext(m.logger, "subtitle merge failed", "subtitle_mux_failed",
				logging.String("video", filepath.Base(pair.Video)),
				logging.String(logging.FieldErrorHint, "check that mkvmerge can read the video and subtitle"),
				logging.Error(err),
			)
		}
		results = append(results, PairResult{Pair: pair, Result: res, Err: err})
	}
	return results
}

// buildMkvmergeArgs constructs the mkvmerge command arguments. Track options
// precede the subtitle file they apply to.
func buildMkvmergeArgs(req Request, outputPath string) ([]string, Result) {
	lang3 := language.ToISO3(req.Language)
	trackName := buildTrackName(req.Language)
	charset := strings.TrimSpace(req.Charset)
	if charset == "" {
		charset = "UTF-8"
	}

	args := []string{
		"-o", outputPath,
		req.VideoPath,
		"--language", "0:" + lang3,
		"--track-name", "0:" + trackName,
		"--sub-charset", "0:" + charset,
		"--default-track", "0:yes",
		req.SubtitlePath,
	}
	return args, Result{Language: lang3, TrackName: trackName}
}

// buildTrackName creates a human-readable track name.
func buildTrackName(lang string) string {
	return language.DisplayName(lang)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// mkvmerge exit status 1 means warnings; output was still written.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
