package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subtrans/internal/chunker"
	"subtrans/internal/config"
	"subtrans/internal/fileutil"
	"subtrans/internal/history"
	"subtrans/internal/language"
	"subtrans/internal/logging"
	"subtrans/internal/objectstore"
	"subtrans/internal/pipeline"
	"subtrans/internal/preflight"
	"subtrans/internal/runlock"
	"subtrans/internal/services"
	"subtrans/internal/services/llm"
	"subtrans/internal/translate"
)

type translateFlags struct {
	input     string
	output    string
	source    string
	target    string
	model     string
	suffix    string
	chunkSize int
	maxChars  int
	files     int
	chunks    int
	inFlight  int
	retries   int
	strict    bool
	lenient   bool
	noHistory bool
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var flags translateFlags

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate every .srt file in a directory",
		Long: "Translate every .srt file in the input directory and write one output per file.\n" +
			"Chunks that cannot be translated keep their original text unless --strict is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if err := applyTranslateFlags(cmd, &cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), &cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "Directory containing .srt files (default paths.input_dir)")
	f.StringVarP(&flags.output, "output", "o", "", "Directory for translated files (default paths.output_dir)")
	f.StringVarP(&flags.source, "source", "s", "", "Source language")
	f.StringVarP(&flags.target, "target", "t", "", "Target language")
	f.StringVarP(&flags.model, "model", "m", "", "Model name")
	f.StringVar(&flags.suffix, "suffix", "", "Suffix appended to output file stems")
	f.IntVar(&flags.chunkSize, "chunk-size", 0, "Maximum entries per request")
	f.IntVar(&flags.maxChars, "max-chars", 0, "Maximum characters per request (0 disables)")
	f.IntVar(&flags.files, "files", 0, "Files translated concurrently")
	f.IntVar(&flags.chunks, "chunks", 0, "Chunks per file translated concurrently")
	f.IntVar(&flags.inFlight, "in-flight", 0, "Maximum concurrent requests across all files")
	f.IntVar(&flags.retries, "retries", 0, "Attempts per chunk")
	f.BoolVar(&flags.strict, "strict", false, "Fail a file when any chunk falls back to its original text")
	f.BoolVar(&flags.lenient, "lenient", false, "Skip malformed subtitle blocks instead of failing the file")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history journal")
	return cmd
}

func applyTranslateFlags(cmd *cobra.Command, cfg *config.Config, flags translateFlags) error {
	if err := overridePath(cmd, "input", &cfg.Paths.InputDir, flags.input); err != nil {
		return err
	}
	if err := overridePath(cmd, "output", &cfg.Paths.OutputDir, flags.output); err != nil {
		return err
	}
	t := &cfg.Translation
	overrideString(cmd, "source", &t.SourceLanguage, flags.source)
	overrideString(cmd, "target", &t.TargetLanguage, flags.target)
	overrideString(cmd, "model", &t.Model, flags.model)
	overrideString(cmd, "suffix", &t.OutputSuffix, flags.suffix)
	overrideInt(cmd, "chunk-size", &t.MaxChunkEntries, flags.chunkSize)
	overrideInt(cmd, "max-chars", &t.MaxChunkChars, flags.maxChars)
	overrideInt(cmd, "files", &t.FileConcurrency, flags.files)
	overrideInt(cmd, "chunks", &t.ChunkConcurrency, flags.chunks)
	overrideInt(cmd, "in-flight", &t.MaxInFlight, flags.inFlight)
	overrideInt(cmd, "retries", &t.RetryAttempts, flags.retries)
	if cmd.Flags().Changed("strict") {
		t.Strict = flags.strict
	}
	if cmd.Flags().Changed("lenient") {
		t.StrictParsing = !flags.lenient
	}
	if flags.noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "translate", "invalid options", err)
	}
	return nil
}

func runTranslate(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "translate", "missing credential", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrIO, "cli", "translate", "prepare directories", err)
	}
	paths, err := fileutil.ListSubtitleFiles(cfg.Paths.InputDir)
	if err != nil {
		return services.Wrap(services.ErrIO, "cli", "translate", "scan input", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .srt files found in %s", cfg.Paths.InputDir)
	}

	lock, err := runlock.Acquire(cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logger, "failed to release output lock", "runlock_release_failed", logging.Error(err))
		}
	}()
	if check := preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir); !check.Passed {
		return fmt.Errorf("output directory unusable: %s", check.Detail)
	}

	sources, err := fileutil.ReadSources(paths)
	if err != nil {
		return services.Wrap(services.ErrIO, "cli", "translate", "read input", err)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	writer, err := outputWriter(ctx, cfg)
	if err != nil {
		return err
	}
	outputDir := cfg.Paths.OutputDir
	if cfg.Storage.Enabled() {
		outputDir = "s3://" + path.Join(cfg.Storage.Bucket, cfg.Storage.Prefix)
	}

	journal := openJournal(cfg, logger)
	defer journal.Close()
	journal.begin(ctx, history.Run{
		ID:             runID,
		SourceLanguage: cfg.Translation.SourceLanguage,
		TargetLanguage: cfg.Translation.TargetLanguage,
		Model:          cfg.Translation.Model,
		InputDir:       cfg.Paths.InputDir,
		OutputDir:      outputDir,
	})

	orchestrator := buildOrchestrator(cfg, logger, writer, newProgressPrinter(out))
	report, runErr := orchestrator.Run(ctx, sources)

	// The journal write must survive a canceled run context.
	journal.record(context.WithoutCancel(ctx), report)

	fmt.Fprintln(out, renderOutcomeTable(report))
	fmt.Fprintln(out, summaryLine(report))

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if _, _, failed := report.Counts(); failed > 0 {
		return errReported
	}
	return nil
}

// outputWriter selects the bucket when storage is configured, else the output directory.
func outputWriter(ctx context.Context, cfg *config.Config) (pipeline.Writer, error) {
	if !cfg.Storage.Enabled() {
		return pipeline.DirWriter{Dir: cfg.Paths.OutputDir}, nil
	}
	store, err := objectstore.Open(ctx, objectstore.FromStorage(cfg.Storage))
	if err != nil {
		return nil, err
	}
	return store, nil
}

func buildOrchestrator(cfg *config.Config, logger *slog.Logger, writer pipeline.Writer, progress *progressPrinter) *pipeline.Orchestrator {
	t := cfg.Translation
	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          t.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    t.Temperature,
	})
	client := translate.NewClient(completer,
		translate.WithAttempts(t.RetryAttempts),
		translate.WithBackoff(translate.NewBackoff(cfg.RetryBaseDelay(), cfg.RetryMaxDelay())),
		translate.WithLimiter(translate.NewLimiter(t.MaxInFlight)),
		translate.WithLogger(logger),
	)
	opts := pipeline.Options{
		SourceLanguage:   language.PromptLabel(t.SourceLanguage),
		TargetLanguage:   language.PromptLabel(t.TargetLanguage),
		Model:            t.Model,
		Limits:           chunker.Limits{MaxEntries: t.MaxChunkEntries, MaxChars: t.MaxChunkChars},
		FileConcurrency:  t.FileConcurrency,
		ChunkConcurrency: t.ChunkConcurrency,
		Strict:           t.Strict,
		LenientParsing:   !t.StrictParsing,
		DropEmptyCues:    t.DropEmptyCues,
		OutputSuffix:     t.OutputSuffix,
	}
	return pipeline.New(client, writer, opts,
		pipeline.WithLogger(logger),
		pipeline.WithObserver(progress.observe),
	)
}

// progressPrinter prints one status line per file as it reaches a terminal state.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *progressPrinter) observe(evt pipeline.Event) {
	var kind statusKind
	switch evt.State {
	case pipeline.StateWritten:
		kind = statusOK
		if strings.HasPrefix(evt.Detail, "WrittenWithFallbacks") {
			kind = statusWarn
		}
	case pipeline.StateFailed:
		kind = statusError
	default:
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, renderStatusLine(evt.File, kind, evt.Detail, p.colorize))
}

// journal wraps the optional history store. Failures are logged and never
// fail the run.
type journal struct {
	store  *history.Store
	runID  string
	logger *slog.Logger
}

func openJournal(cfg *config.Config, logger *slog.Logger) *journal {
	j := &journal{logger: logger}
	if !cfg.History.Enabled {
		return j
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history journal unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in 'subtrans history'"),
		)
		return j
	}
	j.store = store
	return j
}

func (j *journal) begin(ctx context.Context, run history.Run) {
	if j.store == nil {
		return
	}
	id, err := j.store.BeginRun(ctx, run)
	if err != nil {
		logging.WarnWithContext(j.logger, "failed to record run start", "history_write_failed", logging.Error(err))
		return
	}
	j.runID = id
}

func (j *journal) record(ctx context.Context, report pipeline.Report) {
	if j.store == nil || j.runID == "" {
		return
	}
	for _, outcome := range report.Outcomes {
		rec := history.FileRecord{
			Name:       outcome.Name,
			OutputPath: outcome.OutputPath,
			Status:     outcome.Status.String(),
			Reason:     outcome.Reason,
			Entries:    outcome.Entries,
			Chunks:     outcome.Chunks,
			Fallbacks:  outcome.Fallbacks,
			Attempts:   outcome.Attempts,
			Warnings:   len(outcome.Warnings),
			Duration:   outcome.Duration,
		}
		if !outcome.Succeeded() {
			rec.Kind = outcome.Kind.String()
		}
		if err := j.store.RecordFile(ctx, j.runID, rec); err != nil {
			logging.WarnWithContext(j.logger, "failed to record file outcome", "history_write_failed",
				logging.String(logging.FieldFile, outcome.Name), logging.Error(err))
		}
	}
	status, msg := runStatus(report)
	if err := j.store.FinishRun(ctx, j.runID, status, msg); err != nil {
		logging.WarnWithContext(j.logger, "failed to record run finish", "history_write_failed", logging.Error(err))
	}
}

func (j *journal) Close() {
	if err := j.store.Close(); err != nil {
		logging.WarnWithContext(j.logger, "failed to close history journal", "history_close_failed", logging.Error(err))
	}
}

func runStatus(report pipeline.Report) (history.RunStatus, string) {
	if report.Aborted {
		msg := ""
		if report.Err != nil {
			msg = report.Err.Error()
		}
		return history.RunAborted, msg
	}
	for _, outcome := range report.Outcomes {
		if outcome.Kind == services.KindCanceled {
			return history.RunAborted, "canceled"
		}
	}
	if _, withFallbacks, failed := report.Counts(); failed > 0 || withFallbacks > 0 {
		return history.RunPartial, ""
	}
	return history.RunCompleted, ""
}
