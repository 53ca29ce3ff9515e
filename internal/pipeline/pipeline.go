package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subtrans/internal/chunker"
	"subtrans/internal/fileutil"
	"subtrans/internal/logging"
	"subtrans/internal/reassemble"
	"subtrans/internal/services"
	"subtrans/internal/srt"
	"subtrans/internal/translate"
)

// Translator is the translation boundary used for each chunk.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (translate.Response, error)
}

// Options are the run parameters.
type Options struct {
	SourceLanguage   string
	TargetLanguage   string
	Model            string
	Limits           chunker.Limits
	FileConcurrency  int
	ChunkConcurrency int
	// Strict fails a file when any chunk falls back to its original text.
	Strict bool
	// LenientParsing skips malformed blocks instead of failing the file.
	LenientParsing bool
	DropEmptyCues  bool
	OutputSuffix   string
}

// Orchestrator runs files through the translation pipeline.
type Orchestrator struct {
	translator Translator
	writer     Writer
	opts       Options
	logger     *slog.Logger
	observer   func(Event)
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver registers a callback for every state transition. The callback
// is invoked from worker goroutines and must be safe for concurrent use.
func WithObserver(observer func(Event)) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New constructs an orchestrator.
func New(translator Translator, writer Writer, opts Options, options ...Option) *Orchestrator {
	if opts.FileConcurrency <= 0 {
		opts.FileConcurrency = 1
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = 1
	}
	o := &Orchestrator{translator: translator, writer: writer, opts: opts}
	for _, option := range options {
		option(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "pipeline")
	return o
}

// Run processes sources and returns one outcome per source, in input order.
// The returned error is non-nil only when a fatal error aborted the run; the
// report is complete in either case.
func (o *Orchestrator) Run(ctx context.Context, sources []fileutil.Source) (Report, error) {
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	report := Report{RunID: runID, Started: time.Now(), Outcomes: make([]Outcome, len(sources))}
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("translation run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("files", len(sources)),
		logging.String("source_language", o.opts.SourceLanguage),
		logging.String("target_language", o.opts.TargetLanguage),
		logging.String("model", o.opts.Model),
	)

	for i, src := range sources {
		report.Outcomes[i] = Outcome{Name: src.Name, Path: src.Path, Status: StatusFailed}
		o.emit(Event{File: src.Name, State: StatePending})
	}

	finished := make([]bool, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.opts.FileConcurrency)
	for i, src := range sources {
		group.Go(func() error {
			outcome, err := o.processFile(groupCtx, src)
			report.Outcomes[i] = outcome
			finished[i] = true
			return err
		})
	}
	runErr := group.Wait()

	for i := range report.Outcomes {
		if !finished[i] {
			report.Outcomes[i] = o.canceled(report.Outcomes[i], runErr)
		}
	}

	report.Finished = time.Now()
	if runErr != nil {
		report.Aborted = true
		report.Err = runErr
	}
	written, withFallbacks, failed := report.Counts()
	attrs := []logging.Attr{
		logging.Int("written", written),
		logging.Int("written_with_fallbacks", withFallbacks),
		logging.Int("failed", failed),
		logging.Duration("duration", report.Finished.Sub(report.Started)),
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "translation run aborted", "run_aborted",
			append(attrs, logging.Error(runErr), logging.String(logging.FieldErrorHint, "check credentials and service configuration"))...)
		return report, runErr
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "run_complete"))
	logger.Info("translation run complete", logging.Args(attrs...)...)
	return report, nil
}

func (o *Orchestrator) processFile(ctx context.Context, src fileutil.Source) (Outcome, error) {
	start := time.Now()
	ctx = services.WithFile(ctx, src.Name)
	logger := logging.WithContext(ctx, o.logger)
	outcome := Outcome{Name: src.Name, Path: src.Path, Status: StatusFailed}
	finish := func(outcome Outcome) Outcome {
		outcome.Duration = time.Since(start)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return finish(o.canceled(outcome, err)), nil
	}

	o.emit(Event{File: src.Name, State: StateParsing})
	file, err := srt.Parse(src.Content, srt.ParseOptions{Lenient: o.opts.LenientParsing, DropEmpty: o.opts.DropEmptyCues})
	if err != nil {
		return finish(o.fail(logger, outcome, err, "fix the malformed block or enable lenient parsing")), nil
	}
	outcome.Warnings = append(outcome.Warnings, file.Warnings...)
	for _, warning := range file.Warnings {
		logging.WarnWithContext(logger, "subtitle block skipped", "parse_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldImpact, "cue omitted from output"),
			logging.String(logging.FieldErrorHint, "inspect the source file"),
		)
	}
	if len(file.Entries) == 0 {
		err := services.Wrap(services.ErrParse, "srt", "parse", "no subtitle entries", nil)
		return finish(o.fail(logger, outcome, err, "check that the input is an SRT file")), nil
	}
	outcome.Entries = len(file.Entries)

	o.emit(Event{File: src.Name, State: StateChunking})
	chunks := chunker.Split(file.Entries, o.opts.Limits)
	outcome.Chunks = len(chunks)
	logger.Debug("file chunked",
		logging.Int("entries", len(file.Entries)),
		logging.Int("chunks", len(chunks)),
	)

	results, attempts, err := o.translateChunks(ctx, src.Name, chunks)
	outcome.Attempts = attempts
	if err != nil {
		if services.Classify(err) == services.KindCanceled {
			return finish(o.canceled(outcome, err)), nil
		}
		failed := o.fail(logger, outcome, err, "check credentials and service configuration")
		return finish(failed), err
	}

	o.emit(Event{File: src.Name, State: StateReassembling})
	merged, err := reassemble.Merge(file, chunks, results)
	if err != nil {
		return finish(o.fail(logger, outcome, err, "report this as a bug")), nil
	}
	outcome.Fallbacks = merged.Fallbacks
	outcome.Failures = merged.Failures
	if o.opts.Strict && merged.Fallbacks > 0 {
		err := services.Wrap(services.ErrValidation, "pipeline", "strict",
			fmt.Sprintf("%d of %d chunks fell back to original text", merged.Fallbacks, len(chunks)), firstFailure(merged.Failures))
		return finish(o.fail(logger, outcome, err, "retry later or disable strict mode")), nil
	}

	if err := ctx.Err(); err != nil {
		return finish(o.canceled(outcome, err)), nil
	}
	data := []byte(srt.Format(merged.File))
	path, err := o.writer.Write(ctx, fileutil.OutputName(src.Name, o.opts.OutputSuffix), data)
	if err != nil {
		if services.Classify(err) == services.KindCanceled {
			return finish(o.canceled(outcome, err)), nil
		}
		if !errors.Is(err, services.ErrIO) {
			err = services.Wrap(services.ErrIO, "pipeline", "write", src.Name, err)
		}
		return finish(o.fail(logger, outcome, err, "check output directory permissions and free space")), nil
	}

	outcome.OutputPath = path
	outcome.Status = StatusWritten
	if merged.Fallbacks > 0 {
		outcome.Status = StatusWrittenWithFallbacks
	}
	outcome = finish(outcome)
	o.emit(Event{File: src.Name, State: StateWritten, Detail: outcome.Label()})
	attrs := []logging.Attr{
		logging.String("output", path),
		logging.Int("entries", outcome.Entries),
		logging.Int("chunks", outcome.Chunks),
		logging.Int("fallbacks", outcome.Fallbacks),
		logging.Int("attempts", outcome.Attempts),
		logging.Duration("duration", outcome.Duration),
	}
	if outcome.Fallbacks > 0 {
		logging.WarnWithContext(logger, "file written with untranslated chunks", "file_written_with_fallbacks",
			append(attrs,
				logging.String(logging.FieldImpact, "some cues remain in the source language"),
				logging.String(logging.FieldErrorHint, "rerun the file or enable strict mode"),
			)...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "file_written"))
		logger.Info("file written", logging.Args(attrs...)...)
	}
	return outcome, nil
}

// translateChunks dispatches chunks concurrently and returns outcomes indexed
// by chunk. Only fatal and cancellation errors are returned; everything else
// becomes a fallback outcome.
func (o *Orchestrator) translateChunks(ctx context.Context, name string, chunks []chunker.Chunk) ([]reassemble.Outcome, int, error) {
	results := make([]reassemble.Outcome, len(chunks))
	var attempts atomic.Int64
	var done atomic.Int32
	var emitMu sync.Mutex
	total := len(chunks)
	o.emit(Event{File: name, State: StateTranslating, Done: 0, Total: total})

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.opts.ChunkConcurrency)
	for i, chunk := range chunks {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			chunkCtx := services.WithChunk(groupCtx, chunk.Index+1)
			resp, err := o.translator.Translate(chunkCtx, translate.Request{
				Texts:  reassemble.Texts(chunk),
				Source: o.opts.SourceLanguage,
				Target: o.opts.TargetLanguage,
				Model:  o.opts.Model,
			})
			attempts.Add(int64(resp.Attempts))
			if err == nil && len(resp.Texts) != chunk.Len() {
				err = &translate.ProtocolError{Reason: "translator returned misaligned texts", Expected: chunk.Len(), Got: len(resp.Texts)}
			}
			if err != nil {
				switch services.Classify(err) {
				case services.KindFatal, services.KindCanceled:
					return err
				}
				results[i] = reassemble.Outcome{Err: err}
				logging.WarnWithContext(logging.WithContext(chunkCtx, o.logger), "chunk fell back to original text", "chunk_fallback",
					logging.Int("first_entry", chunk.Entries[0].Index),
					logging.Int("entries", chunk.Len()),
					logging.String("error_kind", services.Classify(err).String()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "chunk left untranslated"),
					logging.String(logging.FieldErrorHint, "rerun later or lower chunk size"),
				)
			} else {
				results[i] = reassemble.Outcome{Texts: resp.Texts}
			}
			emitMu.Lock()
			o.emit(Event{File: name, State: StateTranslating, Done: int(done.Add(1)), Total: total})
			emitMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, int(attempts.Load()), err
	}
	return results, int(attempts.Load()), nil
}

func (o *Orchestrator) fail(logger *slog.Logger, outcome Outcome, err error, hint string) Outcome {
	outcome.Status = StatusFailed
	outcome.Err = err
	outcome.Kind = services.Classify(err)
	outcome.Reason = err.Error()
	o.emit(Event{File: outcome.Name, State: StateFailed, Detail: outcome.Reason})
	logging.ErrorWithContext(logger, "file failed", "file_failed",
		logging.String("error_kind", outcome.Kind.String()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
	)
	return outcome
}

func (o *Orchestrator) emit(evt Event) {
	if o.observer != nil {
		o.observer(evt)
	}
}

func (o *Orchestrator) canceled(outcome Outcome, cause error) Outcome {
	outcome.Status = StatusFailed
	outcome.Kind = services.KindCanceled
	outcome.Reason = "canceled"
	if cause != nil {
		outcome.Reason = "canceled: " + cause.Error()
		outcome.Err = cause
	}
	o.emit(Event{File: outcome.Name, State: StateFailed, Detail: outcome.Reason})
	return outcome
}

func firstFailure(failures []reassemble.ChunkFailure) error {
	for _, failure := range failures {
		if failure.Err != nil {
			return failure.Err
		}
	}
	return nil
}
