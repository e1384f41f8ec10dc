package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"litindex/internal/config"
	"litindex/internal/corpus"
	"litindex/internal/logging"
)

// ErrPartitionBusy is reported when another worker already holds the
// partition key.
var ErrPartitionBusy = errors.New("partition is being processed")

type DocumentSource interface {
	ListPartitions(ctx context.Context, filter corpus.Filter) ([]corpus.Partition, error)
	FetchDocuments(ctx context.Context, key corpus.PartitionKey) ([]corpus.Document, error)
}

type DuplicateSink interface {
	AppendDuplicates(ctx context.Context, records []corpus.DuplicateRecord) error
}

// ProcessedChecker is implemented by sinks that can tell whether a partition
// already has stored results. It backs run.skip_processed.
type ProcessedChecker interface {
	HasDuplicates(ctx context.Context, key corpus.PartitionKey) (bool, error)
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

type PartitionResult struct {
	Key        corpus.PartitionKey `json:"key"`
	Status     Status              `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	Documents  int                 `json:"documents"`
	Candidates int                 `json:"candidates"`
	Records    int                 `json:"records"`
	Attempts   int                 `json:"write_attempts,omitempty"`
	DurationMs int64               `json:"duration_ms"`
	Stats      PartitionStats      `json:"stats"`
	Traces     []SpanTrace         `json:"traces,omitempty"`
}

type RunSummary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Config     string            `json:"config"`
	Partitions []PartitionResult `json:"partitions"`
	Succeeded  int               `json:"succeeded"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Candidates int               `json:"candidates"`
	Records    int               `json:"records"`
}

type Runner struct {
	cfg      config.Config
	source   DocumentSource
	sink     DuplicateSink
	engine   *Engine
	logger   Logger
	observer Observer
	limiter  *rate.Limiter
	locks    *keyedMutex
}

type RunnerOption func(*Runner)

func WithLogger(l Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// NewRunner validates cfg before touching source or sink. An invalid
// configuration returns an error wrapping config.ErrInvalidConfig.
func NewRunner(cfg config.Config, source DocumentSource, sink DuplicateSink, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || sink == nil {
		return nil, errors.New("runner needs a document source and a duplicate sink")
	}
	r := &Runner{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		logger:   logging.Noop(),
		observer: NoopObserver{},
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	limit := rate.Inf
	if cfg.Sink.WritesPerSecond > 0 {
		limit = rate.Limit(cfg.Sink.WritesPerSecond)
	}
	r.limiter = rate.NewLimiter(limit, 1)

	engine, err := NewEngine(cfg, r.logger, r.observer)
	if err != nil {
		return nil, err
	}
	r.engine = engine
	return r, nil
}

// Run enumerates partitions and processes them on cfg.Run.Workers workers.
// Partition failures are recorded in the summary and never abort the run;
// only an enumeration failure or a cancelled ctx returns an error.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config:    r.cfg.String(),
	}
	log := withRun(r.logger, summary.RunID)
	logTo(log, "INFO", "run", "run started", fmt.Sprintf("run_id=%s %s", summary.RunID, summary.Config))

	partitions, err := r.source.ListPartitions(ctx, r.cfg.CorpusFilter())
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		return summary, fmt.Errorf("list partitions: %w", err)
	}
	logTo(log, "INFO", "run", "partitions enumerated", fmt.Sprintf("run_id=%s partitions=%d", summary.RunID, len(partitions)))

	results := make([]PartitionResult, len(partitions))
	Each(partitions, r.cfg.Run.Workers, func(i int, p corpus.Partition) error {
		results[i] = r.processPartition(ctx, p.Key, log)
		return nil
	})

	summary.Partitions = results
	for _, res := range results {
		switch res.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		summary.Candidates += res.Candidates
		summary.Records += res.Records
	}
	summary.FinishedAt = time.Now().UTC()
	logTo(log, "INFO", "run", "run completed", fmt.Sprintf(
		"run_id=%s succeeded=%d skipped=%d failed=%d candidates=%d records=%d duration_ms=%d",
		summary.RunID, summary.Succeeded, summary.Skipped, summary.Failed,
		summary.Candidates, summary.Records, summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	))
	return summary, ctx.Err()
}

// ProcessPartition fetches, scores and writes one partition. A read failure
// skips the partition; a write failure after retries, a timeout or a
// cancellation fails it. In every case nothing from the partition is written.
func (r *Runner) ProcessPartition(ctx context.Context, key corpus.PartitionKey) PartitionResult {
	return r.processPartition(ctx, key, r.logger)
}

func (r *Runner) processPartition(ctx context.Context, key corpus.PartitionKey, log Logger) (res PartitionResult) {
	log = withPartition(log, key)
	start := time.Now()
	res = PartitionResult{Key: key}
	defer func() {
		d := time.Since(start)
		res.DurationMs = d.Milliseconds()
		r.observer.ObservePartition(key, res.Status, d)
		level := "INFO"
		if res.Status != StatusSucceeded {
			level = "WARN"
		}
		logTo(log, level, "partition", "partition "+string(res.Status), fmt.Sprintf(
			"partition=%s documents=%d candidates=%d records=%d duration_ms=%d reason=%q",
			key, res.Documents, res.Candidates, res.Records, res.DurationMs, res.Reason,
		))
	}()

	unlock, ok := r.locks.tryLock(key)
	if !ok {
		res.Status = StatusSkipped
		res.Reason = ErrPartitionBusy.Error()
		return res
	}
	defer unlock()

	if r.cfg.Run.PartitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Run.PartitionTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	if r.cfg.Run.SkipProcessed {
		if checker, ok := r.sink.(ProcessedChecker); ok {
			done, err := checker.HasDuplicates(ctx, key)
			if err != nil {
				res.Status = readFailure(ctx)
				res.Reason = fmt.Sprintf("read: %v", err)
				return res
			}
			if done {
				res.Status = StatusSkipped
				res.Reason = "already processed"
				return res
			}
		}
	}

	var docs []corpus.Document
	var traces []SpanTrace
	err := withSpan(&traces, r.observer, StageFetch, func() error {
		var err error
		docs, err = r.source.FetchDocuments(ctx, key)
		return err
	})
	res.Traces = traces
	if err != nil {
		res.Status = readFailure(ctx)
		res.Reason = fmt.Sprintf("read: %v", err)
		return res
	}
	res.Documents = len(docs)

	out, err := r.engine.ProcessPartition(ctx, key, docs)
	res.Traces = append(res.Traces, out.Traces...)
	res.Stats = out.Stats
	res.Candidates = out.Stats.Candidates
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	if len(out.Records) > 0 {
		err = withSpan(&res.Traces, r.observer, StageWrite, func() error {
			var err error
			res.Attempts, err = r.writeWithRetry(ctx, key, out.Records, log)
			return err
		})
		if err != nil {
			res.Status = StatusFailed
			res.Reason = fmt.Sprintf("write: %v", err)
			return res
		}
	}
	res.Records = len(out.Records)
	r.observer.ObserveRecords(res.Records)
	res.Status = StatusSucceeded
	return res
}

// writeWithRetry appends records, retrying with exponential backoff up to
// cfg.Sink.Retries times. It returns the number of attempts made.
func (r *Runner) writeWithRetry(ctx context.Context, key corpus.PartitionKey, records []corpus.DuplicateRecord, log Logger) (int, error) {
	backoff := r.cfg.Sink.RetryBackoff
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= r.cfg.Sink.Retries; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return attempts, err
		}
		attempts++
		err := r.sink.AppendDuplicates(ctx, records)
		if err == nil {
			if attempt > 0 {
				logTo(log, "INFO", StageWrite, "write succeeded after retries", fmt.Sprintf("partition=%s retries=%d", key, attempt))
			}
			return attempts, nil
		}
		lastErr = err
		if attempt == r.cfg.Sink.Retries {
			break
		}
		if ctx.Err() != nil {
			return attempts, fmt.Errorf("write canceled: %w", ctx.Err())
		}
		r.observer.ObserveWriteRetry()
		logTo(log, "WARN", StageWrite, "write failed, retrying", fmt.Sprintf(
			"partition=%s attempt=%d/%d backoff=%v err=%v", key, attempt+1, r.cfg.Sink.Retries+1, backoff, err))

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
			backoff = nextBackoff(backoff, r.cfg.Sink.RetryMaxBackoff)
		case <-ctx.Done():
			timer.Stop()
			return attempts, fmt.Errorf("write canceled: %w", ctx.Err())
		}
	}
	return attempts, fmt.Errorf("append duplicates %s failed after %d attempts: %w", key, attempts, lastErr)
}

// nextBackoff doubles d, capped at limit when limit is positive.
func nextBackoff(d, limit time.Duration) time.Duration {
	d *= 2
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// readFailure maps a failed store read to a status. Reads that failed because
// the partition timed out or the run was cancelled fail the partition.
func readFailure(ctx context.Context) Status {
	if ctx.Err() != nil {
		return StatusFailed
	}
	return StatusSkipped
}

func withRun(l Logger, runID string) Logger {
	if sl, ok := l.(*logging.Logger); ok && sl != nil && sl.Logger != nil {
		return sl.WithRun(runID)
	}
	return l
}

func withPartition(l Logger, key corpus.PartitionKey) Logger {
	if sl, ok := l.(*logging.Logger); ok && sl != nil && sl.Logger != nil {
		return sl.WithPartition(key)
	}
	return l
}

func logTo(l Logger, level, stage, message, detail string) {
	if l != nil {
		l.Log(level, stage, message, detail)
	}
}

type keyedMutex struct {
	mu   sync.Mutex
	held map[corpus.PartitionKey]struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: map[corpus.PartitionKey]struct{}{}}
}

func (k *keyedMutex) tryLock(key corpus.PartitionKey) (func(), bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[key]; busy {
		return nil, false
	}
	k.held[key] = struct{}{}
	return func() {
		k.mu.Lock()
		delete(k.held, key)
		k.mu.Unlock()
	}, true
}
