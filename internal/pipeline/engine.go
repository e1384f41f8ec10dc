package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"litindex/internal/config"
	"litindex/internal/corpus"
	"litindex/internal/fuzzy"
	"litindex/internal/lsh"
	"litindex/internal/minhash"
	"litindex/internal/salience"
	"litindex/internal/textnorm"
)

const (
	StageNormalize   = "normalize"
	StageFingerprint = "fingerprint"
	StageIndex       = "index"
	StageSalience    = "salience"
	StageScore       = "score"
	StageFetch       = "fetch"
	StageWrite       = "write"
)

type Logger interface {
	Log(level, stage, message, detail string)
}

type SpanTrace struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Status     string `json:"status"`
}

// PartitionStats counts what each stage saw for one partition.
type PartitionStats struct {
	Documents         int `json:"documents"`
	CommonWords       int `json:"common_words"`
	FallbackTexts     int `json:"fallback_texts"`
	EmptyTexts        int `json:"empty_texts"`
	Buckets           int `json:"buckets"`
	LargestBucket     int `json:"largest_bucket"`
	Candidates        int `json:"candidates"`
	MissingSignatures int `json:"missing_signatures"`
	BelowMinScore     int `json:"below_min_score"`
	Records           int `json:"records"`
}

type PartitionOutput struct {
	Records []corpus.DuplicateRecord
	Stats   PartitionStats
	Traces  []SpanTrace
}

// Engine runs the in-memory stages for one partition at a time. It holds no
// per-partition state and is safe for concurrent use.
type Engine struct {
	cfg      config.Config
	hasher   *minhash.Hasher
	logger   Logger
	observer Observer
}

func NewEngine(cfg config.Config, logger Logger, observer Observer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hasher, err := minhash.NewHasher(cfg.MinHashConfig())
	if err != nil {
		return nil, fmt.Errorf("build hasher: %w", err)
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Engine{cfg: cfg, hasher: hasher, logger: logger, observer: observer}, nil
}

// ProcessPartition turns one partition's documents into scored duplicate
// records. Nothing is written; a cancelled ctx returns its error and no
// records.
func (e *Engine) ProcessPartition(ctx context.Context, key corpus.PartitionKey, docs []corpus.Document) (PartitionOutput, error) {
	out := PartitionOutput{Stats: PartitionStats{Documents: len(docs)}}
	if len(docs) < 2 {
		return out, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	var variants []textnorm.Variants
	err := e.stage(ctx, &out, StageNormalize, func() error {
		var common map[string]struct{}
		variants, common = textnorm.Normalize(texts, e.cfg.MinHash.CommonWordMinDocs)
		out.Stats.CommonWords = len(common)
		return nil
	})
	if err != nil {
		return PartitionOutput{Stats: out.Stats, Traces: out.Traces}, err
	}

	index, err := lsh.New(e.hasher.Seeds(), e.cfg.MinHash.Bands)
	if err != nil {
		return PartitionOutput{}, err
	}
	err = e.stage(ctx, &out, StageFingerprint, func() error {
		for i, v := range variants {
			if i%256 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			text := v.Distinctive
			if text == "" {
				text = v.Clean
				if text != "" {
					out.Stats.FallbackTexts++
				}
			}
			if text == "" {
				out.Stats.EmptyTexts++
				continue
			}
			fp, err := e.hasher.Fingerprint(text)
			if err != nil {
				return fmt.Errorf("fingerprint document %d: %w", docs[i].ID, err)
			}
			if err := index.Add(uint32(i), fp); err != nil {
				return fmt.Errorf("index document %d: %w", docs[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return PartitionOutput{Stats: out.Stats, Traces: out.Traces}, err
	}

	var pairs []lsh.Pair
	err = e.stage(ctx, &out, StageIndex, func() error {
		var st lsh.Stats
		pairs, st = index.Candidates()
		out.Stats.Buckets = st.Buckets
		out.Stats.LargestBucket = st.LargestBucket
		out.Stats.Candidates = len(pairs)
		return nil
	})
	if err != nil {
		return PartitionOutput{Stats: out.Stats, Traces: out.Traces}, err
	}
	e.observer.ObserveCandidates(len(pairs))
	if len(pairs) == 0 {
		e.log("DEBUG", StageIndex, "no candidate pairs", fmt.Sprintf("partition=%s documents=%d", key, len(docs)))
		return out, nil
	}

	var signatures map[uint32]string
	err = e.stage(ctx, &out, StageSalience, func() error {
		cleaned := make([]string, len(variants))
		for i, v := range variants {
			cleaned[i] = v.Clean
		}
		signatures = salience.Signatures(cleaned, lsh.Members(pairs), e.cfg.Salience.TopK)
		return nil
	})
	if err != nil {
		return PartitionOutput{Stats: out.Stats, Traces: out.Traces}, err
	}

	err = e.stage(ctx, &out, StageScore, func() error {
		records, missing, below, err := e.scorePairs(ctx, key, docs, pairs, signatures)
		if err != nil {
			return err
		}
		out.Records = records
		out.Stats.MissingSignatures = missing
		out.Stats.BelowMinScore = below
		out.Stats.Records = len(records)
		return nil
	})
	if err != nil {
		return PartitionOutput{Stats: out.Stats, Traces: out.Traces}, err
	}
	if out.Stats.MissingSignatures > 0 {
		e.log("WARN", StageScore, "skipped pairs with missing signatures", fmt.Sprintf("partition=%s missing=%d", key, out.Stats.MissingSignatures))
	}
	return out, nil
}

// scorePairs scores candidates in parallel and keeps them in candidate order.
func (e *Engine) scorePairs(ctx context.Context, key corpus.PartitionKey, docs []corpus.Document, pairs []lsh.Pair, signatures map[uint32]string) ([]corpus.DuplicateRecord, int, int, error) {
	type scored struct {
		record corpus.DuplicateRecord
		ok     bool
	}
	results := make([]scored, len(pairs))

	workers := e.cfg.Scoring.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	missing := 0
	for i, p := range pairs {
		sigA, okA := signatures[p.A]
		sigB, okB := signatures[p.B]
		if !okA || !okB || int(p.A) >= len(docs) || int(p.B) >= len(docs) {
			missing++
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scored{
				record: corpus.DuplicateRecord{
					Key:        key,
					ID1:        docs[p.A].ID,
					ID2:        docs[p.B].ID,
					Signature1: sigA,
					Signature2: sigB,
					Score:      fuzzy.TokenSetRatio(sigA, sigB),
				},
				ok: true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	records := make([]corpus.DuplicateRecord, 0, len(pairs))
	below := 0
	for _, r := range results {
		if !r.ok {
			continue
		}
		if r.record.Score < e.cfg.Scoring.MinScore {
			below++
			continue
		}
		records = append(records, r.record)
	}
	return records, missing, below, nil
}

func (e *Engine) stage(ctx context.Context, out *PartitionOutput, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return withSpan(&out.Traces, e.observer, name, fn)
}

func (e *Engine) log(level, stage, message, detail string) {
	if e.logger != nil {
		e.logger.Log(level, stage, message, detail)
	}
}

func withSpan(traces *[]SpanTrace, observer Observer, name string, fn func() error) error {
	start := time.Now()
	status := "ok"
	err := fn()
	if err != nil {
		status = "error"
	}
	d := time.Since(start)
	*traces = append(*traces, SpanTrace{
		Name:       name,
		DurationMs: d.Milliseconds(),
		Status:     status,
	})
	observer.ObserveStage(name, d)
	return err
}
