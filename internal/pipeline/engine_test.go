package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litindex/internal/config"
	"litindex/internal/corpus"
	"litindex/internal/lsh"
)

func newTestEngine(t *testing.T, edit func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Default()
	if edit != nil {
		edit(&cfg)
	}
	e, err := NewEngine(cfg, nil, nil)
	require.NoError(t, err)
	return e
}

func TestEngineNearDuplicatesScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	docs := scenarioDocs(wooster, 100)

	out, err := e.ProcessPartition(context.Background(), wooster, docs)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)

	rec := out.Records[0]
	assert.Equal(t, int64(101), rec.ID1)
	assert.Equal(t, int64(102), rec.ID2)
	assert.GreaterOrEqual(t, rec.Score, 90)
	assert.Equal(t, wooster, rec.Key)
	assert.NotEmpty(t, rec.Signature1)
	assert.LessOrEqual(t, len(strings.Fields(rec.Signature1)), 10)

	assert.Equal(t, 1, out.Stats.Candidates)
	assert.Equal(t, 3, out.Stats.Documents)
	for _, r := range out.Records {
		assert.NotEqual(t, int64(103), r.ID1)
		assert.NotEqual(t, int64(103), r.ID2)
	}

	names := make([]string, 0, len(out.Traces))
	for _, tr := range out.Traces {
		names = append(names, tr.Name)
		assert.Equal(t, "ok", tr.Status)
	}
	assert.Equal(t, []string{StageNormalize, StageFingerprint, StageIndex, StageSalience, StageScore}, names)
}

func TestEngineSingleDocument(t *testing.T) {
	e := newTestEngine(t, nil)
	out, err := e.ProcessPartition(context.Background(), wooster, scenarioDocs(wooster, 0)[:1])
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Zero(t, out.Stats.Candidates)
}

func TestEngineIdenticalTextsScore100(t *testing.T) {
	e := newTestEngine(t, nil)
	docs := []corpus.Document{
		{ID: 1, Key: wooster, Text: syllabus("Spring")},
		{ID: 2, Key: wooster, Text: syllabus("Spring")},
	}
	out, err := e.ProcessPartition(context.Background(), wooster, docs)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, 100, out.Records[0].Score)
	assert.Equal(t, out.Records[0].Signature1, out.Records[0].Signature2)
}

func TestEngineEmptyTextsAreNotIndexed(t *testing.T) {
	e := newTestEngine(t, nil)
	docs := []corpus.Document{
		{ID: 1, Key: wooster, Text: "2015 !!! the and"},
		{ID: 2, Key: wooster, Text: "   "},
		{ID: 3, Key: wooster, Text: unrelatedText},
	}
	out, err := e.ProcessPartition(context.Background(), wooster, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Stats.EmptyTexts)
	assert.Empty(t, out.Records)
}

func TestEngineFallsBackToCleanTextWhenAllWordsAreCommon(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.MinHash.CommonWordMinDocs = 1 })
	// Every word appears in more than half of the documents, so the
	// distinctive text of each is empty.
	docs := []corpus.Document{
		{ID: 1, Key: wooster, Text: syllabus("Spring")},
		{ID: 2, Key: wooster, Text: syllabus("Spring")},
		{ID: 3, Key: wooster, Text: syllabus("Spring")},
	}
	out, err := e.ProcessPartition(context.Background(), wooster, docs)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Stats.FallbackTexts)
	assert.Zero(t, out.Stats.EmptyTexts)
	assert.Len(t, out.Records, 3)
}

func TestEngineMinScoreDropsRecords(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Scoring.MinScore = 100 })
	docs := []corpus.Document{
		{ID: 1, Key: wooster, Text: syllabus("Spring")},
		{ID: 2, Key: wooster, Text: syllabus("Spring")},
	}
	out, err := e.ProcessPartition(context.Background(), wooster, docs)
	require.NoError(t, err)
	assert.Len(t, out.Records, 1, "a perfect score passes a threshold of 100")
	assert.Zero(t, out.Stats.BelowMinScore)
}

func TestEngineCancelledContextWritesNothing(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := e.ProcessPartition(ctx, wooster, scenarioDocs(wooster, 0))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Records)
}

// cancelAfterStage cancels the partition context once the named stage ends.
type cancelAfterStage struct {
	NoopObserver
	stage  string
	cancel context.CancelFunc
}

func (o cancelAfterStage) ObserveStage(stage string, _ time.Duration) {
	if stage == o.stage {
		o.cancel()
	}
}

func TestEngineStopsBeforeIndexWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e, err := NewEngine(config.Default(), nil, cancelAfterStage{stage: StageFingerprint, cancel: cancel})
	require.NoError(t, err)

	out, err := e.ProcessPartition(ctx, wooster, scenarioDocs(wooster, 0))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Records)
	assert.Zero(t, out.Stats.Candidates)

	var stages []string
	for _, tr := range out.Traces {
		stages = append(stages, tr.Name)
	}
	assert.Equal(t, []string{StageNormalize, StageFingerprint}, stages)
}

func TestScorePairsSkipsMissingSignatures(t *testing.T) {
	e := newTestEngine(t, nil)
	docs := []corpus.Document{{ID: 10}, {ID: 20}, {ID: 30}}
	pairs := []lsh.Pair{{A: 0, B: 1}, {A: 0, B: 2}, {A: 1, B: 2}}
	sigs := map[uint32]string{0: "alpha beta", 1: "alpha beta"}

	records, missing, below, err := e.scorePairs(context.Background(), wooster, docs, pairs, sigs)
	require.NoError(t, err)
	assert.Equal(t, 2, missing)
	assert.Zero(t, below)
	require.Len(t, records, 1)
	assert.Equal(t, int64(10), records[0].ID1)
	assert.Equal(t, int64(20), records[0].ID2)
	assert.Equal(t, 100, records[0].Score)
}

func TestScorePairsKeepsCandidateOrder(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Scoring.Workers = 4 })
	n := 40
	docs := make([]corpus.Document, n)
	sigs := map[uint32]string{}
	for i := range docs {
		docs[i] = corpus.Document{ID: int64(i + 1)}
		sigs[uint32(i)] = "shared term"
	}
	var pairs []lsh.Pair
	for i := 0; i < n-1; i++ {
		pairs = append(pairs, lsh.Pair{A: uint32(i), B: uint32(i + 1)})
	}

	records, _, _, err := e.scorePairs(context.Background(), wooster, docs, pairs, sigs)
	require.NoError(t, err)
	require.Len(t, records, n-1)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.ID1)
		assert.Equal(t, int64(i+2), r.ID2)
	}
}
