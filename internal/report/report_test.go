package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litindex/internal/corpus"
	"litindex/internal/pipeline"
)

func sampleSummary() pipeline.RunSummary {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return pipeline.RunSummary{
		RunID:      "2f1c8e0e-0d7a-4c55-9a55-4b1f5d3c2a10",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Partitions: []pipeline.PartitionResult{
			{
				Key:        corpus.PartitionKey{Institution: "Wooster College", Year: 2015, Field: "Chemistry"},
				Status:     pipeline.StatusSucceeded,
				Documents:  3,
				Candidates: 1,
				Records:    1,
				Traces:     []pipeline.SpanTrace{{Name: pipeline.StageScore, DurationMs: 2, Status: "ok"}},
			},
			{
				Key:    corpus.PartitionKey{Institution: "Elmhurst College", Year: 2016, Field: "Biology"},
				Status: pipeline.StatusSkipped,
				Reason: "read: connection reset",
			},
		},
		Succeeded:  1,
		Skipped:    1,
		Candidates: 1,
		Records:    1,
	}
}

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	want := sampleSummary()
	require.NoError(t, Write(path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id": "2f1c8e0e-0d7a-4c55-9a55-4b1f5d3c2a10"`)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteReadZstd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json.zst")
	want := sampleSummary()
	require.NoError(t, Write(path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4], "zstd frame magic")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
