package pipeline

import (
	"time"

	"litindex/internal/corpus"
)

// Observer receives run metrics. Implementations must be safe for concurrent
// use; partitions report from several workers at once.
type Observer interface {
	ObservePartition(key corpus.PartitionKey, status Status, d time.Duration)
	ObserveStage(stage string, d time.Duration)
	ObserveCandidates(n int)
	ObserveRecords(n int)
	ObserveWriteRetry()
}

type NoopObserver struct{}

func (NoopObserver) ObservePartition(corpus.PartitionKey, Status, time.Duration) {}
func (NoopObserver) ObserveStage(string, time.Duration)                          {}
func (NoopObserver) ObserveCandidates(int)                                       {}
func (NoopObserver) ObserveRecords(int)                                          {}
func (NoopObserver) ObserveWriteRetry()                                          {}
