package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"litindex/internal/corpus"
)

const syllabusBody = `Organic Chemistry I introduces structure bonding and reactivity of carbon compounds.
Students study stereochemistry, nucleophilic substitution, elimination reactions, alkenes, alkynes and
spectroscopy including infrared and nuclear magnetic resonance. Weekly laboratory sessions cover
recrystallization, distillation, extraction and chromatography techniques. Grading: midterm examinations,
laboratory reports, problem sets and a cumulative final examination. Required textbook: Organic Chemistry
by Klein. Office hours are held in the chemistry building after lecture.`

func syllabus(term string) string {
	return "Course offered during the " + term + " semester. " + syllabusBody + "\n" + syllabusBody
}

const unrelatedText = `Medieval European History surveys feudal society, monastic life, crusades and the
growth of towns, universities and royal government between the fall of Rome and the Renaissance.
Assignments include primary source essays, map quizzes and a research paper on manorial records.`

var (
	wooster  = corpus.PartitionKey{Institution: "Wooster College", Year: 2015, Field: "Chemistry"}
	elmhurst = corpus.PartitionKey{Institution: "Elmhurst College", Year: 2016, Field: "Chemistry"}
)

func scenarioDocs(key corpus.PartitionKey, base int64) []corpus.Document {
	return []corpus.Document{
		{ID: base + 1, Key: key, Text: syllabus("Spring")},
		{ID: base + 2, Key: key, Text: syllabus("Autumn")},
		{ID: base + 3, Key: key, Text: unrelatedText},
	}
}

type fakeSource struct {
	mu         sync.Mutex
	partitions []corpus.Partition
	docs       map[corpus.PartitionKey][]corpus.Document
	fail       map[corpus.PartitionKey]error
	listCalls  int
	fetchCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs: map[corpus.PartitionKey][]corpus.Document{},
		fail: map[corpus.PartitionKey]error{},
	}
}

func (s *fakeSource) add(key corpus.PartitionKey, docs []corpus.Document) {
	s.partitions = append(s.partitions, corpus.Partition{Key: key, Count: len(docs)})
	s.docs[key] = docs
}

func (s *fakeSource) ListPartitions(ctx context.Context, _ corpus.Filter) ([]corpus.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return append([]corpus.Partition(nil), s.partitions...), nil
}

func (s *fakeSource) FetchDocuments(ctx context.Context, key corpus.PartitionKey) ([]corpus.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if err := s.fail[key]; err != nil {
		return nil, err
	}
	return s.docs[key], nil
}

func (s *fakeSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls + s.fetchCalls
}

var errWrite = errors.New("database is locked")

type fakeSink struct {
	mu        sync.Mutex
	records   []corpus.DuplicateRecord
	failFirst int
	attempts  int
	processed map[corpus.PartitionKey]bool
}

func (s *fakeSink) AppendDuplicates(ctx context.Context, records []corpus.DuplicateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failFirst < 0 || s.attempts <= s.failFirst {
		return errWrite
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeSink) HasDuplicates(ctx context.Context, key corpus.PartitionKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[key], nil
}

func (s *fakeSink) stored() []corpus.DuplicateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]corpus.DuplicateRecord(nil), s.records...)
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Log(level, stage, message, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, strings.Join([]string{level, stage, message, detail}, " | "))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// blockingSource hands out documents normally but blocks fetches for the
// keys in block until ctx is done.
type blockingSource struct {
	*fakeSource
	block map[corpus.PartitionKey]bool
}

func (s *blockingSource) FetchDocuments(ctx context.Context, key corpus.PartitionKey) ([]corpus.Document, error) {
	if s.block[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.fakeSource.FetchDocuments(ctx, key)
}

// blockingSink never completes a write before ctx is done.
type blockingSink struct {
	fakeSink
}

func (s *blockingSink) AppendDuplicates(ctx context.Context, records []corpus.DuplicateRecord) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}
