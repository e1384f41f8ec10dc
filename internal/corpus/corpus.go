package corpus

import (
	"fmt"
	"strings"
)

type PartitionKey struct {
	Institution string `json:"institution"`
	Year        int    `json:"year"`
	Field       string `json:"field"`
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%d/%s", k.Institution, k.Year, k.Field)
}

// Valid reports whether the key can name a partition: a non-empty institution
// and a positive year. The field may be empty.
func (k PartitionKey) Valid() bool {
	name := strings.TrimSpace(k.Institution)
	return name != "" && !strings.EqualFold(name, "nan") && k.Year > 0
}

type Partition struct {
	Key   PartitionKey `json:"key"`
	Count int          `json:"count"`
}

type Document struct {
	ID          int64
	Key         PartitionKey
	CountryCode string
	Text        string
	ContentHash string
	SourceURL   string
}

type Filter struct {
	CountryCode string
	Institution string
	Field       string
	MinYear     int
	MaxYear     int
	MinCount    int
	Limit       int
}

type DuplicateRecord struct {
	Key        PartitionKey `json:"key"`
	ID1        int64        `json:"id1"`
	ID2        int64        `json:"id2"`
	Signature1 string       `json:"signature1"`
	Signature2 string       `json:"signature2"`
	Score      int          `json:"score"`
}

// Validate checks the record shape the sink relies on.
func (r DuplicateRecord) Validate() error {
	if !r.Key.Valid() {
		return fmt.Errorf("invalid partition key %q", r.Key)
	}
	if r.ID1 == r.ID2 {
		return fmt.Errorf("id1 and id2 must differ (got %d)", r.ID1)
	}
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("score must be between 0 and 100 (got %d)", r.Score)
	}
	return nil
}
