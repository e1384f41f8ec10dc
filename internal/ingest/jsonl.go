package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"litindex/internal/corpus"
)

// catalogRecord is one line of a course-catalog export. Numeric fields may be
// null or written as floats by upstream tooling.
type catalogRecord struct {
	ID          *float64 `json:"id"`
	Year        *float64 `json:"year"`
	Institution string   `json:"grid_name"`
	Field       string   `json:"field_name"`
	CountryCode string   `json:"grid_country_code"`
	Text        string   `json:"text"`
	TextMD5     string   `json:"text_md5"`
	SourceURL   string   `json:"source_url"`
}

// LoadJSONL reads one JSON object per line. Null ids and years become 0; a
// missing text_md5 is computed from the text. Blank lines are ignored.
func LoadJSONL(r io.Reader) ([]corpus.Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var docs []corpus.Document
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec catalogRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		doc := corpus.Document{
			Key: corpus.PartitionKey{
				Institution: strings.TrimSpace(rec.Institution),
				Field:       strings.TrimSpace(rec.Field),
			},
			CountryCode: strings.TrimSpace(rec.CountryCode),
			Text:        rec.Text,
			ContentHash: rec.TextMD5,
			SourceURL:   rec.SourceURL,
		}
		if rec.ID != nil {
			doc.ID = int64(*rec.ID)
		}
		if rec.Year != nil {
			doc.Key.Year = int(*rec.Year)
		}
		if doc.ContentHash == "" {
			doc.ContentHash = TextMD5(doc.Text)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return docs, nil
}

func LoadJSONLFile(path string) ([]corpus.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl: %w", err)
	}
	defer f.Close()
	return LoadJSONL(f)
}
