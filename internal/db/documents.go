package db

import (
	"context"
	"fmt"
	"strings"

	"litindex/internal/chunk"
	"litindex/internal/corpus"
)

// InsertDocuments stores docs in one transaction. A zero ID lets SQLite assign
// one; an existing ID is replaced.
func (s *Store) InsertDocuments(ctx context.Context, docs []corpus.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, batch := range chunk.Batches(docs, s.batchSize) {
		var sb strings.Builder
		sb.WriteString(`INSERT OR REPLACE INTO documents(id, source_url, year, field_name, institution, country_code, text_md5, text) VALUES `)
		args := make([]any, 0, len(batch)*8)
		for i, d := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?,?,?,?,?,?,?,?)")
			var id any
			if d.ID != 0 {
				id = d.ID
			}
			args = append(args, id, d.SourceURL, d.Key.Year, d.Key.Field, d.Key.Institution, d.CountryCode, d.ContentHash, d.Text)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return 0, fmt.Errorf("insert documents: %w", err)
		}
		inserted += len(batch)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListPartitions returns every partition with more than one document that
// passes filter, largest first.
func (s *Store) ListPartitions(ctx context.Context, filter corpus.Filter) ([]corpus.Partition, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT institution, year, COALESCE(field_name, ''), COUNT(*) AS cnt
FROM documents
WHERE institution IS NOT NULL AND TRIM(institution) <> '' AND LOWER(institution) <> 'nan' AND year > 0`)
	var args []any
	if filter.CountryCode != "" {
		sb.WriteString(` AND country_code = ?`)
		args = append(args, filter.CountryCode)
	}
	if filter.Institution != "" {
		sb.WriteString(` AND institution = ?`)
		args = append(args, filter.Institution)
	}
	if filter.Field != "" {
		sb.WriteString(` AND field_name = ?`)
		args = append(args, filter.Field)
	}
	if filter.MinYear > 0 {
		sb.WriteString(` AND year >= ?`)
		args = append(args, filter.MinYear)
	}
	if filter.MaxYear > 0 {
		sb.WriteString(` AND year <= ?`)
		args = append(args, filter.MaxYear)
	}
	sb.WriteString(`
GROUP BY institution, year, COALESCE(field_name, '')
HAVING COUNT(*) >= ?
ORDER BY cnt DESC, institution, year, 3`)
	args = append(args, max(2, filter.MinCount))
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	defer rows.Close()

	var out []corpus.Partition
	for rows.Next() {
		var p corpus.Partition
		if err := rows.Scan(&p.Key.Institution, &p.Key.Year, &p.Key.Field, &p.Count); err != nil {
			return nil, fmt.Errorf("scan partition: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partitions: %w", err)
	}
	return out, nil
}

// FetchDocuments returns the documents of one partition ordered by id.
func (s *Store) FetchDocuments(ctx context.Context, key corpus.PartitionKey) ([]corpus.Document, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, COALESCE(source_url, ''), COALESCE(country_code, ''), COALESCE(text_md5, ''), COALESCE(text, '')
FROM documents
WHERE institution = ? AND year = ? AND COALESCE(field_name, '') = ?
ORDER BY id`, key.Institution, key.Year, key.Field)
	if err != nil {
		return nil, fmt.Errorf("fetch documents %s: %w", key, err)
	}
	defer rows.Close()

	var out []corpus.Document
	for rows.Next() {
		d := corpus.Document{Key: key}
		if err := rows.Scan(&d.ID, &d.SourceURL, &d.CountryCode, &d.ContentHash, &d.Text); err != nil {
			return nil, fmt.Errorf("scan document %s: %w", key, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents %s: %w", key, err)
	}
	return out, nil
}
