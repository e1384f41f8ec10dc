package db

import (
	"context"
	"fmt"
	"strings"

	"litindex/internal/chunk"
	"litindex/internal/config"
	"litindex/internal/corpus"
)

// AppendDuplicates writes records in a single transaction using multi-row
// inserts of at most batchSize rows. Either every record commits or none
// does. In upsert mode an existing row with the same
// (institution, field, year, id1, id2) is replaced.
func (s *Store) AppendDuplicates(ctx context.Context, records []corpus.DuplicateRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("duplicate record %d/%d: %w", r.ID1, r.ID2, err)
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, batch := range chunk.Batches(records, s.batchSize) {
		if s.mode == config.WriteModeUpsert {
			for _, r := range batch {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM duplicate_pairs WHERE institution = ? AND field_name = ? AND year = ? AND id1 = ? AND id2 = ?`,
					r.Key.Institution, r.Key.Field, r.Key.Year, r.ID1, r.ID2,
				); err != nil {
					return fmt.Errorf("replace duplicate %s: %w", r.Key, err)
				}
			}
		}

		var sb strings.Builder
		sb.WriteString(`INSERT INTO duplicate_pairs(institution, field_name, year, id1, id2, signature1, signature2, score) VALUES `)
		args := make([]any, 0, len(batch)*8)
		for i, r := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?,?,?,?,?,?,?,?)")
			args = append(args, r.Key.Institution, r.Key.Field, r.Key.Year, r.ID1, r.ID2, r.Signature1, r.Signature2, r.Score)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert duplicates %s: %w", batch[0].Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// HasDuplicates reports whether a partition already has stored results.
func (s *Store) HasDuplicates(ctx context.Context, key corpus.PartitionKey) (bool, error) {
	var exists int
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM duplicate_pairs WHERE institution = ? AND year = ? AND field_name = ?)`,
		key.Institution, key.Year, key.Field,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicates %s: %w", key, err)
	}
	return exists == 1, nil
}

type DuplicateStats struct {
	Pairs        int `json:"pairs"`
	DistinctIDs  int `json:"distinct_ids"`
	Partitions   int `json:"partitions"`
	PerfectPairs int `json:"perfect_pairs"`
}

// DuplicateStats summarises the pairs scoring at least minScore.
func (s *Store) DuplicateStats(ctx context.Context, minScore int) (DuplicateStats, error) {
	var st DuplicateStats
	err := s.conn.QueryRowContext(ctx, `
SELECT
    COUNT(*),
    COUNT(DISTINCT id1),
    COUNT(DISTINCT institution || '|' || year || '|' || field_name),
    COALESCE(SUM(CASE WHEN score = 100 THEN 1 ELSE 0 END), 0)
FROM duplicate_pairs
WHERE score >= ?`, minScore).Scan(&st.Pairs, &st.DistinctIDs, &st.Partitions, &st.PerfectPairs)
	if err != nil {
		return DuplicateStats{}, fmt.Errorf("duplicate stats: %w", err)
	}
	return st, nil
}

type DuplicateCount struct {
	ID    int64 `json:"id"`
	Count int   `json:"count"`
}

// TopDuplicated returns the ids with the most pairs at or above minScore.
func (s *Store) TopDuplicated(ctx context.Context, minScore, limit int) ([]DuplicateCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.QueryContext(ctx, `
SELECT id1, COUNT(*) AS cnt
FROM duplicate_pairs
WHERE score >= ?
GROUP BY id1
ORDER BY cnt DESC, id1
LIMIT ?`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("top duplicated: %w", err)
	}
	defer rows.Close()

	var out []DuplicateCount
	for rows.Next() {
		var c DuplicateCount
		if err := rows.Scan(&c.ID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan duplicate count: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate counts: %w", err)
	}
	return out, nil
}

// DuplicatesOf returns every stored pair that involves id on either side.
func (s *Store) DuplicatesOf(ctx context.Context, id int64, minScore int) ([]corpus.DuplicateRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT institution, year, field_name, id1, id2, COALESCE(signature1, ''), COALESCE(signature2, ''), score
FROM duplicate_pairs
WHERE (id1 = ? OR id2 = ?) AND score >= ?
ORDER BY score DESC, id1, id2`, id, id, minScore)
	if err != nil {
		return nil, fmt.Errorf("duplicates of %d: %w", id, err)
	}
	defer rows.Close()

	var out []corpus.DuplicateRecord
	for rows.Next() {
		var r corpus.DuplicateRecord
		if err := rows.Scan(&r.Key.Institution, &r.Key.Year, &r.Key.Field, &r.ID1, &r.ID2, &r.Signature1, &r.Signature2, &r.Score); err != nil {
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicates: %w", err)
	}
	return out, nil
}
