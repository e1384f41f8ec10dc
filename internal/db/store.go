package db

import (
	"database/sql"
	"fmt"

	"litindex/internal/config"
)

// Store is the document source and duplicate sink backed by one SQLite file.
type Store struct {
	conn      *sql.DB
	batchSize int
	mode      string
}

type Option func(*Store)

// WithBatchSize sets the number of rows per multi-row INSERT, capped at
// config.MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = min(n, config.MaxBatchSize)
		}
	}
}

// WithWriteMode selects config.WriteModeAppend or config.WriteModeUpsert.
func WithWriteMode(mode string) Option {
	return func(s *Store) {
		if mode != "" {
			s.mode = mode
		}
	}
}

func OpenStore(path string, opts ...Option) (*Store, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{conn: conn, batchSize: 100, mode: config.WriteModeAppend}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) CountRows(table string) (int, error) {
	return countRowsConn(s.conn, table)
}

func CountRows(dbPath, table string) (int, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return countRowsConn(conn, table)
}

func countRowsConn(conn *sql.DB, table string) (int, error) {
	switch table {
	case "documents", "duplicate_pairs":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
