package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    source_url TEXT,
    year INTEGER,
    field_name TEXT,
    institution TEXT,
    country_code TEXT,
    text_md5 TEXT,
    text TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents (institution, year, field_name);
CREATE INDEX IF NOT EXISTS idx_documents_country ON documents (country_code);
CREATE INDEX IF NOT EXISTS idx_documents_md5 ON documents (text_md5);

CREATE TABLE IF NOT EXISTS duplicate_pairs (
    id INTEGER PRIMARY KEY,
    institution TEXT NOT NULL,
    field_name TEXT NOT NULL,
    year INTEGER NOT NULL,
    id1 INTEGER NOT NULL,
    id2 INTEGER NOT NULL,
    signature1 TEXT,
    signature2 TEXT,
    score INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_partition ON duplicate_pairs (institution, field_name, year);
CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_ids ON duplicate_pairs (id1, id2);
CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_id2 ON duplicate_pairs (id2);
CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_score ON duplicate_pairs (score);
`

// Open returns a connection with the schema applied. SQLite allows a single
// writer, so the pool is capped at one connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
