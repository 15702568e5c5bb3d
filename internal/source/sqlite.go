package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
)

// SQLiteStore is a PageSource backed by a SQLite database. It doubles
// as the write side for seeding records.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) a SQLite-backed store.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
			fmt.Sprintf("failed to open source database %s", path), err)
	}

	// modernc/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		type       TEXT NOT NULL,
		fields     TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
			"failed to initialize source schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ReadPage implements PageSource with keyset pagination over the
// record primary key.
func (s *SQLiteStore) ReadPage(ctx context.Context, collection, afterID string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, lifterrors.ValidationError("page limit must be positive")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, fields FROM records
		 WHERE collection = ? AND id > ?
		 ORDER BY id
		 LIMIT ?`,
		collection, afterID, limit)
	if err != nil {
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
			fmt.Sprintf("failed to read page of %s", collection), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var fieldsJSON string
		if err := rows.Scan(&rec.ID, &rec.Type, &fieldsJSON); err != nil {
			return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
				"failed to scan record", err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
			return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
				fmt.Sprintf("corrupt record body for %s/%s", collection, rec.ID), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, lifterrors.New(lifterrors.ErrCodeSourceRead,
			fmt.Sprintf("failed to read page of %s", collection), err)
	}

	return records, nil
}

// Put upserts a record into the collection.
func (s *SQLiteStore) Put(ctx context.Context, collection string, rec Record) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return lifterrors.InternalError(
			fmt.Sprintf("failed to encode record %s/%s", collection, rec.ID), err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, type, fields)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET type = excluded.type, fields = excluded.fields`,
		collection, rec.ID, rec.Type, string(fieldsJSON))
	if err != nil {
		return lifterrors.New(lifterrors.ErrCodeSourceRead,
			fmt.Sprintf("failed to store record %s/%s", collection, rec.ID), err)
	}
	return nil
}

// Count returns the number of records in a collection.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, lifterrors.New(lifterrors.ErrCodeSourceRead,
			fmt.Sprintf("failed to count records of %s", collection), err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
