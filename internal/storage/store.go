// Package storage persists records for the REST backend. Every collection
// shares one table: records are stored as JSON documents keyed by an
// autoincrement id, which keeps the backend schema-free while the screens
// evolve their field lists independently.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finadmin/internal/schema"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type RecordStore struct {
	db *sql.DB
}

// NewRecordStore opens (creating if needed) the SQLite database and brings
// the schema up to date.
func NewRecordStore(dbPath string) (*RecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &RecordStore{db: db}, nil
}

func (s *RecordStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// List returns every record of a collection in insertion order, each with
// its id merged into the document.
func (s *RecordStore) List(ctx context.Context, collection string) ([]schema.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM records WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	records := []schema.Record{}
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decode(id, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return records, nil
}

// Get returns one record by id.
func (s *RecordStore) Get(ctx context.Context, collection string, id int64) (schema.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d from %s: %w", id, collection, err)
	}
	return decode(id, data)
}

// Create stores a new record and returns it with the assigned id.
func (s *RecordStore) Create(ctx context.Context, collection string, record schema.Record) (schema.Record, error) {
	data, err := encode(record)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, data) VALUES (?, ?)`, collection, data)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read inserted id: %w", err)
	}
	saved := record.Clone()
	saved["id"] = float64(id)
	return saved, nil
}

// Update replaces a record's document and returns the stored version.
func (s *RecordStore) Update(ctx context.Context, collection string, id int64, record schema.Record) (schema.Record, error) {
	data, err := encode(record)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`,
		data, collection, id)
	if err != nil {
		return nil, fmt.Errorf("update record %d in %s: %w", id, collection, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	saved := record.Clone()
	saved["id"] = float64(id)
	return saved, nil
}

// Delete removes a record by id.
func (s *RecordStore) Delete(ctx context.Context, collection string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete record %d from %s: %w", id, collection, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func encode(record schema.Record) ([]byte, error) {
	doc := record.Clone()
	delete(doc, "id")
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

func decode(id int64, data []byte) (schema.Record, error) {
	var rec schema.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	rec["id"] = float64(id)
	return rec, nil
}
