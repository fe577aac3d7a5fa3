package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrStorage marks failures of the underlying database or file system.
var ErrStorage = errors.New("storage failure")

// DefaultListLimit is used when List is called without a positive limit.
const DefaultListLimit = 100

// Record is an issued payload.
type Record struct {
	ID int64 `json:"id"`

	// Payload is the payload text: hex of the wire bytes for issued lock
	// payloads, or the caller's text for records posted directly.
	Payload string `json:"payload"`

	// Signature is the lowercase hex HMAC-SHA1 of Payload.
	Signature string `json:"signature"`

	// Operation names the lock operation, empty for posted text.
	Operation string `json:"operation,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired returns true if the record has an expiry at or before now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// Store provides SQLite persistence for issued records.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore opens the database at dbPath and creates the schema.
// Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS qrcodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payload TEXT NOT NULL,
		signature TEXT NOT NULL,
		operation TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_qrcodes_created_at ON qrcodes(created_at);
	CREATE INDEX IF NOT EXISTS idx_qrcodes_expires_at ON qrcodes(expires_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts rec and fills in its ID. A zero CreatedAt is set to the
// current time. Times are stored in UTC.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	var expires sql.NullTime
	if rec.ExpiresAt != nil {
		utc := rec.ExpiresAt.UTC()
		rec.ExpiresAt = &utc
		expires = sql.NullTime{Time: utc, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO qrcodes (payload, signature, operation, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Payload, rec.Signature, nullString(rec.Operation), rec.CreatedAt, expires)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// Get retrieves a record by ID. Returns nil, nil if it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, payload, signature, operation, created_at, expires_at
		FROM qrcodes WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves records, most recent first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payload, signature, operation, created_at, expires_at
		FROM qrcodes
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM qrcodes").Scan(&count)
	return count, err
}

// DeleteExpired removes records whose expiry is at or before now and
// returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM qrcodes WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		operation sql.NullString
		expires   sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.Payload, &rec.Signature, &operation, &rec.CreatedAt, &expires); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if operation.Valid {
		rec.Operation = operation.String
	}
	if expires.Valid {
		t := expires.Time.UTC()
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
