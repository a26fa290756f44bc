package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect struct {
	driver   string
	numbered bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect   = dialect{driver: "sqlite"}
	postgresDialect = dialect{driver: "postgres", numbered: true}
)

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	subject_id  TEXT NOT NULL,
	filename    TEXT NOT NULL,
	prediction  TEXT NOT NULL DEFAULT '',
	relapse     INTEGER NOT NULL DEFAULT 0,
	recovery    INTEGER NOT NULL DEFAULT 0,
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	features    TEXT NOT NULL DEFAULT '{}',
	error       TEXT NOT NULL DEFAULT '',
	created_at  BIGINT NOT NULL
)`

const subjectIndex = `CREATE INDEX IF NOT EXISTS idx_analyses_subject ON analyses (subject_id, created_at)`

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return newSQLStore(ctx, db, sqliteDialect)
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range []string{schema, subjectIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create %s schema: %w", d.driver, err)
		}
	}
	if err := addColumn(ctx, db, d, "confidence", "DOUBLE PRECISION NOT NULL DEFAULT 0"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// addColumn upgrades analyses tables created before column existed.
func addColumn(ctx context.Context, db *sql.DB, d dialect, column, def string) error {
	if d.numbered {
		_, err := db.ExecContext(ctx, `ALTER TABLE analyses ADD COLUMN IF NOT EXISTS `+column+` `+def)
		if err != nil {
			return fmt.Errorf("add column %s: %w", column, err)
		}
		return nil
	}

	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info('analyses') WHERE name = ?`, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect column %s: %w", column, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE analyses ADD COLUMN `+column+` `+def); err != nil {
		return fmt.Errorf("add column %s: %w", column, err)
	}
	return nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func isPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// Save inserts r. A zero ID or CreatedAt is filled in. Saving an ID that is
// already stored is a no-op, so a redelivered task does not fail.
func (s *SQLStore) Save(ctx context.Context, r *Record) error {
	if r.SubjectID == "" {
		return fmt.Errorf("subject ID is required")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	feats, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := s.dialect.rebind(`
		INSERT INTO analyses (id, subject_id, filename, prediction, relapse, recovery, confidence, features, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	_, err = s.db.ExecContext(ctx, query,
		r.ID.String(), r.SubjectID, r.Filename, r.Prediction,
		r.Relapse, r.Recovery, r.Confidence, string(feats), r.Error, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", r.ID, err)
	}
	return nil
}

const selectColumns = `id, subject_id, filename, prediction, relapse, recovery, confidence, features, error, created_at`

// History returns the subject's records, newest first.
func (s *SQLStore) History(ctx context.Context, subjectID string, limit int) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses WHERE subject_id = ? ORDER BY created_at DESC, id`
	args := []interface{}{subjectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Get returns one record or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := s.dialect.rebind(`SELECT ` + selectColumns + ` FROM analyses WHERE id = ?`)
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r       Record
		id      string
		feats   string
		created int64
	)
	if err := sc.Scan(&id, &r.SubjectID, &r.Filename, &r.Prediction, &r.Relapse, &r.Recovery, &r.Confidence, &feats, &r.Error, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis id %q: %w", id, err)
	}
	r.ID = parsed
	if err := json.Unmarshal([]byte(feats), &r.Features); err != nil {
		return nil, fmt.Errorf("invalid features for %s: %w", id, err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	return &r, nil
}
