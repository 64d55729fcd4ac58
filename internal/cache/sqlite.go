package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"streamtap/internal/sqlitedb"
)

// SQLiteStore keeps entries in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
	counters
}

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(ctx, path, migrations)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &SQLiteStore{db: db, log: log.With("component", "cache", "backend", "sqlite"), now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (e *Entry, err error) {
	defer func() { s.record(err) }()

	var (
		model     sql.NullString
		events    string
		createdAt int64
		expiresAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT model, events, created_at, expires_at FROM entries WHERE key = ?`, key,
	).Scan(&model, &events, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	e = &Entry{
		Key:       key,
		Model:     model.String,
		CreatedAt: time.Unix(0, createdAt),
		ExpiresAt: time.Unix(0, expiresAt),
	}
	if e.Expired(s.now()) {
		s.delete(ctx, key)
		return nil, ErrMiss
	}
	if err := json.Unmarshal([]byte(events), &e.Events); err != nil {
		s.log.Warn("dropping unreadable entry", "key", key, "error", err)
		s.delete(ctx, key)
		return nil, ErrMiss
	}
	return e, nil
}

func (s *SQLiteStore) delete(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		s.log.Warn("delete failed", "key", key, "error", err)
	}
}

func (s *SQLiteStore) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e.Events)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries (key, model, events, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		e.Key, e.Model, string(data), e.CreatedAt.UnixNano(), e.ExpiresAt.UnixNano(),
	)
	return err
}

// Purge deletes every entry and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired deletes entries past their expiry.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Stats(ctx context.Context) Stats {
	st := Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&st.Entries); err != nil {
		s.log.Warn("count failed", "error", err)
	}
	return st
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
