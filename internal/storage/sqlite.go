package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"sshwatch/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:sshwatch.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			username TEXT NOT NULL,
			source_ip TEXT NOT NULL,
			outcome TEXT NOT NULL,
			raw TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ts ON attempts(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ip ON attempts(source_ip)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			top_users_json TEXT NOT NULL,
			top_ips_json TEXT NOT NULL,
			hourly_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveAttempt(ctx context.Context, attempt model.LoginAttempt) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (ts, username, source_ip, outcome, raw)
		VALUES (?, ?, ?, ?, ?)`,
		attempt.Timestamp.UTC(),
		attempt.Username,
		attempt.SourceIP,
		string(attempt.Outcome),
		attempt.Raw,
	)
	return err
}

func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	if s.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (ts, generated_at, top_users_json, top_ips_json, hourly_json)
		VALUES (?, ?, ?, ?, ?)`,
		nowUTC(),
		snap.GeneratedAt.UTC(),
		encodeJSON(snap.TopUsers),
		encodeJSON(snap.TopIPs),
		encodeJSON(snap.Hourly),
	)
	return err
}
