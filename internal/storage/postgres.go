package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sshwatch/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/sshwatch?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			username TEXT NOT NULL,
			source_ip TEXT NOT NULL,
			outcome TEXT NOT NULL,
			raw TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ts ON attempts(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ip ON attempts(source_ip)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			top_users_json JSONB NOT NULL,
			top_ips_json JSONB NOT NULL,
			hourly_json JSONB NOT NULL
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

func (s *postgresStore) SaveAttempt(ctx context.Context, attempt model.LoginAttempt) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (ts, username, source_ip, outcome, raw)
		VALUES ($1, $2, $3, $4, $5)`,
		attempt.Timestamp.UTC(),
		attempt.Username,
		attempt.SourceIP,
		string(attempt.Outcome),
		attempt.Raw,
	)
	return err
}

func (s *postgresStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	if s.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (ts, generated_at, top_users_json, top_ips_json, hourly_json)
		VALUES ($1, $2, $3, $4, $5)`,
		nowUTC(),
		snap.GeneratedAt.UTC(),
		encodeJSON(snap.TopUsers),
		encodeJSON(snap.TopIPs),
		encodeJSON(snap.Hourly),
	)
	return err
}
