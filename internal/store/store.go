package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/stampscan/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when a session ID has no rows.
var ErrSessionNotFound = errors.New("session not found")

// Store records match sessions and their sightings in PostgreSQL.
// It never holds descriptors; the gallery is rebuilt from disk on every run.
type Store struct {
	pool *pgxpool.Pool
}

// New establishes a connection pool and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// initSchema creates the necessary tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS match_sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			samples_dir TEXT NOT NULL,
			started_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS sightings (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT REFERENCES match_sessions(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			label TEXT,
			score DOUBLE PRECISION NOT NULL,
			seen_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS sightings_session_id_idx ON sightings (session_id);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSession registers the session. Re-registering an ID clears its old sightings.
func (s *Store) EnsureSession(ctx context.Context, sess types.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM sightings WHERE session_id = $1", sess.ID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO match_sessions (id, source, samples_dir, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET started_at = EXCLUDED.started_at, source = EXCLUDED.source
	`, sess.ID, sess.Source, sess.SamplesDir, sess.StartedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InsertSighting records one match result. A sighting without a match is stored with a NULL label.
func (s *Store) InsertSighting(ctx context.Context, sg types.Sighting) error {
	var label *string
	if sg.Matched {
		label = &sg.Label
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sightings (session_id, frame_index, label, score, seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sg.SessionID, sg.FrameIndex, label, sg.Score, sg.SeenAt)
	return err
}

// ListSessions returns sessions newest first with their sighting counts.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]types.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.source, m.samples_dir, m.started_at, COUNT(g.id)
		FROM match_sessions m
		LEFT JOIN sightings g ON g.session_id = m.id
		GROUP BY m.id
		ORDER BY m.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.Source, &sess.SamplesDir, &sess.StartedAt, &sess.Frames); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionSummary counts how often each label won in a session, most frequent first.
// Frames without a match are not included.
func (s *Store) SessionSummary(ctx context.Context, sessionID string) ([]types.LabelCount, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM match_sessions WHERE id = $1)", sessionID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT label, COUNT(*), MIN(score), MIN(frame_index), MAX(frame_index)
		FROM sightings
		WHERE session_id = $1 AND label IS NOT NULL
		GROUP BY label
		ORDER BY COUNT(*) DESC, label ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.LabelCount, error) {
		var lc types.LabelCount
		err := row.Scan(&lc.Label, &lc.Hits, &lc.BestScore, &lc.FirstSeen, &lc.LastSeen)
		return lc, err
	})
}

// Reset drops all application tables to clear the database state.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS sightings CASCADE;
		DROP TABLE IF EXISTS match_sessions CASCADE;
	`)
	return err
}
