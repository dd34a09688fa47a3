package infra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/medvani/webchat/internal/ports"
)

// sessionRepo — постоянное хранилище сессий в Postgres.
type sessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) ports.SessionRepo {
	return &sessionRepo{db: db}
}

// EnsureSchema создаёт таблицы dev-стенда, если их нет.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT 'New chat',
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat_turns (
			id             BIGSERIAL PRIMARY KEY,
			session_id     TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			at             TIMESTAMPTZ NOT NULL,
			user_text      TEXT NOT NULL,
			assistant_text TEXT NOT NULL
		);
	`)
	return err
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string) ([]ports.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.SessionRecord
	for rows.Next() {
		var rec ports.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sessionRepo) Get(ctx context.Context, sessionID, userID string) (*ports.SessionRecord, error) {
	var rec ports.SessionRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID).Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT at, user_text, assistant_text
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var turn ports.Turn
		if err := rows.Scan(&turn.At, &turn.User, &turn.Assistant); err != nil {
			return nil, err
		}
		rec.Turns = append(rec.Turns, turn)
	}
	return &rec, rows.Err()
}

func (r *sessionRepo) FindEmpty(ctx context.Context, userID string) (*ports.SessionRecord, error) {
	var rec ports.SessionRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.title, s.updated_at
		FROM chat_sessions s
		WHERE s.user_id = $1
		  AND s.title = 'New chat'
		  AND NOT EXISTS (SELECT 1 FROM chat_turns t WHERE t.session_id = s.id)
		ORDER BY s.updated_at DESC
		LIMIT 1
	`, userID).Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sessionRepo) Insert(ctx context.Context, rec ports.SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, updated_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.UserID, rec.Title, rec.UpdatedAt)
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_sessions
		WHERE id = $1 AND user_id = $2
	`, sessionID, userID)
	return err
}

func (r *sessionRepo) AppendTurn(ctx context.Context, sessionID, userID string, turn ports.Turn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// сессия создаётся на лету, заголовок обновляет updated_at
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, updated_at)
		VALUES ($1, $2, 'New chat', $3)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, sessionID, userID, turn.At); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_turns (session_id, at, user_text, assistant_text)
		VALUES ($1, $2, $3, $4)
	`, sessionID, turn.At, turn.User, turn.Assistant); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *sessionRepo) Title(ctx context.Context, sessionID string) (string, error) {
	var title string
	err := r.db.QueryRowContext(ctx, `
		SELECT title FROM chat_sessions WHERE id = $1
	`, sessionID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrSessionNotFound
	}
	return title, err
}

func (r *sessionRepo) TurnCount(ctx context.Context, sessionID string) (int, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)
	`, sessionID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ports.ErrSessionNotFound
	}

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_turns WHERE session_id = $1
	`, sessionID).Scan(&count)
	return count, err
}

func (r *sessionRepo) SetTitleIfPlaceholder(ctx context.Context, sessionID, title string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE chat_sessions
		SET title = $2, updated_at = $3
		WHERE id = $1 AND title = 'New chat'
	`, sessionID, title, time.Now().UTC())
	return err
}
