package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrPreviewNotFound превью отсутствует или истекло
var ErrPreviewNotFound = errors.New("preview session not found")

// PreviewSession сохраненный результат парсинга, ожидающий ревью и коммита
type PreviewSession struct {
	ID        string    `json:"id"`
	Client    string    `json:"client"`
	Payload   []byte    `json:"-"`
	Summary   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SavePreview сохраняет превью-сессию с временем жизни ttl
func (sdb *ServiceDB) SavePreview(ctx context.Context, id, client string, payload, summary []byte, ttl time.Duration) error {
	expires := time.Now().UTC().Add(ttl)
	_, err := sdb.conn.ExecContext(ctx, `
		INSERT INTO preview_sessions (id, client, payload, summary, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, client, string(payload), string(summary), expires)
	if err != nil {
		return fmt.Errorf("failed to save preview session: %w", err)
	}
	return nil
}

// GetPreview возвращает живую превью-сессию. Истекшие сессии считаются
// отсутствующими и лениво вычищаются.
func (sdb *ServiceDB) GetPreview(ctx context.Context, id string) (*PreviewSession, error) {
	row := sdb.conn.QueryRowContext(ctx, `
		SELECT id, client, payload, summary, created_at, expires_at
		FROM preview_sessions
		WHERE id = ?
	`, id)

	var session PreviewSession
	var payload, summary string
	if err := row.Scan(&session.ID, &session.Client, &payload, &summary, &session.CreatedAt, &session.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPreviewNotFound
		}
		return nil, fmt.Errorf("failed to get preview session: %w", err)
	}

	if time.Now().UTC().After(session.ExpiresAt) {
		_, _ = sdb.conn.ExecContext(ctx, "DELETE FROM preview_sessions WHERE id = ?", id)
		return nil, ErrPreviewNotFound
	}

	session.Payload = []byte(payload)
	session.Summary = []byte(summary)
	return &session, nil
}

// DeletePreview удаляет превью-сессию (после коммита или отмены)
func (sdb *ServiceDB) DeletePreview(ctx context.Context, id string) error {
	if _, err := sdb.conn.ExecContext(ctx, "DELETE FROM preview_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete preview session: %w", err)
	}
	return nil
}

// PurgeExpiredPreviews вычищает все истекшие сессии, возвращает количество удаленных
func (sdb *ServiceDB) PurgeExpiredPreviews(ctx context.Context) (int64, error) {
	res, err := sdb.conn.ExecContext(ctx, "DELETE FROM preview_sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired previews: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged previews: %w", err)
	}
	return purged, nil
}
