package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/pplx/internal/provider"
	"github.com/flemzord/pplx/internal/session"
)

// Store implements session.Store on SQLite. Names are stored without the
// .json extension used by the file backend, but lookups accept either form.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

// session.Store carries no context; queries run under a background context.
func (s *Store) ctx() context.Context {
	return context.Background()
}

// Save upserts the session under name and replaces its messages.
func (s *Store) Save(name string, sess session.Session) (string, error) {
	if err := session.ValidateName(name); err != nil {
		return "", err
	}

	now := s.now().UTC()
	if name == "" {
		name = session.DefaultName(now)
	}
	name = normalize(name)
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}

	ctx := s.ctx()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlite: begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM sessions WHERE name = ?", name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (id, name, model, created_at, saved_at) VALUES (?, ?, ?, ?, ?)",
			id, name, sess.Model, formatTime(sess.CreatedAt), formatTime(now),
		); err != nil {
			return "", fmt.Errorf("sqlite: insert session: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("sqlite: lookup session: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			"UPDATE sessions SET model = ?, created_at = ?, saved_at = ? WHERE id = ?",
			sess.Model, formatTime(sess.CreatedAt), formatTime(now), id,
		); err != nil {
			return "", fmt.Errorf("sqlite: update session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", id); err != nil {
			return "", fmt.Errorf("sqlite: clear messages: %w", err)
		}
	}

	for i, m := range sess.Messages {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)",
			id, i+1, string(m.Role), m.Content,
		); err != nil {
			return "", fmt.Errorf("sqlite: insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlite: commit save: %w", err)
	}

	s.logger.Debug("session saved", "name", name, "id", id, "messages", len(sess.Messages))
	return name, nil
}

// Load returns the session stored under name.
func (s *Store) Load(name string) (session.Session, error) {
	if name == "" {
		return session.Session{}, fmt.Errorf("sqlite: name is required")
	}
	ctx := s.ctx()

	var (
		id                 string
		sess               session.Session
		createdAt, savedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, model, created_at, saved_at FROM sessions WHERE name = ?", normalize(name),
	).Scan(&id, &sess.Model, &createdAt, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, fmt.Errorf("%w: %s", session.ErrNotFound, name)
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("sqlite: load session: %w", err)
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return session.Session{}, err
	}
	if sess.SavedAt, err = parseTime(savedAt); err != nil {
		return session.Session{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq ASC", id)
	if err != nil {
		return session.Session{}, fmt.Errorf("sqlite: load messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sess.Messages = []provider.LLMMessage{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return session.Session{}, fmt.Errorf("sqlite: scan message: %w", err)
		}
		sess.Messages = append(sess.Messages, provider.LLMMessage{Role: provider.MessageRole(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return session.Session{}, fmt.Errorf("sqlite: load messages rows: %w", err)
	}
	return sess, nil
}

// List returns all sessions, most recently saved first.
func (s *Store) List() ([]session.Info, error) {
	ctx := s.ctx()
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.model, s.created_at, s.saved_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
		       COALESCE((SELECT content FROM messages m
		                 WHERE m.session_id = s.id AND m.role = 'user'
		                 ORDER BY m.seq ASC LIMIT 1), '')
		FROM sessions s
		ORDER BY s.saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []session.Info
	for rows.Next() {
		var (
			info               session.Info
			createdAt, savedAt string
			firstUser          string
		)
		if err := rows.Scan(&info.Name, &info.Model, &createdAt, &savedAt, &info.MessageCount, &firstUser); err != nil {
			return nil, fmt.Errorf("sqlite: scan session: %w", err)
		}
		if info.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if info.SavedAt, err = parseTime(savedAt); err != nil {
			return nil, err
		}
		if firstUser != "" {
			info.Preview = session.Preview([]provider.LLMMessage{{Role: provider.MessageRoleUser, Content: firstUser}})
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list rows: %w", err)
	}
	return infos, nil
}

// Delete removes the session and its messages.
func (s *Store) Delete(name string) error {
	res, err := s.db.ExecContext(s.ctx(), "DELETE FROM sessions WHERE name = ?", normalize(name))
	if err != nil {
		return fmt.Errorf("sqlite: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", session.ErrNotFound, name)
	}
	return nil
}

func normalize(name string) string {
	return strings.TrimSuffix(name, ".json")
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
