package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

const maxAppendAttempts = 3

const sessionColumns = `id, organization_id, user_id, type, title, metadata, starred, archived, last_sequence, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*models.Session, error) {
	var (
		s    models.Session
		meta string
	)
	if err := r.Scan(&s.ID, &s.OrganizationID, &s.UserID, &s.Type, &s.Title, &meta,
		&s.Starred, &s.Archived, &s.LastSequence, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	s.Metadata = m
	return &s, nil
}

func (c *DatabaseClient) CreateSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	meta, err := encodeMetadata(s.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO sessions
			(id, organization_id, user_id, type, title, metadata, starred, archived, last_sequence, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
	`
	_, err = c.db.ExecContext(ctx, c.q(q),
		s.ID, s.OrganizationID, s.UserID, string(s.Type), s.Title, meta, s.Starred, s.Archived, s.CreatedAt, s.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetSession(ctx context.Context, id string) (*models.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	s, err := scanSession(c.db.QueryRowContext(ctx, c.q(q), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *DatabaseClient) ListSessions(ctx context.Context, orgID string, f models.SessionFilter) ([]models.Session, error) {
	var (
		where = []string{"organization_id = $1"}
		args  = []any{orgID}
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Starred != nil {
		args = append(args, *f.Starred)
		where = append(where, fmt.Sprintf("starred = $%d", len(args)))
	}
	if f.Archived != nil {
		args = append(args, *f.Archived)
		where = append(where, fmt.Sprintf("archived = $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	q := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT $%d OFFSET $%d
	`, sessionColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := c.db.QueryContext(ctx, c.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateSession(ctx context.Context, id string, u models.SessionUpdate, at time.Time) error {
	var (
		sets = []string{"updated_at = $1"}
		args = []any{at}
	)
	if u.Title != nil {
		args = append(args, *u.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if u.Starred != nil {
		args = append(args, *u.Starred)
		sets = append(sets, fmt.Sprintf("starred = $%d", len(args)))
	}
	if u.Archived != nil {
		args = append(args, *u.Archived)
		sets = append(sets, fmt.Sprintf("archived = $%d", len(args)))
	}
	if u.Metadata != nil {
		meta, err := encodeMetadata(u.Metadata)
		if err != nil {
			return err
		}
		args = append(args, meta)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE sessions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := c.db.ExecContext(ctx, c.q(q), args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (c *DatabaseClient) DeleteSession(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	res, err := c.db.ExecContext(ctx, c.q(q), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// TouchSession bumps updated_at and replaces the title only when one is given.
func (c *DatabaseClient) TouchSession(ctx context.Context, id, title string, at time.Time) error {
	const q = `
		UPDATE sessions
		SET updated_at = $2, title = CASE WHEN $3 = '' THEN title ELSE $3 END
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, c.q(q), id, at, title)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// AppendInteraction increments the session counter and inserts the row in one
// transaction. The row lock taken by the UPDATE serializes concurrent appends
// to the same session; UNIQUE(session_id, sequence) backs it up and a
// conflict is retried.
func (c *DatabaseClient) AppendInteraction(ctx context.Context, in *models.Interaction) (int64, error) {
	if in == nil {
		return 0, errors.New("nil interaction")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	meta, err := encodeMetadata(in.Metadata)
	if err != nil {
		return 0, err
	}

	const next = `
		UPDATE sessions
		SET last_sequence = last_sequence + 1, updated_at = $2
		WHERE id = $1
		RETURNING last_sequence
	`
	const insert = `
		INSERT INTO interactions (id, session_id, type, content, metadata, cost_credits, sequence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var lastErr error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		var seq int64
		err := c.withTx(ctx, func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(ctx, c.q(next), in.SessionID, in.CreatedAt).Scan(&seq); err != nil {
				if err == sql.ErrNoRows {
					return core.ErrSessionNotFound
				}
				return fmt.Errorf("next sequence: %w", err)
			}
			_, err := tx.ExecContext(ctx, c.q(insert),
				in.ID, in.SessionID, string(in.Type), in.Content, meta, in.CostCredits, seq, in.CreatedAt)
			return err
		})
		if err == nil {
			in.Sequence = seq
			return seq, nil
		}
		if !isUniqueViolation(err) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("append interaction after %d attempts: %w", maxAppendAttempts, lastErr)
}

const interactionColumns = `id, session_id, type, content, metadata, cost_credits, sequence, created_at`

func scanInteraction(r rowScanner) (*models.Interaction, error) {
	var (
		in   models.Interaction
		meta string
	)
	if err := r.Scan(&in.ID, &in.SessionID, &in.Type, &in.Content, &meta,
		&in.CostCredits, &in.Sequence, &in.CreatedAt); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	in.Metadata = m
	return &in, nil
}

func (c *DatabaseClient) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	q := `SELECT ` + interactionColumns + ` FROM interactions WHERE id = $1`
	in, err := scanInteraction(c.db.QueryRowContext(ctx, c.q(q), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

// ListInteractions returns turns with sequence > afterSeq in replay order.
func (c *DatabaseClient) ListInteractions(ctx context.Context, sessionID string, afterSeq int64, limit int) ([]models.Interaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + interactionColumns + `
		FROM interactions
		WHERE session_id = $1 AND sequence > $2
		ORDER BY sequence ASC
		LIMIT $3`
	return c.queryInteractions(ctx, q, sessionID, afterSeq, limit)
}

// RecentInteractions returns the last limit turns, oldest first.
func (c *DatabaseClient) RecentInteractions(ctx context.Context, sessionID string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := `SELECT ` + interactionColumns + ` FROM (
			SELECT ` + interactionColumns + `
			FROM interactions
			WHERE session_id = $1
			ORDER BY sequence DESC
			LIMIT $2
		) recent
		ORDER BY sequence ASC`
	return c.queryInteractions(ctx, q, sessionID, limit)
}

func (c *DatabaseClient) queryInteractions(ctx context.Context, q string, args ...any) ([]models.Interaction, error) {
	rows, err := c.db.QueryContext(ctx, c.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}
