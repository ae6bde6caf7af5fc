package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

func (c *DatabaseClient) CreateArtifact(ctx context.Context, a *models.Artifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	meta, err := encodeMetadata(a.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO artifacts
			(id, interaction_id, session_id, organization_id, type, name, storage_url, content_type, size_bytes, metadata, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = c.db.ExecContext(ctx, c.q(q),
		a.ID, a.InteractionID, a.SessionID, a.OrganizationID, a.Type, a.Name, a.StorageURL,
		a.ContentType, a.SizeBytes, meta, a.CreatedAt)
	return err
}

const artifactColumns = `id, interaction_id, session_id, organization_id, type, name, storage_url, content_type, size_bytes, metadata, created_at`

func scanArtifact(r rowScanner) (*models.Artifact, error) {
	var (
		a    models.Artifact
		meta string
	)
	if err := r.Scan(&a.ID, &a.InteractionID, &a.SessionID, &a.OrganizationID, &a.Type, &a.Name,
		&a.StorageURL, &a.ContentType, &a.SizeBytes, &meta, &a.CreatedAt); err != nil {
		return nil, err
	}
	m, err := decodeMetadata(meta)
	if err != nil {
		return nil, err
	}
	a.Metadata = m
	return &a, nil
}

// GetArtifact returns nil, nil when no artifact has the id.
func (c *DatabaseClient) GetArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	q := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`
	a, err := scanArtifact(c.db.QueryRowContext(ctx, c.q(q), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (c *DatabaseClient) ListArtifactsByInteraction(ctx context.Context, interactionID string) ([]models.Artifact, error) {
	q := `SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE interaction_id = $1
		ORDER BY created_at ASC, id`
	rows, err := c.db.QueryContext(ctx, c.q(q), interactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
