package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	objectclient "github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/object-client"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/policy"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

var artifactTypes = map[string]bool{"image": true, "document": true, "code": true, "other": true}

type ArtifactService struct {
	db       core.DbClient
	sessions *SessionService
	storage  core.ObjectClient
	bucket   string
}

// NewArtifactService wires artifact metadata to object storage. storage may
// be nil, in which case uploads fail with core.ErrStorageDisabled.
func NewArtifactService(db core.DbClient, sessions *SessionService, storage core.ObjectClient, bucket string) *ArtifactService {
	return &ArtifactService{db: db, sessions: sessions, storage: storage, bucket: bucket}
}

type UploadArtifactInput struct {
	InteractionID string
	Type          string
	Name          string
	ContentType   string
	Size          int64
	Body          io.Reader
}

func (s *ArtifactService) interactionFor(ctx context.Context, caller core.Principal, action policy.Action, interactionID string) (*models.Interaction, *models.Session, error) {
	in, err := s.db.GetInteraction(ctx, interactionID)
	if err != nil {
		return nil, nil, err
	}
	if in == nil {
		return nil, nil, core.ErrInteractionNotFound
	}
	sess, err := s.sessions.load(ctx, caller, action, in.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return in, sess, nil
}

func (s *ArtifactService) Upload(ctx context.Context, caller core.Principal, in UploadArtifactInput) (*models.Artifact, error) {
	if in.Type == "" {
		in.Type = "other"
	}
	if !artifactTypes[in.Type] {
		return nil, core.Invalid("type", "must be one of image, document, code, other")
	}
	interaction, sess, err := s.interactionFor(ctx, caller, policy.ActionWrite, in.InteractionID)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, core.ErrStorageDisabled
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}

	a := &models.Artifact{
		ID:             uuid.NewString(),
		InteractionID:  interaction.ID,
		SessionID:      sess.ID,
		OrganizationID: sess.OrganizationID,
		Type:           in.Type,
		Name:           in.Name,
		ContentType:    in.ContentType,
		SizeBytes:      in.Size,
		Metadata:       map[string]any{"uploaded_by": caller.UserID},
	}
	key := objectclient.ArtifactKey(sess.OrganizationID, sess.ID, a.ID, in.Name)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, in.Body, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}
	a.StorageURL = url
	a.Metadata["key"] = key

	if err := s.db.CreateArtifact(ctx, a); err != nil {
		// Do not leave an orphaned object behind.
		_ = s.storage.DeleteFile(context.WithoutCancel(ctx), s.bucket, key)
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return a, nil
}

func (s *ArtifactService) List(ctx context.Context, caller core.Principal, interactionID string) ([]models.Artifact, error) {
	if _, _, err := s.interactionFor(ctx, caller, policy.ActionRead, interactionID); err != nil {
		return nil, err
	}
	out, err := s.db.ListArtifactsByInteraction(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Artifact{}
	}
	return out, nil
}

// Open returns the artifact and a reader over its stored bytes. The caller
// closes the reader.
func (s *ArtifactService) Open(ctx context.Context, caller core.Principal, artifactID string) (*models.Artifact, io.ReadCloser, error) {
	a, err := s.db.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, core.ErrArtifactNotFound
	}
	if _, err := s.sessions.load(ctx, caller, policy.ActionRead, a.SessionID); err != nil {
		return nil, nil, err
	}
	if s.storage == nil {
		return nil, nil, core.ErrStorageDisabled
	}

	key, _ := a.Metadata["key"].(string)
	if key == "" {
		key = objectclient.ArtifactKey(a.OrganizationID, a.SessionID, a.ID, a.Name)
	}
	body, err := s.storage.GetObjectReader(ctx, s.bucket, key)
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact: %w", err)
	}
	return a, body, nil
}
