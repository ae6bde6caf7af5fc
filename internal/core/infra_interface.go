package core

import (
	"context"
	"io"
	"time"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// LedgerStore owns organization balances. DeductCredits must check and
// deduct in a single storage-side statement.
type LedgerStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	DeductCredits(ctx context.Context, orgID string, amount int64, reason string) (*models.CreditTransaction, error)
	ListCreditTransactions(ctx context.Context, orgID string, limit int) ([]models.CreditTransaction, error)
}

// ConversationStore persists sessions and their append-only interactions.
type ConversationStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, orgID string, f models.SessionFilter) ([]models.Session, error)
	UpdateSession(ctx context.Context, id string, u models.SessionUpdate, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	TouchSession(ctx context.Context, id, title string, at time.Time) error

	// AppendInteraction assigns the next sequence for the session and stores the row.
	AppendInteraction(ctx context.Context, in *models.Interaction) (int64, error)
	GetInteraction(ctx context.Context, id string) (*models.Interaction, error)
	ListInteractions(ctx context.Context, sessionID string, afterSeq int64, limit int) ([]models.Interaction, error)
	RecentInteractions(ctx context.Context, sessionID string, limit int) ([]models.Interaction, error)
}

type ArtifactStore interface {
	CreateArtifact(ctx context.Context, a *models.Artifact) error
	GetArtifact(ctx context.Context, id string) (*models.Artifact, error)
	ListArtifactsByInteraction(ctx context.Context, interactionID string) ([]models.Artifact, error)
}

// DbClient defines all persistence operations the services need.
type DbClient interface {
	LedgerStore
	ConversationStore
	ArtifactStore

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
