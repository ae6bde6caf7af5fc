package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

const maxTitleRunes = 60

// ConversationService is the append-only conversation log.
type ConversationService struct {
	store core.ConversationStore
	now   func() time.Time
}

func NewConversationService(store core.ConversationStore) *ConversationService {
	return &ConversationService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

type EnsureSessionInput struct {
	OrganizationID string
	UserID         string
	Type           models.SessionType
	SeedTitle      string
	Metadata       map[string]any
	ExistingID     string
}

// EnsureSession reuses ExistingID when it names a session of the same
// organization and creates a new session otherwise. created reports which.
func (s *ConversationService) EnsureSession(ctx context.Context, in EnsureSessionInput) (id string, created bool, err error) {
	if in.ExistingID != "" {
		existing, err := s.store.GetSession(ctx, in.ExistingID)
		if err != nil {
			return "", false, err
		}
		if existing != nil && existing.OrganizationID == in.OrganizationID {
			return existing.ID, false, nil
		}
	}

	typ := in.Type
	if typ == "" {
		typ = models.SessionTypeChat
	}
	if !typ.Valid() {
		return "", false, core.Invalid("type", "unknown session type")
	}
	now := s.now()
	sess := &models.Session{
		OrganizationID: in.OrganizationID,
		UserID:         in.UserID,
		Type:           typ,
		Title:          TitleFrom(in.SeedTitle),
		Metadata:       in.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", false, err
	}
	return sess.ID, true, nil
}

// Append stores one turn and returns its sequence number.
func (s *ConversationService) Append(ctx context.Context, sessionID string, typ models.InteractionType, content string, metadata map[string]any, cost int64) (int64, error) {
	in, err := s.AppendInteraction(ctx, sessionID, typ, content, metadata, cost)
	if err != nil {
		return 0, err
	}
	return in.Sequence, nil
}

// AppendInteraction is Append returning the stored row. User turns are
// never charged.
func (s *ConversationService) AppendInteraction(ctx context.Context, sessionID string, typ models.InteractionType, content string, metadata map[string]any, cost int64) (*models.Interaction, error) {
	if !typ.Valid() {
		return nil, core.Invalid("type", "unknown interaction type")
	}
	if cost < 0 {
		return nil, core.Invalid("cost_credits", "must not be negative")
	}
	if typ == models.InteractionUserMessage {
		cost = 0
	}
	in := &models.Interaction{
		SessionID:   sessionID,
		Type:        typ,
		Content:     content,
		Metadata:    metadata,
		CostCredits: cost,
		CreatedAt:   s.now(),
	}
	if _, err := s.store.AppendInteraction(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// Touch bumps updated_at and sets the title when latestTitle is non-empty.
func (s *ConversationService) Touch(ctx context.Context, sessionID, latestTitle string) error {
	return s.store.TouchSession(ctx, sessionID, latestTitle, s.now())
}

// History returns up to limit of the most recent user and assistant turns
// as provider messages, oldest first.
func (s *ConversationService) History(ctx context.Context, sessionID string, limit int) ([]core.Message, error) {
	turns, err := s.store.RecentInteractions(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	var out []core.Message
	for _, t := range turns {
		switch t.Type {
		case models.InteractionUserMessage:
			out = append(out, core.Message{Role: core.RoleUser, Content: t.Content})
		case models.InteractionAssistantMessage:
			out = append(out, core.Message{Role: core.RoleAssistant, Content: t.Content})
		}
	}
	return out, nil
}

// TitleFrom derives a session title from a message.
func TitleFrom(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	r := []rune(title)
	return strings.TrimSpace(string(r[:maxTitleRunes])) + "…"
}
