package services

import (
	"context"
	"strings"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/policy"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// SessionAuthorizer decides whether caller may act on a session. It returns
// core.ErrSessionNotFound for sessions the caller cannot see and
// core.ErrForbidden when the session is visible but the action is not allowed.
type SessionAuthorizer interface {
	AuthorizeSession(ctx context.Context, action policy.Action, caller core.Principal, s *models.Session) error
}

type SessionService struct {
	store        core.ConversationStore
	conversation *ConversationService
	authz        SessionAuthorizer
}

func NewSessionService(store core.ConversationStore, conversation *ConversationService, authz SessionAuthorizer) *SessionService {
	return &SessionService{store: store, conversation: conversation, authz: authz}
}

type CreateSessionInput struct {
	Type     models.SessionType `json:"type"`
	Title    string             `json:"title"`
	Metadata map[string]any     `json:"metadata"`
}

func (s *SessionService) Create(ctx context.Context, caller core.Principal, in CreateSessionInput) (*models.Session, error) {
	if in.Type == "" {
		in.Type = models.SessionTypeChat
	}
	if !in.Type.Valid() {
		return nil, core.Invalid("type", "must be one of chat, sandbox, agent, other")
	}
	id, _, err := s.conversation.EnsureSession(ctx, EnsureSessionInput{
		OrganizationID: caller.OrganizationID,
		UserID:         caller.UserID,
		Type:           in.Type,
		SeedTitle:      in.Title,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return s.store.GetSession(ctx, id)
}

func (s *SessionService) List(ctx context.Context, caller core.Principal, f models.SessionFilter) ([]models.Session, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, core.Invalid("type", "must be one of chat, sandbox, agent, other")
	}
	out, err := s.store.ListSessions(ctx, caller.OrganizationID, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Session{}
	}
	return out, nil
}

// load fetches a session and runs it through the access policy.
func (s *SessionService) load(ctx context.Context, caller core.Principal, action policy.Action, id string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeSession(ctx, action, caller, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

type SessionWithInteractions struct {
	*models.Session
	Interactions []models.Interaction `json:"interactions"`
}

func (s *SessionService) Get(ctx context.Context, caller core.Principal, id string) (*SessionWithInteractions, error) {
	sess, err := s.load(ctx, caller, policy.ActionRead, id)
	if err != nil {
		return nil, err
	}
	turns, err := s.store.ListInteractions(ctx, id, 0, 500)
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []models.Interaction{}
	}
	return &SessionWithInteractions{Session: sess, Interactions: turns}, nil
}

func (s *SessionService) Update(ctx context.Context, caller core.Principal, id string, u models.SessionUpdate) (*models.Session, error) {
	if _, err := s.load(ctx, caller, policy.ActionUpdate, id); err != nil {
		return nil, err
	}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		u.Title = &t
	}
	if err := s.store.UpdateSession(ctx, id, u, s.conversation.now()); err != nil {
		return nil, err
	}
	return s.store.GetSession(ctx, id)
}

func (s *SessionService) Delete(ctx context.Context, caller core.Principal, id string) error {
	if _, err := s.load(ctx, caller, policy.ActionDelete, id); err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, id)
}

func (s *SessionService) ListInteractions(ctx context.Context, caller core.Principal, id string, afterSeq int64, limit int) ([]models.Interaction, error) {
	if _, err := s.load(ctx, caller, policy.ActionRead, id); err != nil {
		return nil, err
	}
	out, err := s.store.ListInteractions(ctx, id, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Interaction{}
	}
	return out, nil
}

type AppendInteractionInput struct {
	Type     models.InteractionType `json:"type"`
	Content  string                 `json:"content"`
	Metadata map[string]any         `json:"metadata"`
}

// AppendInteraction records a turn outside the chat pipeline. Such turns are
// never charged.
func (s *SessionService) AppendInteraction(ctx context.Context, caller core.Principal, id string, in AppendInteractionInput) (*models.Interaction, error) {
	if _, err := s.load(ctx, caller, policy.ActionWrite, id); err != nil {
		return nil, err
	}
	return s.conversation.AppendInteraction(ctx, id, in.Type, in.Content, in.Metadata, 0)
}
