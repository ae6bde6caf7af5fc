package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	db "github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/database"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/llm"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/policy"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

var errSinkClosed = errors.New("client went away")

type scriptedProvider struct {
	mu       sync.Mutex
	deltas   []*core.Delta
	err      error
	openErr  error
	requests []*core.CompletionRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) StreamCompletion(ctx context.Context, req *core.CompletionRequest) (core.CompletionStream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	return llm.NewSliceStream(ctx, p.deltas, p.err), nil
}

func (p *scriptedProvider) lastRequest() *core.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

func textDeltas(chunks ...string) []*core.Delta {
	out := make([]*core.Delta, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, &core.Delta{Text: c})
	}
	return out
}

type recordingSink struct {
	began     bool
	sessionID string
	chunks    []string
	// failAfter > 0 makes the Nth write and everything after it fail.
	failAfter int
}

func (s *recordingSink) Begin(sessionID string) error {
	s.began = true
	s.sessionID = sessionID
	return nil
}

func (s *recordingSink) Write(chunk string) error {
	if s.failAfter > 0 && len(s.chunks)+1 >= s.failAfter {
		return errSinkClosed
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *recordingSink) body() string { return strings.Join(s.chunks, "") }

type testEnv struct {
	db           *db.DatabaseClient
	org          *models.Organization
	principal    core.Principal
	ctx          context.Context
	side         *SideChannel
	ledger       *LedgerService
	conversation *ConversationService
	identity     *IdentityService
	sessions     *SessionService

	mu       sync.Mutex
	warnings []Warning
}

func newTestEnv(t *testing.T, balance int64) *testEnv {
	t.Helper()
	client, err := db.NewSQLiteClient(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	org := &models.Organization{Name: "acme", CreditBalance: balance}
	require.NoError(t, client.CreateOrganization(context.Background(), org))

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		db:        client,
		org:       org,
		principal: core.Principal{UserID: "user-1", OrganizationID: org.ID},
		side:      NewSideChannel(log, 0),
	}
	env.side.OnWarning = func(w Warning) {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.warnings = append(env.warnings, w)
	}
	t.Cleanup(env.side.Wait)

	env.ctx = core.WithPrincipal(context.Background(), env.principal)
	env.ledger = NewLedgerService(client, log)
	env.conversation = NewConversationService(client)
	env.identity = NewIdentityService(client)
	env.sessions = NewSessionService(client, env.conversation, engine)
	return env
}

func (e *testEnv) chat(provider core.LLMProvider, prices PriceTable) *ChatService {
	return NewChatService(ChatDeps{
		Identity:     e.identity,
		Ledger:       e.ledger,
		Conversation: e.conversation,
		Provider:     provider,
		Side:         e.side,
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, ChatConfig{
		Model:        "chat-model",
		SearchModel:  "search-model",
		SystemPrompt: "be helpful",
		HistoryLimit: 10,
		Prices:       prices,
	})
}

func (e *testEnv) balance(t *testing.T) int64 {
	t.Helper()
	org, err := e.db.GetOrganization(context.Background(), e.org.ID)
	require.NoError(t, err)
	return org.CreditBalance
}

func (e *testEnv) interactions(t *testing.T, sessionID string) []models.Interaction {
	t.Helper()
	list, err := e.db.ListInteractions(context.Background(), sessionID, 0, 100)
	require.NoError(t, err)
	return list
}

func (e *testEnv) warningOps() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ops []string
	for _, w := range e.warnings {
		ops = append(ops, w.Op)
	}
	return ops
}

var defaultPrices = PriceTable{ChatBase: 1, WebSearch: 1}
