package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core/relay"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type State string

const (
	StateValidating           State = "validating"
	StateAuthenticating       State = "authenticating"
	StatePricing              State = "pricing"
	StateReserving            State = "reserving"
	StateSessionResolving     State = "session_resolving"
	StateLoggingUserTurn      State = "logging_user_turn"
	StateStreaming            State = "streaming"
	StateLoggingAssistantTurn State = "logging_assistant_turn"
	StateDone                 State = "done"
)

// AbortError is returned when a chat run stops before anything was streamed.
type AbortError struct {
	State State
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("chat aborted in %s: %v", e.State, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message      string        `json:"message"`
	UseWebSearch bool          `json:"useWebSearch"`
	History      []HistoryTurn `json:"history"`
	SessionID    *string       `json:"sessionId"`
}

// ResponseSink is the caller's outbound stream. Begin is called once, right
// before the first chunk; after it no error is returned to the caller.
type ResponseSink interface {
	Begin(sessionID string) error
	Write(chunk string) error
}

type ChatConfig struct {
	Model        string
	SearchModel  string
	SystemPrompt string
	HistoryLimit int
	Prices       PriceTable
}

// ChatOutcome describes a run that reached streaming.
type ChatOutcome struct {
	SessionID         string
	SessionCreated    bool
	Cost              int64
	Balance           int64
	UserSequence      int64
	AssistantSequence int64
	Result            relay.Result
	ClientGone        bool
}

type ChatService struct {
	identity     *IdentityService
	ledger       *LedgerService
	conversation *ConversationService
	relay        *relay.Relay
	providerName string
	providerErr  error
	side         *SideChannel
	cfg          ChatConfig
	log          *slog.Logger
}

type ChatDeps struct {
	Identity     *IdentityService
	Ledger       *LedgerService
	Conversation *ConversationService
	Provider     core.LLMProvider
	// ProviderErr is the error from building Provider; it fails every run
	// with a configuration error before any billing happens.
	ProviderErr error
	Side        *SideChannel
	Log         *slog.Logger
}

func NewChatService(deps ChatDeps, cfg ChatConfig) *ChatService {
	s := &ChatService{
		identity:     deps.Identity,
		ledger:       deps.Ledger,
		conversation: deps.Conversation,
		providerErr:  deps.ProviderErr,
		side:         deps.Side,
		cfg:          cfg,
		log:          deps.Log,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.side == nil {
		s.side = NewSideChannel(s.log, 0)
	}
	if deps.Provider != nil {
		s.relay = relay.New(deps.Provider)
		s.providerName = deps.Provider.Name()
	} else if s.providerErr == nil {
		s.providerErr = fmt.Errorf("no LLM provider configured: %w", core.ErrConfiguration)
	}
	return s
}

// Run executes one chat turn. It returns an *AbortError when the run stops
// before sink.Begin; from Begin on, failures degrade into a partial outcome.
func (s *ChatService) Run(ctx context.Context, req ChatRequest, sink ResponseSink) (*ChatOutcome, error) {
	log := s.log
	enter := func(st State) { log.DebugContext(ctx, "chat_state", "state", string(st)) }
	abort := func(st State, err error) (*ChatOutcome, error) {
		log.InfoContext(ctx, "chat_aborted", "state", string(st), "error", err)
		return nil, &AbortError{State: st, Err: err}
	}

	enter(StateValidating)
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return abort(StateValidating, core.Invalid("message", "is required"))
	}
	prior, err := historyFromRequest(req.History)
	if err != nil {
		return abort(StateValidating, err)
	}

	enter(StateAuthenticating)
	principal, _, err := s.identity.Resolve(ctx)
	if err != nil {
		return abort(StateAuthenticating, err)
	}
	log = log.With("organization_id", principal.OrganizationID, "user_id", principal.UserID)

	enter(StatePricing)
	if s.providerErr != nil {
		return abort(StatePricing, s.providerErr)
	}
	cost := s.cfg.Prices.Price(Features{WebSearch: req.UseWebSearch})

	enter(StateReserving)
	reason := "chat"
	if req.UseWebSearch {
		reason = "chat_web_search"
	}
	reservation, err := s.ledger.Reserve(ctx, principal.OrganizationID, cost, reason)
	if err != nil {
		return abort(StateReserving, err)
	}
	out := &ChatOutcome{Cost: cost, Balance: reservation.NewBalance}

	enter(StateSessionResolving)
	existing := ""
	if req.SessionID != nil {
		existing = strings.TrimSpace(*req.SessionID)
	}
	_ = s.side.Do(ctx, "ensure_session", existing, func(ctx context.Context) error {
		id, created, err := s.conversation.EnsureSession(ctx, EnsureSessionInput{
			OrganizationID: principal.OrganizationID,
			UserID:         principal.UserID,
			Type:           models.SessionTypeChat,
			SeedTitle:      message,
			Metadata:       map[string]any{"source": "chat"},
			ExistingID:     existing,
		})
		if err != nil {
			return err
		}
		out.SessionID, out.SessionCreated = id, created
		return nil
	})

	if len(prior) == 0 && out.SessionID != "" && !out.SessionCreated && s.cfg.HistoryLimit > 0 {
		_ = s.side.Do(ctx, "load_history", out.SessionID, func(ctx context.Context) error {
			h, err := s.conversation.History(ctx, out.SessionID, s.cfg.HistoryLimit)
			prior = h
			return err
		})
	}
	if s.cfg.HistoryLimit > 0 && len(prior) > s.cfg.HistoryLimit {
		prior = prior[len(prior)-s.cfg.HistoryLimit:]
	}

	enter(StateLoggingUserTurn)
	if out.SessionID != "" {
		_ = s.side.Do(ctx, "append_user_turn", out.SessionID, func(ctx context.Context) error {
			seq, err := s.conversation.Append(ctx, out.SessionID, models.InteractionUserMessage, message,
				map[string]any{"web_search": req.UseWebSearch, "user_id": principal.UserID}, 0)
			out.UserSequence = seq
			return err
		})
	}

	// Existing sessions keep their title.
	title := ""
	if out.SessionCreated {
		title = TitleFrom(message)
	}

	enter(StateStreaming)
	model := s.cfg.Model
	if req.UseWebSearch && s.cfg.SearchModel != "" {
		model = s.cfg.SearchModel
	}
	stream, err := s.relay.Open(ctx, relay.Request{
		Model:          model,
		WebSearch:      req.UseWebSearch,
		SystemPreamble: s.cfg.SystemPrompt,
		Prior:          prior,
		UserTurn:       message,
	})
	if err != nil {
		// Nothing was sent yet. Keep a record of the charge before failing.
		s.persistAssistantTurn(ctx, out, model, req.UseWebSearch, relay.Result{Partial: true, Err: err}, title)
		return abort(StateStreaming, err)
	}

	if err := sink.Begin(out.SessionID); err != nil {
		out.ClientGone = true
	}
	for !out.ClientGone {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		if err := sink.Write(chunk); err != nil {
			out.ClientGone = true
		}
	}
	_ = stream.Close()
	out.Result = stream.Result()
	if out.Result.Footer != "" && !out.ClientGone {
		if err := sink.Write(out.Result.Footer); err != nil {
			out.ClientGone = true
		}
	}
	if out.Result.Partial {
		log.WarnContext(ctx, "stream_partial", "session_id", out.SessionID, "chunks", out.Result.Chunks, "error", out.Result.Err)
	}

	enter(StateLoggingAssistantTurn)
	s.persistAssistantTurn(ctx, out, model, req.UseWebSearch, out.Result, title)

	enter(StateDone)
	return out, nil
}

// persistAssistantTurn logs the streamed result even when the caller has
// gone away; the credits were already spent.
func (s *ChatService) persistAssistantTurn(ctx context.Context, out *ChatOutcome, model string, webSearch bool, res relay.Result, title string) {
	if out.SessionID == "" {
		return
	}
	persistCtx := context.WithoutCancel(ctx)

	citations := res.Citations
	if citations == nil {
		citations = []models.Citation{}
	}
	meta := map[string]any{
		"model":      model,
		"provider":   s.providerName,
		"web_search": webSearch,
		"citations":  citations,
		"partial":    res.Partial,
		"chunks":     res.Chunks,
	}
	if res.Err != nil {
		meta["error"] = errorSummary(res.Err)
	}

	_ = s.side.Do(persistCtx, "append_assistant_turn", out.SessionID, func(ctx context.Context) error {
		seq, err := s.conversation.Append(ctx, out.SessionID, models.InteractionAssistantMessage,
			res.Text+res.Footer, meta, out.Cost)
		out.AssistantSequence = seq
		return err
	})

	sessionID := out.SessionID
	s.side.Go(persistCtx, "touch_session", sessionID, func(ctx context.Context) error {
		return s.conversation.Touch(ctx, sessionID, title)
	})
}

func historyFromRequest(turns []HistoryTurn) ([]core.Message, error) {
	out := make([]core.Message, 0, len(turns))
	for i, t := range turns {
		var role core.Role
		switch strings.ToLower(t.Role) {
		case "user":
			role = core.RoleUser
		case "assistant":
			role = core.RoleAssistant
		default:
			return nil, core.Invalid(fmt.Sprintf("history[%d].role", i), "must be user or assistant")
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, core.Message{Role: role, Content: t.Content})
	}
	return out, nil
}

// errorSummary keeps provider detail out of stored metadata beyond the
// outermost message.
func errorSummary(err error) string {
	switch {
	case errors.Is(err, relay.ErrStopped):
		return "client disconnected"
	case errors.Is(err, core.ErrUpstream):
		return "upstream failed before streaming"
	default:
		return err.Error()
	}
}
