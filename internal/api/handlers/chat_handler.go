package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
	log  *slog.Logger
}

func NewChatHandler(chat *services.ChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

// Chat runs one credit-gated turn and streams the answer as plain text.
// Failures before the first byte are JSON errors; after it the body is just
// closed.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	sink := newStreamSink(r.Context(), w)
	out, err := h.chat.Run(r.Context(), req, sink)
	if err != nil {
		if !sink.began {
			respondError(w, r, h.log, err)
			return
		}
		h.log.ErrorContext(r.Context(), "chat_failed_after_commit", "error", err)
		return
	}

	h.log.InfoContext(r.Context(), "chat_completed",
		"session_id", out.SessionID,
		"cost", out.Cost,
		"balance", out.Balance,
		"chunks", out.Result.Chunks,
		"partial", out.Result.Partial,
		"client_gone", out.ClientGone,
	)
}

var errClientGone = errors.New("client disconnected")

// streamSink commits the response on Begin and flushes after every chunk.
type streamSink struct {
	ctx   context.Context
	w     http.ResponseWriter
	rc    *http.ResponseController
	began bool
}

func newStreamSink(ctx context.Context, w http.ResponseWriter) *streamSink {
	return &streamSink{ctx: ctx, w: w, rc: http.NewResponseController(w)}
}

func (s *streamSink) Begin(sessionID string) error {
	s.began = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Session-Id", sessionID)
	s.w.WriteHeader(http.StatusOK)
	return s.flush()
}

func (s *streamSink) Write(chunk string) error {
	if s.ctx.Err() != nil {
		return errClientGone
	}
	if _, err := io.WriteString(s.w, chunk); err != nil {
		return err
	}
	return s.flush()
}

func (s *streamSink) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
