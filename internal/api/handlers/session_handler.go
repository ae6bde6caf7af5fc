package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

type SessionHandler struct {
	sessions *services.SessionService
	log      *slog.Logger
}

func NewSessionHandler(sessions *services.SessionService, log *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	f := models.SessionFilter{Type: models.SessionType(r.URL.Query().Get("type"))}
	if f.Starred, err = queryBool(r, "starred"); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if f.Archived, err = queryBool(r, "archived"); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if f.Limit, err = queryInt(r, "limit", 50); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	out, err := h.sessions.List(r.Context(), p, f)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var in services.CreateSessionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), p, in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	sess, err := h.sessions.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var u models.SessionUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	sess, err := h.sessions.Update(r.Context(), p, chi.URLParam(r, "id"), u)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.sessions.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	after, err := queryInt(r, "after", 0)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	out, err := h.sessions.ListInteractions(r.Context(), p, chi.URLParam(r, "id"), int64(after), limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) AppendInteraction(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var in services.AppendInteractionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	out, err := h.sessions.AppendInteraction(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}
