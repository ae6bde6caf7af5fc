package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes {"error": msg}. Only messages meant for callers leave
// the process; everything unclassified is logged and reported as a 500.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request_failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	respondJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var abort *services.AbortError
	if errors.As(err, &abort) {
		err = abort.Err
	}
	var invalid *core.ValidationError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrConfiguration):
		return http.StatusBadRequest, core.ErrConfiguration.Error()
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, core.ErrInsufficientCredits):
		return http.StatusPaymentRequired, core.ErrInsufficientCredits.Error()
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, core.ErrForbidden.Error()
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound, core.ErrSessionNotFound.Error()
	case errors.Is(err, core.ErrInteractionNotFound):
		return http.StatusNotFound, core.ErrInteractionNotFound.Error()
	case errors.Is(err, core.ErrArtifactNotFound):
		return http.StatusNotFound, core.ErrArtifactNotFound.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, core.ErrNotFound.Error()
	case errors.Is(err, core.ErrStorageDisabled):
		return http.StatusServiceUnavailable, core.ErrStorageDisabled.Error()
	case errors.Is(err, core.ErrUpstream):
		return http.StatusInternalServerError, core.ErrUpstream.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.Invalid("body", "invalid JSON")
	}
	return nil
}

func principal(r *http.Request) (core.Principal, error) {
	p, ok := core.PrincipalFromContext(r.Context())
	if !ok {
		return core.Principal{}, core.ErrUnauthenticated
	}
	return p, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, core.Invalid(key, "must be a non-negative integer")
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.Invalid(key, "must be true or false")
	}
	return &b, nil
}
