package handlers

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

const maxUploadBytes = 32 << 20

type ArtifactHandler struct {
	artifacts *services.ArtifactService
	log       *slog.Logger
}

func NewArtifactHandler(artifacts *services.ArtifactService, log *slog.Logger) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts, log: log}
}

// Upload stores a multipart "file" as an artifact of the interaction in the
// URL. The optional "type" field classifies it.
func (h *ArtifactHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, r, h.log, core.Invalid("file", "invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, h.log, core.Invalid("file", "is required"))
		return
	}
	defer file.Close()

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	a, err := h.artifacts.Upload(uploadCtx, p, services.UploadArtifactInput{
		InteractionID: chi.URLParam(r, "id"),
		Type:          r.FormValue("type"),
		Name:          filepath.Base(header.Filename),
		ContentType:   header.Header.Get("Content-Type"),
		Size:          header.Size,
		Body:          file,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	out, err := h.artifacts.List(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Download streams the stored bytes of an artifact.
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	a, body, err := h.artifacts.Open(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer body.Close()

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.WarnContext(r.Context(), "artifact_download_interrupted", "artifact_id", a.ID, "error", err)
	}
}
