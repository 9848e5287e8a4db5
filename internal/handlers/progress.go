package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/onboardhq/apiserver/internal/services"
)

// ProgressHandler provides HTTP handlers for a user's own progress.
type ProgressHandler struct {
	progress *services.ProgressService
}

// NewProgressHandler constructs a handler with the provided service.
func NewProgressHandler(progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// ProgressRouter registers progress routes on the given router. All routes
// require an authenticated caller.
func ProgressRouter(r chi.Router, progress *services.ProgressService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewProgressHandler(progress)

	r.Use(authMiddleware)
	r.Get("/", handler.GetProgress)
	r.Post("/", handler.AcknowledgeSection)
}

// GetProgress returns the caller's progress record, creating the default
// record on first access.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	record, err := h.progress.Get(r.Context(), identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type AcknowledgeRequest struct {
	SectionID    int  `json:"sectionId"`
	Acknowledged bool `json:"acknowledged"`
}

// AcknowledgeSection records the caller's acknowledgment of a section and
// returns the updated record.
func (h *ProgressHandler) AcknowledgeSection(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	record, err := h.progress.Acknowledge(r.Context(), identity.ID, req.SectionID, req.Acknowledged)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSection) {
			writeError(w, http.StatusBadRequest, "invalid section id")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save progress")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
