package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/onboardhq/apiserver/internal/storage"
	"github.com/onboardhq/apiserver/types"
)

const maxMaterialBytes = 32 << 20

// MaterialHandler serves the policy document attached to each section.
type MaterialHandler struct {
	materials *storage.Materials
}

// NewMaterialHandler constructs a handler with the provided store.
func NewMaterialHandler(materials *storage.Materials) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// MaterialRouter registers download routes for authenticated callers and
// the upload route for admins. Only registered when object storage is
// configured.
func MaterialRouter(r chi.Router, materials *storage.Materials, authMiddleware func(http.Handler) http.Handler) {
	handler := NewMaterialHandler(materials)

	r.With(authMiddleware).Get("/sections/{sectionID}/material", handler.Download)
	r.With(authMiddleware, RequireAdmin).Post("/admin/sections/{sectionID}/material", handler.Upload)
}

// Download streams the section's material to the caller.
func (h *MaterialHandler) Download(w http.ResponseWriter, r *http.Request) {
	sectionID, err := parseSectionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.materials.Get(r.Context(), sectionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("section-%d-material", sectionID)))
	if _, err := io.Copy(w, reader); err != nil {
		return
	}
}

// Upload replaces the section's material with the uploaded file.
func (h *MaterialHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sectionID, err := parseSectionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMaterialBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := h.materials.Put(r.Context(), sectionID, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store material")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func parseSectionID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "sectionID")
	id, err := strconv.Atoi(raw)
	if err != nil || !types.ValidSection(id) {
		return 0, errors.New("invalid section id")
	}
	return id, nil
}
