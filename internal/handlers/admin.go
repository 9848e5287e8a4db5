package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/onboardhq/apiserver/internal/services"
	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
)

// AdminHandler provides the admin reporting and account endpoints.
type AdminHandler struct {
	users    *services.UserService
	progress *services.ProgressService
}

// NewAdminHandler constructs a handler with the provided services.
func NewAdminHandler(users *services.UserService, progress *services.ProgressService) *AdminHandler {
	return &AdminHandler{users: users, progress: progress}
}

// AdminRouter registers admin routes on the given router. All routes
// require an authenticated admin.
func AdminRouter(r chi.Router, users *services.UserService, progress *services.ProgressService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAdminHandler(users, progress)

	r.Use(authMiddleware, RequireAdmin)
	r.Get("/progress", handler.ListProgress)
	r.Get("/users", handler.ListUsers)
	r.Post("/users", handler.CreateUser)
}

// RequireAdmin rejects non-admin callers with 403. It is a pure predicate
// over the identity already resolved by the auth middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := identityFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !strings.EqualFold(identity.Role, types.RoleAdmin) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListProgress returns every user's progress joined with user metadata.
func (h *AdminHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	records, err := h.progress.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list progress")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListUsers returns all accounts. Password hashes are never serialized.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type CreatedUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CreateUserResponse struct {
	Success bool        `json:"success"`
	User    CreatedUser `json:"user"`
}

// CreateUser registers a staff account. Duplicate emails fail with 400 and
// leave the store unchanged.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, CreateUserResponse{
		Success: true,
		User:    CreatedUser{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}
