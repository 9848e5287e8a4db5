package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/onboardhq/apiserver/internal/services"
	"github.com/onboardhq/apiserver/types"
)

// SessionCookie is the name of the opaque session cookie.
const SessionCookie = "onboarding_session"

// AuthHandler provides cookie-session authentication endpoints.
type AuthHandler struct {
	users    *services.UserService
	sessions *services.SessionService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(users *services.UserService, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users *services.UserService, sessions *services.SessionService) {
	handler := NewAuthHandler(users, sessions)

	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/session", handler.Session)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(users *services.UserService, sessions *services.SessionService) func(http.Handler) http.Handler {
	return NewAuthHandler(users, sessions).RequireAuth
}

// RequireAuth resolves the session cookie to an identity and injects it
// into the request context, rejecting unauthenticated callers with 401.
// The check is synchronous: expired sessions fail here, there is no
// background expiry.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.resolveIdentity(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func (h *AuthHandler) resolveIdentity(r *http.Request) (types.Identity, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return types.Identity{}, errors.New("missing session cookie")
	}

	session, err := h.sessions.Resolve(r.Context(), cookie.Value)
	if err != nil {
		return types.Identity{}, err
	}

	user, err := h.users.GetByID(r.Context(), session.UserID)
	if err != nil {
		return types.Identity{}, err
	}
	return types.IdentityOf(user), nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool           `json:"success"`
	User    types.Identity `json:"user"`
}

type SessionResponse struct {
	User types.Identity `json:"user"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Login verifies credentials and establishes a session cookie. Unknown
// email and wrong password produce the identical response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, sessionCookie(r, session.Token, int(services.SessionTTL.Seconds())))
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, User: types.IdentityOf(user)})
}

// Logout revokes the caller's session, if any, and clears the cookie.
// Always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to log out")
			return
		}
	}

	http.SetCookie(w, sessionCookie(r, "", -1))
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Session returns the caller's authenticated identity.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: identity})
}

func sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
}
