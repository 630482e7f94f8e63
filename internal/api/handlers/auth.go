package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/auth"
)

// AuthHandler serves sign-in and sign-out.
type AuthHandler struct {
	provider auth.Provider
	logger   *zap.Logger
}

func NewAuthHandler(provider auth.Provider, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{provider: provider, logger: logger}
}

// Routes returns the handler routes
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	return r
}

// LoginBody is the request body for POST /auth/login.
type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.provider.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		h.logger.Info("sign-in rejected",
			zap.String("email", body.Email),
			zap.Error(err))
		h.jsonError(w, auth.UserMessage(err), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": sess.Token,
		"email": sess.Email,
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		h.jsonError(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	if err := h.provider.SignOut(r.Context(), strings.TrimPrefix(header, "Bearer ")); err != nil {
		h.jsonError(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (h *AuthHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
