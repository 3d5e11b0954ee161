package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/middleware"
	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/validation"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "register user", err)
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, "register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Login выполняет аутентификацию пользователя и выдаёт bearer-токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "login user", err)
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, "login user", err)
		return
	}

	token, err := h.tokens.Issue(*u)
	if err != nil {
		h.writeError(w, "issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      u,
	})
}

// Logout отзывает текущий токен до истечения его срока.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	if err := h.tokens.Revoke(r.Context(), claims); err != nil {
		h.writeError(w, "revoke token", err)
		return
	}

	h.logger.Info("user logged out", zap.String("user_id", claims.UserID.String()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me возвращает текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	u, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}
