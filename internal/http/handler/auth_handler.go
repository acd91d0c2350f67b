package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

// AuthHandler issues JWTs and manages the caller's own account
type AuthHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewAuthHandler(users *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// Login godoc
// @Summary Obtain an access and refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body domain.LoginRequest true "Email and password"
// @Success 200 {object} domain.TokenPairDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Router /token [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	pair, err := h.users.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "login")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// Refresh godoc
// @Summary Exchange a refresh token for a new access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param token body domain.RefreshRequest true "Refresh token"
// @Success 200 {object} domain.AccessTokenDTO
// @Failure 401 {object} domain.APIError
// @Router /token/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	token, err := h.users.Refresh(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "refresh token")
		return
	}
	respondJSON(w, http.StatusOK, token)
}

// Register godoc
// @Summary Create a customer login
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body domain.RegisterRequest true "Account"
// @Success 201 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "register")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Me godoc
// @Summary Current user with role and permissions
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /users/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags Auth
// @Accept json
// @Produce json
// @Param passwords body domain.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} domain.MessageResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /users/me/password [patch]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	msg, err := h.users.ChangePassword(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "change password")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
