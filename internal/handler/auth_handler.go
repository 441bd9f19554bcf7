package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/service"
	u "github.com/arjunmehta/ledger-service/internal/utils"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, err, "register")
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.RegisterResponse{
		ID:       account.ID,
		Username: account.Username,
		Role:     account.Role,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, err, "login")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case err == apperrors.ErrInvalidCredentials:
		u.WriteError(w, http.StatusUnauthorized, "invalid username or password", "")
	case apperrors.IsAlreadyExists(err):
		u.WriteError(w, http.StatusConflict, "username already taken", "")
	case apperrors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	default:
		h.logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
