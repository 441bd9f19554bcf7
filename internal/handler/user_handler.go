package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/middleware"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/service"
	u "github.com/arjunmehta/ledger-service/internal/utils"
)

type UserHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewUserHandler(accountService service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/balance", h.GetBalance).Methods(http.MethodGet)
	router.Handle("/users", middleware.RequireAdmin(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet)
}

func (h *UserHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	balance, err := h.accountService.GetBalance(r.Context(), principal.ID)
	if err != nil {
		h.handleServiceError(w, err, "get balance")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.BalanceResponse{
		AccountID: principal.ID,
		Balance:   balance,
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := intQueryParam(r, "page")
	pageSize := intQueryParam(r, "page_size")
	search := r.URL.Query().Get("search")

	users, err := h.accountService.ListUsers(r.Context(), page, pageSize, search)
	if err != nil {
		h.handleServiceError(w, err, "list users")
		return
	}

	u.WriteJSON(w, http.StatusOK, users)
}

func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case apperrors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "account not found", "")
	case apperrors.IsInvalidAccountID(err):
		u.WriteError(w, http.StatusBadRequest, "invalid account ID", "")
	default:
		h.logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
