package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/middleware"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/service"
	u "github.com/arjunmehta/ledger-service/internal/utils"
)

const dateLayout = "2006-01-02"

type TransferHandler struct {
	transferService service.TransferService
	queryService    service.MovementQueryService
	accountService  service.AccountService
	logger          *slog.Logger
}

func NewTransferHandler(transferService service.TransferService, queryService service.MovementQueryService, accountService service.AccountService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		queryService:    queryService,
		accountService:  accountService,
		logger:          logger,
	}
}

func (h *TransferHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transfers", h.CreateTransfer).Methods(http.MethodPost)
	router.HandleFunc("/transfers", h.ListMovements).Methods(http.MethodGet)
	router.HandleFunc("/transfers/sent", h.ListSent).Methods(http.MethodGet)
	router.Handle("/transfers/fund", middleware.RequireAdmin(http.HandlerFunc(h.FundUser))).Methods(http.MethodPost)
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	var req models.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid transfer request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	recipientID, err := h.resolveRecipient(r, req.Recipient)
	if err != nil {
		h.handleServiceError(w, err, "resolve recipient")
		return
	}

	movement, err := h.transferService.CreateTransfer(r.Context(), principal.ID, recipientID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err, "create transfer")
		return
	}

	u.WriteJSON(w, http.StatusCreated, movementResponse(movement))
}

// resolveRecipient maps the recipient identifier to an account id. Anything
// that is not a well-formed UUID is treated as a username.
func (h *TransferHandler) resolveRecipient(r *http.Request, identifier string) (string, error) {
	if identifier == "" {
		return "", apperrors.NewValidationError("recipient", "must be non-empty")
	}
	if _, err := uuid.Parse(identifier); err == nil {
		return identifier, nil
	}

	account, err := h.accountService.GetByUsername(r.Context(), identifier)
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

func (h *TransferHandler) FundUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	var req models.FundUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid fund request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	movement, err := h.transferService.RecordAdminFunding(r.Context(), principal.ID, req.UserID, req.Amount)
	if err != nil {
		h.handleServiceError(w, err, "fund user")
		return
	}

	u.WriteJSON(w, http.StatusCreated, movementResponse(movement))
}

func (h *TransferHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	query := service.ParticipantQuery{
		Page:         intQueryParam(r, "page"),
		PageSize:     intQueryParam(r, "page_size"),
		Counterparty: r.URL.Query().Get("username"),
	}

	var err error
	if query.StartDate, query.EndDate, err = dateRangeParams(r); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		switch models.MovementKind(kind) {
		case models.MovementPeerTransfer, models.MovementAdminFunding:
			query.Kind = models.MovementKind(kind)
		default:
			u.WriteError(w, http.StatusBadRequest, "invalid kind", "kind must be PEER_TRANSFER or ADMIN_FUNDING")
			return
		}
	}

	page, err := h.queryService.ListForParticipant(r.Context(), principal.ID, query)
	if err != nil {
		h.handleServiceError(w, err, "list movements")
		return
	}

	u.WriteJSON(w, http.StatusOK, page)
}

func (h *TransferHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	query := service.SenderQuery{
		Page:     intQueryParam(r, "page"),
		PageSize: intQueryParam(r, "page_size"),
		// Accepted for contract compatibility; movements have no status.
		Status: r.URL.Query().Get("status"),
	}

	var err error
	if query.StartDate, query.EndDate, err = dateRangeParams(r); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	page, err := h.queryService.ListAsSender(r.Context(), principal.ID, query)
	if err != nil {
		h.handleServiceError(w, err, "list sent movements")
		return
	}

	u.WriteJSON(w, http.StatusOK, page)
}

func intQueryParam(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

func dateRangeParams(r *http.Request) (*time.Time, *time.Time, error) {
	start, err := dateQueryParam(r, "start_date")
	if err != nil {
		return nil, nil, err
	}
	end, err := dateQueryParam(r, "end_date")
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func dateQueryParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperrors.NewValidationError(name, "must use YYYY-MM-DD format")
	}
	return &parsed, nil
}

func movementResponse(movement *models.Movement) models.MovementResponse {
	return models.MovementResponse{
		ID:                   movement.ID,
		SourceAccountID:      movement.SourceAccountID,
		DestinationAccountID: movement.DestinationAccountID,
		Amount:               movement.Amount,
		Kind:                 movement.Kind,
		CreatedAt:            movement.CreatedAt,
	}
}

func (h *TransferHandler) handleServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case apperrors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "account not found", err.Error())
	case apperrors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusBadRequest, "insufficient funds", "source account does not have enough funds for the transfer")
	case apperrors.IsUnauthorized(err):
		u.WriteError(w, http.StatusForbidden, "not authorized", "only admins can fund user balances")
	case apperrors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case apperrors.IsSameAccount(err):
		u.WriteError(w, http.StatusBadRequest, "same source and destination account", err.Error())
	case apperrors.IsInvalidAmount(err):
		u.WriteError(w, http.StatusBadRequest, "invalid amount", "amount must be positive with at most two decimal places")
	case apperrors.IsInvalidAccountID(err):
		u.WriteError(w, http.StatusBadRequest, "invalid account ID", "")
	case apperrors.IsConflict(err):
		u.WriteError(w, http.StatusServiceUnavailable, "transient conflict", "the operation was rolled back, retry the request")
	default:
		h.logger.Error("internal server error during "+action, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
