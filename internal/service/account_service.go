package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/cache"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/repository"
)

type AccountService interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	AuthorizeFunding(ctx context.Context, adminID string) error
	ListUsers(ctx context.Context, page, pageSize int, usernameSearch string) (*models.UserListResponse, error)
}

type AccountServiceImpl struct {
	accountRepo  repository.AccountRepository
	balanceCache cache.BalanceCache
	logger       *slog.Logger
}

func NewAccountService(accountRepo repository.AccountRepository, balanceCache cache.BalanceCache, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo:  accountRepo,
		balanceCache: balanceCache,
		logger:       logger,
	}
}

func (s *AccountServiceImpl) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, apperrors.ErrInvalidAccountID
	}
	return s.accountRepo.GetByID(ctx, id)
}

func (s *AccountServiceImpl) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if username == "" {
		return nil, apperrors.NewValidationError("username", "must be non-empty")
	}
	return s.accountRepo.GetByUsername(ctx, username)
}

// GetBalance reads through the balance cache: a fresh entry short-circuits
// the store, a miss reads the account and repopulates the cache.
func (s *AccountServiceImpl) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if accountID == "" {
		return decimal.Zero, apperrors.ErrInvalidAccountID
	}

	cached, ok, err := s.balanceCache.Get(ctx, accountID)
	if err != nil {
		s.logger.Warn("balance cache read failed",
			"account_id", accountID,
			"error", err.Error(),
		)
	} else if ok {
		return cached, nil
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Warn("account not found", "account_id", accountID)
			return decimal.Zero, err
		}
		s.logger.Error("failed to get account", "account_id", accountID, "error", err.Error())
		return decimal.Zero, err
	}

	if err := s.balanceCache.Put(ctx, accountID, account.Balance); err != nil {
		s.logger.Warn("balance cache write failed",
			"account_id", accountID,
			"error", err.Error(),
		)
	}
	return account.Balance, nil
}

func (s *AccountServiceImpl) AuthorizeFunding(ctx context.Context, adminID string) error {
	account, err := s.accountRepo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !account.Role.CanFund() {
		return apperrors.ErrUnauthorized
	}
	return nil
}

func (s *AccountServiceImpl) ListUsers(ctx context.Context, page, pageSize int, usernameSearch string) (*models.UserListResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	accounts, total, err := s.accountRepo.ListUsers(ctx, pageSize, (page-1)*pageSize, usernameSearch)
	if err != nil {
		s.logger.Error("failed to list users", "error", err.Error())
		return nil, err
	}

	summaries := make([]*models.UserSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, &models.UserSummary{
			ID:        account.ID,
			Username:  account.Username,
			Balance:   account.Balance,
			CreatedAt: account.CreatedAt,
			UpdatedAt: account.UpdatedAt,
		})
	}
	return &models.UserListResponse{
		Items:    summaries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
