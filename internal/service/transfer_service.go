package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/cache"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/repository"
)

// maxTransferAttempts bounds retries of transactions aborted by
// serialization or lock-wait failures. Business-rule failures are never
// retried.
const maxTransferAttempts = 3

type TransferService interface {
	CreateTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*models.Movement, error)
	RecordAdminFunding(ctx context.Context, adminID, targetID string, amount decimal.Decimal) (*models.Movement, error)
}

type TransferServiceImpl struct {
	db           *sql.DB
	accountRepo  repository.AccountRepository
	movementRepo repository.MovementRepository
	balanceCache cache.BalanceCache
	logger       *slog.Logger
}

func NewTransferService(db *sql.DB, accountRepo repository.AccountRepository, movementRepo repository.MovementRepository, balanceCache cache.BalanceCache, logger *slog.Logger) *TransferServiceImpl {
	return &TransferServiceImpl{
		db:           db,
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		balanceCache: balanceCache,
		logger:       logger,
	}
}

// CreateTransfer moves amount from senderID to recipientID and records the
// movement, all inside one database transaction. Both account rows are
// locked before the balance check so a concurrent transfer cannot drain the
// sender between check and commit.
func (s *TransferServiceImpl) CreateTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*models.Movement, error) {
	if err := s.validateTransfer(senderID, recipientID, amount); err != nil {
		s.logger.Warn("invalid transfer request",
			"sender_id", senderID,
			"recipient_id", recipientID,
			"error", err.Error(),
		)
		return nil, err
	}

	return s.withRetry(ctx, "transfer", func() (*models.Movement, error) {
		return s.transferOnce(ctx, senderID, recipientID, amount)
	})
}

func (s *TransferServiceImpl) transferOnce(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (*models.Movement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Error("failed to begin transaction", "error", err.Error())
		return nil, apperrors.NewStorageError("begin", err)
	}

	// Ensure rollback on error
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	// Lock both rows in ascending id order so crossed transfers (A->B
	// concurrent with B->A) cannot deadlock.
	firstID, secondID := senderID, recipientID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.lockAccount(ctx, tx, firstID)
	if err != nil {
		return nil, s.describeMissing(err, firstID, senderID, recipientID)
	}

	second, err := s.lockAccount(ctx, tx, secondID)
	if err != nil {
		return nil, s.describeMissing(err, secondID, senderID, recipientID)
	}

	sender, recipient := first, second
	if sender.ID != senderID {
		sender, recipient = second, first
	}

	// Funds check happens only now, with both locks held.
	if sender.Balance.LessThan(amount) {
		s.logger.Warn("insufficient funds",
			"sender_id", senderID,
			"available_balance", sender.Balance.String(),
			"requested_amount", amount.String(),
		)
		return nil, apperrors.ErrInsufficientFunds
	}

	newSenderBalance := sender.Balance.Sub(amount)
	newRecipientBalance := recipient.Balance.Add(amount)

	if err := s.accountRepo.UpdateBalance(ctx, tx, sender.ID, newSenderBalance); err != nil {
		s.logger.Error("failed to debit sender", "sender_id", sender.ID, "error", err.Error())
		return nil, err
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, recipient.ID, newRecipientBalance); err != nil {
		s.logger.Error("failed to credit recipient", "recipient_id", recipient.ID, "error", err.Error())
		return nil, err
	}

	movement := &models.Movement{
		SourceAccountID:      sender.ID,
		DestinationAccountID: recipient.ID,
		Amount:               amount,
		Kind:                 models.MovementPeerTransfer,
	}

	if err := s.movementRepo.Create(ctx, tx, movement); err != nil {
		s.logger.Error("failed to record movement",
			"sender_id", sender.ID,
			"recipient_id", recipient.ID,
			"error", err.Error(),
		)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transfer", "error", err.Error())
		return nil, apperrors.NewStorageError("commit", err)
	}

	// Nullify tx to avoid rollback in defer
	tx = nil

	s.refreshCachedBalance(ctx, sender.ID, newSenderBalance)
	s.refreshCachedBalance(ctx, recipient.ID, newRecipientBalance)

	s.logger.Info("transfer committed",
		"movement_id", movement.ID,
		"sender_id", sender.ID,
		"recipient_id", recipient.ID,
		"amount", amount.String(),
	)
	return movement, nil
}

// RecordAdminFunding credits an account on behalf of an admin and records
// the funding movement. Balance update and movement insert share one
// transaction, so a crash between them cannot leave an unrecorded balance
// change.
func (s *TransferServiceImpl) RecordAdminFunding(ctx context.Context, adminID, targetID string, amount decimal.Decimal) (*models.Movement, error) {
	if adminID == "" || targetID == "" {
		return nil, apperrors.ErrInvalidAccountID
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	admin, err := s.accountRepo.GetByID(ctx, adminID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("admin account: %w", err)
		}
		return nil, err
	}
	if !admin.Role.CanFund() {
		s.logger.Warn("funding attempt by non-admin",
			"caller_id", adminID,
			"caller_role", string(admin.Role),
		)
		return nil, apperrors.ErrUnauthorized
	}

	return s.withRetry(ctx, "funding", func() (*models.Movement, error) {
		return s.fundOnce(ctx, adminID, targetID, amount)
	})
}

func (s *TransferServiceImpl) fundOnce(ctx context.Context, adminID, targetID string, amount decimal.Decimal) (*models.Movement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Error("failed to begin transaction", "error", err.Error())
		return nil, apperrors.NewStorageError("begin", err)
	}

	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	target, err := s.lockAccount(ctx, tx, targetID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("funded account: %w", err)
		}
		return nil, err
	}

	newBalance := target.Balance.Add(amount)
	if err := s.accountRepo.UpdateBalance(ctx, tx, target.ID, newBalance); err != nil {
		s.logger.Error("failed to credit funded account", "account_id", target.ID, "error", err.Error())
		return nil, err
	}

	movement := &models.Movement{
		SourceAccountID:      adminID,
		DestinationAccountID: target.ID,
		Amount:               amount,
		Kind:                 models.MovementAdminFunding,
	}

	if err := s.movementRepo.Create(ctx, tx, movement); err != nil {
		s.logger.Error("failed to record funding movement",
			"admin_id", adminID,
			"account_id", target.ID,
			"error", err.Error(),
		)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit funding", "error", err.Error())
		return nil, apperrors.NewStorageError("commit", err)
	}

	tx = nil

	s.refreshCachedBalance(ctx, target.ID, newBalance)

	s.logger.Info("funding committed",
		"movement_id", movement.ID,
		"admin_id", adminID,
		"account_id", target.ID,
		"amount", amount.String(),
	)
	return movement, nil
}

func (s *TransferServiceImpl) lockAccount(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	return s.accountRepo.GetByIDForUpdate(ctx, tx, id)
}

// withRetry reruns op on retryable conflicts with a short linear backoff.
// The failed attempt was fully rolled back, so rerunning is safe.
func (s *TransferServiceImpl) withRetry(ctx context.Context, operation string, op func() (*models.Movement, error)) (*models.Movement, error) {
	var lastErr error
	for attempt := 1; attempt <= maxTransferAttempts; attempt++ {
		movement, err := op()
		if err == nil {
			return movement, nil
		}
		if !apperrors.IsConflict(err) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("retrying after transient conflict",
			"operation", operation,
			"attempt", attempt,
			"error", err.Error(),
		)

		if attempt < maxTransferAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

// refreshCachedBalance pushes a post-commit balance into the cache. Cache
// failures never fail the committed operation.
func (s *TransferServiceImpl) refreshCachedBalance(ctx context.Context, accountID string, balance decimal.Decimal) {
	if err := s.balanceCache.Put(ctx, accountID, balance); err != nil {
		s.logger.Warn("failed to refresh cached balance",
			"account_id", accountID,
			"error", err.Error(),
		)
	}
}

func (s *TransferServiceImpl) validateTransfer(senderID, recipientID string, amount decimal.Decimal) error {
	if senderID == "" || recipientID == "" {
		return apperrors.ErrInvalidAccountID
	}
	if senderID == recipientID {
		return apperrors.ErrSameAccount
	}
	return validateAmount(amount)
}

// describeMissing re-labels a not-found error from a lock acquired in id
// order with the role the account plays in the transfer.
func (s *TransferServiceImpl) describeMissing(err error, lockedID, senderID, recipientID string) error {
	if !apperrors.IsNotFound(err) {
		return err
	}
	if lockedID == senderID {
		s.logger.Warn("sender account not found", "sender_id", senderID)
		return fmt.Errorf("sender account: %w", err)
	}
	s.logger.Warn("recipient account not found", "recipient_id", recipientID)
	return fmt.Errorf("recipient account: %w", err)
}

// validateAmount enforces positive amounts with at most two fractional
// digits, matching the DECIMAL(10,2) column precision.
func validateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return apperrors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}
