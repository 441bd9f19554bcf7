package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error
	HasSuperAdmin(ctx context.Context) (bool, error)
	ListUsers(ctx context.Context, limit, offset int, usernameSearch string) ([]*models.Account, int64, error)
}

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, username, password_hash, role, balance, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.Role,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `INSERT INTO accounts (id, username, password_hash, role, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.Role,
		account.Balance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return account, nil
}

// GetByIDForUpdate reads an account under an exclusive row lock. Must be
// called inside a transaction; the lock is held until commit or rollback.
func (r *PostgresAccountRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, classifyPqError("get account for update", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return classifyPqError("update account balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating account balance: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}

	return nil
}

func (r *PostgresAccountRepository) HasSuperAdmin(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE role = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, models.RoleSuperAdmin).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for super admin: %w", err)
	}

	return exists, nil
}

// ListUsers returns non-admin accounts newest first, optionally filtered by a
// username substring, with the total match count for pagination.
func (r *PostgresAccountRepository) ListUsers(ctx context.Context, limit, offset int, usernameSearch string) ([]*models.Account, int64, error) {
	where := `role NOT IN ($1, $2)`
	args := []interface{}{models.RoleAdmin, models.RoleSuperAdmin}

	if usernameSearch != "" {
		where += fmt.Sprintf(` AND username ILIKE $%d`, len(args)+1)
		args = append(args, "%"+usernameSearch+"%")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM accounts WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		accountColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.PasswordHash,
			&account.Role,
			&account.Balance,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over users: %w", err)
	}
	return accounts, total, nil
}

// classifyPqError maps serialization and lock-wait failures to a retryable
// conflict; everything else passes through wrapped.
func classifyPqError(operation string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return apperrors.NewConflictError(operation, err)
		}
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}
