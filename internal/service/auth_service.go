package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/repository"
)

const (
	bcryptCost        = 10
	tokenLifetime     = time.Hour
	superAdminName    = "superadmin"
	minPasswordLength = 8
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.Account, error)
	Login(ctx context.Context, username, password string) (string, error)
	SeedSuperAdmin(ctx context.Context, password string) error
}

type AuthServiceImpl struct {
	accountRepo repository.AccountRepository
	jwtSecret   []byte
	logger      *slog.Logger
}

func NewAuthService(accountRepo repository.AccountRepository, jwtSecret []byte, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		jwtSecret:   jwtSecret,
		logger:      logger,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*models.Account, error) {
	if username == "" {
		return nil, apperrors.NewValidationError("username", "must be non-empty")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperrors.NewStorageError("hash password", err)
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Balance:      decimal.Zero,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if apperrors.IsAlreadyExists(err) {
			s.logger.Warn("registration with taken username", "username", username)
			return nil, err
		}
		s.logger.Error("failed to create account", "username", username, "error", err.Error())
		return nil, err
	}

	s.logger.Info("account registered", "account_id", account.ID, "username", username)
	return account, nil
}

// Login verifies the credentials and issues a signed token carrying the
// account id and role. Lookup and password failures are indistinguishable to
// the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", apperrors.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  account.ID,
		"role": string(account.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenLifetime).Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.NewStorageError("sign token", err)
	}

	s.logger.Info("login succeeded", "account_id", account.ID)
	return signed, nil
}

// SeedSuperAdmin creates the single super-admin account at first boot. It is
// a no-op when one already exists.
func (s *AuthServiceImpl) SeedSuperAdmin(ctx context.Context, password string) error {
	exists, err := s.accountRepo.HasSuperAdmin(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("super admin already exists")
		return nil
	}

	if password == "" {
		return apperrors.NewValidationError("SUPER_ADMIN_PASSWORD", "must be set to seed the super admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return apperrors.NewStorageError("hash password", err)
	}

	account := &models.Account{
		Username:     superAdminName,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		Balance:      decimal.Zero,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return err
	}

	s.logger.Info("super admin created", "account_id", account.ID)
	return nil
}
