package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/cache"
	"github.com/arjunmehta/ledger-service/internal/models"
)

type stubAccountRepo struct {
	accounts map[string]*models.Account
	byName   map[string]*models.Account

	getByIDCalls int
	created      []*models.Account
	hasSuper     bool
}

func newStubAccountRepo(accounts ...*models.Account) *stubAccountRepo {
	r := &stubAccountRepo{
		accounts: make(map[string]*models.Account),
		byName:   make(map[string]*models.Account),
	}
	for _, a := range accounts {
		r.accounts[a.ID] = a
		r.byName[a.Username] = a
	}
	return r
}

func (r *stubAccountRepo) Create(ctx context.Context, account *models.Account) error {
	if _, taken := r.byName[account.Username]; taken {
		return apperrors.ErrUsernameTaken
	}
	if account.ID == "" {
		account.ID = "generated-" + account.Username
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	r.accounts[account.ID] = account
	r.byName[account.Username] = account
	r.created = append(r.created, account)
	return nil
}

func (r *stubAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.getByIDCalls++
	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	return account, nil
}

func (r *stubAccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, ok := r.byName[username]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	return account, nil
}

func (r *stubAccountRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *stubAccountRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error {
	account, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	account.Balance = balance
	return nil
}

func (r *stubAccountRepo) HasSuperAdmin(ctx context.Context) (bool, error) {
	return r.hasSuper, nil
}

func (r *stubAccountRepo) ListUsers(ctx context.Context, limit, offset int, usernameSearch string) ([]*models.Account, int64, error) {
	var users []*models.Account
	for _, a := range r.accounts {
		if a.Role == models.RoleUser {
			users = append(users, a)
		}
	}
	total := int64(len(users))
	if offset >= len(users) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], total, nil
}

func userAccount(id, username, balance string) *models.Account {
	return &models.Account{
		ID:       id,
		Username: username,
		Role:     models.RoleUser,
		Balance:  decimal.RequireFromString(balance),
	}
}

func TestGetBalanceReadsThroughAndPopulatesCache(t *testing.T) {
	repo := newStubAccountRepo(userAccount(senderID, "alice", "42.50"))
	balanceCache := cache.NewMemoryBalanceCache(time.Minute)
	svc := NewAccountService(repo, balanceCache, testLogger())
	ctx := context.Background()

	got, err := svc.GetBalance(ctx, senderID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("42.50").Equal(got))
	assert.Equal(t, 1, repo.getByIDCalls)

	// Second read inside the TTL window is served from the cache.
	got, err = svc.GetBalance(ctx, senderID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("42.50").Equal(got))
	assert.Equal(t, 1, repo.getByIDCalls)
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	svc := NewAccountService(newStubAccountRepo(), cache.NewMemoryBalanceCache(time.Minute), testLogger())

	_, err := svc.GetBalance(context.Background(), senderID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthorizeFunding(t *testing.T) {
	admin := userAccount(adminID, "root", "0")
	admin.Role = models.RoleAdmin
	superAdmin := userAccount("44444444-4444-4444-4444-444444444444", "boss", "0")
	superAdmin.Role = models.RoleSuperAdmin
	repo := newStubAccountRepo(userAccount(senderID, "alice", "0"), admin, superAdmin)
	svc := NewAccountService(repo, cache.NewMemoryBalanceCache(time.Minute), testLogger())
	ctx := context.Background()

	assert.NoError(t, svc.AuthorizeFunding(ctx, adminID))
	assert.NoError(t, svc.AuthorizeFunding(ctx, superAdmin.ID))
	assert.True(t, apperrors.IsUnauthorized(svc.AuthorizeFunding(ctx, senderID)))
	assert.True(t, apperrors.IsNotFound(svc.AuthorizeFunding(ctx, "missing")))
}

func TestGetByUsername(t *testing.T) {
	repo := newStubAccountRepo(userAccount(senderID, "alice", "0"))
	svc := NewAccountService(repo, cache.NewMemoryBalanceCache(time.Minute), testLogger())
	ctx := context.Background()

	account, err := svc.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, senderID, account.ID)

	_, err = svc.GetByUsername(ctx, "nobody")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetByUsername(ctx, "")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestListUsersNormalizesPaging(t *testing.T) {
	repo := newStubAccountRepo(
		userAccount(senderID, "alice", "0"),
		userAccount(recipientID, "bob", "0"),
	)
	svc := NewAccountService(repo, cache.NewMemoryBalanceCache(time.Minute), testLogger())

	page, err := svc.ListUsers(context.Background(), 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
}
