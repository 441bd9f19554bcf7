package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/repository"
)

type stubMovementRepo struct {
	records []*models.MovementRecord
	total   int64

	lastAccountID string
	lastFilter    repository.MovementFilter
	lastLimit     int
	lastOffset    int
	senderCalled  bool
}

func (r *stubMovementRepo) Create(ctx context.Context, tx *sql.Tx, movement *models.Movement) error {
	return nil
}

func (r *stubMovementRepo) ListForParticipant(ctx context.Context, accountID string, filter repository.MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error) {
	r.lastAccountID = accountID
	r.lastFilter = filter
	r.lastLimit = limit
	r.lastOffset = offset
	return r.page(limit, offset), r.total, nil
}

func (r *stubMovementRepo) ListBySender(ctx context.Context, senderID string, filter repository.MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error) {
	r.senderCalled = true
	r.lastAccountID = senderID
	r.lastFilter = filter
	r.lastLimit = limit
	r.lastOffset = offset
	return r.page(limit, offset), r.total, nil
}

func (r *stubMovementRepo) page(limit, offset int) []*models.MovementRecord {
	if offset >= len(r.records) {
		return []*models.MovementRecord{}
	}
	end := offset + limit
	if end > len(r.records) {
		end = len(r.records)
	}
	return r.records[offset:end]
}

func repoWithRecords(n int) *stubMovementRepo {
	records := make([]*models.MovementRecord, n)
	for i := range records {
		records[i] = &models.MovementRecord{ID: "movement", Kind: models.MovementPeerTransfer}
	}
	return &stubMovementRepo{records: records, total: int64(n)}
}

func TestListForParticipantPaginationMath(t *testing.T) {
	repo := repoWithRecords(25)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	page, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)

	assert.Len(t, page.Items, 5)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 20, repo.lastOffset)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestListForParticipantOutOfRangePageIsEmptyNotError(t *testing.T) {
	repo := repoWithRecords(25)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	page, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{Page: 9, PageSize: 10})
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestListForParticipantClampsPaging(t *testing.T) {
	repo := repoWithRecords(5)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	page, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	page, err = svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{Page: -2, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
}

func TestListForParticipantWidensDateRangeToDayBounds(t *testing.T) {
	repo := repoWithRecords(1)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	start := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 12, 9, 15, 0, 0, time.UTC)

	_, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{
		Page:      1,
		PageSize:  10,
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)

	require.NotNil(t, repo.lastFilter.From)
	require.NotNil(t, repo.lastFilter.To)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *repo.lastFilter.From)
	assert.Equal(t, time.Date(2024, 3, 12, 23, 59, 59, 999999999, time.UTC), *repo.lastFilter.To)
}

func TestListForParticipantIgnoresHalfOpenDateRange(t *testing.T) {
	repo := repoWithRecords(1)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{
		Page:      1,
		PageSize:  10,
		StartDate: &start,
	})
	require.NoError(t, err)

	assert.Nil(t, repo.lastFilter.From)
	assert.Nil(t, repo.lastFilter.To)
}

func TestListForParticipantPassesFiltersThrough(t *testing.T) {
	repo := repoWithRecords(1)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	_, err := svc.ListForParticipant(context.Background(), senderID, ParticipantQuery{
		Page:         1,
		PageSize:     10,
		Counterparty: "bo",
		Kind:         models.MovementAdminFunding,
	})
	require.NoError(t, err)

	assert.Equal(t, "bo", repo.lastFilter.Counterparty)
	assert.Equal(t, models.MovementAdminFunding, repo.lastFilter.Kind)
}

func TestListAsSenderIgnoresStatusFilter(t *testing.T) {
	repo := repoWithRecords(3)
	svc := NewMovementQueryService(repo, time.UTC, testLogger())

	page, err := svc.ListAsSender(context.Background(), senderID, SenderQuery{
		Page:     1,
		PageSize: 10,
		Status:   "pending",
	})
	require.NoError(t, err)

	assert.True(t, repo.senderCalled)
	assert.Len(t, page.Items, 3)
	// The status token never reaches the repository filter.
	assert.Empty(t, repo.lastFilter.Counterparty)
	assert.Empty(t, repo.lastFilter.Kind)
}

func TestListRequiresAccountID(t *testing.T) {
	svc := NewMovementQueryService(repoWithRecords(0), time.UTC, testLogger())

	_, err := svc.ListForParticipant(context.Background(), "", ParticipantQuery{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccountID)

	_, err = svc.ListAsSender(context.Background(), "", SenderQuery{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccountID)
}
