package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/arjunmehta/ledger-service/internal/apperrors"
	"github.com/arjunmehta/ledger-service/internal/models"
	"github.com/arjunmehta/ledger-service/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ParticipantQuery filters a movement listing where the account appears on
// either side. StartDate/EndDate are applied at day granularity: the range
// runs from the start of the start day through the end of the end day in the
// service's reference timezone, and only when both are set.
type ParticipantQuery struct {
	Page         int
	PageSize     int
	StartDate    *time.Time
	EndDate      *time.Time
	Counterparty string
	Kind         models.MovementKind
}

// SenderQuery filters a sender-only listing. Status is accepted for
// contract compatibility but movements carry no status field, so it is
// never applied.
type SenderQuery struct {
	Page      int
	PageSize  int
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
}

type MovementQueryService interface {
	ListForParticipant(ctx context.Context, accountID string, query ParticipantQuery) (*models.MovementPage, error)
	ListAsSender(ctx context.Context, senderID string, query SenderQuery) (*models.MovementPage, error)
}

type MovementQueryServiceImpl struct {
	movementRepo repository.MovementRepository
	location     *time.Location
	logger       *slog.Logger
}

func NewMovementQueryService(movementRepo repository.MovementRepository, location *time.Location, logger *slog.Logger) *MovementQueryServiceImpl {
	if location == nil {
		location = time.UTC
	}
	return &MovementQueryServiceImpl{
		movementRepo: movementRepo,
		location:     location,
		logger:       logger,
	}
}

func (s *MovementQueryServiceImpl) ListForParticipant(ctx context.Context, accountID string, query ParticipantQuery) (*models.MovementPage, error) {
	if accountID == "" {
		return nil, apperrors.ErrInvalidAccountID
	}

	page, pageSize := normalizePage(query.Page, query.PageSize)
	filter := repository.MovementFilter{
		Counterparty: query.Counterparty,
		Kind:         query.Kind,
	}
	filter.From, filter.To = s.dayBounds(query.StartDate, query.EndDate)

	records, total, err := s.movementRepo.ListForParticipant(ctx, accountID, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("failed to list movements for participant",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, err
	}

	return buildPage(records, total, page, pageSize), nil
}

func (s *MovementQueryServiceImpl) ListAsSender(ctx context.Context, senderID string, query SenderQuery) (*models.MovementPage, error) {
	if senderID == "" {
		return nil, apperrors.ErrInvalidAccountID
	}

	page, pageSize := normalizePage(query.Page, query.PageSize)
	filter := repository.MovementFilter{}
	filter.From, filter.To = s.dayBounds(query.StartDate, query.EndDate)

	records, total, err := s.movementRepo.ListBySender(ctx, senderID, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("failed to list movements for sender",
			"sender_id", senderID,
			"error", err.Error(),
		)
		return nil, err
	}

	return buildPage(records, total, page, pageSize), nil
}

// dayBounds widens a date pair to inclusive day bounds in the reference
// timezone. Both dates must be set for the range to apply.
func (s *MovementQueryServiceImpl) dayBounds(start, end *time.Time) (*time.Time, *time.Time) {
	if start == nil || end == nil {
		return nil, nil
	}
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.location)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, s.location)
	return &from, &to
}

// normalizePage clamps paging inputs instead of rejecting them: page floors
// at 1, pageSize defaults when unset and caps at the maximum.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func buildPage(records []*models.MovementRecord, total int64, page, pageSize int) *models.MovementPage {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &models.MovementPage{
		Items:      records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
