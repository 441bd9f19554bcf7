package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arjunmehta/ledger-service/internal/models"
)

// MovementFilter narrows a movement listing. All set filters compose
// conjunctively. From/To are concrete instants; day-granularity widening is
// the query service's job, not the repository's.
type MovementFilter struct {
	From         *time.Time
	To           *time.Time
	Counterparty string
	Kind         models.MovementKind
}

type MovementRepository interface {
	Create(ctx context.Context, tx *sql.Tx, movement *models.Movement) error
	ListForParticipant(ctx context.Context, accountID string, filter MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error)
	ListBySender(ctx context.Context, senderID string, filter MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error)
}

type PostgresMovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *PostgresMovementRepository {
	return &PostgresMovementRepository{db: db}
}

func (r *PostgresMovementRepository) Create(ctx context.Context, tx *sql.Tx, movement *models.Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}

	query := `INSERT INTO movements (id, source_account_id, destination_account_id, amount, kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := tx.QueryRowContext(ctx, query,
		movement.ID,
		movement.SourceAccountID,
		movement.DestinationAccountID,
		movement.Amount,
		movement.Kind,
	).Scan(&movement.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create movement: %w", err)
	}
	return nil
}

func (r *PostgresMovementRepository) ListForParticipant(ctx context.Context, accountID string, filter MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error) {
	where := []string{`(m.source_account_id = $1 OR m.destination_account_id = $1)`}
	args := []interface{}{accountID}
	where, args = appendFilter(where, args, filter)
	return r.list(ctx, where, args, limit, offset)
}

func (r *PostgresMovementRepository) ListBySender(ctx context.Context, senderID string, filter MovementFilter, limit, offset int) ([]*models.MovementRecord, int64, error) {
	where := []string{`m.source_account_id = $1`}
	args := []interface{}{senderID}
	where, args = appendFilter(where, args, filter)
	return r.list(ctx, where, args, limit, offset)
}

func appendFilter(where []string, args []interface{}, filter MovementFilter) ([]string, []interface{}) {
	if filter.From != nil && filter.To != nil {
		where = append(where, fmt.Sprintf(`m.created_at BETWEEN $%d AND $%d`, len(args)+1, len(args)+2))
		args = append(args, *filter.From, *filter.To)
	}
	if filter.Counterparty != "" {
		where = append(where, fmt.Sprintf(`(s.username ILIKE $%d OR d.username ILIKE $%d)`, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Counterparty+"%")
	}
	if filter.Kind != "" {
		where = append(where, fmt.Sprintf(`m.kind = $%d`, len(args)+1))
		args = append(args, filter.Kind)
	}
	return where, args
}

// list runs the shared count-then-page query pair. Ordering is newest first
// with id as the deterministic tiebreak for equal timestamps.
func (r *PostgresMovementRepository) list(ctx context.Context, where []string, args []interface{}, limit, offset int) ([]*models.MovementRecord, int64, error) {
	const fromClause = `FROM movements m
		JOIN accounts s ON s.id = m.source_account_id
		JOIN accounts d ON d.id = m.destination_account_id`

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) ` + fromClause + ` WHERE ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	query := fmt.Sprintf(`SELECT m.id, m.amount, m.kind, m.created_at, s.username, d.username
		%s
		WHERE %s
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $%d OFFSET $%d`, fromClause, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	records := []*models.MovementRecord{}
	for rows.Next() {
		record := &models.MovementRecord{}
		err := rows.Scan(
			&record.ID,
			&record.Amount,
			&record.Kind,
			&record.CreatedAt,
			&record.SenderUsername,
			&record.RecipientUsername,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan movement row: %w", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over movements: %w", err)
	}
	return records, total, nil
}
