package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"punchcard_backend/internal/models"
)

// PunchRepository defines the interface for the append-only punch ledger.
type PunchRepository interface {
	CreatePunch(ctx context.Context, punch *models.Punch) error
	// CreatePunchIfIdle appends punch only when the customer has no punch after since;
	// otherwise it returns ErrPreconditionFailed.
	CreatePunchIfIdle(ctx context.Context, punch *models.Punch, since time.Time) error
	CountPunchesByCustomer(ctx context.Context, customerID int64) (int, error)
	// GetPunchesByCustomer returns newest first; limit <= 0 returns the whole ledger.
	GetPunchesByCustomer(ctx context.Context, customerID int64, limit int) ([]models.Punch, error)
	CountPunches(ctx context.Context) (int, error)
}

type punchRepository struct {
	db *sql.DB
}

// NewPunchRepository creates a new instance of PunchRepository.
func NewPunchRepository(db *sql.DB) PunchRepository {
	return &punchRepository{db: db}
}

func (r *punchRepository) CreatePunch(ctx context.Context, punch *models.Punch) error {
	if punch.OccurredAt.IsZero() {
		punch.OccurredAt = time.Now().UTC()
	}
	query := `INSERT INTO punches (customer_id, kind, occurred_at)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, punch.CustomerID, punch.Kind, punch.OccurredAt).Scan(&punch.ID); err != nil {
		return classify(err, "creating punch")
	}
	return nil
}

func (r *punchRepository) CreatePunchIfIdle(ctx context.Context, punch *models.Punch, since time.Time) error {
	if punch.OccurredAt.IsZero() {
		punch.OccurredAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting punch transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// The customer row lock serialises cooldown checks for one customer.
	var lockedID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, punch.CustomerID).Scan(&lockedID); err != nil {
		return classify(err, "locking customer for punch")
	}

	var recent bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM punches WHERE customer_id = $1 AND occurred_at > $2)`,
		punch.CustomerID, since).Scan(&recent); err != nil {
		return classify(err, "checking punch cooldown")
	}
	if recent {
		return ErrPreconditionFailed
	}

	query := `INSERT INTO punches (customer_id, kind, occurred_at)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	if err := tx.QueryRowContext(ctx, query, punch.CustomerID, punch.Kind, punch.OccurredAt).Scan(&punch.ID); err != nil {
		return classify(err, "creating punch")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing punch: %v", ErrDatabaseError, err)
	}
	return nil
}

func (r *punchRepository) CountPunchesByCustomer(ctx context.Context, customerID int64) (int, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM punches WHERE customer_id = $1`, customerID)
}

func (r *punchRepository) GetPunchesByCustomer(ctx context.Context, customerID int64, limit int) ([]models.Punch, error) {
	query := `SELECT id, customer_id, kind, occurred_at
	          FROM punches
	          WHERE customer_id = $1
	          ORDER BY occurred_at DESC, id DESC`
	args := []interface{}{customerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("querying punches for customer ID %d", customerID))
	}
	defer rows.Close()

	punches := []models.Punch{}
	for rows.Next() {
		var p models.Punch
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Kind, &p.OccurredAt); err != nil {
			return nil, fmt.Errorf("%w: scanning punch: %v", ErrDatabaseError, err)
		}
		punches = append(punches, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating punch rows: %v", ErrDatabaseError, err)
	}
	return punches, nil
}

func (r *punchRepository) CountPunches(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM punches`)
}
