package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"punchcard_backend/internal/models"
)

// RedemptionRepository defines the interface for redemption request storage.
// The storage guarantees at most one pending request per (customer, reward):
// inserts and status updates that would break it return a *DuplicateKeyError.
type RedemptionRepository interface {
	CreateRedemption(ctx context.Context, req *models.RedemptionRequest) error
	GetRedemptionByID(ctx context.Context, id int64) (*models.RedemptionRequest, error)
	GetRedemptions(ctx context.Context, filters models.RedemptionFilters) ([]models.RedemptionRequest, error)
	// UpdateRedemptionStatus moves the request from one status to another only if it is
	// still in from; otherwise ErrPreconditionFailed.
	UpdateRedemptionStatus(ctx context.Context, id int64, from, to models.RedemptionStatus, updatedAt time.Time) (*models.RedemptionRequest, error)
	UpdateRedemptionNote(ctx context.Context, id int64, note *string, updatedAt time.Time) (*models.RedemptionRequest, error)
	CountRedemptions(ctx context.Context, status *models.RedemptionStatus) (int, error)
}

type redemptionRepository struct {
	db *sql.DB
}

// NewRedemptionRepository creates a new instance of RedemptionRepository.
func NewRedemptionRepository(db *sql.DB) RedemptionRepository {
	return &redemptionRepository{db: db}
}

const redemptionColumns = `id, customer_id, reward_id, reward_name, status, note, requested_at, updated_at`

func scanRedemption(row scanner, req *models.RedemptionRequest) error {
	var rewardID sql.NullInt64
	var note sql.NullString
	if err := row.Scan(&req.ID, &req.CustomerID, &rewardID, &req.RewardName, &req.Status,
		&note, &req.RequestedAt, &req.UpdatedAt); err != nil {
		return err
	}
	req.RewardID = nil
	if rewardID.Valid {
		id := rewardID.Int64
		req.RewardID = &id
	}
	req.Note = nil
	if note.Valid {
		n := note.String
		req.Note = &n
	}
	return nil
}

func (r *redemptionRepository) CreateRedemption(ctx context.Context, req *models.RedemptionRequest) error {
	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.RequestedAt
	}
	query := `INSERT INTO redemption_requests (customer_id, reward_id, reward_name, status, note, requested_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		req.CustomerID, req.RewardID, req.RewardName, req.Status, req.Note, req.RequestedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		return classify(err, "creating redemption request")
	}
	return nil
}

func (r *redemptionRepository) GetRedemptionByID(ctx context.Context, id int64) (*models.RedemptionRequest, error) {
	req := &models.RedemptionRequest{}
	query := `SELECT ` + redemptionColumns + ` FROM redemption_requests WHERE id = $1`
	if err := scanRedemption(r.db.QueryRowContext(ctx, query, id), req); err != nil {
		return nil, classify(err, fmt.Sprintf("getting redemption request ID %d", id))
	}
	return req, nil
}

func (r *redemptionRepository) GetRedemptions(ctx context.Context, filters models.RedemptionFilters) ([]models.RedemptionRequest, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + redemptionColumns + ` FROM redemption_requests`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argCount))
		args = append(args, *filters.CustomerID)
		argCount++
	}
	if filters.RewardID != nil {
		conditions = append(conditions, fmt.Sprintf("reward_id = $%d", argCount))
		args = append(args, *filters.RewardID)
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY requested_at DESC, id DESC")

	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, classify(err, "querying redemption requests")
	}
	defer rows.Close()

	requests := []models.RedemptionRequest{}
	for rows.Next() {
		var req models.RedemptionRequest
		if err := scanRedemption(rows, &req); err != nil {
			return nil, fmt.Errorf("%w: scanning redemption request: %v", ErrDatabaseError, err)
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating redemption rows: %v", ErrDatabaseError, err)
	}
	return requests, nil
}

func (r *redemptionRepository) UpdateRedemptionStatus(ctx context.Context, id int64, from, to models.RedemptionStatus, updatedAt time.Time) (*models.RedemptionRequest, error) {
	req := &models.RedemptionRequest{}
	query := `UPDATE redemption_requests SET status = $1, updated_at = $2
	          WHERE id = $3 AND status = $4
	          RETURNING ` + redemptionColumns
	err := scanRedemption(r.db.QueryRowContext(ctx, query, to, updatedAt, id, from), req)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the row is gone or someone else moved it first.
		if _, getErr := r.GetRedemptionByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrPreconditionFailed
	}
	if err != nil {
		return nil, classify(err, fmt.Sprintf("updating status of redemption request ID %d", id))
	}
	return req, nil
}

func (r *redemptionRepository) UpdateRedemptionNote(ctx context.Context, id int64, note *string, updatedAt time.Time) (*models.RedemptionRequest, error) {
	req := &models.RedemptionRequest{}
	query := `UPDATE redemption_requests SET note = $1, updated_at = $2 WHERE id = $3 RETURNING ` + redemptionColumns
	if err := scanRedemption(r.db.QueryRowContext(ctx, query, note, updatedAt, id), req); err != nil {
		return nil, classify(err, fmt.Sprintf("updating note of redemption request ID %d", id))
	}
	return req, nil
}

func (r *redemptionRepository) CountRedemptions(ctx context.Context, status *models.RedemptionStatus) (int, error) {
	if status == nil {
		return countRows(ctx, r.db, `SELECT COUNT(*) FROM redemption_requests`)
	}
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM redemption_requests WHERE status = $1`, *status)
}
