package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"punchcard_backend/internal/models"
)

// RewardRepository defines the interface for reward catalog storage.
type RewardRepository interface {
	CreateReward(ctx context.Context, reward *models.Reward) error
	GetRewardByID(ctx context.Context, id int64) (*models.Reward, error)
	GetRewards(ctx context.Context, filters models.RewardFilters) ([]models.Reward, error)
	UpdateReward(ctx context.Context, reward *models.Reward) error
	SetRewardActive(ctx context.Context, id int64, active bool, updatedAt time.Time) (*models.Reward, error)
	DeleteReward(ctx context.Context, id int64) error
	CountRewards(ctx context.Context) (int, error)
}

type rewardRepository struct {
	db *sql.DB
}

// NewRewardRepository creates a new instance of RewardRepository.
func NewRewardRepository(db *sql.DB) RewardRepository {
	return &rewardRepository{db: db}
}

const rewardColumns = `id, name, description, threshold_punches, active, created_at, updated_at`

func scanReward(row scanner, reward *models.Reward) error {
	return row.Scan(&reward.ID, &reward.Name, &reward.Description, &reward.ThresholdPunches,
		&reward.Active, &reward.CreatedAt, &reward.UpdatedAt)
}

func (r *rewardRepository) CreateReward(ctx context.Context, reward *models.Reward) error {
	now := time.Now().UTC()
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = now
	}
	if reward.UpdatedAt.IsZero() {
		reward.UpdatedAt = now
	}
	query := `INSERT INTO rewards (name, description, threshold_punches, active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		reward.Name, reward.Description, reward.ThresholdPunches, reward.Active, reward.CreatedAt, reward.UpdatedAt,
	).Scan(&reward.ID)
	if err != nil {
		return classify(err, "creating reward")
	}
	return nil
}

func (r *rewardRepository) GetRewardByID(ctx context.Context, id int64) (*models.Reward, error) {
	reward := &models.Reward{}
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`
	if err := scanReward(r.db.QueryRowContext(ctx, query, id), reward); err != nil {
		return nil, classify(err, fmt.Sprintf("getting reward by ID %d", id))
	}
	return reward, nil
}

func (r *rewardRepository) GetRewards(ctx context.Context, filters models.RewardFilters) ([]models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards`
	if filters.ActiveOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY threshold_punches ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, "querying rewards")
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		var reward models.Reward
		if err := scanReward(rows, &reward); err != nil {
			return nil, fmt.Errorf("%w: scanning reward: %v", ErrDatabaseError, err)
		}
		rewards = append(rewards, reward)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating reward rows: %v", ErrDatabaseError, err)
	}
	return rewards, nil
}

func (r *rewardRepository) UpdateReward(ctx context.Context, reward *models.Reward) error {
	query := `UPDATE rewards SET
	            name = $1, description = $2, threshold_punches = $3, active = $4, updated_at = $5
	          WHERE id = $6
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		reward.Name, reward.Description, reward.ThresholdPunches, reward.Active, reward.UpdatedAt, reward.ID,
	).Scan(&reward.CreatedAt)
	if err != nil {
		return classify(err, fmt.Sprintf("updating reward ID %d", reward.ID))
	}
	return nil
}

func (r *rewardRepository) SetRewardActive(ctx context.Context, id int64, active bool, updatedAt time.Time) (*models.Reward, error) {
	reward := &models.Reward{}
	query := `UPDATE rewards SET active = $1, updated_at = $2 WHERE id = $3 RETURNING ` + rewardColumns
	if err := scanReward(r.db.QueryRowContext(ctx, query, active, updatedAt, id), reward); err != nil {
		return nil, classify(err, fmt.Sprintf("toggling reward ID %d", id))
	}
	return reward, nil
}

// DeleteReward removes a reward; historical requests keep their reward_name and lose reward_id.
func (r *rewardRepository) DeleteReward(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = $1`, id)
	if err != nil {
		return classify(err, fmt.Sprintf("deleting reward ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting reward ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *rewardRepository) CountRewards(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM rewards`)
}
