package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/pkg/utils"
)

const maxRewardNameLength = 120

// --- Reward DTOs ---

type CreateRewardRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      *string `json:"description"`
	ThresholdPunches int     `json:"threshold_punches" binding:"required"`
	Active           *bool   `json:"active"` // defaults to true
}

type UpdateRewardRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      *string `json:"description"`
	ThresholdPunches int     `json:"threshold_punches" binding:"required"`
	Active           bool    `json:"active"`
}

// --- RewardService Interface ---
type RewardService interface {
	Create(ctx context.Context, req CreateRewardRequest) (*models.Reward, error)
	Get(ctx context.Context, rewardID int64) (*models.Reward, error)
	List(ctx context.Context, filters models.RewardFilters) ([]models.Reward, error)
	Update(ctx context.Context, rewardID int64, req UpdateRewardRequest) (*models.Reward, error)
	SetActive(ctx context.Context, rewardID int64, active bool) (*models.Reward, error)
	// Delete removes the reward. Existing requests keep their reward name.
	Delete(ctx context.Context, rewardID int64) error
	Count(ctx context.Context) (int, error)
}

// --- rewardService Implementation ---
type rewardService struct {
	rewardRepo repositories.RewardRepository
	opts       options
}

// NewRewardService creates a new instance of RewardService.
func NewRewardService(repo repositories.RewardRepository, opts ...Option) RewardService {
	return &rewardService{rewardRepo: repo, opts: newOptions(opts)}
}

func validateReward(name string, description *string, threshold int) (string, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: reward name cannot be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxRewardNameLength {
		return "", nil, fmt.Errorf("%w: reward name must be %d characters or less", ErrInvalidInput, maxRewardNameLength)
	}
	if threshold < 1 {
		return "", nil, fmt.Errorf("%w: threshold_punches must be at least 1", ErrInvalidInput)
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}
	return name, description, nil
}

func (s *rewardService) Create(ctx context.Context, req CreateRewardRequest) (*models.Reward, error) {
	name, description, err := validateReward(req.Name, req.Description, req.ThresholdPunches)
	if err != nil {
		return nil, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.opts.now()
	reward := &models.Reward{
		Name:             name,
		Description:      description,
		ThresholdPunches: req.ThresholdPunches,
		Active:           active,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.rewardRepo.CreateReward(ctx, reward); err != nil {
		return nil, storageErr(err, nil, "creating reward")
	}
	utils.LogInfo("Reward created", map[string]interface{}{"reward_id": reward.ID, "threshold": reward.ThresholdPunches})
	return reward, nil
}

func (s *rewardService) Get(ctx context.Context, rewardID int64) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetRewardByID(ctx, rewardID)
	if err != nil {
		return nil, storageErr(err, ErrRewardNotFound, "loading reward")
	}
	return reward, nil
}

func (s *rewardService) List(ctx context.Context, filters models.RewardFilters) ([]models.Reward, error) {
	rewards, err := s.rewardRepo.GetRewards(ctx, filters)
	if err != nil {
		return nil, storageErr(err, nil, "listing rewards")
	}
	return rewards, nil
}

func (s *rewardService) Update(ctx context.Context, rewardID int64, req UpdateRewardRequest) (*models.Reward, error) {
	name, description, err := validateReward(req.Name, req.Description, req.ThresholdPunches)
	if err != nil {
		return nil, err
	}
	reward := &models.Reward{
		ID:               rewardID,
		Name:             name,
		Description:      description,
		ThresholdPunches: req.ThresholdPunches,
		Active:           req.Active,
		UpdatedAt:        s.opts.now(),
	}
	if err := s.rewardRepo.UpdateReward(ctx, reward); err != nil {
		return nil, storageErr(err, ErrRewardNotFound, "updating reward")
	}
	return reward, nil
}

func (s *rewardService) SetActive(ctx context.Context, rewardID int64, active bool) (*models.Reward, error) {
	reward, err := s.rewardRepo.SetRewardActive(ctx, rewardID, active, s.opts.now())
	if err != nil {
		return nil, storageErr(err, ErrRewardNotFound, "toggling reward")
	}
	utils.LogInfo("Reward availability changed", map[string]interface{}{"reward_id": rewardID, "active": active})
	return reward, nil
}

func (s *rewardService) Delete(ctx context.Context, rewardID int64) error {
	if err := s.rewardRepo.DeleteReward(ctx, rewardID); err != nil {
		return storageErr(err, ErrRewardNotFound, "deleting reward")
	}
	utils.LogInfo("Reward deleted", map[string]interface{}{"reward_id": rewardID})
	return nil
}

func (s *rewardService) Count(ctx context.Context) (int, error) {
	n, err := s.rewardRepo.CountRewards(ctx)
	if err != nil {
		return 0, storageErr(err, nil, "counting rewards")
	}
	return n, nil
}
