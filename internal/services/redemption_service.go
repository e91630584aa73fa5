package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/pkg/utils"
)

const maxNoteLength = 500

// --- RedemptionService Interface ---
type RedemptionService interface {
	// Request files a pending claim. Preconditions are checked in order: customer and
	// reward exist, reward is active, enough punches, no conflicting request.
	Request(ctx context.Context, customerID, rewardID int64) (*models.RedemptionRequest, error)
	// SetStatus applies one transition of the redemption state machine.
	SetStatus(ctx context.Context, requestID int64, status models.RedemptionStatus) (*models.RedemptionRequest, error)
	// SetNote attaches an operator note; a blank note clears it.
	SetNote(ctx context.Context, requestID int64, note string) (*models.RedemptionRequest, error)
	Get(ctx context.Context, requestID int64) (*models.RedemptionRequest, error)
	List(ctx context.Context, filters models.RedemptionFilters) ([]models.RedemptionView, error)
	ForCustomer(ctx context.Context, customerID int64) ([]models.RedemptionRequest, error)
	CountByStatus(ctx context.Context, status *models.RedemptionStatus) (int, error)
}

// --- redemptionService Implementation ---
type redemptionService struct {
	redemptionRepo repositories.RedemptionRepository
	customerRepo   repositories.CustomerRepository
	rewardRepo     repositories.RewardRepository
	punchRepo      repositories.PunchRepository
	policy         models.RedemptionPolicy
	opts           options
}

// NewRedemptionService creates a new instance of RedemptionService.
func NewRedemptionService(
	redemptionRepo repositories.RedemptionRepository,
	customerRepo repositories.CustomerRepository,
	rewardRepo repositories.RewardRepository,
	punchRepo repositories.PunchRepository,
	policy models.RedemptionPolicy,
	opts ...Option,
) RedemptionService {
	if !policy.IsValid() {
		policy = models.RedemptionPolicyRepeat
	}
	return &redemptionService{
		redemptionRepo: redemptionRepo,
		customerRepo:   customerRepo,
		rewardRepo:     rewardRepo,
		punchRepo:      punchRepo,
		policy:         policy,
		opts:           newOptions(opts),
	}
}

func (s *redemptionService) Request(ctx context.Context, customerID, rewardID int64) (*models.RedemptionRequest, error) {
	if _, err := s.customerRepo.GetCustomerByID(ctx, customerID); err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "loading customer for redemption")
	}
	reward, err := s.rewardRepo.GetRewardByID(ctx, rewardID)
	if err != nil {
		return nil, storageErr(err, ErrRewardNotFound, "loading reward for redemption")
	}
	if !reward.Active {
		return nil, ErrRewardInactive
	}

	total, err := s.punchRepo.CountPunchesByCustomer(ctx, customerID)
	if err != nil {
		return nil, storageErr(err, nil, "counting punches for redemption")
	}
	if total < reward.ThresholdPunches {
		return nil, fmt.Errorf("%w: %d of %d", ErrInsufficientPunches, total, reward.ThresholdPunches)
	}

	existing, err := s.redemptionRepo.GetRedemptions(ctx, models.RedemptionFilters{
		CustomerID: &customerID,
		RewardID:   &rewardID,
	})
	if err != nil {
		return nil, storageErr(err, nil, "checking existing redemptions")
	}
	for _, req := range existing {
		switch {
		case req.Status == models.RedemptionStatusPending:
			return nil, ErrDuplicatePendingRequest
		case req.Status == models.RedemptionStatusFulfilled && s.policy == models.RedemptionPolicyOnce:
			return nil, ErrAlreadyRedeemed
		}
	}

	now := s.opts.now()
	req := &models.RedemptionRequest{
		CustomerID:  customerID,
		RewardID:    &reward.ID,
		RewardName:  reward.Name,
		Status:      models.RedemptionStatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	// The pending-uniqueness constraint in storage settles concurrent requests.
	err = s.redemptionRepo.CreateRedemption(ctx, req)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return nil, ErrDuplicatePendingRequest
	}
	if err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "creating redemption request")
	}

	s.opts.metrics.IncRedemptionRequested()
	utils.LogInfo("Redemption requested", map[string]interface{}{
		"request_id": req.ID, "customer_id": customerID, "reward_id": rewardID,
	})
	return req, nil
}

func (s *redemptionService) SetStatus(ctx context.Context, requestID int64, status models.RedemptionStatus) (*models.RedemptionRequest, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	current, err := s.redemptionRepo.GetRedemptionByID(ctx, requestID)
	if err != nil {
		return nil, storageErr(err, ErrRedemptionNotFound, "loading redemption request")
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, current.Status, status)
	}

	updated, err := s.redemptionRepo.UpdateRedemptionStatus(ctx, requestID, current.Status, status, s.opts.now())
	switch {
	case errors.Is(err, repositories.ErrPreconditionFailed):
		// Someone else moved the request first.
		return nil, fmt.Errorf("%w: status changed concurrently from %s", ErrInvalidStateTransition, current.Status)
	case errors.Is(err, repositories.ErrDuplicateKey):
		// Reverting would create a second pending request for the same reward.
		return nil, ErrDuplicatePendingRequest
	case err != nil:
		return nil, storageErr(err, ErrRedemptionNotFound, "updating redemption status")
	}

	s.opts.metrics.IncRedemptionTransition(string(current.Status), string(status))
	utils.LogInfo("Redemption status changed", map[string]interface{}{
		"request_id": requestID, "from": current.Status, "to": status,
	})
	return updated, nil
}

func (s *redemptionService) SetNote(ctx context.Context, requestID int64, note string) (*models.RedemptionRequest, error) {
	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		if utf8.RuneCountInString(trimmed) > maxNoteLength {
			return nil, fmt.Errorf("%w: note must be %d characters or less", ErrInvalidInput, maxNoteLength)
		}
		notePtr = &trimmed
	}
	updated, err := s.redemptionRepo.UpdateRedemptionNote(ctx, requestID, notePtr, s.opts.now())
	if err != nil {
		return nil, storageErr(err, ErrRedemptionNotFound, "updating redemption note")
	}
	return updated, nil
}

func (s *redemptionService) Get(ctx context.Context, requestID int64) (*models.RedemptionRequest, error) {
	req, err := s.redemptionRepo.GetRedemptionByID(ctx, requestID)
	if err != nil {
		return nil, storageErr(err, ErrRedemptionNotFound, "loading redemption request")
	}
	return req, nil
}

// List enriches each request with its customer and, when it still resolves, its reward.
func (s *redemptionService) List(ctx context.Context, filters models.RedemptionFilters) ([]models.RedemptionView, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *filters.Status)
	}
	requests, err := s.redemptionRepo.GetRedemptions(ctx, filters)
	if err != nil {
		return nil, storageErr(err, nil, "listing redemption requests")
	}

	customers := make(map[int64]*models.Customer)
	punches := make(map[int64]int)
	rewards := make(map[int64]*models.Reward)
	views := make([]models.RedemptionView, 0, len(requests))

	for _, req := range requests {
		view := models.RedemptionView{RedemptionRequest: req}

		customer, seen := customers[req.CustomerID]
		if !seen {
			customer, err = s.customerRepo.GetCustomerByID(ctx, req.CustomerID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, storageErr(err, nil, "loading customer for redemption list")
			}
			customers[req.CustomerID] = customer
			total, err := s.punchRepo.CountPunchesByCustomer(ctx, req.CustomerID)
			if err != nil {
				return nil, storageErr(err, nil, "counting punches for redemption list")
			}
			punches[req.CustomerID] = total
		}
		if customer != nil {
			view.CustomerName = customer.DisplayName
			view.CustomerSlug = customer.Slug
		}
		view.CustomerPunches = punches[req.CustomerID]

		if req.RewardID != nil {
			reward, seen := rewards[*req.RewardID]
			if !seen {
				reward, err = s.rewardRepo.GetRewardByID(ctx, *req.RewardID)
				if err != nil && !errors.Is(err, repositories.ErrNotFound) {
					return nil, storageErr(err, nil, "loading reward for redemption list")
				}
				rewards[*req.RewardID] = reward
			}
			if reward != nil {
				threshold := reward.ThresholdPunches
				view.RewardThreshold = &threshold
				view.RewardExists = true
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *redemptionService) ForCustomer(ctx context.Context, customerID int64) ([]models.RedemptionRequest, error) {
	requests, err := s.redemptionRepo.GetRedemptions(ctx, models.RedemptionFilters{CustomerID: &customerID})
	if err != nil {
		return nil, storageErr(err, nil, "listing customer redemptions")
	}
	return requests, nil
}

func (s *redemptionService) CountByStatus(ctx context.Context, status *models.RedemptionStatus) (int, error) {
	n, err := s.redemptionRepo.CountRedemptions(ctx, status)
	if err != nil {
		return 0, storageErr(err, nil, "counting redemption requests")
	}
	return n, nil
}
