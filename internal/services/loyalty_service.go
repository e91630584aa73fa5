package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"punchcard_backend/internal/models"
)

const dashboardRecentCustomers = 5

// --- LoyaltyService Interface ---
// LoyaltyService is the customer-facing facade. Every card is computed from the ledger
// on each call and never cached.
type LoyaltyService interface {
	Card(ctx context.Context, slug string) (*models.LoyaltyCard, error)
	CardByID(ctx context.Context, customerID int64) (*models.LoyaltyCard, error)
	RecordPunch(ctx context.Context, slug string, kind models.PunchKind) (*models.Punch, error)
	RequestRedemption(ctx context.Context, slug string, rewardID int64) (*models.RedemptionRequest, error)
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

// --- loyaltyService Implementation ---
type loyaltyService struct {
	identity    IdentityService
	punches     PunchService
	rewards     RewardService
	redemptions RedemptionService
	policy      models.LoyaltyPolicy
}

// NewLoyaltyService creates a new instance of LoyaltyService.
func NewLoyaltyService(
	identity IdentityService,
	punches PunchService,
	rewards RewardService,
	redemptions RedemptionService,
	policy models.LoyaltyPolicy,
) LoyaltyService {
	return &loyaltyService{
		identity:    identity,
		punches:     punches,
		rewards:     rewards,
		redemptions: redemptions,
		policy:      policy,
	}
}

func (s *loyaltyService) Card(ctx context.Context, slug string) (*models.LoyaltyCard, error) {
	customer, err := s.identity.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.buildCard(ctx, customer)
}

func (s *loyaltyService) CardByID(ctx context.Context, customerID int64) (*models.LoyaltyCard, error) {
	customer, err := s.identity.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.buildCard(ctx, customer)
}

func (s *loyaltyService) buildCard(ctx context.Context, customer *models.Customer) (*models.LoyaltyCard, error) {
	card := &models.LoyaltyCard{Customer: *customer}
	var rewards []models.Reward

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.punches.TotalFor(gctx, customer.ID)
		card.TotalPunches = total
		return err
	})
	g.Go(func() error {
		history, err := s.punches.HistoryFor(gctx, customer.ID, s.policy.HistoryLimit)
		card.Punches = history
		return err
	})
	g.Go(func() error {
		requests, err := s.redemptions.ForCustomer(gctx, customer.ID)
		card.Redemptions = requests
		return err
	})
	g.Go(func() error {
		var err error
		rewards, err = s.rewards.List(gctx, models.RewardFilters{ActiveOnly: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if card.Punches == nil {
		card.Punches = []models.Punch{}
	}
	if card.Redemptions == nil {
		card.Redemptions = []models.RedemptionRequest{}
	}
	card.Rewards = EvaluateEligibility(card.TotalPunches, rewards, card.Redemptions)
	return card, nil
}

func (s *loyaltyService) RecordPunch(ctx context.Context, slug string, kind models.PunchKind) (*models.Punch, error) {
	customer, err := s.identity.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.punches.Record(ctx, customer.ID, kind)
}

func (s *loyaltyService) RequestRedemption(ctx context.Context, slug string, rewardID int64) (*models.RedemptionRequest, error) {
	customer, err := s.identity.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.redemptions.Request(ctx, customer.ID, rewardID)
}

func (s *loyaltyService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	pending := models.RedemptionStatusPending

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalCustomers, err = s.identity.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalPunches, err = s.punches.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRewards, err = s.rewards.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingRedemptions, err = s.redemptions.CountByStatus(gctx, &pending)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentCustomers, err = s.identity.Recent(gctx, dashboardRecentCustomers)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.RecentCustomers == nil {
		stats.RecentCustomers = []models.Customer{}
	}
	return stats, nil
}

// EvaluateEligibility classifies every active reward for a customer with the given total.
// Any non-cancelled request marks its reward as already requested, whatever the redemption
// policy; the policy only decides whether a new request is accepted. Inactive rewards are
// skipped. Output keeps the order of rewards.
func EvaluateEligibility(total int, rewards []models.Reward, requests []models.RedemptionRequest) []models.RewardEligibility {
	blocked := make(map[int64]bool)
	for _, req := range requests {
		if req.RewardID == nil {
			continue
		}
		if req.Status != models.RedemptionStatusCancelled {
			blocked[*req.RewardID] = true
		}
	}

	result := make([]models.RewardEligibility, 0, len(rewards))
	for _, reward := range rewards {
		if !reward.Active {
			continue
		}
		entry := models.RewardEligibility{Reward: reward}
		switch {
		case blocked[reward.ID]:
			entry.State = models.EligibilityAlreadyRequested
		case total >= reward.ThresholdPunches:
			entry.State = models.EligibilityEligible
		default:
			entry.State = models.EligibilityLocked
			entry.Shortfall = reward.ThresholdPunches - total
		}
		result = append(result, entry)
	}
	return result
}
