package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"punchcard_backend/internal/models"
)

type LoyaltyServiceSuite struct {
	suite.Suite
	f   *fixture
	ctx context.Context
}

func (s *LoyaltyServiceSuite) SetupTest() {
	s.f = newFixture(models.DefaultLoyaltyPolicy())
	s.ctx = context.Background()
}

func TestLoyaltyServiceSuite(t *testing.T) {
	suite.Run(t, new(LoyaltyServiceSuite))
}

func (s *LoyaltyServiceSuite) stateOf(card *models.LoyaltyCard, rewardID int64) models.RewardEligibility {
	for _, e := range card.Rewards {
		if e.Reward.ID == rewardID {
			return e
		}
	}
	s.FailNow("reward missing from card", "reward %d", rewardID)
	return models.RewardEligibility{}
}

// TestPunchCardLifecycle runs a customer from an empty card through a full redemption cycle.
func (s *LoyaltyServiceSuite) TestPunchCardLifecycle() {
	customer, err := s.f.identity.Issue(s.ctx, "Lifecycle")
	s.Require().NoError(err)
	reward, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Free coffee", ThresholdPunches: 10})
	s.Require().NoError(err)

	card, err := s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Zero(card.TotalPunches)
	locked := s.stateOf(card, reward.ID)
	s.Equal(models.EligibilityLocked, locked.State)
	s.Equal(10, locked.Shortfall)

	for i := 0; i < 10; i++ {
		_, err := s.f.loyalty.RecordPunch(s.ctx, customer.Slug, models.PunchKindQR)
		s.Require().NoError(err)
		s.f.clock.Advance(time.Minute)
	}

	card, err = s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Equal(10, card.TotalPunches)
	s.Equal(models.EligibilityEligible, s.stateOf(card, reward.ID).State)

	req, err := s.f.loyalty.RequestRedemption(s.ctx, customer.Slug, reward.ID)
	s.Require().NoError(err)
	s.Equal(models.RedemptionStatusPending, req.Status)

	_, err = s.f.loyalty.RequestRedemption(s.ctx, customer.Slug, reward.ID)
	s.ErrorIs(err, ErrDuplicatePendingRequest)

	card, err = s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Equal(models.EligibilityAlreadyRequested, s.stateOf(card, reward.ID).State)
	s.Len(card.Redemptions, 1)

	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusPending)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusCancelled)
	s.ErrorIs(err, ErrInvalidStateTransition)

	card, err = s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Equal(10, card.TotalPunches, "punches are never consumed")
	s.Equal(models.EligibilityAlreadyRequested, s.stateOf(card, reward.ID).State)
}

func (s *LoyaltyServiceSuite) TestCardAfterFulfilledRequest() {
	customer, err := s.f.identity.Issue(s.ctx, "Fulfilled")
	s.Require().NoError(err)
	reward, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Cookie", ThresholdPunches: 1})
	s.Require().NoError(err)
	_, err = s.f.loyalty.RecordPunch(s.ctx, customer.Slug, models.PunchKindQR)
	s.Require().NoError(err)

	req, err := s.f.redemptions.Request(s.ctx, customer.ID, reward.ID)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)

	card, err := s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Equal(models.EligibilityAlreadyRequested, s.stateOf(card, reward.ID).State)

	// The repeat policy still accepts a fresh request for the same reward.
	_, err = s.f.redemptions.Request(s.ctx, customer.ID, reward.ID)
	s.NoError(err)
}

func (s *LoyaltyServiceSuite) TestCardAfterCancelledRequest() {
	customer, err := s.f.identity.Issue(s.ctx, "Cancelled")
	s.Require().NoError(err)
	reward, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Muffin", ThresholdPunches: 1})
	s.Require().NoError(err)
	_, err = s.f.loyalty.RecordPunch(s.ctx, customer.Slug, models.PunchKindManual)
	s.Require().NoError(err)

	req, err := s.f.redemptions.Request(s.ctx, customer.ID, reward.ID)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, req.ID, models.RedemptionStatusCancelled)
	s.Require().NoError(err)

	card, err := s.f.loyalty.Card(s.ctx, customer.Slug)
	s.Require().NoError(err)
	s.Equal(models.EligibilityEligible, s.stateOf(card, reward.ID).State)
}

func (s *LoyaltyServiceSuite) TestCardHistoryIsCappedButTotalIsNot() {
	policy := models.DefaultLoyaltyPolicy()
	policy.HistoryLimit = 3
	f := newFixture(policy)

	customer, err := f.identity.Issue(s.ctx, "Busy")
	s.Require().NoError(err)
	for i := 0; i < 7; i++ {
		_, err := f.punches.Record(s.ctx, customer.ID, models.PunchKindManual)
		s.Require().NoError(err)
		f.clock.Advance(time.Minute)
	}

	card, err := f.loyalty.CardByID(s.ctx, customer.ID)
	s.Require().NoError(err)
	s.Equal(7, card.TotalPunches)
	s.Len(card.Punches, 3)
}

func (s *LoyaltyServiceSuite) TestCardSkipsInactiveRewardsAndOrdersByThreshold() {
	customer, err := s.f.identity.Issue(s.ctx, "Browser")
	s.Require().NoError(err)
	for _, threshold := range []int{8, 2, 5} {
		_, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: fmt.Sprintf("T%d", threshold), ThresholdPunches: threshold})
		s.Require().NoError(err)
	}
	_, err = s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Off", ThresholdPunches: 1, Active: boolPtr(false)})
	s.Require().NoError(err)

	card, err := s.f.loyalty.CardByID(s.ctx, customer.ID)
	s.Require().NoError(err)
	s.Require().Len(card.Rewards, 3)
	s.Equal(2, card.Rewards[0].Reward.ThresholdPunches)
	s.Equal(8, card.Rewards[2].Reward.ThresholdPunches)
	s.NotNil(card.Punches)
	s.NotNil(card.Redemptions)
}

func (s *LoyaltyServiceSuite) TestUnknownSlug() {
	_, err := s.f.loyalty.Card(s.ctx, "nobody")
	s.ErrorIs(err, ErrCustomerNotFound)
	_, err = s.f.loyalty.RecordPunch(s.ctx, "nobody", models.PunchKindQR)
	s.ErrorIs(err, ErrCustomerNotFound)
	_, err = s.f.loyalty.RequestRedemption(s.ctx, "nobody", 1)
	s.ErrorIs(err, ErrCustomerNotFound)
}

func (s *LoyaltyServiceSuite) TestDashboard() {
	reward, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Bagel", ThresholdPunches: 1})
	s.Require().NoError(err)
	var last *models.Customer
	for i := 0; i < 7; i++ {
		c, err := s.f.identity.Issue(s.ctx, fmt.Sprintf("Guest %d", i))
		s.Require().NoError(err)
		_, err = s.f.punches.Record(s.ctx, c.ID, models.PunchKindQR)
		s.Require().NoError(err)
		s.f.clock.Advance(time.Second)
		last = c
	}
	_, err = s.f.redemptions.Request(s.ctx, last.ID, reward.ID)
	s.Require().NoError(err)

	stats, err := s.f.loyalty.Dashboard(s.ctx)
	s.Require().NoError(err)
	s.Equal(7, stats.TotalCustomers)
	s.Equal(7, stats.TotalPunches)
	s.Equal(1, stats.TotalRewards)
	s.Equal(1, stats.PendingRedemptions)
	s.Require().Len(stats.RecentCustomers, dashboardRecentCustomers)
	s.Equal(last.ID, stats.RecentCustomers[0].ID)
}

func TestEvaluateEligibility(t *testing.T) {
	id := func(v int64) *int64 { return &v }
	rewards := []models.Reward{
		{ID: 1, Name: "Small", ThresholdPunches: 2, Active: true},
		{ID: 2, Name: "Medium", ThresholdPunches: 5, Active: true},
		{ID: 3, Name: "Large", ThresholdPunches: 9, Active: true},
		{ID: 4, Name: "Off", ThresholdPunches: 1, Active: false},
	}
	requests := []models.RedemptionRequest{
		{ID: 10, RewardID: id(1), Status: models.RedemptionStatusFulfilled},
		{ID: 11, RewardID: id(2), Status: models.RedemptionStatusPending},
		{ID: 12, RewardID: id(3), Status: models.RedemptionStatusCancelled},
		{ID: 13, RewardID: nil, Status: models.RedemptionStatusPending},
	}

	t.Run("non-cancelled requests mark the reward", func(t *testing.T) {
		got := EvaluateEligibility(6, rewards, requests)
		assert.Len(t, got, 3)
		assert.Equal(t, models.EligibilityAlreadyRequested, got[0].State)
		assert.Equal(t, models.EligibilityAlreadyRequested, got[1].State)
		assert.Equal(t, models.EligibilityLocked, got[2].State)
		assert.Equal(t, 3, got[2].Shortfall)
		assert.Zero(t, got[0].Shortfall)
	})

	t.Run("already requested wins over locked", func(t *testing.T) {
		got := EvaluateEligibility(0, rewards, requests)
		assert.Equal(t, models.EligibilityAlreadyRequested, got[0].State)
		assert.Equal(t, models.EligibilityAlreadyRequested, got[1].State)
		assert.Equal(t, models.EligibilityLocked, got[2].State)
	})

	t.Run("cancelled request leaves the reward eligible", func(t *testing.T) {
		got := EvaluateEligibility(9, rewards, requests)
		assert.Equal(t, models.EligibilityEligible, got[2].State)
	})

	t.Run("no rewards", func(t *testing.T) {
		got := EvaluateEligibility(3, nil, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
