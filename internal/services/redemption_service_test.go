package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"punchcard_backend/internal/models"
)

type RedemptionServiceSuite struct {
	suite.Suite
	f        *fixture
	ctx      context.Context
	customer *models.Customer
	reward   *models.Reward
}

func (s *RedemptionServiceSuite) SetupTest() {
	s.f = newFixture(models.DefaultLoyaltyPolicy())
	s.ctx = context.Background()

	c, err := s.f.identity.Issue(s.ctx, "Redeemer")
	s.Require().NoError(err)
	s.customer = c
	r, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Muffin", ThresholdPunches: 3})
	s.Require().NoError(err)
	s.reward = r
}

func TestRedemptionServiceSuite(t *testing.T) {
	suite.Run(t, new(RedemptionServiceSuite))
}

func (s *RedemptionServiceSuite) punch(customerID int64, n int) {
	for i := 0; i < n; i++ {
		_, err := s.f.punches.Record(s.ctx, customerID, models.PunchKindManual)
		s.Require().NoError(err)
	}
}

func (s *RedemptionServiceSuite) TestRequestPreconditions() {
	s.Run("unknown customer", func() {
		_, err := s.f.redemptions.Request(s.ctx, 999, s.reward.ID)
		s.ErrorIs(err, ErrCustomerNotFound)
	})

	s.Run("unknown reward", func() {
		_, err := s.f.redemptions.Request(s.ctx, s.customer.ID, 999)
		s.ErrorIs(err, ErrRewardNotFound)
	})

	s.Run("insufficient punches", func() {
		s.punch(s.customer.ID, 2)
		_, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
		s.ErrorIs(err, ErrInsufficientPunches)
	})

	s.Run("inactive reward is checked before punches", func() {
		inactive, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Retired", ThresholdPunches: 50, Active: boolPtr(false)})
		s.Require().NoError(err)
		_, err = s.f.redemptions.Request(s.ctx, s.customer.ID, inactive.ID)
		s.ErrorIs(err, ErrRewardInactive)
	})

	s.Run("success creates a pending request", func() {
		s.punch(s.customer.ID, 1)
		req, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
		s.Require().NoError(err)
		s.Equal(models.RedemptionStatusPending, req.Status)
		s.Equal("Muffin", req.RewardName)
		s.True(req.IsFor(s.reward.ID))
		s.Equal(s.f.clock.Now(), req.RequestedAt)
	})

	s.Run("second pending is rejected", func() {
		_, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
		s.ErrorIs(err, ErrDuplicatePendingRequest)
	})

	s.Run("punches are not consumed", func() {
		total, err := s.f.punches.TotalFor(s.ctx, s.customer.ID)
		s.Require().NoError(err)
		s.Equal(3, total)
	})
}

// TestTransitionTable walks all nine (state, target) pairs.
func (s *RedemptionServiceSuite) TestTransitionTable() {
	s.punch(s.customer.ID, 3)
	all := models.RedemptionStatuses()
	allowed := map[[2]models.RedemptionStatus]bool{
		{models.RedemptionStatusPending, models.RedemptionStatusFulfilled}: true,
		{models.RedemptionStatusPending, models.RedemptionStatusCancelled}: true,
		{models.RedemptionStatusFulfilled, models.RedemptionStatusPending}: true,
	}

	// placeIn drives a fresh request into the wanted starting state.
	placeIn := func(state models.RedemptionStatus) *models.RedemptionRequest {
		req, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
		s.Require().NoError(err)
		if state != models.RedemptionStatusPending {
			req, err = s.f.redemptions.SetStatus(s.ctx, req.ID, state)
			s.Require().NoError(err)
		}
		return req
	}
	// settle frees the pair for the next case.
	settle := func(id int64) {
		req, err := s.f.redemptions.Get(s.ctx, id)
		s.Require().NoError(err)
		if req.Status == models.RedemptionStatusPending {
			_, err = s.f.redemptions.SetStatus(s.ctx, id, models.RedemptionStatusCancelled)
			s.Require().NoError(err)
		}
	}

	successes := 0
	for _, from := range all {
		for _, to := range all {
			s.Run(fmt.Sprintf("%s to %s", from, to), func() {
				req := placeIn(from)
				defer settle(req.ID)

				updated, err := s.f.redemptions.SetStatus(s.ctx, req.ID, to)
				if allowed[[2]models.RedemptionStatus{from, to}] {
					s.Require().NoError(err)
					s.Equal(to, updated.Status)
					successes++
					return
				}
				s.ErrorIs(err, ErrInvalidStateTransition)
				unchanged, err := s.f.redemptions.Get(s.ctx, req.ID)
				s.Require().NoError(err)
				s.Equal(from, unchanged.Status, "failed transition must not mutate state")
			})
		}
	}
	s.Equal(3, successes)
}

func (s *RedemptionServiceSuite) TestUnknownStatusAndRequest() {
	_, err := s.f.redemptions.SetStatus(s.ctx, 1, models.RedemptionStatus("lost"))
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.f.redemptions.SetStatus(s.ctx, 999, models.RedemptionStatusFulfilled)
	s.ErrorIs(err, ErrRedemptionNotFound)
}

func (s *RedemptionServiceSuite) TestRevertCollidingWithNewPending() {
	s.punch(s.customer.ID, 3)
	first, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, first.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)

	_, err = s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err, "repeat policy allows a new request after fulfilment")

	_, err = s.f.redemptions.SetStatus(s.ctx, first.ID, models.RedemptionStatusPending)
	s.ErrorIs(err, ErrDuplicatePendingRequest)
}

func (s *RedemptionServiceSuite) TestOncePolicy() {
	svc := NewRedemptionService(s.f.store, s.f.store, s.f.store, s.f.store, models.RedemptionPolicyOnce, WithClock(s.f.clock.Now))
	s.punch(s.customer.ID, 3)

	req, err := svc.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err)
	_, err = svc.SetStatus(s.ctx, req.ID, models.RedemptionStatusCancelled)
	s.Require().NoError(err)

	req, err = svc.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err, "a cancelled request does not block")
	_, err = svc.SetStatus(s.ctx, req.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)

	_, err = svc.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.ErrorIs(err, ErrAlreadyRedeemed)
}

// TestRequestEligibilityProperty checks request succeeds iff the reward is active,
// the total reaches the threshold and no request is pending.
func (s *RedemptionServiceSuite) TestRequestEligibilityProperty() {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 60; i++ {
		c, err := s.f.identity.Issue(s.ctx, fmt.Sprintf("Random %d", i))
		s.Require().NoError(err)

		threshold := 1 + rng.Intn(6)
		active := rng.Intn(4) != 0
		reward, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Prize", ThresholdPunches: threshold, Active: boolPtr(active)})
		s.Require().NoError(err)

		punches := rng.Intn(9)
		s.punch(c.ID, punches)

		hasPending := false
		if active && punches >= threshold && rng.Intn(2) == 0 {
			_, err := s.f.redemptions.Request(s.ctx, c.ID, reward.ID)
			s.Require().NoError(err)
			hasPending = true
		}

		_, err = s.f.redemptions.Request(s.ctx, c.ID, reward.ID)
		expectOK := active && punches >= threshold && !hasPending
		if expectOK {
			s.NoError(err, "case %d: active=%v punches=%d threshold=%d", i, active, punches, threshold)
			continue
		}
		switch {
		case !active:
			s.ErrorIs(err, ErrRewardInactive)
		case punches < threshold:
			s.ErrorIs(err, ErrInsufficientPunches)
		default:
			s.ErrorIs(err, ErrDuplicatePendingRequest)
		}
	}
}

func (s *RedemptionServiceSuite) TestNote() {
	s.punch(s.customer.ID, 3)
	req, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err)

	updated, err := s.f.redemptions.SetNote(s.ctx, req.ID, "  left at the bar ")
	s.Require().NoError(err)
	s.Require().NotNil(updated.Note)
	s.Equal("left at the bar", *updated.Note)
	s.Equal(models.RedemptionStatusPending, updated.Status, "notes never change status")

	updated, err = s.f.redemptions.SetNote(s.ctx, req.ID, "")
	s.Require().NoError(err)
	s.Nil(updated.Note)

	_, err = s.f.redemptions.SetNote(s.ctx, req.ID, strings.Repeat("n", maxNoteLength+1))
	s.ErrorIs(err, ErrInvalidInput)

	_, err = s.f.redemptions.SetNote(s.ctx, 999, "x")
	s.ErrorIs(err, ErrRedemptionNotFound)
}

func (s *RedemptionServiceSuite) TestListEnrichment() {
	s.punch(s.customer.ID, 4)
	first, err := s.f.redemptions.Request(s.ctx, s.customer.ID, s.reward.ID)
	s.Require().NoError(err)
	_, err = s.f.redemptions.SetStatus(s.ctx, first.ID, models.RedemptionStatusFulfilled)
	s.Require().NoError(err)

	gone, err := s.f.rewards.Create(s.ctx, CreateRewardRequest{Name: "Discontinued", ThresholdPunches: 1})
	s.Require().NoError(err)
	s.f.clock.Advance(1)
	_, err = s.f.redemptions.Request(s.ctx, s.customer.ID, gone.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.f.rewards.Delete(s.ctx, gone.ID))

	views, err := s.f.redemptions.List(s.ctx, models.RedemptionFilters{})
	s.Require().NoError(err)
	s.Require().Len(views, 2)

	newest := views[0]
	s.Equal("Discontinued", newest.RewardName)
	s.False(newest.RewardExists)
	s.Nil(newest.RewardThreshold)
	s.Equal(s.customer.Slug, newest.CustomerSlug)
	s.Equal(4, newest.CustomerPunches)

	older := views[1]
	s.True(older.RewardExists)
	s.Require().NotNil(older.RewardThreshold)
	s.Equal(3, *older.RewardThreshold)
	s.Equal("Redeemer", older.CustomerName)

	pending := models.RedemptionStatusPending
	views, err = s.f.redemptions.List(s.ctx, models.RedemptionFilters{Status: &pending})
	s.Require().NoError(err)
	s.Len(views, 1)

	bogus := models.RedemptionStatus("nope")
	_, err = s.f.redemptions.List(s.ctx, models.RedemptionFilters{Status: &bogus})
	s.ErrorIs(err, ErrInvalidInput)
}
