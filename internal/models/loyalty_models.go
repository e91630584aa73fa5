package models

import "time"

// EligibilityState is the customer-facing classification of one reward.
type EligibilityState string

const (
	EligibilityAlreadyRequested EligibilityState = "already_requested"
	EligibilityEligible         EligibilityState = "eligible"
	EligibilityLocked           EligibilityState = "locked"
)

// RewardEligibility pairs an active reward with the customer's standing on it.
// Shortfall is only non-zero when State is locked.
type RewardEligibility struct {
	Reward    Reward           `json:"reward"`
	State     EligibilityState `json:"state"`
	Shortfall int              `json:"shortfall"`
}

// LoyaltyCard is everything the card page shows. It is computed per read and never stored.
type LoyaltyCard struct {
	Customer     Customer            `json:"customer"`
	TotalPunches int                 `json:"total_punches"`
	Punches      []Punch             `json:"punches"`
	Redemptions  []RedemptionRequest `json:"redemptions"`
	Rewards      []RewardEligibility `json:"rewards"`
}

// DashboardStats feeds the operator landing page.
type DashboardStats struct {
	TotalCustomers     int        `json:"total_customers"`
	TotalPunches       int        `json:"total_punches"`
	TotalRewards       int        `json:"total_rewards"`
	PendingRedemptions int        `json:"pending_redemptions"`
	RecentCustomers    []Customer `json:"recent_customers"`
}

// RedemptionPolicy decides whether a fulfilled request blocks asking for the same reward again.
type RedemptionPolicy string

const (
	// RedemptionPolicyRepeat lets a customer claim a reward again once earlier requests are settled.
	RedemptionPolicyRepeat RedemptionPolicy = "repeat"
	// RedemptionPolicyOnce allows a single fulfilled redemption per customer and reward.
	RedemptionPolicyOnce RedemptionPolicy = "once"
)

// IsValid reports whether p is a known policy.
func (p RedemptionPolicy) IsValid() bool {
	return p == RedemptionPolicyRepeat || p == RedemptionPolicyOnce
}

// LoyaltyPolicy holds the operator-tunable rules.
type LoyaltyPolicy struct {
	Redemption RedemptionPolicy
	// PunchCooldown is the minimum gap between a customer's QR punches. Zero disables it.
	PunchCooldown time.Duration
	// HistoryLimit caps the punches shown on a card.
	HistoryLimit int
}

// DefaultLoyaltyPolicy mirrors the behaviour of the paper card: repeat redemptions,
// no cooldown, last ten punches shown.
func DefaultLoyaltyPolicy() LoyaltyPolicy {
	return LoyaltyPolicy{
		Redemption:    RedemptionPolicyRepeat,
		PunchCooldown: 0,
		HistoryLimit:  10,
	}
}
