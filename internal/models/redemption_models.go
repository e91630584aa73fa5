package models

import "time"

// RedemptionStatus is the lifecycle state of a redemption request.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusFulfilled RedemptionStatus = "fulfilled"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
)

// redemptionTransitions lists every legal move. Cancelled has no way out.
var redemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionStatusPending:   {RedemptionStatusFulfilled, RedemptionStatusCancelled},
	RedemptionStatusFulfilled: {RedemptionStatusPending},
	RedemptionStatusCancelled: nil,
}

// IsValid reports whether s is one of the known statuses.
func (s RedemptionStatus) IsValid() bool {
	_, ok := redemptionTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s RedemptionStatus) CanTransitionTo(next RedemptionStatus) bool {
	for _, allowed := range redemptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RedemptionStatuses returns all statuses in lifecycle order.
func RedemptionStatuses() []RedemptionStatus {
	return []RedemptionStatus{RedemptionStatusPending, RedemptionStatusFulfilled, RedemptionStatusCancelled}
}

// RedemptionRequest is a customer's claim against a reward.
// RewardID is nil once the reward has been deleted from the catalog;
// RewardName keeps the name it had when the request was made.
type RedemptionRequest struct {
	ID          int64            `json:"id" db:"id"`
	CustomerID  int64            `json:"customer_id" db:"customer_id"`
	RewardID    *int64           `json:"reward_id" db:"reward_id"`
	RewardName  string           `json:"reward_name" db:"reward_name"`
	Status      RedemptionStatus `json:"status" db:"status"`
	Note        *string          `json:"note,omitempty" db:"note"`
	RequestedAt time.Time        `json:"requested_at" db:"requested_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// IsFor reports whether the request references the given reward.
func (r *RedemptionRequest) IsFor(rewardID int64) bool {
	return r.RewardID != nil && *r.RewardID == rewardID
}

// RedemptionFilters defines the available filters for querying redemption requests.
// Results are ordered newest first by RequestedAt.
type RedemptionFilters struct {
	Status     *RedemptionStatus
	CustomerID *int64
	RewardID   *int64
	Limit      int
}

// RedemptionView is a request enriched for the operator queue. Reward fields are
// nil when the reward no longer resolves.
type RedemptionView struct {
	RedemptionRequest
	CustomerName    string `json:"customer_name"`
	CustomerSlug    string `json:"customer_slug"`
	CustomerPunches int    `json:"customer_punches"`
	RewardThreshold *int   `json:"reward_threshold,omitempty"`
	RewardExists    bool   `json:"reward_exists"`
}
