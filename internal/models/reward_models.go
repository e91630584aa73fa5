package models

import "time"

// Reward is a catalog entry a customer can claim once their punch total
// reaches ThresholdPunches.
type Reward struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Description      *string   `json:"description,omitempty" db:"description"`
	ThresholdPunches int       `json:"threshold_punches" db:"threshold_punches"`
	Active           bool      `json:"active" db:"active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// RewardFilters narrows catalog listings. Results are always ordered by
// threshold ascending, then id.
type RewardFilters struct {
	ActiveOnly bool `form:"active_only"`
}
