package models

// PolicySettings is the read-only view of the loyalty rules the server runs with.
type PolicySettings struct {
	RedemptionPolicy     RedemptionPolicy `json:"redemption_policy"`
	PunchCooldown        string           `json:"punch_cooldown"`
	PunchCooldownSeconds int64            `json:"punch_cooldown_seconds"`
	HistoryLimit         int              `json:"history_limit"`
}

// NewPolicySettings renders p for API clients.
func NewPolicySettings(p LoyaltyPolicy) PolicySettings {
	return PolicySettings{
		RedemptionPolicy:     p.Redemption,
		PunchCooldown:        p.PunchCooldown.String(),
		PunchCooldownSeconds: int64(p.PunchCooldown.Seconds()),
		HistoryLimit:         p.HistoryLimit,
	}
}
