package repositories

import "database/sql"

// Store bundles the repositories one storage backend provides.
type Store struct {
	Customers   CustomerRepository
	Punches     PunchRepository
	Rewards     RewardRepository
	Redemptions RedemptionRepository
}

// NewPostgresStore wires the PostgreSQL repositories over a shared pool.
func NewPostgresStore(db *sql.DB) Store {
	return Store{
		Customers:   NewCustomerRepository(db),
		Punches:     NewPunchRepository(db),
		Rewards:     NewRewardRepository(db),
		Redemptions: NewRedemptionRepository(db),
	}
}

// Store exposes the in-memory store through every repository interface.
func (s *MemoryStore) Store() Store {
	return Store{Customers: s, Punches: s, Rewards: s, Redemptions: s}
}
