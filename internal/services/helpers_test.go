package services

import (
	"context"
	"sync"
	"time"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
)

// testClock is a settable clock shared by a test's services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceSlugs hands out a fixed list of candidates, then repeats the last one.
type sequenceSlugs struct {
	mu    sync.Mutex
	slugs []string
	calls int
}

func (g *sequenceSlugs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.slugs) {
		i = len(g.slugs) - 1
	}
	g.calls++
	return g.slugs[i], nil
}

// brokenCustomers fails every slug lookup, standing in for a database outage.
type brokenCustomers struct {
	repositories.CustomerRepository
	err error
}

func (b brokenCustomers) SlugExists(context.Context, string) (bool, error) {
	return false, b.err
}

func (b brokenCustomers) GetCustomerByID(context.Context, int64) (*models.Customer, error) {
	return nil, b.err
}

// fixture wires every service over one in-memory store.
type fixture struct {
	store       *repositories.MemoryStore
	clock       *testClock
	identity    IdentityService
	punches     PunchService
	rewards     RewardService
	redemptions RedemptionService
	loyalty     LoyaltyService
}

func newFixture(policy models.LoyaltyPolicy) *fixture {
	store := repositories.NewMemoryStore()
	clock := newTestClock()
	opt := WithClock(clock.Now)

	f := &fixture{store: store, clock: clock}
	f.identity = NewIdentityService(store, NewSlugGenerator(), opt)
	f.punches = NewPunchService(store, store, policy.PunchCooldown, opt)
	f.rewards = NewRewardService(store, opt)
	f.redemptions = NewRedemptionService(store, store, store, store, policy.Redemption, opt)
	f.loyalty = NewLoyaltyService(f.identity, f.punches, f.rewards, f.redemptions, policy)
	return f
}

func boolPtr(b bool) *bool {
	return &b
}
