package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"punchcard_backend/internal/models"
)

// MemoryStore is an in-process implementation of every repository interface.
// One mutex guards all tables so cascades and the uniqueness checks are atomic,
// matching what the PostgreSQL constraints give the SQL repositories.
type MemoryStore struct {
	mu sync.RWMutex

	customers   map[int64]models.Customer
	slugs       map[string]struct{}
	punches     map[int64]models.Punch
	rewards     map[int64]models.Reward
	redemptions map[int64]models.RedemptionRequest

	customerSeq   int64
	punchSeq      int64
	rewardSeq     int64
	redemptionSeq int64
}

var (
	_ CustomerRepository   = (*MemoryStore)(nil)
	_ PunchRepository      = (*MemoryStore)(nil)
	_ RewardRepository     = (*MemoryStore)(nil)
	_ RedemptionRepository = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:   make(map[int64]models.Customer),
		slugs:       make(map[string]struct{}),
		punches:     make(map[int64]models.Punch),
		rewards:     make(map[int64]models.Reward),
		redemptions: make(map[int64]models.RedemptionRequest),
	}
}

// --- customers ---

func (s *MemoryStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[customer.Slug]; taken {
		return &DuplicateKeyError{Constraint: ConstraintCustomerSlug}
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customerSeq++
	customer.ID = s.customerSeq
	s.slugs[customer.Slug] = struct{}{}
	s.customers[customer.ID] = *customer
	return nil
}

func (s *MemoryStore) GetCustomerByID(_ context.Context, id int64) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.customers[id]; ok {
		return &c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetCustomerBySlug(_ context.Context, slug string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slugs[slug]
	return ok, nil
}

func (s *MemoryStore) GetCustomers(_ context.Context, filters models.CustomerFilters) ([]models.CustomerSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filters.Search))
	matched := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.DisplayName), search) &&
			!strings.Contains(strings.ToLower(c.Slug), search) {
			continue
		}
		matched = append(matched, c)
	}
	sortCustomersNewestFirst(matched)

	total := len(matched)
	if filters.PageSize > 0 {
		start := 0
		if filters.Page > 1 {
			start = (filters.Page - 1) * filters.PageSize
		}
		if start > len(matched) {
			start = len(matched)
		}
		end := start + filters.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}

	summaries := make([]models.CustomerSummary, 0, len(matched))
	for _, c := range matched {
		summaries = append(summaries, models.CustomerSummary{Customer: c, TotalPunches: s.countPunchesLocked(c.ID)})
	}
	return summaries, total, nil
}

func (s *MemoryStore) GetRecentCustomers(_ context.Context, limit int) ([]models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		all = append(all, c)
	}
	sortCustomersNewestFirst(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) UpdateCustomerName(_ context.Context, id int64, displayName string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.DisplayName = displayName
	s.customers[id] = c
	return &c, nil
}

func (s *MemoryStore) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[id]; !ok {
		return ErrNotFound
	}
	delete(s.customers, id)
	for pid, p := range s.punches {
		if p.CustomerID == id {
			delete(s.punches, pid)
		}
	}
	for rid, r := range s.redemptions {
		if r.CustomerID == id {
			delete(s.redemptions, rid)
		}
	}
	return nil
}

func (s *MemoryStore) CountCustomers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers), nil
}

func sortCustomersNewestFirst(customers []models.Customer) {
	sort.Slice(customers, func(i, j int) bool {
		if !customers[i].CreatedAt.Equal(customers[j].CreatedAt) {
			return customers[i].CreatedAt.After(customers[j].CreatedAt)
		}
		return customers[i].ID > customers[j].ID
	})
}

// --- punches ---

func (s *MemoryStore) CreatePunch(_ context.Context, punch *models.Punch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPunchLocked(punch)
}

func (s *MemoryStore) CreatePunchIfIdle(_ context.Context, punch *models.Punch, since time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.punches {
		if p.CustomerID == punch.CustomerID && p.OccurredAt.After(since) {
			return ErrPreconditionFailed
		}
	}
	return s.insertPunchLocked(punch)
}

func (s *MemoryStore) insertPunchLocked(punch *models.Punch) error {
	if _, ok := s.customers[punch.CustomerID]; !ok {
		return ErrNotFound
	}
	if punch.OccurredAt.IsZero() {
		punch.OccurredAt = time.Now().UTC()
	}
	s.punchSeq++
	punch.ID = s.punchSeq
	s.punches[punch.ID] = *punch
	return nil
}

func (s *MemoryStore) CountPunchesByCustomer(_ context.Context, customerID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countPunchesLocked(customerID), nil
}

func (s *MemoryStore) countPunchesLocked(customerID int64) int {
	n := 0
	for _, p := range s.punches {
		if p.CustomerID == customerID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) GetPunchesByCustomer(_ context.Context, customerID int64, limit int) ([]models.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	punches := []models.Punch{}
	for _, p := range s.punches {
		if p.CustomerID == customerID {
			punches = append(punches, p)
		}
	}
	sort.Slice(punches, func(i, j int) bool {
		if !punches[i].OccurredAt.Equal(punches[j].OccurredAt) {
			return punches[i].OccurredAt.After(punches[j].OccurredAt)
		}
		return punches[i].ID > punches[j].ID
	})
	if limit > 0 && len(punches) > limit {
		punches = punches[:limit]
	}
	return punches, nil
}

func (s *MemoryStore) CountPunches(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.punches), nil
}

// --- rewards ---

func (s *MemoryStore) CreateReward(_ context.Context, reward *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = now
	}
	if reward.UpdatedAt.IsZero() {
		reward.UpdatedAt = now
	}
	s.rewardSeq++
	reward.ID = s.rewardSeq
	s.rewards[reward.ID] = *reward
	return nil
}

func (s *MemoryStore) GetRewardByID(_ context.Context, id int64) (*models.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rewards[id]; ok {
		return &r, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetRewards(_ context.Context, filters models.RewardFilters) ([]models.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rewards := []models.Reward{}
	for _, r := range s.rewards {
		if filters.ActiveOnly && !r.Active {
			continue
		}
		rewards = append(rewards, r)
	}
	sort.Slice(rewards, func(i, j int) bool {
		if rewards[i].ThresholdPunches != rewards[j].ThresholdPunches {
			return rewards[i].ThresholdPunches < rewards[j].ThresholdPunches
		}
		return rewards[i].ID < rewards[j].ID
	})
	return rewards, nil
}

func (s *MemoryStore) UpdateReward(_ context.Context, reward *models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rewards[reward.ID]
	if !ok {
		return ErrNotFound
	}
	reward.CreatedAt = existing.CreatedAt
	if reward.UpdatedAt.IsZero() {
		reward.UpdatedAt = time.Now().UTC()
	}
	s.rewards[reward.ID] = *reward
	return nil
}

func (s *MemoryStore) SetRewardActive(_ context.Context, id int64, active bool, updatedAt time.Time) (*models.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Active = active
	r.UpdatedAt = updatedAt
	s.rewards[id] = r
	return &r, nil
}

func (s *MemoryStore) DeleteReward(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rewards[id]; !ok {
		return ErrNotFound
	}
	delete(s.rewards, id)
	// ON DELETE SET NULL
	for rid, req := range s.redemptions {
		if req.IsFor(id) {
			req.RewardID = nil
			s.redemptions[rid] = req
		}
	}
	return nil
}

func (s *MemoryStore) CountRewards(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rewards), nil
}

// --- redemption requests ---

func (s *MemoryStore) CreateRedemption(_ context.Context, req *models.RedemptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[req.CustomerID]; !ok {
		return ErrNotFound
	}
	if req.RewardID != nil {
		if _, ok := s.rewards[*req.RewardID]; !ok {
			return ErrNotFound
		}
	}
	if req.Status == models.RedemptionStatusPending && s.hasOtherPendingLocked(0, req.CustomerID, req.RewardID) {
		return &DuplicateKeyError{Constraint: ConstraintPendingRedemption}
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.RequestedAt
	}
	s.redemptionSeq++
	req.ID = s.redemptionSeq
	s.redemptions[req.ID] = copyRedemption(*req)
	return nil
}

// hasOtherPendingLocked mirrors the partial unique index: rows with a NULL reward never collide.
func (s *MemoryStore) hasOtherPendingLocked(selfID, customerID int64, rewardID *int64) bool {
	if rewardID == nil {
		return false
	}
	for id, r := range s.redemptions {
		if id != selfID && r.CustomerID == customerID && r.IsFor(*rewardID) && r.Status == models.RedemptionStatusPending {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetRedemptionByID(_ context.Context, id int64) (*models.RedemptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.redemptions[id]; ok {
		c := copyRedemption(r)
		return &c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetRedemptions(_ context.Context, filters models.RedemptionFilters) ([]models.RedemptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := []models.RedemptionRequest{}
	for _, r := range s.redemptions {
		if filters.Status != nil && r.Status != *filters.Status {
			continue
		}
		if filters.CustomerID != nil && r.CustomerID != *filters.CustomerID {
			continue
		}
		if filters.RewardID != nil && !r.IsFor(*filters.RewardID) {
			continue
		}
		requests = append(requests, copyRedemption(r))
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].RequestedAt.Equal(requests[j].RequestedAt) {
			return requests[i].RequestedAt.After(requests[j].RequestedAt)
		}
		return requests[i].ID > requests[j].ID
	})
	if filters.Limit > 0 && len(requests) > filters.Limit {
		requests = requests[:filters.Limit]
	}
	return requests, nil
}

func (s *MemoryStore) UpdateRedemptionStatus(_ context.Context, id int64, from, to models.RedemptionStatus, updatedAt time.Time) (*models.RedemptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.redemptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, ErrPreconditionFailed
	}
	if to == models.RedemptionStatusPending && s.hasOtherPendingLocked(id, r.CustomerID, r.RewardID) {
		return nil, &DuplicateKeyError{Constraint: ConstraintPendingRedemption}
	}
	r.Status = to
	r.UpdatedAt = updatedAt
	s.redemptions[id] = r
	c := copyRedemption(r)
	return &c, nil
}

func (s *MemoryStore) UpdateRedemptionNote(_ context.Context, id int64, note *string, updatedAt time.Time) (*models.RedemptionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.redemptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Note = note
	r.UpdatedAt = updatedAt
	r = copyRedemption(r)
	s.redemptions[id] = r
	c := copyRedemption(r)
	return &c, nil
}

func (s *MemoryStore) CountRedemptions(_ context.Context, status *models.RedemptionStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == nil {
		return len(s.redemptions), nil
	}
	n := 0
	for _, r := range s.redemptions {
		if r.Status == *status {
			n++
		}
	}
	return n, nil
}

// copyRedemption detaches the pointer fields so callers cannot mutate stored rows.
func copyRedemption(r models.RedemptionRequest) models.RedemptionRequest {
	if r.RewardID != nil {
		id := *r.RewardID
		r.RewardID = &id
	}
	if r.Note != nil {
		n := *r.Note
		r.Note = &n
	}
	return r
}
