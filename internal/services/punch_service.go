package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/pkg/utils"
)

// --- PunchService Interface ---
type PunchService interface {
	// Record appends exactly one punch for an existing customer.
	Record(ctx context.Context, customerID int64, kind models.PunchKind) (*models.Punch, error)
	// TotalFor counts the whole ledger of a customer. Unknown customers have zero punches.
	TotalFor(ctx context.Context, customerID int64) (int, error)
	// HistoryFor lists punches newest first; limit <= 0 returns all of them.
	HistoryFor(ctx context.Context, customerID int64, limit int) ([]models.Punch, error)
	CountAll(ctx context.Context) (int, error)
}

// --- punchService Implementation ---
type punchService struct {
	punchRepo    repositories.PunchRepository
	customerRepo repositories.CustomerRepository
	cooldown     time.Duration
	opts         options
}

// NewPunchService creates a new instance of PunchService. A positive cooldown makes
// QR punches fail with ErrPunchCooldown while the customer's last punch is younger
// than it; manual punches are never throttled.
func NewPunchService(pr repositories.PunchRepository, cr repositories.CustomerRepository, cooldown time.Duration, opts ...Option) PunchService {
	return &punchService{
		punchRepo:    pr,
		customerRepo: cr,
		cooldown:     cooldown,
		opts:         newOptions(opts),
	}
}

func (s *punchService) Record(ctx context.Context, customerID int64, kind models.PunchKind) (*models.Punch, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown punch kind %q", ErrInvalidInput, kind)
	}
	if _, err := s.customerRepo.GetCustomerByID(ctx, customerID); err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "loading customer for punch")
	}

	now := s.opts.now()
	punch := &models.Punch{CustomerID: customerID, Kind: kind, OccurredAt: now}

	var err error
	if s.cooldown > 0 && kind == models.PunchKindQR {
		err = s.punchRepo.CreatePunchIfIdle(ctx, punch, now.Add(-s.cooldown))
	} else {
		err = s.punchRepo.CreatePunch(ctx, punch)
	}
	if errors.Is(err, repositories.ErrPreconditionFailed) {
		s.opts.metrics.IncPunchRejected()
		utils.LogDebug("QR punch rejected by cooldown", map[string]interface{}{"customer_id": customerID})
		return nil, fmt.Errorf("%w: wait %s between visits", ErrPunchCooldown, s.cooldown)
	}
	if err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "recording punch")
	}

	s.opts.metrics.IncPunch(string(kind))
	utils.LogInfo("Punch recorded", map[string]interface{}{
		"customer_id": customerID, "punch_id": punch.ID, "kind": kind,
	})
	return punch, nil
}

func (s *punchService) TotalFor(ctx context.Context, customerID int64) (int, error) {
	total, err := s.punchRepo.CountPunchesByCustomer(ctx, customerID)
	if err != nil {
		return 0, storageErr(err, nil, "counting punches")
	}
	return total, nil
}

func (s *punchService) HistoryFor(ctx context.Context, customerID int64, limit int) ([]models.Punch, error) {
	punches, err := s.punchRepo.GetPunchesByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, storageErr(err, nil, "loading punch history")
	}
	return punches, nil
}

func (s *punchService) CountAll(ctx context.Context) (int, error) {
	n, err := s.punchRepo.CountPunches(ctx)
	if err != nil {
		return 0, storageErr(err, nil, "counting punches")
	}
	return n, nil
}
