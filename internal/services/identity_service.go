package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/pkg/utils"
)

const (
	// MaxSlugAttempts bounds how many candidates Issue tries before giving up.
	MaxSlugAttempts = 10

	maxDisplayNameLength = 120
)

// --- IdentityService Interface ---
type IdentityService interface {
	// Issue creates a customer with a freshly reserved slug.
	Issue(ctx context.Context, displayName string) (*models.Customer, error)
	GetByID(ctx context.Context, customerID int64) (*models.Customer, error)
	GetBySlug(ctx context.Context, slug string) (*models.Customer, error)
	List(ctx context.Context, filters models.CustomerFilters) ([]models.CustomerSummary, int, error)
	Recent(ctx context.Context, limit int) ([]models.Customer, error)
	Count(ctx context.Context) (int, error)
	Rename(ctx context.Context, customerID int64, displayName string) (*models.Customer, error)
	// Delete removes the customer, its punches and its redemption requests.
	// The slug is retired, never handed out again.
	Delete(ctx context.Context, customerID int64) error
}

// --- identityService Implementation ---
type identityService struct {
	customerRepo repositories.CustomerRepository
	slugs        SlugGenerator
	opts         options
}

// NewIdentityService creates a new instance of IdentityService.
func NewIdentityService(repo repositories.CustomerRepository, slugs SlugGenerator, opts ...Option) IdentityService {
	return &identityService{
		customerRepo: repo,
		slugs:        slugs,
		opts:         newOptions(opts),
	}
}

func normalizeDisplayName(displayName string) (string, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return "", fmt.Errorf("%w: display name cannot be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return "", fmt.Errorf("%w: display name must be %d characters or less", ErrInvalidInput, maxDisplayNameLength)
	}
	return name, nil
}

func (s *identityService) Issue(ctx context.Context, displayName string) (*models.Customer, error) {
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		slug, err := s.slugs.Generate()
		if err != nil {
			return nil, fmt.Errorf("generating slug: %w", err)
		}

		taken, err := s.customerRepo.SlugExists(ctx, slug)
		if err != nil {
			return nil, storageErr(err, nil, "checking slug availability")
		}
		if taken {
			s.opts.metrics.IncSlugCollision()
			utils.LogDebug("Slug candidate already reserved", map[string]interface{}{"attempt": attempt})
			continue
		}

		customer := &models.Customer{DisplayName: name, Slug: slug, CreatedAt: s.opts.now()}
		err = s.customerRepo.CreateCustomer(ctx, customer)
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost a race for the same slug between the check and the insert.
			s.opts.metrics.IncSlugCollision()
			continue
		}
		if err != nil {
			return nil, storageErr(err, nil, "creating customer")
		}

		s.opts.metrics.IncCustomersIssued()
		utils.LogInfo("Customer identity issued", map[string]interface{}{
			"customer_id": customer.ID, "slug": customer.Slug, "attempts": attempt,
		})
		return customer, nil
	}

	s.opts.metrics.IncIssuanceExhausted()
	err = fmt.Errorf("%w after %d attempts", ErrIdentityIssuanceExhausted, MaxSlugAttempts)
	utils.LogError(err, "Slug space exhausted while issuing customer identity", map[string]interface{}{"alert": true})
	return nil, err
}

func (s *identityService) GetByID(ctx context.Context, customerID int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "loading customer")
	}
	return customer, nil
}

// GetBySlug treats malformed slugs as unknown customers.
func (s *identityService) GetBySlug(ctx context.Context, slug string) (*models.Customer, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !IsValidSlug(slug) {
		return nil, ErrCustomerNotFound
	}
	customer, err := s.customerRepo.GetCustomerBySlug(ctx, slug)
	if err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "loading customer by slug")
	}
	return customer, nil
}

func (s *identityService) List(ctx context.Context, filters models.CustomerFilters) ([]models.CustomerSummary, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}
	customers, total, err := s.customerRepo.GetCustomers(ctx, filters)
	if err != nil {
		return nil, 0, storageErr(err, nil, "listing customers")
	}
	return customers, total, nil
}

func (s *identityService) Recent(ctx context.Context, limit int) ([]models.Customer, error) {
	customers, err := s.customerRepo.GetRecentCustomers(ctx, limit)
	if err != nil {
		return nil, storageErr(err, nil, "listing recent customers")
	}
	return customers, nil
}

func (s *identityService) Count(ctx context.Context) (int, error) {
	n, err := s.customerRepo.CountCustomers(ctx)
	if err != nil {
		return 0, storageErr(err, nil, "counting customers")
	}
	return n, nil
}

func (s *identityService) Rename(ctx context.Context, customerID int64, displayName string) (*models.Customer, error) {
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.UpdateCustomerName(ctx, customerID, name)
	if err != nil {
		return nil, storageErr(err, ErrCustomerNotFound, "renaming customer")
	}
	return customer, nil
}

func (s *identityService) Delete(ctx context.Context, customerID int64) error {
	if err := s.customerRepo.DeleteCustomer(ctx, customerID); err != nil {
		return storageErr(err, ErrCustomerNotFound, "deleting customer")
	}
	utils.LogInfo("Customer deleted", map[string]interface{}{"customer_id": customerID})
	return nil
}
