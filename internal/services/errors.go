package services

import (
	"errors"
	"fmt"

	"punchcard_backend/internal/repositories"
)

// --- Loyalty service errors ---
// Business-rule failures are returned as values so handlers can render them directly.
// None of them are retried by the services.
var (
	ErrInvalidInput              = errors.New("invalid input")
	ErrNotFound                  = errors.New("not found")
	ErrRewardInactive            = errors.New("reward is not active")
	ErrInsufficientPunches       = errors.New("not enough punches for this reward")
	ErrDuplicatePendingRequest   = errors.New("a pending request for this reward already exists")
	ErrAlreadyRedeemed           = errors.New("reward already redeemed by this customer")
	ErrInvalidStateTransition    = errors.New("invalid redemption status transition")
	ErrIdentityIssuanceExhausted = errors.New("could not reserve a unique slug")
	ErrPunchCooldown             = errors.New("punch recorded too recently")
	ErrStorageUnavailable        = errors.New("storage unavailable")

	ErrCustomerNotFound   = fmt.Errorf("%w: customer", ErrNotFound)
	ErrRewardNotFound     = fmt.Errorf("%w: reward", ErrNotFound)
	ErrRedemptionNotFound = fmt.Errorf("%w: redemption request", ErrNotFound)
)

// storageErr translates a repository failure. notFound is returned for a missing row;
// anything else is reported as ErrStorageUnavailable with the cause kept in the chain.
func storageErr(err error, notFound error, action string) error {
	if notFound != nil && errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, action, err)
}
