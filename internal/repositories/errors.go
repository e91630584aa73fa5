package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrPreconditionFailed is returned by conditional writes whose guard did not hold,
	// e.g. a status compare-and-set that found a different current status.
	ErrPreconditionFailed = errors.New("write precondition not met")
)

// Constraint names shared by the schema and both store implementations.
const (
	ConstraintCustomerSlug      = "customer_slugs_pkey"
	ConstraintPendingRedemption = "redemption_requests_one_pending_idx"
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx
// This allows repository methods to be used within transactions or with a direct DB connection.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// scanner is an interface satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// classify maps a driver error onto the repository sentinels.
func classify(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return &DuplicateKeyError{Constraint: pqErr.Constraint}
		case "foreign_key_violation":
			return fmt.Errorf("%w: %s references a missing row (constraint: %s)", ErrNotFound, action, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, action, err)
}

// DuplicateKeyError names the unique constraint an insert or update ran into.
// It unwraps to ErrDuplicateKey.
type DuplicateKeyError struct {
	Constraint string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s (constraint: %s)", ErrDuplicateKey.Error(), e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }
