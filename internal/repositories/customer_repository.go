package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"punchcard_backend/internal/models"
)

// CustomerRepository defines the interface for customer-related storage operations.
type CustomerRepository interface {
	// CreateCustomer reserves customer.Slug and inserts the customer in one step.
	// A slug that is taken, or was ever taken, yields a *DuplicateKeyError.
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomerBySlug(ctx context.Context, slug string) (*models.Customer, error)
	// SlugExists reports whether slug is reserved, including slugs of deleted customers.
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetCustomers(ctx context.Context, filters models.CustomerFilters) ([]models.CustomerSummary, int, error)
	GetRecentCustomers(ctx context.Context, limit int) ([]models.Customer, error)
	UpdateCustomerName(ctx context.Context, id int64, displayName string) (*models.Customer, error)
	// DeleteCustomer removes the customer with its punches and redemption requests.
	// The slug stays reserved.
	DeleteCustomer(ctx context.Context, id int64) error
	CountCustomers(ctx context.Context) (int, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, display_name, slug, created_at`

func scanCustomer(row scanner, customer *models.Customer) error {
	return row.Scan(&customer.ID, &customer.DisplayName, &customer.Slug, &customer.CreatedAt)
}

// CreateCustomer inserts a new customer into the database.
func (r *customerRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting customer transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO customer_slugs (slug, reserved_at) VALUES ($1, $2)`,
		customer.Slug, customer.CreatedAt); err != nil {
		return classify(err, "reserving slug")
	}

	query := `INSERT INTO customers (display_name, slug, created_at)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	if err := tx.QueryRowContext(ctx, query, customer.DisplayName, customer.Slug, customer.CreatedAt).Scan(&customer.ID); err != nil {
		return classify(err, "creating customer")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing customer: %v", ErrDatabaseError, err)
	}
	return nil
}

// GetCustomerByID retrieves a customer by their ID.
func (r *customerRepository) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	if err := scanCustomer(r.db.QueryRowContext(ctx, query, id), customer); err != nil {
		return nil, classify(err, fmt.Sprintf("getting customer by ID %d", id))
	}
	return customer, nil
}

// GetCustomerBySlug retrieves a customer by their public slug.
func (r *customerRepository) GetCustomerBySlug(ctx context.Context, slug string) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `SELECT ` + customerColumns + ` FROM customers WHERE slug = $1`
	if err := scanCustomer(r.db.QueryRowContext(ctx, query, slug), customer); err != nil {
		return nil, classify(err, "getting customer by slug")
	}
	return customer, nil
}

func (r *customerRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customer_slugs WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, classify(err, "checking slug")
	}
	return exists, nil
}

// GetCustomers retrieves a list of customers with pagination and optional search.
// Each row carries its punch total counted from the ledger.
func (r *customerRepository) GetCustomers(ctx context.Context, filters models.CustomerFilters) ([]models.CustomerSummary, int, error) {
	customers := []models.CustomerSummary{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT c.id, c.display_name, c.slug, c.created_at,
	                                 (SELECT COUNT(*) FROM punches p WHERE p.customer_id = c.id) AS total_punches,
	                                 COUNT(*) OVER() AS total_count
	                          FROM customers c`)

	var args []interface{}
	argCount := 1

	if search := strings.TrimSpace(filters.Search); search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE (c.display_name ILIKE $%d OR c.slug ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+escapeLike(search)+"%")
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY c.created_at DESC, c.id DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filters.PageSize)
		argCount++
		if filters.Page > 1 {
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, (filters.Page-1)*filters.PageSize)
		}
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, classify(err, "querying customers")
	}
	defer rows.Close()

	for rows.Next() {
		var summary models.CustomerSummary
		if err := rows.Scan(
			&summary.ID, &summary.DisplayName, &summary.Slug, &summary.CreatedAt,
			&summary.TotalPunches, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, summary)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, totalCount, nil
}

// GetRecentCustomers returns the newest customers first.
func (r *customerRepository) GetRecentCustomers(ctx context.Context, limit int) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify(err, "querying recent customers")
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var customer models.Customer
		if err := scanCustomer(rows, &customer); err != nil {
			return nil, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, customer)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, nil
}

// UpdateCustomerName changes the only mutable customer field.
func (r *customerRepository) UpdateCustomerName(ctx context.Context, id int64, displayName string) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `UPDATE customers SET display_name = $1 WHERE id = $2 RETURNING ` + customerColumns
	if err := scanCustomer(r.db.QueryRowContext(ctx, query, displayName, id), customer); err != nil {
		return nil, classify(err, fmt.Sprintf("updating customer ID %d", id))
	}
	return customer, nil
}

// DeleteCustomer removes a customer; punches and requests go with it through ON DELETE CASCADE.
func (r *customerRepository) DeleteCustomer(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return classify(err, fmt.Sprintf("deleting customer ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for deleting customer ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *customerRepository) CountCustomers(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, `SELECT COUNT(*) FROM customers`)
}

func countRows(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) (int, error) {
	var n int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err, "counting rows")
	}
	return n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
