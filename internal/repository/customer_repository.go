package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

// CustomerRepository provides database access for customers and the
// user-customer assignment table.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `c.id, c.company_name, c.contact_person, c.email, c.phone, c.address, c.country, c.is_active, c.created_at, c.updated_at`

// ListForUser returns active customers assigned to the user, with quotation
// counts, filtered and sorted by company name.
func (r *CustomerRepository) ListForUser(ctx context.Context, userID string, filter models.CustomerFilter) ([]models.Customer, error) {
	query := `
		SELECT ` + customerColumns + `,
		       (SELECT COUNT(*) FROM quotations q WHERE q.customer_id = c.id) AS quotation_count
		FROM customers c
		JOIN user_customers uc ON uc.customer_id = c.id
		WHERE uc.user_id = $1`
	args := []interface{}{userID}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND c.is_active = $%d", len(args))
	} else {
		query += " AND c.is_active = TRUE"
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(c.company_name) LIKE $%d OR LOWER(c.contact_person) LIKE $%d OR LOWER(c.email) LIKE $%d)", len(args), len(args), len(args))
	}
	if filter.Country != "" {
		args = append(args, filter.Country)
		query += fmt.Sprintf(" AND c.country = $%d", len(args))
	}
	query += " ORDER BY c.company_name ASC"

	var customers []models.Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// FindForUser returns a customer by id only when assigned to the user.
func (r *CustomerRepository) FindForUser(ctx context.Context, userID, customerID string) (*models.Customer, error) {
	const query = `
		SELECT ` + customerColumns + `,
		       (SELECT COUNT(*) FROM quotations q WHERE q.customer_id = c.id) AS quotation_count
		FROM customers c
		JOIN user_customers uc ON uc.customer_id = c.id
		WHERE uc.user_id = $1 AND c.id = $2
		LIMIT 1`
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, userID, customerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return &customer, nil
}

// ListAll returns customers matching the filter regardless of assignment.
// Used for admin scope.
func (r *CustomerRepository) ListAll(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	query := `
		SELECT ` + customerColumns + `,
		       (SELECT COUNT(*) FROM quotations q WHERE q.customer_id = c.id) AS quotation_count
		FROM customers c
		WHERE 1=1`
	var args []interface{}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND c.is_active = $%d", len(args))
	} else {
		query += " AND c.is_active = TRUE"
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(c.company_name) LIKE $%d OR LOWER(c.contact_person) LIKE $%d OR LOWER(c.email) LIKE $%d)", len(args), len(args), len(args))
	}
	if filter.Country != "" {
		args = append(args, filter.Country)
		query += fmt.Sprintf(" AND c.country = $%d", len(args))
	}
	query += " ORDER BY c.company_name ASC"

	var customers []models.Customer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, fmt.Errorf("list all customers: %w", err)
	}
	return customers, nil
}

// FindByID returns a customer by id regardless of assignment.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	const query = `
		SELECT ` + customerColumns + `,
		       (SELECT COUNT(*) FROM quotations q WHERE q.customer_id = c.id) AS quotation_count
		FROM customers c
		WHERE c.id = $1
		LIMIT 1`
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	return &customer, nil
}

// FindByEmail returns a customer by email regardless of assignment.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	const query = `SELECT ` + customerColumns + `, 0 AS quotation_count FROM customers c WHERE c.email = $1 LIMIT 1`
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return &customer, nil
}

// Create inserts a customer and assigns it to the creating user.
func (r *CustomerRepository) Create(ctx context.Context, userID string, customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create customer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertCustomer = `INSERT INTO customers (id, company_name, contact_person, email, phone, address, country, is_active, created_at, updated_at) VALUES (:id, :company_name, :contact_person, :email, :phone, :address, :country, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertCustomer, customer); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	const insertAssignment = `INSERT INTO user_customers (id, user_id, customer_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertAssignment, uuid.NewString(), userID, customer.ID, now); err != nil {
		return fmt.Errorf("assign customer to user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create customer: %w", err)
	}
	return nil
}

// Update updates mutable fields of a customer.
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE customers SET company_name = :company_name, contact_person = :contact_person, email = :email, phone = :phone, address = :address, country = :country, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

// Deactivate performs a soft delete by marking the customer inactive.
func (r *CustomerRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE customers SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	return nil
}

// CountQuotations returns the number of quotations referencing a customer.
func (r *CustomerRepository) CountQuotations(ctx context.Context, customerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM quotations WHERE customer_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, customerID); err != nil {
		return 0, fmt.Errorf("count customer quotations: %w", err)
	}
	return count, nil
}
