package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

// QuotationRepository provides database access for quotations and their
// versioned configuration rows.
type QuotationRepository struct {
	db *sqlx.DB
}

// NewQuotationRepository creates a new instance of QuotationRepository.
func NewQuotationRepository(db *sqlx.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

const quotationColumns = `q.id, q.quotation_number, q.title, q.user_id, q.customer_id, q.machine_id, q.status, q.version, q.parent_quotation_id, q.is_latest_version, q.version_notes, q.total_price, q.currency, q.valid_until, q.created_at, q.updated_at`

// List returns latest-version quotations matching the filter with joined
// display fields, newest first.
func (r *QuotationRepository) List(ctx context.Context, filter models.QuotationFilter) ([]models.QuotationSummary, error) {
	query := `
		SELECT ` + quotationColumns + `,
		       c.company_name AS customer_name,
		       m.name AS machine_name,
		       (SELECT COUNT(*) FROM quotation_configurations qc WHERE qc.quotation_id = q.id AND qc.is_current_version = TRUE) AS configuration_count
		FROM quotations q
		JOIN customers c ON c.id = q.customer_id
		LEFT JOIN machines m ON m.id = q.machine_id
		WHERE q.is_latest_version = TRUE`
	var args []interface{}

	if !filter.AllUsers {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND q.user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND q.status = $%d", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND q.customer_id = $%d", len(args))
	}
	if filter.MachineID != "" {
		args = append(args, filter.MachineID)
		query += fmt.Sprintf(" AND q.machine_id = $%d", len(args))
	}
	query += " ORDER BY q.created_at DESC"

	var quotations []models.QuotationSummary
	if err := r.db.SelectContext(ctx, &quotations, query, args...); err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	return quotations, nil
}

// FindByID returns a quotation by identifier.
func (r *QuotationRepository) FindByID(ctx context.Context, id string) (*models.Quotation, error) {
	const query = `SELECT ` + quotationColumns + ` FROM quotations q WHERE q.id = $1 LIMIT 1`
	var quotation models.Quotation
	if err := r.db.GetContext(ctx, &quotation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quotation: %w", err)
	}
	return &quotation, nil
}

// FindSummary returns a quotation with joined display fields.
func (r *QuotationRepository) FindSummary(ctx context.Context, id string) (*models.QuotationSummary, error) {
	const query = `
		SELECT ` + quotationColumns + `,
		       c.company_name AS customer_name,
		       m.name AS machine_name,
		       (SELECT COUNT(*) FROM quotation_configurations qc WHERE qc.quotation_id = q.id AND qc.is_current_version = TRUE) AS configuration_count
		FROM quotations q
		JOIN customers c ON c.id = q.customer_id
		LEFT JOIN machines m ON m.id = q.machine_id
		WHERE q.id = $1
		LIMIT 1`
	var summary models.QuotationSummary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quotation summary: %w", err)
	}
	return &summary, nil
}

// InitializeConfigurations inserts the provided first-version rows in a single
// transaction.
func (r *QuotationRepository) InitializeConfigurations(ctx context.Context, rows []models.QuotationConfiguration) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin initialize configurations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insertQuotationConfig, rows[i]); err != nil {
			return fmt.Errorf("insert initial configuration: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit initialize configurations: %w", err)
	}
	return nil
}

// CountForYear returns the number of quotations whose number carries the given
// year prefix. Used for sequential quotation numbering.
func (r *QuotationRepository) CountForYear(ctx context.Context, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM quotations WHERE quotation_number LIKE $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, fmt.Sprintf("QUO-%d-%%", year)); err != nil {
		return 0, fmt.Errorf("count quotations for year: %w", err)
	}
	return count, nil
}

// Create inserts a quotation record.
func (r *QuotationRepository) Create(ctx context.Context, quotation *models.Quotation) error {
	if quotation.ID == "" {
		quotation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quotation.CreatedAt = now
	quotation.UpdatedAt = now
	const query = `INSERT INTO quotations (id, quotation_number, title, user_id, customer_id, machine_id, status, version, parent_quotation_id, is_latest_version, version_notes, total_price, currency, valid_until, created_at, updated_at) VALUES (:id, :quotation_number, :title, :user_id, :customer_id, :machine_id, :status, :version, :parent_quotation_id, :is_latest_version, :version_notes, :total_price, :currency, :valid_until, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quotation); err != nil {
		return fmt.Errorf("create quotation: %w", err)
	}
	return nil
}

// Update updates mutable header fields of a quotation.
func (r *QuotationRepository) Update(ctx context.Context, quotation *models.Quotation) error {
	quotation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quotations SET title = :title, customer_id = :customer_id, machine_id = :machine_id, version_notes = :version_notes, valid_until = :valid_until, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quotation); err != nil {
		return fmt.Errorf("update quotation: %w", err)
	}
	return nil
}

// UpdateStatus sets the workflow status of a quotation.
func (r *QuotationRepository) UpdateStatus(ctx context.Context, id string, status models.QuotationStatus) error {
	const query = `UPDATE quotations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update quotation status: %w", err)
	}
	return nil
}

// UpdateTotalPrice stores a freshly calculated total.
func (r *QuotationRepository) UpdateTotalPrice(ctx context.Context, id string, total float64) error {
	const query = `UPDATE quotations SET total_price = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, total, time.Now().UTC()); err != nil {
		return fmt.Errorf("update quotation total: %w", err)
	}
	return nil
}

// Delete removes a quotation and all of its configuration rows.
func (r *QuotationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete quotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quotation_configurations WHERE quotation_id = $1`, id); err != nil {
		return fmt.Errorf("delete quotation configurations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quotations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete quotation: %w", err)
	}
	return nil
}

// ListVersions returns every quotation in the version chain containing the
// given quotation, newest first. The chain root is the quotation without a
// parent.
func (r *QuotationRepository) ListVersions(ctx context.Context, id string) ([]models.Quotation, error) {
	const query = `
		WITH RECURSIVE root AS (
			SELECT q.id, q.parent_quotation_id FROM quotations q WHERE q.id = $1
			UNION ALL
			SELECT q.id, q.parent_quotation_id FROM quotations q JOIN root r ON q.id = r.parent_quotation_id
		), chain AS (
			SELECT q.id FROM quotations q WHERE q.id = (SELECT id FROM root WHERE parent_quotation_id IS NULL)
			UNION ALL
			SELECT q.id FROM quotations q JOIN chain c ON q.parent_quotation_id = c.id
		)
		SELECT ` + quotationColumns + ` FROM quotations q JOIN chain ON chain.id = q.id ORDER BY q.version DESC`
	var versions []models.Quotation
	if err := r.db.SelectContext(ctx, &versions, query, id); err != nil {
		return nil, fmt.Errorf("list quotation versions: %w", err)
	}
	return versions, nil
}

// CreateVersion inserts the next version of a quotation and clears the
// is_latest_version flag on its predecessor in one transaction.
func (r *QuotationRepository) CreateVersion(ctx context.Context, parentID string, next *models.Quotation) error {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	next.CreatedAt = now
	next.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create version: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const flagOld = `UPDATE quotations SET is_latest_version = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, flagOld, parentID, now); err != nil {
		return fmt.Errorf("flag previous version: %w", err)
	}

	const insert = `INSERT INTO quotations (id, quotation_number, title, user_id, customer_id, machine_id, status, version, parent_quotation_id, is_latest_version, version_notes, total_price, currency, valid_until, created_at, updated_at) VALUES (:id, :quotation_number, :title, :user_id, :customer_id, :machine_id, :status, :version, :parent_quotation_id, :is_latest_version, :version_notes, :total_price, :currency, :valid_until, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, next); err != nil {
		return fmt.Errorf("insert quotation version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create version: %w", err)
	}
	return nil
}

const quotationConfigColumns = `qc.id, qc.quotation_id, qc.configuration_id, qc.selected_option_id, qc.custom_value, qc.notes, qc.quotation_version, qc.is_current_version, qc.previous_value_hash, qc.change_description, qc.created_at`

// ListCurrentConfigurations returns the current configuration rows of a
// quotation hydrated with display data.
func (r *QuotationRepository) ListCurrentConfigurations(ctx context.Context, quotationID string) ([]models.QuotationConfigurationDetail, error) {
	const query = `
		SELECT ` + quotationConfigColumns + `,
		       cf.name AS configuration_name,
		       cf.type AS configuration_type,
		       o.value AS option_value,
		       o.display_name AS option_display_name,
		       o.price_modifier AS option_price_modifier
		FROM quotation_configurations qc
		JOIN configurations cf ON cf.id = qc.configuration_id
		LEFT JOIN configuration_options o ON o.id = qc.selected_option_id
		WHERE qc.quotation_id = $1 AND qc.is_current_version = TRUE
		ORDER BY cf.name ASC`
	var rows []models.QuotationConfigurationDetail
	if err := r.db.SelectContext(ctx, &rows, query, quotationID); err != nil {
		return nil, fmt.Errorf("list quotation configurations: %w", err)
	}
	return rows, nil
}

// ListConfigurationHistory returns every version of one configuration value
// within a quotation, newest first.
func (r *QuotationRepository) ListConfigurationHistory(ctx context.Context, quotationID, configurationID string) ([]models.QuotationConfiguration, error) {
	const query = `SELECT ` + quotationConfigColumns + ` FROM quotation_configurations qc WHERE qc.quotation_id = $1 AND qc.configuration_id = $2 ORDER BY qc.quotation_version DESC`
	var rows []models.QuotationConfiguration
	if err := r.db.SelectContext(ctx, &rows, query, quotationID, configurationID); err != nil {
		return nil, fmt.Errorf("list configuration history: %w", err)
	}
	return rows, nil
}

// FindCurrentConfiguration returns the current row for one configuration
// within a quotation.
func (r *QuotationRepository) FindCurrentConfiguration(ctx context.Context, quotationID, configurationID string) (*models.QuotationConfiguration, error) {
	const query = `SELECT ` + quotationConfigColumns + ` FROM quotation_configurations qc WHERE qc.quotation_id = $1 AND qc.configuration_id = $2 AND qc.is_current_version = TRUE LIMIT 1`
	var row models.QuotationConfiguration
	if err := r.db.GetContext(ctx, &row, query, quotationID, configurationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find current configuration: %w", err)
	}
	return &row, nil
}

const insertQuotationConfig = `INSERT INTO quotation_configurations (id, quotation_id, configuration_id, selected_option_id, custom_value, notes, quotation_version, is_current_version, previous_value_hash, change_description, created_at) VALUES (:id, :quotation_id, :configuration_id, :selected_option_id, :custom_value, :notes, :quotation_version, :is_current_version, :previous_value_hash, :change_description, :created_at)`

// InsertConfiguration inserts a first-version configuration row.
func (r *QuotationRepository) InsertConfiguration(ctx context.Context, row *models.QuotationConfiguration) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertQuotationConfig, row); err != nil {
		return fmt.Errorf("insert quotation configuration: %w", err)
	}
	return nil
}

// ReplaceCurrentConfiguration retires the current row and inserts its
// successor atomically, preserving the one-current-row invariant under
// concurrent writes.
func (r *QuotationRepository) ReplaceCurrentConfiguration(ctx context.Context, previousID string, next *models.QuotationConfiguration) error {
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace configuration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const retire = `UPDATE quotation_configurations SET is_current_version = FALSE WHERE id = $1 AND is_current_version = TRUE`
	res, err := tx.ExecContext(ctx, retire, previousID)
	if err != nil {
		return fmt.Errorf("retire configuration row: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("retire configuration row: %w", sql.ErrNoRows)
	}

	if _, err := tx.NamedExecContext(ctx, insertQuotationConfig, next); err != nil {
		return fmt.Errorf("insert configuration row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace configuration: %w", err)
	}
	return nil
}

// CopyCurrentConfigurations duplicates the current configuration rows of one
// quotation into another as fresh current rows carrying the given version.
func (r *QuotationRepository) CopyCurrentConfigurations(ctx context.Context, fromID, toID string, version int, changeDescription string) error {
	const query = `
		INSERT INTO quotation_configurations (id, quotation_id, configuration_id, selected_option_id, custom_value, notes, quotation_version, is_current_version, previous_value_hash, change_description, created_at)
		SELECT gen_random_uuid(), $2, qc.configuration_id, qc.selected_option_id, qc.custom_value, qc.notes, $3, TRUE, NULL, $4, $5
		FROM quotation_configurations qc
		WHERE qc.quotation_id = $1 AND qc.is_current_version = TRUE`
	if _, err := r.db.ExecContext(ctx, query, fromID, toID, version, changeDescription, time.Now().UTC()); err != nil {
		return fmt.Errorf("copy quotation configurations: %w", err)
	}
	return nil
}
