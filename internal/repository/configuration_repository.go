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

// ConfigurationRepository provides database access for configuration
// definitions, options, validation rules and dependencies.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository creates a new instance of ConfigurationRepository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

const configurationColumns = `id, name, description, help_text, type, is_required, is_active, created_at, updated_at`

// List returns active configurations matching the filter, ordered by name.
func (r *ConfigurationRepository) List(ctx context.Context, filter models.ConfigurationFilter) ([]models.Configuration, error) {
	query := `SELECT ` + configurationColumns + ` FROM configurations WHERE is_active = TRUE`
	var args []interface{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY name ASC"

	var configs []models.Configuration
	if err := r.db.SelectContext(ctx, &configs, query, args...); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// FindByID returns an active configuration by id.
func (r *ConfigurationRepository) FindByID(ctx context.Context, id string) (*models.Configuration, error) {
	const query = `SELECT ` + configurationColumns + ` FROM configurations WHERE id = $1 AND is_active = TRUE LIMIT 1`
	var config models.Configuration
	if err := r.db.GetContext(ctx, &config, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find configuration: %w", err)
	}
	return &config, nil
}

// Create inserts a configuration definition.
func (r *ConfigurationRepository) Create(ctx context.Context, config *models.Configuration) error {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	config.CreatedAt = now
	config.UpdatedAt = now
	const query = `INSERT INTO configurations (id, name, description, help_text, type, is_required, is_active, created_at, updated_at) VALUES (:id, :name, :description, :help_text, :type, :is_required, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("create configuration: %w", err)
	}
	return nil
}

// Update updates mutable fields of a configuration.
func (r *ConfigurationRepository) Update(ctx context.Context, config *models.Configuration) error {
	config.UpdatedAt = time.Now().UTC()
	const query = `UPDATE configurations SET name = :name, description = :description, help_text = :help_text, type = :type, is_required = :is_required, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a configuration.
func (r *ConfigurationRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE configurations SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate configuration: %w", err)
	}
	return nil
}

// CountTabUsages returns the number of tab assignments referencing a
// configuration.
func (r *ConfigurationRepository) CountTabUsages(ctx context.Context, configurationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tab_configurations WHERE configuration_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, configurationID); err != nil {
		return 0, fmt.Errorf("count configuration tab usages: %w", err)
	}
	return count, nil
}

const optionColumns = `id, configuration_id, value, display_name, description, price_modifier, is_default, is_active, created_at`

// ListOptions returns active options of a configuration ordered by display
// name.
func (r *ConfigurationRepository) ListOptions(ctx context.Context, configurationID string) ([]models.ConfigurationOption, error) {
	const query = `SELECT ` + optionColumns + ` FROM configuration_options WHERE configuration_id = $1 AND is_active = TRUE ORDER BY display_name ASC`
	var options []models.ConfigurationOption
	if err := r.db.SelectContext(ctx, &options, query, configurationID); err != nil {
		return nil, fmt.Errorf("list configuration options: %w", err)
	}
	return options, nil
}

// FindOption returns an active option by id.
func (r *ConfigurationRepository) FindOption(ctx context.Context, id string) (*models.ConfigurationOption, error) {
	const query = `SELECT ` + optionColumns + ` FROM configuration_options WHERE id = $1 AND is_active = TRUE LIMIT 1`
	var option models.ConfigurationOption
	if err := r.db.GetContext(ctx, &option, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find configuration option: %w", err)
	}
	return &option, nil
}

// CreateOption inserts a configuration option. When the option is flagged as
// default, previous defaults of the configuration are cleared first.
func (r *ConfigurationRepository) CreateOption(ctx context.Context, option *models.ConfigurationOption) error {
	if option.ID == "" {
		option.ID = uuid.NewString()
	}
	if option.CreatedAt.IsZero() {
		option.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create option: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if option.IsDefault {
		const clear = `UPDATE configuration_options SET is_default = FALSE WHERE configuration_id = $1 AND is_default = TRUE`
		if _, err := tx.ExecContext(ctx, clear, option.ConfigurationID); err != nil {
			return fmt.Errorf("clear default option: %w", err)
		}
	}

	const insert = `INSERT INTO configuration_options (id, configuration_id, value, display_name, description, price_modifier, is_default, is_active, created_at) VALUES (:id, :configuration_id, :value, :display_name, :description, :price_modifier, :is_default, :is_active, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, option); err != nil {
		return fmt.Errorf("create configuration option: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create option: %w", err)
	}
	return nil
}

// UpdateOption updates mutable fields of an option.
func (r *ConfigurationRepository) UpdateOption(ctx context.Context, option *models.ConfigurationOption) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update option: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if option.IsDefault {
		const clear = `UPDATE configuration_options SET is_default = FALSE WHERE configuration_id = $1 AND is_default = TRUE AND id <> $2`
		if _, err := tx.ExecContext(ctx, clear, option.ConfigurationID, option.ID); err != nil {
			return fmt.Errorf("clear default option: %w", err)
		}
	}

	const update = `UPDATE configuration_options SET value = :value, display_name = :display_name, description = :description, price_modifier = :price_modifier, is_default = :is_default, is_active = :is_active WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, option); err != nil {
		return fmt.Errorf("update configuration option: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update option: %w", err)
	}
	return nil
}

// DeactivateOption soft-deletes an option.
func (r *ConfigurationRepository) DeactivateOption(ctx context.Context, id string) error {
	const query = `UPDATE configuration_options SET is_active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate configuration option: %w", err)
	}
	return nil
}

const ruleColumns = `id, configuration_id, rule_type, rule_value, error_message, is_active, created_at`

// ListRules returns active validation rules of a configuration.
func (r *ConfigurationRepository) ListRules(ctx context.Context, configurationID string) ([]models.ValidationRule, error) {
	const query = `SELECT ` + ruleColumns + ` FROM validation_rules WHERE configuration_id = $1 AND is_active = TRUE ORDER BY created_at ASC`
	var rules []models.ValidationRule
	if err := r.db.SelectContext(ctx, &rules, query, configurationID); err != nil {
		return nil, fmt.Errorf("list validation rules: %w", err)
	}
	return rules, nil
}

// CreateRule inserts a validation rule.
func (r *ConfigurationRepository) CreateRule(ctx context.Context, rule *models.ValidationRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO validation_rules (id, configuration_id, rule_type, rule_value, error_message, is_active, created_at) VALUES (:id, :configuration_id, :rule_type, :rule_value, :error_message, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create validation rule: %w", err)
	}
	return nil
}

// DeactivateRule soft-deletes a validation rule.
func (r *ConfigurationRepository) DeactivateRule(ctx context.Context, id string) error {
	const query = `UPDATE validation_rules SET is_active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate validation rule: %w", err)
	}
	return nil
}

// ListDependencies returns both edge directions for a configuration.
func (r *ConfigurationRepository) ListDependencies(ctx context.Context, configurationID string) (*models.ConfigurationDependencies, error) {
	const parentQuery = `
		SELECT d.id, d.parent_configuration_id, d.child_configuration_id, d.condition, d.action, d.created_at,
		       p.name AS parent_name, c.name AS child_name
		FROM configuration_dependencies d
		JOIN configurations p ON p.id = d.parent_configuration_id
		JOIN configurations c ON c.id = d.child_configuration_id
		WHERE d.child_configuration_id = $1
		ORDER BY d.created_at ASC`
	const childQuery = `
		SELECT d.id, d.parent_configuration_id, d.child_configuration_id, d.condition, d.action, d.created_at,
		       p.name AS parent_name, c.name AS child_name
		FROM configuration_dependencies d
		JOIN configurations p ON p.id = d.parent_configuration_id
		JOIN configurations c ON c.id = d.child_configuration_id
		WHERE d.parent_configuration_id = $1
		ORDER BY d.created_at ASC`

	deps := &models.ConfigurationDependencies{
		ParentDependencies: []models.ConfigurationDependency{},
		ChildDependencies:  []models.ConfigurationDependency{},
	}
	if err := r.db.SelectContext(ctx, &deps.ParentDependencies, parentQuery, configurationID); err != nil {
		return nil, fmt.Errorf("list parent dependencies: %w", err)
	}
	if err := r.db.SelectContext(ctx, &deps.ChildDependencies, childQuery, configurationID); err != nil {
		return nil, fmt.Errorf("list child dependencies: %w", err)
	}
	return deps, nil
}

// CreateDependency inserts a dependency edge.
func (r *ConfigurationRepository) CreateDependency(ctx context.Context, dep *models.ConfigurationDependency) error {
	if dep.ID == "" {
		dep.ID = uuid.NewString()
	}
	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO configuration_dependencies (id, parent_configuration_id, child_configuration_id, condition, action, created_at) VALUES (:id, :parent_configuration_id, :child_configuration_id, :condition, :action, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dep); err != nil {
		return fmt.Errorf("create configuration dependency: %w", err)
	}
	return nil
}

// DeleteDependency removes a dependency edge.
func (r *ConfigurationRepository) DeleteDependency(ctx context.Context, id string) error {
	const query = `DELETE FROM configuration_dependencies WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete configuration dependency: %w", err)
	}
	return nil
}
