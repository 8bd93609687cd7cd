package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

// MachineRepository provides database access for machine groups, machines,
// configuration tabs and tab assignments.
type MachineRepository struct {
	db *sqlx.DB
}

// NewMachineRepository creates a new instance of MachineRepository.
func NewMachineRepository(db *sqlx.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// ListGroups returns all active machine groups ordered by name.
func (r *MachineRepository) ListGroups(ctx context.Context) ([]models.MachineGroup, error) {
	const query = `SELECT id, name, description, is_active, created_at, updated_at FROM machine_groups WHERE is_active = TRUE ORDER BY name ASC`
	var groups []models.MachineGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list machine groups: %w", err)
	}
	return groups, nil
}

// FindGroup returns an active machine group by id.
func (r *MachineRepository) FindGroup(ctx context.Context, id string) (*models.MachineGroup, error) {
	const query = `SELECT id, name, description, is_active, created_at, updated_at FROM machine_groups WHERE id = $1 AND is_active = TRUE LIMIT 1`
	var group models.MachineGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find machine group: %w", err)
	}
	return &group, nil
}

// CreateGroup inserts a machine group.
func (r *MachineRepository) CreateGroup(ctx context.Context, group *models.MachineGroup) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	const query = `INSERT INTO machine_groups (id, name, description, is_active, created_at, updated_at) VALUES (:id, :name, :description, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create machine group: %w", err)
	}
	return nil
}

// UpdateGroup updates mutable fields of a machine group.
func (r *MachineRepository) UpdateGroup(ctx context.Context, group *models.MachineGroup) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE machine_groups SET name = :name, description = :description, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update machine group: %w", err)
	}
	return nil
}

// DeactivateGroup soft-deletes a machine group.
func (r *MachineRepository) DeactivateGroup(ctx context.Context, id string) error {
	const query = `UPDATE machine_groups SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate machine group: %w", err)
	}
	return nil
}

// CountGroupMachines returns the number of active machines in a group.
func (r *MachineRepository) CountGroupMachines(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM machines WHERE group_id = $1 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count group machines: %w", err)
	}
	return count, nil
}

const machineColumns = `id, group_id, name, description, tags, is_active, created_at, updated_at`

// ListMachines returns active machines matching the filter, ordered by name.
func (r *MachineRepository) ListMachines(ctx context.Context, filter models.MachineFilter) ([]models.Machine, error) {
	query := `SELECT ` + machineColumns + ` FROM machines WHERE is_active = TRUE`
	var args []interface{}

	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		query += fmt.Sprintf(" AND tags && $%d", len(args))
	}
	query += " ORDER BY name ASC"

	var machines []models.Machine
	if err := r.db.SelectContext(ctx, &machines, query, args...); err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return machines, nil
}

// FindMachine returns an active machine by id.
func (r *MachineRepository) FindMachine(ctx context.Context, id string) (*models.Machine, error) {
	const query = `SELECT ` + machineColumns + ` FROM machines WHERE id = $1 AND is_active = TRUE LIMIT 1`
	var machine models.Machine
	if err := r.db.GetContext(ctx, &machine, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find machine: %w", err)
	}
	return &machine, nil
}

// CreateMachine inserts a machine.
func (r *MachineRepository) CreateMachine(ctx context.Context, machine *models.Machine) error {
	if machine.ID == "" {
		machine.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	machine.CreatedAt = now
	machine.UpdatedAt = now
	if machine.Tags == nil {
		machine.Tags = pq.StringArray{}
	}
	const query = `INSERT INTO machines (id, group_id, name, description, tags, is_active, created_at, updated_at) VALUES (:id, :group_id, :name, :description, :tags, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, machine); err != nil {
		return fmt.Errorf("create machine: %w", err)
	}
	return nil
}

// UpdateMachine updates mutable fields of a machine.
func (r *MachineRepository) UpdateMachine(ctx context.Context, machine *models.Machine) error {
	machine.UpdatedAt = time.Now().UTC()
	const query = `UPDATE machines SET group_id = :group_id, name = :name, description = :description, tags = :tags, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, machine); err != nil {
		return fmt.Errorf("update machine: %w", err)
	}
	return nil
}

// DeactivateMachine soft-deletes a machine.
func (r *MachineRepository) DeactivateMachine(ctx context.Context, id string) error {
	const query = `UPDATE machines SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate machine: %w", err)
	}
	return nil
}

// CountMachineQuotations returns the number of quotations referencing a
// machine.
func (r *MachineRepository) CountMachineQuotations(ctx context.Context, machineID string) (int, error) {
	const query = `SELECT COUNT(*) FROM quotations WHERE machine_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, machineID); err != nil {
		return 0, fmt.Errorf("count machine quotations: %w", err)
	}
	return count, nil
}

const tabColumns = `id, machine_id, name, description, tab_order, is_active, created_at, updated_at`

// ListTabs returns active tabs for a machine in display order.
func (r *MachineRepository) ListTabs(ctx context.Context, machineID string) ([]models.ConfigurationTab, error) {
	const query = `SELECT ` + tabColumns + ` FROM configuration_tabs WHERE machine_id = $1 AND is_active = TRUE ORDER BY tab_order ASC, name ASC`
	var tabs []models.ConfigurationTab
	if err := r.db.SelectContext(ctx, &tabs, query, machineID); err != nil {
		return nil, fmt.Errorf("list configuration tabs: %w", err)
	}
	return tabs, nil
}

// FindTab returns an active tab by id.
func (r *MachineRepository) FindTab(ctx context.Context, id string) (*models.ConfigurationTab, error) {
	const query = `SELECT ` + tabColumns + ` FROM configuration_tabs WHERE id = $1 AND is_active = TRUE LIMIT 1`
	var tab models.ConfigurationTab
	if err := r.db.GetContext(ctx, &tab, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find configuration tab: %w", err)
	}
	return &tab, nil
}

// NextTabOrder returns the next free order index for a machine's tabs.
func (r *MachineRepository) NextTabOrder(ctx context.Context, machineID string) (int, error) {
	const query = `SELECT COALESCE(MAX(tab_order), -1) + 1 FROM configuration_tabs WHERE machine_id = $1`
	var next int
	if err := r.db.GetContext(ctx, &next, query, machineID); err != nil {
		return 0, fmt.Errorf("next tab order: %w", err)
	}
	return next, nil
}

// CreateTab inserts a configuration tab.
func (r *MachineRepository) CreateTab(ctx context.Context, tab *models.ConfigurationTab) error {
	if tab.ID == "" {
		tab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tab.CreatedAt = now
	tab.UpdatedAt = now
	const query = `INSERT INTO configuration_tabs (id, machine_id, name, description, tab_order, is_active, created_at, updated_at) VALUES (:id, :machine_id, :name, :description, :tab_order, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tab); err != nil {
		return fmt.Errorf("create configuration tab: %w", err)
	}
	return nil
}

// UpdateTab updates mutable fields of a configuration tab.
func (r *MachineRepository) UpdateTab(ctx context.Context, tab *models.ConfigurationTab) error {
	tab.UpdatedAt = time.Now().UTC()
	const query = `UPDATE configuration_tabs SET name = :name, description = :description, tab_order = :tab_order, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tab); err != nil {
		return fmt.Errorf("update configuration tab: %w", err)
	}
	return nil
}

// DeactivateTab soft-deletes a configuration tab.
func (r *MachineRepository) DeactivateTab(ctx context.Context, id string) error {
	const query = `UPDATE configuration_tabs SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate configuration tab: %w", err)
	}
	return nil
}

// CountTabAssignments returns the number of configurations assigned to a tab.
func (r *MachineRepository) CountTabAssignments(ctx context.Context, tabID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tab_configurations WHERE tab_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tabID); err != nil {
		return 0, fmt.Errorf("count tab assignments: %w", err)
	}
	return count, nil
}

// ListTabConfigurations returns the tab's configuration assignments in order.
func (r *MachineRepository) ListTabConfigurations(ctx context.Context, tabID string) ([]models.TabConfiguration, error) {
	const query = `SELECT id, tab_id, configuration_id, item_order, is_visible, is_required FROM tab_configurations WHERE tab_id = $1 ORDER BY item_order ASC`
	var items []models.TabConfiguration
	if err := r.db.SelectContext(ctx, &items, query, tabID); err != nil {
		return nil, fmt.Errorf("list tab configurations: %w", err)
	}
	return items, nil
}

// FindTabConfiguration returns one tab assignment by id.
func (r *MachineRepository) FindTabConfiguration(ctx context.Context, id string) (*models.TabConfiguration, error) {
	const query = `SELECT id, tab_id, configuration_id, item_order, is_visible, is_required FROM tab_configurations WHERE id = $1 LIMIT 1`
	var item models.TabConfiguration
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tab configuration: %w", err)
	}
	return &item, nil
}

// NextItemOrder returns the next free order index for a tab's assignments.
func (r *MachineRepository) NextItemOrder(ctx context.Context, tabID string) (int, error) {
	const query = `SELECT COALESCE(MAX(item_order), -1) + 1 FROM tab_configurations WHERE tab_id = $1`
	var next int
	if err := r.db.GetContext(ctx, &next, query, tabID); err != nil {
		return 0, fmt.Errorf("next item order: %w", err)
	}
	return next, nil
}

// AssignConfiguration inserts a tab-configuration assignment.
func (r *MachineRepository) AssignConfiguration(ctx context.Context, item *models.TabConfiguration) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	const query = `INSERT INTO tab_configurations (id, tab_id, configuration_id, item_order, is_visible, is_required) VALUES (:id, :tab_id, :configuration_id, :item_order, :is_visible, :is_required)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("assign configuration to tab: %w", err)
	}
	return nil
}

// UpdateTabConfiguration updates per-tab overrides of an assignment.
func (r *MachineRepository) UpdateTabConfiguration(ctx context.Context, item *models.TabConfiguration) error {
	const query = `UPDATE tab_configurations SET item_order = :item_order, is_visible = :is_visible, is_required = :is_required WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update tab configuration: %w", err)
	}
	return nil
}

// RemoveTabConfiguration deletes a tab assignment.
func (r *MachineRepository) RemoveTabConfiguration(ctx context.Context, id string) error {
	const query = `DELETE FROM tab_configurations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("remove tab configuration: %w", err)
	}
	return nil
}
