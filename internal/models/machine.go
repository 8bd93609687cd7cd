package models

import (
	"time"

	"github.com/lib/pq"
)

// MachineGroup is a catalog grouping of machines.
type MachineGroup struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MachineGroupWithMachines is the group aggregate returned by the API.
type MachineGroupWithMachines struct {
	MachineGroup
	Machines []Machine `json:"machines"`
}

// Machine is a configurable machine belonging to a group.
type Machine struct {
	ID          string         `db:"id" json:"id"`
	GroupID     string         `db:"group_id" json:"group_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description,omitempty"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// MachineWithRelations carries the machine with its group and tab summaries.
type MachineWithRelations struct {
	Machine
	Group *MachineGroup      `json:"group,omitempty"`
	Tabs  []ConfigurationTab `json:"configuration_tabs"`
}

// MachineFilter captures filtering criteria for listing machines.
type MachineFilter struct {
	GroupID string
	Tags    []string
}

// ConfigurationTab is an ordered grouping of configurations on a machine.
type ConfigurationTab struct {
	ID          string    `db:"id" json:"id"`
	MachineID   string    `db:"machine_id" json:"machine_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Order       int       `db:"tab_order" json:"order"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TabConfiguration joins a tab to a configuration with per-tab overrides.
type TabConfiguration struct {
	ID              string `db:"id" json:"id"`
	TabID           string `db:"tab_id" json:"tab_id"`
	ConfigurationID string `db:"configuration_id" json:"configuration_id"`
	Order           int    `db:"item_order" json:"order"`
	IsVisible       bool   `db:"is_visible" json:"is_visible"`
	IsRequired      *bool  `db:"is_required" json:"is_required,omitempty"`
}

// TabConfigurationDetail is a tab entry hydrated with its configuration.
type TabConfigurationDetail struct {
	TabConfiguration
	Configuration ConfigurationDetail `json:"configuration"`
}

// TabWithConfigurations is the tab aggregate returned by the API.
type TabWithConfigurations struct {
	ConfigurationTab
	Configurations []TabConfigurationDetail `json:"configurations"`
}

// MachineGroupRequest creates or updates a machine group.
type MachineGroupRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"is_active"`
}

// MachineCreateRequest creates a machine.
type MachineCreateRequest struct {
	GroupID     string   `json:"group_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=1000"`
	Tags        []string `json:"tags"`
}

// MachineUpdateRequest updates mutable machine fields.
type MachineUpdateRequest struct {
	GroupID     string   `json:"group_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=1000"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
}

// TabCreateRequest creates a configuration tab on a machine. Order is assigned
// automatically when omitted.
type TabCreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Order       *int   `json:"order"`
}

// TabUpdateRequest updates mutable tab fields.
type TabUpdateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Order       *int   `json:"order"`
	IsActive    *bool  `json:"is_active"`
}

// TabAssignRequest attaches a configuration to a tab.
type TabAssignRequest struct {
	ConfigurationID string `json:"configuration_id" validate:"required"`
	Order           *int   `json:"order"`
	IsVisible       *bool  `json:"is_visible"`
	IsRequired      *bool  `json:"is_required"`
}

// TabAssignmentUpdateRequest updates per-tab overrides of an assignment.
type TabAssignmentUpdateRequest struct {
	Order      *int  `json:"order"`
	IsVisible  *bool `json:"is_visible"`
	IsRequired *bool `json:"is_required"`
}

// MachineConfiguration is the full machine aggregate used by the configurator
// UI and by quotation configuration initialization.
type MachineConfiguration struct {
	Machine
	Group *MachineGroup           `json:"group,omitempty"`
	Tabs  []TabWithConfigurations `json:"configuration_tabs"`
}
