package models

import "time"

// ConfigurationType enumerates the supported field types.
type ConfigurationType string

const (
	ConfigTypeText           ConfigurationType = "TEXT"
	ConfigTypeNumber         ConfigurationType = "NUMBER"
	ConfigTypeBoolean        ConfigurationType = "BOOLEAN"
	ConfigTypeSingleChoice   ConfigurationType = "SINGLE_CHOICE"
	ConfigTypeMultipleChoice ConfigurationType = "MULTIPLE_CHOICE"
	ConfigTypeRange          ConfigurationType = "RANGE"
)

// ValidationRuleType enumerates rule kinds evaluated by the validation engine.
type ValidationRuleType string

const (
	RuleMinValue ValidationRuleType = "MIN_VALUE"
	RuleMaxValue ValidationRuleType = "MAX_VALUE"
	RuleRegex    ValidationRuleType = "REGEX"
	RuleCustom   ValidationRuleType = "CUSTOM"
)

// Configuration is a typed, reusable field definition attachable to machines
// via tabs.
type Configuration struct {
	ID          string            `db:"id" json:"id"`
	Name        string            `db:"name" json:"name"`
	Description string            `db:"description" json:"description,omitempty"`
	HelpText    string            `db:"help_text" json:"help_text,omitempty"`
	Type        ConfigurationType `db:"type" json:"type"`
	IsRequired  bool              `db:"is_required" json:"is_required"`
	IsActive    bool              `db:"is_active" json:"is_active"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// ConfigurationOption is a selectable value with a price modifier.
type ConfigurationOption struct {
	ID              string    `db:"id" json:"id"`
	ConfigurationID string    `db:"configuration_id" json:"configuration_id"`
	Value           string    `db:"value" json:"value"`
	DisplayName     string    `db:"display_name" json:"display_name"`
	Description     string    `db:"description" json:"description,omitempty"`
	PriceModifier   float64   `db:"price_modifier" json:"price_modifier"`
	IsDefault       bool      `db:"is_default" json:"is_default"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ValidationRule constrains configuration values.
type ValidationRule struct {
	ID              string             `db:"id" json:"id"`
	ConfigurationID string             `db:"configuration_id" json:"configuration_id"`
	RuleType        ValidationRuleType `db:"rule_type" json:"rule_type"`
	RuleValue       string             `db:"rule_value" json:"rule_value"`
	ErrorMessage    string             `db:"error_message" json:"error_message"`
	IsActive        bool               `db:"is_active" json:"is_active"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}

// ConfigurationDependency is a parent→child edge between configurations. The
// edges are exposed as data only; nothing evaluates condition or action.
type ConfigurationDependency struct {
	ID         string    `db:"id" json:"id"`
	ParentID   string    `db:"parent_configuration_id" json:"parent_configuration_id"`
	ChildID    string    `db:"child_configuration_id" json:"child_configuration_id"`
	Condition  string    `db:"condition" json:"condition"`
	Action     string    `db:"action" json:"action"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ParentName string    `db:"parent_name" json:"parent_name,omitempty"`
	ChildName  string    `db:"child_name" json:"child_name,omitempty"`
}

// ConfigurationDetail is the configuration aggregate with options and rules.
type ConfigurationDetail struct {
	Configuration
	Options         []ConfigurationOption `json:"options"`
	ValidationRules []ValidationRule      `json:"validation_rules"`
}

// ConfigurationDependencies groups both edge directions for one configuration.
type ConfigurationDependencies struct {
	ParentDependencies []ConfigurationDependency `json:"parent_dependencies"`
	ChildDependencies  []ConfigurationDependency `json:"child_dependencies"`
}

// ValidationResult is the outcome of validating a value against a
// configuration. Warnings never affect validity.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ConfigurationCreateRequest creates a configuration definition.
type ConfigurationCreateRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=1000"`
	HelpText    string            `json:"help_text" validate:"max=1000"`
	Type        ConfigurationType `json:"type" validate:"required,oneof=TEXT NUMBER BOOLEAN SINGLE_CHOICE MULTIPLE_CHOICE RANGE"`
	IsRequired  bool              `json:"is_required"`
}

// ConfigurationUpdateRequest updates mutable configuration fields.
type ConfigurationUpdateRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=1000"`
	HelpText    string            `json:"help_text" validate:"max=1000"`
	Type        ConfigurationType `json:"type" validate:"required,oneof=TEXT NUMBER BOOLEAN SINGLE_CHOICE MULTIPLE_CHOICE RANGE"`
	IsRequired  bool              `json:"is_required"`
	IsActive    *bool             `json:"is_active"`
}

// OptionRequest creates or updates a configuration option.
type OptionRequest struct {
	Value         string  `json:"value" validate:"required,max=200"`
	DisplayName   string  `json:"display_name" validate:"required,max=200"`
	Description   string  `json:"description" validate:"max=1000"`
	PriceModifier float64 `json:"price_modifier"`
	IsDefault     bool    `json:"is_default"`
}

// RuleRequest creates a validation rule.
type RuleRequest struct {
	RuleType     ValidationRuleType `json:"rule_type" validate:"required,oneof=MIN_VALUE MAX_VALUE REGEX CUSTOM"`
	RuleValue    string             `json:"rule_value" validate:"required"`
	ErrorMessage string             `json:"error_message" validate:"required,max=500"`
}

// DependencyRequest creates a dependency edge.
type DependencyRequest struct {
	ParentConfigurationID string `json:"parent_configuration_id" validate:"required"`
	ChildConfigurationID  string `json:"child_configuration_id" validate:"required"`
	Condition             string `json:"condition" validate:"max=500"`
	Action                string `json:"action" validate:"max=500"`
}

// ValidateValueRequest validates a candidate value against a configuration.
type ValidateValueRequest struct {
	ConfigurationID string `json:"configuration_id" validate:"required"`
	Value           string `json:"value"`
}

// ConfigurationFilter captures filtering criteria for listing configurations.
type ConfigurationFilter struct {
	Type ConfigurationType
}
