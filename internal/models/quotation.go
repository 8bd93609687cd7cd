package models

import "time"

// QuotationStatus enumerates the quotation workflow states.
type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "DRAFT"
	QuotationSent     QuotationStatus = "SENT"
	QuotationAccepted QuotationStatus = "ACCEPTED"
	QuotationRejected QuotationStatus = "REJECTED"
	QuotationExpired  QuotationStatus = "EXPIRED"
)

// Valid reports whether the status is a known workflow state.
func (s QuotationStatus) Valid() bool {
	switch s {
	case QuotationDraft, QuotationSent, QuotationAccepted, QuotationRejected, QuotationExpired:
		return true
	}
	return false
}

// Quotation is a priced offer for a customer, optionally bound to a machine.
// Quotations form version chains via parent_quotation_id; only the row with
// is_latest_version carries the live state of a chain.
type Quotation struct {
	ID                string          `db:"id" json:"id"`
	QuotationNumber   string          `db:"quotation_number" json:"quotation_number"`
	Title             string          `db:"title" json:"title,omitempty"`
	UserID            string          `db:"user_id" json:"user_id"`
	CustomerID        string          `db:"customer_id" json:"customer_id"`
	MachineID         *string         `db:"machine_id" json:"machine_id,omitempty"`
	Status            QuotationStatus `db:"status" json:"status"`
	Version           int             `db:"version" json:"version"`
	ParentQuotationID *string         `db:"parent_quotation_id" json:"parent_quotation_id,omitempty"`
	IsLatestVersion   bool            `db:"is_latest_version" json:"is_latest_version"`
	VersionNotes      string          `db:"version_notes" json:"version_notes,omitempty"`
	TotalPrice        float64         `db:"total_price" json:"total_price"`
	Currency          string          `db:"currency" json:"currency"`
	ValidUntil        *time.Time      `db:"valid_until" json:"valid_until,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// QuotationSummary is a list row with joined display fields.
type QuotationSummary struct {
	Quotation
	CustomerName       string  `db:"customer_name" json:"customer_name"`
	MachineName        *string `db:"machine_name" json:"machine_name,omitempty"`
	ConfigurationCount int     `db:"configuration_count" json:"configuration_count"`
}

// QuotationDetail is the full quotation aggregate returned by the API.
type QuotationDetail struct {
	QuotationSummary
	Configurations []QuotationConfigurationDetail `json:"configurations"`
}

// QuotationConfiguration is an append-only, versioned record of a single
// configuration's selected value within one quotation. Exactly one row per
// (quotation, configuration) has is_current_version at any time.
type QuotationConfiguration struct {
	ID                string    `db:"id" json:"id"`
	QuotationID       string    `db:"quotation_id" json:"quotation_id"`
	ConfigurationID   string    `db:"configuration_id" json:"configuration_id"`
	SelectedOptionID  *string   `db:"selected_option_id" json:"selected_option_id,omitempty"`
	CustomValue       *string   `db:"custom_value" json:"custom_value,omitempty"`
	Notes             *string   `db:"notes" json:"notes,omitempty"`
	QuotationVersion  int       `db:"quotation_version" json:"quotation_version"`
	IsCurrentVersion  bool      `db:"is_current_version" json:"is_current_version"`
	PreviousValueHash *string   `db:"previous_value_hash" json:"previous_value_hash,omitempty"`
	ChangeDescription string    `db:"change_description" json:"change_description"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// QuotationConfigurationDetail hydrates a configuration row with display data.
type QuotationConfigurationDetail struct {
	QuotationConfiguration
	ConfigurationName   string            `db:"configuration_name" json:"configuration_name"`
	ConfigurationType   ConfigurationType `db:"configuration_type" json:"configuration_type"`
	OptionValue         *string           `db:"option_value" json:"option_value,omitempty"`
	OptionDisplayName   *string           `db:"option_display_name" json:"option_display_name,omitempty"`
	OptionPriceModifier *float64          `db:"option_price_modifier" json:"option_price_modifier,omitempty"`
}

// QuotationFilter captures filtering criteria for listing quotations.
type QuotationFilter struct {
	UserID     string
	Status     QuotationStatus
	CustomerID string
	MachineID  string
	AllUsers   bool
}

// QuotationCreateRequest creates a quotation.
type QuotationCreateRequest struct {
	CustomerID   string     `json:"customer_id" validate:"required"`
	MachineID    *string    `json:"machine_id"`
	Title        string     `json:"title" validate:"max=200"`
	Currency     string     `json:"currency" validate:"omitempty,len=3"`
	ValidUntil   *time.Time `json:"valid_until"`
	VersionNotes string     `json:"version_notes" validate:"max=1000"`
}

// QuotationUpdateRequest updates quotation header fields. Nil fields are left
// unchanged.
type QuotationUpdateRequest struct {
	Title        *string    `json:"title" validate:"omitempty,max=200"`
	CustomerID   *string    `json:"customer_id"`
	MachineID    *string    `json:"machine_id"`
	ValidUntil   *time.Time `json:"valid_until"`
	VersionNotes *string    `json:"version_notes" validate:"omitempty,max=1000"`
}

// QuotationStatusRequest transitions the workflow status.
type QuotationStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required"`
}

// QuotationConfigurationRequest writes a configuration value into a quotation.
type QuotationConfigurationRequest struct {
	ConfigurationID  string  `json:"configuration_id" validate:"required"`
	SelectedOptionID *string `json:"selected_option_id"`
	CustomValue      *string `json:"custom_value"`
	Notes            *string `json:"notes"`
}

// QuotationVersionRequest creates the next version of a quotation.
type QuotationVersionRequest struct {
	VersionNotes string `json:"version_notes" validate:"max=1000"`
}

// QuotationCloneRequest creates an independent copy of a quotation.
type QuotationCloneRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
}

// QuotationExportRequest renders and stores a quotation document.
type QuotationExportRequest struct {
	Format string `json:"format" validate:"required,oneof=pdf csv"`
}

// ExportResult describes a stored quotation document.
type ExportResult struct {
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PriceBreakdownItem is a single line of a price calculation.
type PriceBreakdownItem struct {
	Item     string  `json:"item"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// PriceResult is the result of a quotation price calculation.
type PriceResult struct {
	TotalPrice float64              `json:"total_price"`
	Currency   string               `json:"currency"`
	Breakdown  []PriceBreakdownItem `json:"breakdown"`
}
