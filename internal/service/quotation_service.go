package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type quotationRepository interface {
	List(ctx context.Context, filter models.QuotationFilter) ([]models.QuotationSummary, error)
	FindByID(ctx context.Context, id string) (*models.Quotation, error)
	FindSummary(ctx context.Context, id string) (*models.QuotationSummary, error)
	CountForYear(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, quotation *models.Quotation) error
	Update(ctx context.Context, quotation *models.Quotation) error
	UpdateStatus(ctx context.Context, id string, status models.QuotationStatus) error
	UpdateTotalPrice(ctx context.Context, id string, total float64) error
	Delete(ctx context.Context, id string) error
	ListVersions(ctx context.Context, id string) ([]models.Quotation, error)
	CreateVersion(ctx context.Context, parentID string, next *models.Quotation) error
	ListCurrentConfigurations(ctx context.Context, quotationID string) ([]models.QuotationConfigurationDetail, error)
	ListConfigurationHistory(ctx context.Context, quotationID, configurationID string) ([]models.QuotationConfiguration, error)
	FindCurrentConfiguration(ctx context.Context, quotationID, configurationID string) (*models.QuotationConfiguration, error)
	InsertConfiguration(ctx context.Context, row *models.QuotationConfiguration) error
	InitializeConfigurations(ctx context.Context, rows []models.QuotationConfiguration) error
	ReplaceCurrentConfiguration(ctx context.Context, previousID string, next *models.QuotationConfiguration) error
	CopyCurrentConfigurations(ctx context.Context, fromID, toID string, version int, changeDescription string) error
}

type quotationCustomerLookup interface {
	FindForUser(ctx context.Context, userID, customerID string) (*models.Customer, error)
	FindByID(ctx context.Context, id string) (*models.Customer, error)
}

type quotationMachineCatalog interface {
	Configuration(ctx context.Context, machineID string) (*models.MachineConfiguration, error)
}

type quotationOptionLookup interface {
	FindOption(ctx context.Context, id string) (*models.ConfigurationOption, error)
	FindByID(ctx context.Context, id string) (*models.Configuration, error)
}

type quotationMailDispatcher interface {
	DispatchQuotation(ctx context.Context, quotation *models.QuotationSummary) error
}

// Change descriptions derived by the versioning protocol.
const (
	changeInitialState    = "Initial configuration state"
	changeInitialWrite    = "Initial configuration"
	changeCleared         = "Configuration cleared"
	changeCopiedFrom      = "Copied from parent version"
	changeGenericUpdate   = "Configuration updated"
	defaultCurrency       = "EUR"
	quotationNumberFormat = "QUO-%d-%03d"
)

// QuotationService implements the quotation workflow: creation with
// configuration initialization, versioned configuration writes, pricing,
// version chains and cloning.
type QuotationService struct {
	quotations quotationRepository
	customers  quotationCustomerLookup
	catalog    quotationMachineCatalog
	options    quotationOptionLookup
	mail       quotationMailDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewQuotationService constructs a QuotationService instance.
func NewQuotationService(quotations quotationRepository, customers quotationCustomerLookup, catalog quotationMachineCatalog, options quotationOptionLookup, mail quotationMailDispatcher, validate *validator.Validate, logger *zap.Logger) *QuotationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &QuotationService{
		quotations: quotations,
		customers:  customers,
		catalog:    catalog,
		options:    options,
		mail:       mail,
		validator:  validate,
		logger:     logger,
	}
}

// List returns latest-version quotations visible to the actor.
func (s *QuotationService) List(ctx context.Context, actor Actor, filter models.QuotationFilter) ([]models.QuotationSummary, error) {
	filter.UserID = actor.UserID
	filter.AllUsers = actor.IsAdmin()
	quotations, err := s.quotations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotations")
	}
	if quotations == nil {
		quotations = []models.QuotationSummary{}
	}
	return quotations, nil
}

// Get returns the full quotation aggregate.
func (s *QuotationService) Get(ctx context.Context, actor Actor, id string) (*models.QuotationDetail, error) {
	summary, err := s.loadSummary(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.quotations.ListCurrentConfigurations(ctx, summary.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotation configurations")
	}
	if rows == nil {
		rows = []models.QuotationConfigurationDetail{}
	}
	return &models.QuotationDetail{QuotationSummary: *summary, Configurations: rows}, nil
}

// Create stores a new quotation. When a machine is attached its configurations
// are initialized with their defaults.
func (s *QuotationService) Create(ctx context.Context, actor Actor, req models.QuotationCreateRequest) (*models.Quotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quotation payload")
	}

	if _, err := s.loadCustomer(ctx, actor, req.CustomerID); err != nil {
		return nil, err
	}

	var aggregate *models.MachineConfiguration
	if req.MachineID != nil && *req.MachineID != "" {
		machineConfig, err := s.catalog.Configuration(ctx, *req.MachineID)
		if err != nil {
			return nil, err
		}
		aggregate = machineConfig
	}

	number, err := s.nextQuotationNumber(ctx)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	quotation := &models.Quotation{
		QuotationNumber: number,
		Title:           req.Title,
		UserID:          actor.UserID,
		CustomerID:      req.CustomerID,
		MachineID:       req.MachineID,
		Status:          models.QuotationDraft,
		Version:         1,
		IsLatestVersion: true,
		VersionNotes:    req.VersionNotes,
		Currency:        currency,
		ValidUntil:      req.ValidUntil,
	}
	if err := s.quotations.Create(ctx, quotation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quotation")
	}

	if aggregate != nil {
		if err := s.initializeConfigurations(ctx, quotation, aggregate); err != nil {
			return nil, err
		}
	}
	return quotation, nil
}

// Update modifies quotation header fields. Attaching a machine to a quotation
// that never had one initializes its configurations exactly once.
func (s *QuotationService) Update(ctx context.Context, actor Actor, id string, req models.QuotationUpdateRequest) (*models.Quotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quotation payload")
	}
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		quotation.Title = *req.Title
	}
	if req.CustomerID != nil && *req.CustomerID != quotation.CustomerID {
		if _, err := s.loadCustomer(ctx, actor, *req.CustomerID); err != nil {
			return nil, err
		}
		quotation.CustomerID = *req.CustomerID
	}
	if req.ValidUntil != nil {
		quotation.ValidUntil = req.ValidUntil
	}
	if req.VersionNotes != nil {
		quotation.VersionNotes = *req.VersionNotes
	}

	var aggregate *models.MachineConfiguration
	if req.MachineID != nil && *req.MachineID != "" {
		machineConfig, err := s.catalog.Configuration(ctx, *req.MachineID)
		if err != nil {
			return nil, err
		}
		if quotation.MachineID == nil {
			aggregate = machineConfig
		}
		quotation.MachineID = req.MachineID
	}

	if err := s.quotations.Update(ctx, quotation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update quotation")
	}

	if aggregate != nil {
		if err := s.initializeConfigurations(ctx, quotation, aggregate); err != nil {
			return nil, err
		}
	}
	return quotation, nil
}

// UpdateStatus transitions the quotation workflow status.
func (s *QuotationService) UpdateStatus(ctx context.Context, actor Actor, id string, status models.QuotationStatus) (*models.Quotation, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown quotation status")
	}
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.quotations.UpdateStatus(ctx, quotation.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	quotation.Status = status
	return quotation, nil
}

// Delete removes a quotation. Only drafts can be deleted.
func (s *QuotationService) Delete(ctx context.Context, actor Actor, id string) error {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if quotation.Status != models.QuotationDraft {
		return appErrors.Clone(appErrors.ErrValidation, "only draft quotations can be deleted")
	}
	if err := s.quotations.Delete(ctx, quotation.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete quotation")
	}
	return nil
}

// Configurations returns the quotation's current configuration rows.
func (s *QuotationService) Configurations(ctx context.Context, actor Actor, id string) ([]models.QuotationConfigurationDetail, error) {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.quotations.ListCurrentConfigurations(ctx, quotation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotation configurations")
	}
	if rows == nil {
		rows = []models.QuotationConfigurationDetail{}
	}
	return rows, nil
}

// ConfigurationHistory returns every version of one configuration value.
func (s *QuotationService) ConfigurationHistory(ctx context.Context, actor Actor, id, configurationID string) ([]models.QuotationConfiguration, error) {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	history, err := s.quotations.ListConfigurationHistory(ctx, quotation.ID, configurationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configuration history")
	}
	if history == nil {
		history = []models.QuotationConfiguration{}
	}
	return history, nil
}

// SetConfiguration writes a configuration value into the quotation using the
// append-only versioning protocol. Writing an unchanged value is a no-op.
func (s *QuotationService) SetConfiguration(ctx context.Context, actor Actor, id string, req models.QuotationConfigurationRequest) (*models.QuotationConfiguration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.options.FindByID(ctx, req.ConfigurationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	if req.SelectedOptionID != nil && *req.SelectedOptionID != "" {
		option, err := s.options.FindOption(ctx, *req.SelectedOptionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "option not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load option")
		}
		if option.ConfigurationID != req.ConfigurationID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "option does not belong to configuration")
		}
	}

	return s.writeConfiguration(ctx, quotation, req.ConfigurationID, req.SelectedOptionID, req.CustomValue, req.Notes, "")
}

// RemoveConfiguration clears a configuration value. The history is preserved;
// clearing is itself a versioned write.
func (s *QuotationService) RemoveConfiguration(ctx context.Context, actor Actor, id, configurationID string) error {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if _, err := s.quotations.FindCurrentConfiguration(ctx, quotation.ID, configurationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "configuration value not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration value")
	}
	_, err = s.writeConfiguration(ctx, quotation, configurationID, nil, nil, nil, changeCleared)
	return err
}

// Versions lists the quotation's version chain, newest first.
func (s *QuotationService) Versions(ctx context.Context, actor Actor, id string) ([]models.Quotation, error) {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.quotations.ListVersions(ctx, quotation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotation versions")
	}
	return versions, nil
}

// CreateVersion appends a new version to the quotation chain and copies the
// current configuration state into it.
func (s *QuotationService) CreateVersion(ctx context.Context, actor Actor, id string, req models.QuotationVersionRequest) (*models.Quotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid version payload")
	}
	parent, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !parent.IsLatestVersion {
		return nil, appErrors.Clone(appErrors.ErrValidation, "versions can only be created from the latest version")
	}

	number, err := s.nextQuotationNumber(ctx)
	if err != nil {
		return nil, err
	}
	parentID := parent.ID
	next := &models.Quotation{
		QuotationNumber:   number,
		Title:             parent.Title,
		UserID:            actor.UserID,
		CustomerID:        parent.CustomerID,
		MachineID:         parent.MachineID,
		Status:            models.QuotationDraft,
		Version:           parent.Version + 1,
		ParentQuotationID: &parentID,
		IsLatestVersion:   true,
		VersionNotes:      req.VersionNotes,
		TotalPrice:        parent.TotalPrice,
		Currency:          parent.Currency,
		ValidUntil:        parent.ValidUntil,
	}
	if err := s.quotations.CreateVersion(ctx, parent.ID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quotation version")
	}
	if err := s.quotations.CopyCurrentConfigurations(ctx, parent.ID, next.ID, next.Version, changeCopiedFrom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy configuration state")
	}
	return next, nil
}

// Clone creates an independent copy of the quotation with a fresh version
// chain.
func (s *QuotationService) Clone(ctx context.Context, actor Actor, id string, req models.QuotationCloneRequest) (*models.Quotation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clone payload")
	}
	source, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	number, err := s.nextQuotationNumber(ctx)
	if err != nil {
		return nil, err
	}
	title := source.Title + " (Copy)"
	if req.Title != nil && *req.Title != "" {
		title = *req.Title
	}
	clone := &models.Quotation{
		QuotationNumber: number,
		Title:           title,
		UserID:          actor.UserID,
		CustomerID:      source.CustomerID,
		MachineID:       source.MachineID,
		Status:          models.QuotationDraft,
		Version:         1,
		IsLatestVersion: true,
		TotalPrice:      source.TotalPrice,
		Currency:        source.Currency,
		ValidUntil:      source.ValidUntil,
	}
	if err := s.quotations.Create(ctx, clone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clone quotation")
	}
	if err := s.quotations.CopyCurrentConfigurations(ctx, source.ID, clone.ID, clone.Version, changeCopiedFrom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to copy configuration state")
	}
	return clone, nil
}

// Price calculates the quotation total from the selected options' price
// modifiers and persists it.
func (s *QuotationService) Price(ctx context.Context, actor Actor, id string) (*models.PriceResult, error) {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.quotations.ListCurrentConfigurations(ctx, quotation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quotation configurations")
	}

	result := &models.PriceResult{Currency: quotation.Currency, Breakdown: []models.PriceBreakdownItem{}}
	for _, row := range rows {
		if row.SelectedOptionID == nil || row.OptionPriceModifier == nil {
			continue
		}
		price := *row.OptionPriceModifier
		result.TotalPrice += price
		label := row.ConfigurationName
		if row.OptionDisplayName != nil {
			label = fmt.Sprintf("%s: %s", row.ConfigurationName, *row.OptionDisplayName)
		}
		result.Breakdown = append(result.Breakdown, models.PriceBreakdownItem{
			Item:     label,
			Price:    price,
			Currency: quotation.Currency,
		})
	}

	if err := s.quotations.UpdateTotalPrice(ctx, quotation.ID, result.TotalPrice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist quotation total")
	}
	return result, nil
}

// Send dispatches the quotation to its customer and marks it SENT.
func (s *QuotationService) Send(ctx context.Context, actor Actor, id string) (*models.Quotation, error) {
	quotation, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.quotations.FindSummary(ctx, quotation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotation summary")
	}
	if err := s.mail.DispatchQuotation(ctx, summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to dispatch quotation mail")
	}
	if err := s.quotations.UpdateStatus(ctx, quotation.ID, models.QuotationSent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	quotation.Status = models.QuotationSent
	return quotation, nil
}

func (s *QuotationService) writeConfiguration(ctx context.Context, quotation *models.Quotation, configurationID string, optionID, customValue, notes *string, forcedDescription string) (*models.QuotationConfiguration, error) {
	current, err := s.quotations.FindCurrentConfiguration(ctx, quotation.ID, configurationID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration value")
	}

	newHash := contentHash(optionID, customValue)

	if current == nil {
		description := forcedDescription
		if description == "" {
			description = changeInitialWrite
		}
		row := &models.QuotationConfiguration{
			QuotationID:       quotation.ID,
			ConfigurationID:   configurationID,
			SelectedOptionID:  optionID,
			CustomValue:       customValue,
			Notes:             notes,
			QuotationVersion:  quotation.Version,
			IsCurrentVersion:  true,
			ChangeDescription: description,
		}
		if err := s.quotations.InsertConfiguration(ctx, row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write configuration value")
		}
		return row, nil
	}

	oldHash := contentHash(current.SelectedOptionID, current.CustomValue)
	if oldHash == newHash && equalPtr(current.Notes, notes) {
		return current, nil
	}

	description := forcedDescription
	if description == "" {
		description = describeChange(current, optionID, customValue)
	}
	next := &models.QuotationConfiguration{
		QuotationID:       quotation.ID,
		ConfigurationID:   configurationID,
		SelectedOptionID:  optionID,
		CustomValue:       customValue,
		Notes:             notes,
		QuotationVersion:  current.QuotationVersion + 1,
		IsCurrentVersion:  true,
		PreviousValueHash: &oldHash,
		ChangeDescription: description,
	}
	if err := s.quotations.ReplaceCurrentConfiguration(ctx, current.ID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write configuration value")
	}
	return next, nil
}

func (s *QuotationService) initializeConfigurations(ctx context.Context, quotation *models.Quotation, aggregate *models.MachineConfiguration) error {
	var rows []models.QuotationConfiguration
	for _, tab := range aggregate.Tabs {
		for _, item := range tab.Configurations {
			var optionID *string
			for _, option := range item.Configuration.Options {
				if option.IsDefault && option.IsActive {
					id := option.ID
					optionID = &id
					break
				}
			}
			rows = append(rows, models.QuotationConfiguration{
				QuotationID:       quotation.ID,
				ConfigurationID:   item.ConfigurationID,
				SelectedOptionID:  optionID,
				QuotationVersion:  quotation.Version,
				IsCurrentVersion:  true,
				ChangeDescription: changeInitialState,
			})
		}
	}
	if err := s.quotations.InitializeConfigurations(ctx, rows); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize configurations")
	}
	return nil
}

func (s *QuotationService) nextQuotationNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	count, err := s.quotations.CountForYear(ctx, year)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive quotation number")
	}
	return fmt.Sprintf(quotationNumberFormat, year, count+1), nil
}

func (s *QuotationService) load(ctx context.Context, actor Actor, id string) (*models.Quotation, error) {
	quotation, err := s.quotations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quotation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotation")
	}
	if quotation.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "quotation belongs to another user")
	}
	return quotation, nil
}

func (s *QuotationService) loadSummary(ctx context.Context, actor Actor, id string) (*models.QuotationSummary, error) {
	summary, err := s.quotations.FindSummary(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quotation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quotation")
	}
	if summary.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "quotation belongs to another user")
	}
	return summary, nil
}

func (s *QuotationService) loadCustomer(ctx context.Context, actor Actor, customerID string) (*models.Customer, error) {
	var (
		customer *models.Customer
		err      error
	)
	if actor.IsAdmin() {
		customer, err = s.customers.FindByID(ctx, customerID)
	} else {
		customer, err = s.customers.FindForUser(ctx, actor.UserID, customerID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "customer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load customer")
	}
	return customer, nil
}

// contentHash fingerprints the value-bearing fields of a configuration row.
// Notes are deliberately excluded; editing a note alone still versions the row
// through the notes comparison, but the hash tracks the selected value only.
func contentHash(optionID, customValue *string) string {
	payload, _ := json.Marshal(struct {
		SelectedOptionID *string `json:"selectedOptionId"`
		CustomValue      *string `json:"customValue"`
	}{optionID, customValue})
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}

func describeChange(current *models.QuotationConfiguration, optionID, customValue *string) string {
	var parts []string

	switch {
	case isEmpty(current.SelectedOptionID) && !isEmpty(optionID):
		parts = append(parts, "Option selected")
	case !isEmpty(current.SelectedOptionID) && !isEmpty(optionID) && *current.SelectedOptionID != *optionID:
		parts = append(parts, "Option changed")
	case !isEmpty(current.SelectedOptionID) && isEmpty(optionID):
		parts = append(parts, "Option cleared")
	}

	switch {
	case isEmpty(current.CustomValue) && !isEmpty(customValue):
		parts = append(parts, "Custom value added")
	case !isEmpty(current.CustomValue) && !isEmpty(customValue) && *current.CustomValue != *customValue:
		parts = append(parts, "Custom value changed")
	case !isEmpty(current.CustomValue) && isEmpty(customValue):
		parts = append(parts, "Custom value cleared")
	}

	if len(parts) == 0 {
		return changeGenericUpdate
	}
	return strings.Join(parts, ", ")
}

func isEmpty(value *string) bool {
	return value == nil || *value == ""
}

func equalPtr(a, b *string) bool {
	if isEmpty(a) && isEmpty(b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
