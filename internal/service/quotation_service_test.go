package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type replacedWrite struct {
	previousID string
	next       *models.QuotationConfiguration
}

type copyCall struct {
	fromID      string
	toID        string
	version     int
	description string
}

type mockQuotationRepo struct {
	quotation     *models.Quotation
	summary       *models.QuotationSummary
	current       map[string]*models.QuotationConfiguration
	details       []models.QuotationConfigurationDetail
	history       []models.QuotationConfiguration
	versions      []models.Quotation
	countForYear  int
	created       []*models.Quotation
	initialized   []models.QuotationConfiguration
	inserted      []*models.QuotationConfiguration
	replaced      []replacedWrite
	copied        *copyCall
	statusUpdates []models.QuotationStatus
	totalPrice    *float64
	deleted       []string
}

func newMockQuotationRepo() *mockQuotationRepo {
	return &mockQuotationRepo{current: map[string]*models.QuotationConfiguration{}}
}

func (m *mockQuotationRepo) List(ctx context.Context, filter models.QuotationFilter) ([]models.QuotationSummary, error) {
	if m.summary == nil {
		return nil, nil
	}
	return []models.QuotationSummary{*m.summary}, nil
}

func (m *mockQuotationRepo) FindByID(ctx context.Context, id string) (*models.Quotation, error) {
	if m.quotation == nil || m.quotation.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *m.quotation
	return &clone, nil
}

func (m *mockQuotationRepo) FindSummary(ctx context.Context, id string) (*models.QuotationSummary, error) {
	if m.summary == nil || m.summary.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *m.summary
	return &clone, nil
}

func (m *mockQuotationRepo) CountForYear(ctx context.Context, year int) (int, error) {
	return m.countForYear, nil
}

func (m *mockQuotationRepo) Create(ctx context.Context, quotation *models.Quotation) error {
	quotation.ID = fmt.Sprintf("q-new-%d", len(m.created)+1)
	m.created = append(m.created, quotation)
	return nil
}

func (m *mockQuotationRepo) Update(ctx context.Context, quotation *models.Quotation) error {
	m.quotation = quotation
	return nil
}

func (m *mockQuotationRepo) UpdateStatus(ctx context.Context, id string, status models.QuotationStatus) error {
	m.statusUpdates = append(m.statusUpdates, status)
	return nil
}

func (m *mockQuotationRepo) UpdateTotalPrice(ctx context.Context, id string, total float64) error {
	m.totalPrice = &total
	return nil
}

func (m *mockQuotationRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockQuotationRepo) ListVersions(ctx context.Context, id string) ([]models.Quotation, error) {
	return m.versions, nil
}

func (m *mockQuotationRepo) CreateVersion(ctx context.Context, parentID string, next *models.Quotation) error {
	next.ID = "q-version"
	return nil
}

func (m *mockQuotationRepo) ListCurrentConfigurations(ctx context.Context, quotationID string) ([]models.QuotationConfigurationDetail, error) {
	return m.details, nil
}

func (m *mockQuotationRepo) ListConfigurationHistory(ctx context.Context, quotationID, configurationID string) ([]models.QuotationConfiguration, error) {
	return m.history, nil
}

func (m *mockQuotationRepo) FindCurrentConfiguration(ctx context.Context, quotationID, configurationID string) (*models.QuotationConfiguration, error) {
	row, ok := m.current[configurationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *row
	return &clone, nil
}

func (m *mockQuotationRepo) InsertConfiguration(ctx context.Context, row *models.QuotationConfiguration) error {
	row.ID = fmt.Sprintf("qc-%d", len(m.inserted)+1)
	m.inserted = append(m.inserted, row)
	m.current[row.ConfigurationID] = row
	return nil
}

func (m *mockQuotationRepo) InitializeConfigurations(ctx context.Context, rows []models.QuotationConfiguration) error {
	m.initialized = append(m.initialized, rows...)
	return nil
}

func (m *mockQuotationRepo) ReplaceCurrentConfiguration(ctx context.Context, previousID string, next *models.QuotationConfiguration) error {
	next.ID = fmt.Sprintf("qc-r%d", len(m.replaced)+1)
	m.replaced = append(m.replaced, replacedWrite{previousID: previousID, next: next})
	m.current[next.ConfigurationID] = next
	return nil
}

func (m *mockQuotationRepo) CopyCurrentConfigurations(ctx context.Context, fromID, toID string, version int, changeDescription string) error {
	m.copied = &copyCall{fromID: fromID, toID: toID, version: version, description: changeDescription}
	return nil
}

type mockCustomerLookup struct {
	customer *models.Customer
}

func (m *mockCustomerLookup) FindForUser(ctx context.Context, userID, customerID string) (*models.Customer, error) {
	if m.customer == nil || m.customer.ID != customerID {
		return nil, sql.ErrNoRows
	}
	return m.customer, nil
}

func (m *mockCustomerLookup) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	if m.customer == nil || m.customer.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.customer, nil
}

type mockMachineCatalog struct {
	aggregate *models.MachineConfiguration
}

func (m *mockMachineCatalog) Configuration(ctx context.Context, machineID string) (*models.MachineConfiguration, error) {
	if m.aggregate == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "machine not found")
	}
	return m.aggregate, nil
}

type mockOptionLookup struct {
	configurations map[string]*models.Configuration
	options        map[string]*models.ConfigurationOption
}

func (m *mockOptionLookup) FindByID(ctx context.Context, id string) (*models.Configuration, error) {
	config, ok := m.configurations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return config, nil
}

func (m *mockOptionLookup) FindOption(ctx context.Context, id string) (*models.ConfigurationOption, error) {
	option, ok := m.options[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return option, nil
}

type mockMailDispatcher struct {
	dispatched []*models.QuotationSummary
}

func (m *mockMailDispatcher) DispatchQuotation(ctx context.Context, quotation *models.QuotationSummary) error {
	m.dispatched = append(m.dispatched, quotation)
	return nil
}

type quotationFixture struct {
	repo      *mockQuotationRepo
	customers *mockCustomerLookup
	catalog   *mockMachineCatalog
	options   *mockOptionLookup
	mail      *mockMailDispatcher
	svc       *QuotationService
}

func newQuotationFixture() *quotationFixture {
	f := &quotationFixture{
		repo:      newMockQuotationRepo(),
		customers: &mockCustomerLookup{customer: &models.Customer{ID: "cust1", CompanyName: "Acme Machining", Email: "buyer@acme.test", IsActive: true}},
		catalog:   &mockMachineCatalog{},
		options: &mockOptionLookup{
			configurations: map[string]*models.Configuration{"c1": {ID: "c1", Name: "Voltage", IsActive: true}},
			options: map[string]*models.ConfigurationOption{
				"o1": {ID: "o1", ConfigurationID: "c1", Value: "230V", IsActive: true},
				"o2": {ID: "o2", ConfigurationID: "c1", Value: "400V", IsActive: true},
			},
		},
		mail: &mockMailDispatcher{},
	}
	f.svc = NewQuotationService(f.repo, f.customers, f.catalog, f.options, f.mail, validator.New(), zap.NewNop())
	return f
}

func ownerActor() Actor {
	return Actor{UserID: "u1", Roles: []string{models.RoleUser}}
}

func draftQuotation() *models.Quotation {
	return &models.Quotation{
		ID:              "q1",
		QuotationNumber: "QUO-2026-001",
		Title:           "Milling line",
		UserID:          "u1",
		CustomerID:      "cust1",
		Status:          models.QuotationDraft,
		Version:         1,
		IsLatestVersion: true,
		Currency:        "EUR",
	}
}

func strPtr(s string) *string { return &s }

func TestQuotationCreateInitializesMachineDefaults(t *testing.T) {
	f := newQuotationFixture()
	machineID := "m1"
	f.catalog.aggregate = &models.MachineConfiguration{
		Machine: models.Machine{ID: machineID},
		Tabs: []models.TabWithConfigurations{{
			Configurations: []models.TabConfigurationDetail{
				{
					TabConfiguration: models.TabConfiguration{ConfigurationID: "c1"},
					Configuration: models.ConfigurationDetail{
						Configuration: models.Configuration{ID: "c1"},
						Options: []models.ConfigurationOption{
							{ID: "o1", IsDefault: true, IsActive: true},
							{ID: "o2", IsDefault: false, IsActive: true},
						},
					},
				},
				{
					TabConfiguration: models.TabConfiguration{ConfigurationID: "c2"},
					Configuration: models.ConfigurationDetail{
						Configuration: models.Configuration{ID: "c2"},
					},
				},
			},
		}},
	}

	quotation, err := f.svc.Create(context.Background(), ownerActor(), models.QuotationCreateRequest{
		CustomerID: "cust1",
		MachineID:  &machineID,
		Title:      "Milling line",
	})
	require.NoError(t, err)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("QUO-%d-001", year), quotation.QuotationNumber)
	assert.Equal(t, models.QuotationDraft, quotation.Status)
	assert.Equal(t, 1, quotation.Version)
	assert.True(t, quotation.IsLatestVersion)
	assert.Equal(t, "EUR", quotation.Currency)

	require.Len(t, f.repo.initialized, 2)
	first := f.repo.initialized[0]
	assert.Equal(t, "c1", first.ConfigurationID)
	require.NotNil(t, first.SelectedOptionID)
	assert.Equal(t, "o1", *first.SelectedOptionID)
	assert.Equal(t, "Initial configuration state", first.ChangeDescription)
	assert.True(t, first.IsCurrentVersion)
	assert.Equal(t, 1, first.QuotationVersion)

	second := f.repo.initialized[1]
	assert.Equal(t, "c2", second.ConfigurationID)
	assert.Nil(t, second.SelectedOptionID)
}

func TestQuotationCreateRejectsForeignCustomer(t *testing.T) {
	f := newQuotationFixture()
	f.customers.customer = nil

	_, err := f.svc.Create(context.Background(), ownerActor(), models.QuotationCreateRequest{CustomerID: "cust1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestQuotationSetConfigurationFirstWrite(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
	})
	require.NoError(t, err)

	require.Len(t, f.repo.inserted, 1)
	assert.Empty(t, f.repo.replaced)
	assert.Equal(t, 1, row.QuotationVersion)
	assert.True(t, row.IsCurrentVersion)
	assert.Nil(t, row.PreviousValueHash)
	assert.Equal(t, "Initial configuration", row.ChangeDescription)
}

func TestQuotationSetConfigurationFirstWriteStartsAtQuotationVersion(t *testing.T) {
	f := newQuotationFixture()
	quotation := draftQuotation()
	quotation.Version = 2
	f.repo.quotation = quotation

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
	})
	require.NoError(t, err)

	require.Len(t, f.repo.inserted, 1)
	assert.Equal(t, 2, row.QuotationVersion)
	assert.Equal(t, "Initial configuration", row.ChangeDescription)
}

func TestQuotationUpdateAttachMachineInitializesAtQuotationVersion(t *testing.T) {
	f := newQuotationFixture()
	quotation := draftQuotation()
	quotation.Version = 2
	f.repo.quotation = quotation
	machineID := "m1"
	f.catalog.aggregate = &models.MachineConfiguration{
		Machine: models.Machine{ID: machineID},
		Tabs: []models.TabWithConfigurations{{
			Configurations: []models.TabConfigurationDetail{{
				TabConfiguration: models.TabConfiguration{ConfigurationID: "c1"},
				Configuration: models.ConfigurationDetail{
					Configuration: models.Configuration{ID: "c1"},
					Options:       []models.ConfigurationOption{{ID: "o1", IsDefault: true, IsActive: true}},
				},
			}},
		}},
	}

	_, err := f.svc.Update(context.Background(), ownerActor(), "q1", models.QuotationUpdateRequest{
		MachineID: &machineID,
	})
	require.NoError(t, err)

	require.Len(t, f.repo.initialized, 1)
	assert.Equal(t, 2, f.repo.initialized[0].QuotationVersion)
	assert.Equal(t, "Initial configuration state", f.repo.initialized[0].ChangeDescription)
}

func TestQuotationSetConfigurationUnchangedIsNoOp(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.current["c1"] = &models.QuotationConfiguration{
		ID:               "qc-1",
		QuotationID:      "q1",
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		QuotationVersion: 3,
		IsCurrentVersion: true,
	}

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
	})
	require.NoError(t, err)

	assert.Empty(t, f.repo.inserted)
	assert.Empty(t, f.repo.replaced)
	assert.Equal(t, "qc-1", row.ID)
	assert.Equal(t, 3, row.QuotationVersion)
}

func TestQuotationSetConfigurationOptionChanged(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.current["c1"] = &models.QuotationConfiguration{
		ID:               "qc-1",
		QuotationID:      "q1",
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		QuotationVersion: 1,
		IsCurrentVersion: true,
	}

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o2"),
	})
	require.NoError(t, err)

	require.Len(t, f.repo.replaced, 1)
	assert.Equal(t, "qc-1", f.repo.replaced[0].previousID)
	assert.Equal(t, 2, row.QuotationVersion)
	assert.True(t, row.IsCurrentVersion)
	require.NotNil(t, row.PreviousValueHash)
	assert.Len(t, *row.PreviousValueHash, 64)
	assert.Equal(t, "Option changed", row.ChangeDescription)
}

func TestQuotationSetConfigurationCombinedChangeDescription(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.current["c1"] = &models.QuotationConfiguration{
		ID:               "qc-1",
		QuotationID:      "q1",
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		QuotationVersion: 1,
		IsCurrentVersion: true,
	}

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o2"),
		CustomValue:      strPtr("adjusted"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Option changed, Custom value added", row.ChangeDescription)
}

func TestQuotationSetConfigurationNotesOnlyChangeStillVersions(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.current["c1"] = &models.QuotationConfiguration{
		ID:               "qc-1",
		QuotationID:      "q1",
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		QuotationVersion: 1,
		IsCurrentVersion: true,
	}

	row, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		Notes:            strPtr("per customer call"),
	})
	require.NoError(t, err)
	require.Len(t, f.repo.replaced, 1)
	assert.Equal(t, 2, row.QuotationVersion)
	assert.Equal(t, "Configuration updated", row.ChangeDescription)
}

func TestQuotationSetConfigurationRejectsForeignOption(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.options.options["o9"] = &models.ConfigurationOption{ID: "o9", ConfigurationID: "c9", Value: "x", IsActive: true}

	_, err := f.svc.SetConfiguration(context.Background(), ownerActor(), "q1", models.QuotationConfigurationRequest{
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o9"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuotationRemoveConfigurationWritesClearedVersion(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.current["c1"] = &models.QuotationConfiguration{
		ID:               "qc-1",
		QuotationID:      "q1",
		ConfigurationID:  "c1",
		SelectedOptionID: strPtr("o1"),
		QuotationVersion: 2,
		IsCurrentVersion: true,
	}

	err := f.svc.RemoveConfiguration(context.Background(), ownerActor(), "q1", "c1")
	require.NoError(t, err)

	require.Len(t, f.repo.replaced, 1)
	next := f.repo.replaced[0].next
	assert.Nil(t, next.SelectedOptionID)
	assert.Nil(t, next.CustomValue)
	assert.Equal(t, 3, next.QuotationVersion)
	assert.Equal(t, "Configuration cleared", next.ChangeDescription)
}

func TestQuotationCreateVersionCopiesState(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()

	next, err := f.svc.CreateVersion(context.Background(), ownerActor(), "q1", models.QuotationVersionRequest{VersionNotes: "raised prices"})
	require.NoError(t, err)

	assert.Equal(t, 2, next.Version)
	require.NotNil(t, next.ParentQuotationID)
	assert.Equal(t, "q1", *next.ParentQuotationID)
	assert.True(t, next.IsLatestVersion)
	assert.Equal(t, models.QuotationDraft, next.Status)

	require.NotNil(t, f.repo.copied)
	assert.Equal(t, "q1", f.repo.copied.fromID)
	assert.Equal(t, next.ID, f.repo.copied.toID)
	assert.Equal(t, 2, f.repo.copied.version)
	assert.Equal(t, "Copied from parent version", f.repo.copied.description)
}

func TestQuotationCreateVersionRequiresLatest(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.quotation.IsLatestVersion = false

	_, err := f.svc.CreateVersion(context.Background(), ownerActor(), "q1", models.QuotationVersionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestQuotationCloneStartsFreshChain(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()

	clone, err := f.svc.Clone(context.Background(), ownerActor(), "q1", models.QuotationCloneRequest{})
	require.NoError(t, err)

	assert.Equal(t, "Milling line (Copy)", clone.Title)
	assert.Equal(t, 1, clone.Version)
	assert.Nil(t, clone.ParentQuotationID)
	assert.True(t, clone.IsLatestVersion)

	require.NotNil(t, f.repo.copied)
	assert.Equal(t, 1, f.repo.copied.version)
	assert.Equal(t, "Copied from parent version", f.repo.copied.description)
}

func TestQuotationAccessForbiddenForOtherUser(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.quotation.UserID = "someone-else"

	_, err := f.svc.Versions(context.Background(), ownerActor(), "q1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := Actor{UserID: "u1", Roles: []string{models.RoleAdmin}}
	_, err = f.svc.Versions(context.Background(), admin, "q1")
	require.NoError(t, err)
}

func TestQuotationDeleteRequiresDraft(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.quotation.Status = models.QuotationSent

	err := f.svc.Delete(context.Background(), ownerActor(), "q1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.deleted)
}

func TestQuotationPriceSumsOptionModifiers(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	price1, price2 := 1500.0, 250.5
	f.repo.details = []models.QuotationConfigurationDetail{
		{
			QuotationConfiguration: models.QuotationConfiguration{ConfigurationID: "c1", SelectedOptionID: strPtr("o1")},
			ConfigurationName:      "Voltage",
			OptionDisplayName:      strPtr("400V"),
			OptionPriceModifier:    &price1,
		},
		{
			QuotationConfiguration: models.QuotationConfiguration{ConfigurationID: "c2", SelectedOptionID: strPtr("o3")},
			ConfigurationName:      "Coolant",
			OptionDisplayName:      strPtr("High pressure"),
			OptionPriceModifier:    &price2,
		},
		{
			QuotationConfiguration: models.QuotationConfiguration{ConfigurationID: "c3", CustomValue: strPtr("note")},
			ConfigurationName:      "Remarks",
		},
	}

	result, err := f.svc.Price(context.Background(), ownerActor(), "q1")
	require.NoError(t, err)

	assert.InDelta(t, 1750.5, result.TotalPrice, 0.001)
	assert.Equal(t, "EUR", result.Currency)
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, "Voltage: 400V", result.Breakdown[0].Item)
	require.NotNil(t, f.repo.totalPrice)
	assert.InDelta(t, 1750.5, *f.repo.totalPrice, 0.001)
}

func TestQuotationSendDispatchesMail(t *testing.T) {
	f := newQuotationFixture()
	f.repo.quotation = draftQuotation()
	f.repo.summary = &models.QuotationSummary{Quotation: *f.repo.quotation, CustomerName: "Acme Machining"}

	quotation, err := f.svc.Send(context.Background(), ownerActor(), "q1")
	require.NoError(t, err)

	assert.Equal(t, models.QuotationSent, quotation.Status)
	require.Len(t, f.mail.dispatched, 1)
	assert.Equal(t, "q1", f.mail.dispatched[0].ID)
	require.Len(t, f.repo.statusUpdates, 1)
	assert.Equal(t, models.QuotationSent, f.repo.statusUpdates[0])
}
