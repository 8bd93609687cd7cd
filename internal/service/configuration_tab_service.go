package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type tabRepository interface {
	FindMachine(ctx context.Context, id string) (*models.Machine, error)
	ListTabs(ctx context.Context, machineID string) ([]models.ConfigurationTab, error)
	FindTab(ctx context.Context, id string) (*models.ConfigurationTab, error)
	NextTabOrder(ctx context.Context, machineID string) (int, error)
	CreateTab(ctx context.Context, tab *models.ConfigurationTab) error
	UpdateTab(ctx context.Context, tab *models.ConfigurationTab) error
	DeactivateTab(ctx context.Context, id string) error
	CountTabAssignments(ctx context.Context, tabID string) (int, error)
	ListTabConfigurations(ctx context.Context, tabID string) ([]models.TabConfiguration, error)
	FindTabConfiguration(ctx context.Context, id string) (*models.TabConfiguration, error)
	NextItemOrder(ctx context.Context, tabID string) (int, error)
	AssignConfiguration(ctx context.Context, item *models.TabConfiguration) error
	UpdateTabConfiguration(ctx context.Context, item *models.TabConfiguration) error
	RemoveTabConfiguration(ctx context.Context, id string) error
}

type tabConfigurationLookup interface {
	FindByID(ctx context.Context, id string) (*models.Configuration, error)
}

// ConfigurationTabService manages tabs and their configuration assignments.
type ConfigurationTabService struct {
	tabs           tabRepository
	configurations tabConfigurationLookup
	cache          *CacheService
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewConfigurationTabService constructs a ConfigurationTabService instance.
func NewConfigurationTabService(tabs tabRepository, configurations tabConfigurationLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ConfigurationTabService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ConfigurationTabService{tabs: tabs, configurations: configurations, cache: cache, validator: validate, logger: logger}
}

// List returns the tabs of a machine in display order.
func (s *ConfigurationTabService) List(ctx context.Context, machineID string) ([]models.ConfigurationTab, error) {
	if _, err := s.tabs.FindMachine(ctx, machineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "machine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine")
	}
	tabs, err := s.tabs.ListTabs(ctx, machineID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tabs")
	}
	if tabs == nil {
		tabs = []models.ConfigurationTab{}
	}
	return tabs, nil
}

// Create adds a tab to a machine. When no order is supplied the tab is placed
// after the existing ones.
func (s *ConfigurationTabService) Create(ctx context.Context, machineID string, req models.TabCreateRequest) (*models.ConfigurationTab, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tab payload")
	}
	if _, err := s.tabs.FindMachine(ctx, machineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "machine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine")
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		next, err := s.tabs.NextTabOrder(ctx, machineID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine tab order")
		}
		order = next
	}

	tab := &models.ConfigurationTab{
		MachineID:   machineID,
		Name:        req.Name,
		Description: req.Description,
		Order:       order,
		IsActive:    true,
	}
	if err := s.tabs.CreateTab(ctx, tab); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tab")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return tab, nil
}

// Update modifies a tab.
func (s *ConfigurationTabService) Update(ctx context.Context, tabID string, req models.TabUpdateRequest) (*models.ConfigurationTab, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tab payload")
	}
	tab, err := s.findTab(ctx, tabID)
	if err != nil {
		return nil, err
	}
	tab.Name = req.Name
	tab.Description = req.Description
	if req.Order != nil {
		tab.Order = *req.Order
	}
	if req.IsActive != nil {
		tab.IsActive = *req.IsActive
	}
	if err := s.tabs.UpdateTab(ctx, tab); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tab")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return tab, nil
}

// Delete soft-deletes a tab. Tabs with assigned configurations cannot be
// removed.
func (s *ConfigurationTabService) Delete(ctx context.Context, tabID string) error {
	tab, err := s.findTab(ctx, tabID)
	if err != nil {
		return err
	}
	count, err := s.tabs.CountTabAssignments(ctx, tab.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count tab assignments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "tab still has assigned configurations")
	}
	if err := s.tabs.DeactivateTab(ctx, tab.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete tab")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// Assign attaches a configuration to a tab.
func (s *ConfigurationTabService) Assign(ctx context.Context, tabID string, req models.TabAssignRequest) (*models.TabConfiguration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	tab, err := s.findTab(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if _, err := s.configurations.FindByID(ctx, req.ConfigurationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}

	existing, err := s.tabs.ListTabConfigurations(ctx, tab.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tab assignments")
	}
	for _, item := range existing {
		if item.ConfigurationID == req.ConfigurationID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "configuration already assigned to tab")
		}
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		next, err := s.tabs.NextItemOrder(ctx, tab.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine item order")
		}
		order = next
	}

	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}
	item := &models.TabConfiguration{
		TabID:           tab.ID,
		ConfigurationID: req.ConfigurationID,
		Order:           order,
		IsVisible:       visible,
		IsRequired:      req.IsRequired,
	}
	if err := s.tabs.AssignConfiguration(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign configuration")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return item, nil
}

// UpdateAssignment modifies per-tab overrides of an assignment.
func (s *ConfigurationTabService) UpdateAssignment(ctx context.Context, assignmentID string, req models.TabAssignmentUpdateRequest) (*models.TabConfiguration, error) {
	item, err := s.tabs.FindTabConfiguration(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tab assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tab assignment")
	}
	if req.Order != nil {
		item.Order = *req.Order
	}
	if req.IsVisible != nil {
		item.IsVisible = *req.IsVisible
	}
	if req.IsRequired != nil {
		item.IsRequired = req.IsRequired
	}
	if err := s.tabs.UpdateTabConfiguration(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tab assignment")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return item, nil
}

// RemoveAssignment detaches a configuration from a tab.
func (s *ConfigurationTabService) RemoveAssignment(ctx context.Context, assignmentID string) error {
	if _, err := s.tabs.FindTabConfiguration(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "tab assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tab assignment")
	}
	if err := s.tabs.RemoveTabConfiguration(ctx, assignmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove tab assignment")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

func (s *ConfigurationTabService) findTab(ctx context.Context, id string) (*models.ConfigurationTab, error) {
	tab, err := s.tabs.FindTab(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tab not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tab")
	}
	return tab, nil
}
