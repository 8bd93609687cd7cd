package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type machineRepository interface {
	ListMachines(ctx context.Context, filter models.MachineFilter) ([]models.Machine, error)
	FindMachine(ctx context.Context, id string) (*models.Machine, error)
	CreateMachine(ctx context.Context, machine *models.Machine) error
	UpdateMachine(ctx context.Context, machine *models.Machine) error
	DeactivateMachine(ctx context.Context, id string) error
	CountMachineQuotations(ctx context.Context, machineID string) (int, error)
	FindGroup(ctx context.Context, id string) (*models.MachineGroup, error)
	ListTabs(ctx context.Context, machineID string) ([]models.ConfigurationTab, error)
	ListTabConfigurations(ctx context.Context, tabID string) ([]models.TabConfiguration, error)
}

type machineConfigurationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Configuration, error)
	ListOptions(ctx context.Context, configurationID string) ([]models.ConfigurationOption, error)
	ListRules(ctx context.Context, configurationID string) ([]models.ValidationRule, error)
}

// MachineService manages the machine catalog and serves the full configurator
// aggregate.
type MachineService struct {
	machines       machineRepository
	configurations machineConfigurationRepository
	cache          *CacheService
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewMachineService constructs a MachineService instance.
func NewMachineService(machines machineRepository, configurations machineConfigurationRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *MachineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MachineService{machines: machines, configurations: configurations, cache: cache, validator: validate, logger: logger}
}

// List returns active machines matching the filter.
func (s *MachineService) List(ctx context.Context, filter models.MachineFilter) ([]models.Machine, error) {
	machines, err := s.machines.ListMachines(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list machines")
	}
	if machines == nil {
		machines = []models.Machine{}
	}
	return machines, nil
}

// Get returns one machine with its group and tab summaries.
func (s *MachineService) Get(ctx context.Context, id string) (*models.MachineWithRelations, error) {
	machine, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &models.MachineWithRelations{Machine: *machine, Tabs: []models.ConfigurationTab{}}
	if group, err := s.machines.FindGroup(ctx, machine.GroupID); err == nil {
		result.Group = group
	}
	tabs, err := s.machines.ListTabs(ctx, machine.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list machine tabs")
	}
	if tabs != nil {
		result.Tabs = tabs
	}
	return result, nil
}

// Create stores a new machine.
func (s *MachineService) Create(ctx context.Context, req models.MachineCreateRequest) (*models.Machine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid machine payload")
	}
	if _, err := s.machines.FindGroup(ctx, req.GroupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "machine group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine group")
	}

	machine := &models.Machine{
		GroupID:     req.GroupID,
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		IsActive:    true,
	}
	if err := s.machines.CreateMachine(ctx, machine); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create machine")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return machine, nil
}

// Update modifies a machine.
func (s *MachineService) Update(ctx context.Context, id string, req models.MachineUpdateRequest) (*models.Machine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid machine payload")
	}
	machine, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.GroupID != machine.GroupID {
		if _, err := s.machines.FindGroup(ctx, req.GroupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "machine group not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine group")
		}
	}

	machine.GroupID = req.GroupID
	machine.Name = req.Name
	machine.Description = req.Description
	machine.Tags = req.Tags
	if req.IsActive != nil {
		machine.IsActive = *req.IsActive
	}
	if err := s.machines.UpdateMachine(ctx, machine); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update machine")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return machine, nil
}

// Delete soft-deletes a machine. Machines referenced by quotations cannot be
// removed.
func (s *MachineService) Delete(ctx context.Context, id string) error {
	machine, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.machines.CountMachineQuotations(ctx, machine.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count machine quotations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "machine is referenced by quotations")
	}
	if err := s.machines.DeactivateMachine(ctx, machine.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete machine")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// Configuration returns the full configurator aggregate for a machine: tabs,
// tab assignments and hydrated configurations. The aggregate is cached.
func (s *MachineService) Configuration(ctx context.Context, machineID string) (*models.MachineConfiguration, error) {
	cacheKey := fmt.Sprintf("catalog:machine:%s:configuration", machineID)
	var cached models.MachineConfiguration
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	machine, err := s.find(ctx, machineID)
	if err != nil {
		return nil, err
	}

	aggregate := &models.MachineConfiguration{Machine: *machine, Tabs: []models.TabWithConfigurations{}}
	if group, err := s.machines.FindGroup(ctx, machine.GroupID); err == nil {
		aggregate.Group = group
	}

	tabs, err := s.machines.ListTabs(ctx, machine.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list machine tabs")
	}
	for _, tab := range tabs {
		hydrated, err := s.hydrateTab(ctx, tab)
		if err != nil {
			return nil, err
		}
		aggregate.Tabs = append(aggregate.Tabs, *hydrated)
	}

	s.cache.Set(ctx, cacheKey, aggregate, 0)
	return aggregate, nil
}

func (s *MachineService) hydrateTab(ctx context.Context, tab models.ConfigurationTab) (*models.TabWithConfigurations, error) {
	items, err := s.machines.ListTabConfigurations(ctx, tab.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tab configurations")
	}

	result := &models.TabWithConfigurations{ConfigurationTab: tab, Configurations: []models.TabConfigurationDetail{}}
	for _, item := range items {
		config, err := s.configurations.FindByID(ctx, item.ConfigurationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
		}
		detail, err := s.hydrateConfiguration(ctx, config)
		if err != nil {
			return nil, err
		}
		result.Configurations = append(result.Configurations, models.TabConfigurationDetail{
			TabConfiguration: item,
			Configuration:    *detail,
		})
	}
	return result, nil
}

func (s *MachineService) hydrateConfiguration(ctx context.Context, config *models.Configuration) (*models.ConfigurationDetail, error) {
	options, err := s.configurations.ListOptions(ctx, config.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configuration options")
	}
	rules, err := s.configurations.ListRules(ctx, config.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list validation rules")
	}
	if options == nil {
		options = []models.ConfigurationOption{}
	}
	if rules == nil {
		rules = []models.ValidationRule{}
	}
	return &models.ConfigurationDetail{Configuration: *config, Options: options, ValidationRules: rules}, nil
}

func (s *MachineService) find(ctx context.Context, id string) (*models.Machine, error) {
	machine, err := s.machines.FindMachine(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "machine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine")
	}
	return machine, nil
}
