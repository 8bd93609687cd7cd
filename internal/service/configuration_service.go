package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/quotecraft/machine-quote-api/internal/models"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
)

type configurationRepository interface {
	List(ctx context.Context, filter models.ConfigurationFilter) ([]models.Configuration, error)
	FindByID(ctx context.Context, id string) (*models.Configuration, error)
	Create(ctx context.Context, config *models.Configuration) error
	Update(ctx context.Context, config *models.Configuration) error
	Deactivate(ctx context.Context, id string) error
	CountTabUsages(ctx context.Context, configurationID string) (int, error)
	ListOptions(ctx context.Context, configurationID string) ([]models.ConfigurationOption, error)
	FindOption(ctx context.Context, id string) (*models.ConfigurationOption, error)
	CreateOption(ctx context.Context, option *models.ConfigurationOption) error
	UpdateOption(ctx context.Context, option *models.ConfigurationOption) error
	DeactivateOption(ctx context.Context, id string) error
	ListRules(ctx context.Context, configurationID string) ([]models.ValidationRule, error)
	CreateRule(ctx context.Context, rule *models.ValidationRule) error
	DeactivateRule(ctx context.Context, id string) error
	ListDependencies(ctx context.Context, configurationID string) (*models.ConfigurationDependencies, error)
	CreateDependency(ctx context.Context, dep *models.ConfigurationDependency) error
	DeleteDependency(ctx context.Context, id string) error
}

// ConfigurationService manages configuration definitions and runs the value
// validation engine.
type ConfigurationService struct {
	repo      configurationRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConfigurationService constructs a ConfigurationService instance.
func NewConfigurationService(repo configurationRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ConfigurationService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns active configurations matching the filter.
func (s *ConfigurationService) List(ctx context.Context, filter models.ConfigurationFilter) ([]models.Configuration, error) {
	configs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	if configs == nil {
		configs = []models.Configuration{}
	}
	return configs, nil
}

// Get returns one configuration hydrated with options and rules.
func (s *ConfigurationService) Get(ctx context.Context, id string) (*models.ConfigurationDetail, error) {
	config, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, config)
}

// Create stores a new configuration definition.
func (s *ConfigurationService) Create(ctx context.Context, req models.ConfigurationCreateRequest) (*models.Configuration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	config := &models.Configuration{
		Name:        req.Name,
		Description: req.Description,
		HelpText:    req.HelpText,
		Type:        req.Type,
		IsRequired:  req.IsRequired,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create configuration")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return config, nil
}

// Update modifies a configuration definition.
func (s *ConfigurationService) Update(ctx context.Context, id string, req models.ConfigurationUpdateRequest) (*models.Configuration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	config, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	config.Name = req.Name
	config.Description = req.Description
	config.HelpText = req.HelpText
	config.Type = req.Type
	config.IsRequired = req.IsRequired
	if req.IsActive != nil {
		config.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return config, nil
}

// Delete soft-deletes a configuration. Configurations assigned to tabs cannot
// be removed.
func (s *ConfigurationService) Delete(ctx context.Context, id string) error {
	config, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountTabUsages(ctx, config.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count configuration usages")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "configuration is assigned to tabs")
	}
	if err := s.repo.Deactivate(ctx, config.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete configuration")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// CreateOption adds an option to a configuration.
func (s *ConfigurationService) CreateOption(ctx context.Context, configurationID string, req models.OptionRequest) (*models.ConfigurationOption, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid option payload")
	}
	config, err := s.find(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	option := &models.ConfigurationOption{
		ConfigurationID: config.ID,
		Value:           req.Value,
		DisplayName:     req.DisplayName,
		Description:     req.Description,
		PriceModifier:   req.PriceModifier,
		IsDefault:       req.IsDefault,
		IsActive:        true,
	}
	if err := s.repo.CreateOption(ctx, option); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create option")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return option, nil
}

// UpdateOption modifies an option.
func (s *ConfigurationService) UpdateOption(ctx context.Context, optionID string, req models.OptionRequest) (*models.ConfigurationOption, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid option payload")
	}
	option, err := s.repo.FindOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "option not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load option")
	}
	option.Value = req.Value
	option.DisplayName = req.DisplayName
	option.Description = req.Description
	option.PriceModifier = req.PriceModifier
	option.IsDefault = req.IsDefault
	if err := s.repo.UpdateOption(ctx, option); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update option")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return option, nil
}

// DeleteOption soft-deletes an option.
func (s *ConfigurationService) DeleteOption(ctx context.Context, optionID string) error {
	if _, err := s.repo.FindOption(ctx, optionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "option not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load option")
	}
	if err := s.repo.DeactivateOption(ctx, optionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete option")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// CreateRule adds a validation rule to a configuration.
func (s *ConfigurationService) CreateRule(ctx context.Context, configurationID string, req models.RuleRequest) (*models.ValidationRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	config, err := s.find(ctx, configurationID)
	if err != nil {
		return nil, err
	}
	rule := &models.ValidationRule{
		ConfigurationID: config.ID,
		RuleType:        req.RuleType,
		RuleValue:       req.RuleValue,
		ErrorMessage:    req.ErrorMessage,
		IsActive:        true,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return rule, nil
}

// DeleteRule soft-deletes a validation rule.
func (s *ConfigurationService) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.repo.DeactivateRule(ctx, ruleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// Dependencies returns the dependency edges touching a configuration. Edges
// are exposed as data; conditions and actions are never evaluated server-side.
func (s *ConfigurationService) Dependencies(ctx context.Context, configurationID string) (*models.ConfigurationDependencies, error) {
	if _, err := s.find(ctx, configurationID); err != nil {
		return nil, err
	}
	deps, err := s.repo.ListDependencies(ctx, configurationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list dependencies")
	}
	return deps, nil
}

// CreateDependency stores a dependency edge between two configurations.
func (s *ConfigurationService) CreateDependency(ctx context.Context, req models.DependencyRequest) (*models.ConfigurationDependency, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid dependency payload")
	}
	if req.ParentConfigurationID == req.ChildConfigurationID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a configuration cannot depend on itself")
	}
	if _, err := s.find(ctx, req.ParentConfigurationID); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, req.ChildConfigurationID); err != nil {
		return nil, err
	}
	dep := &models.ConfigurationDependency{
		ParentID:  req.ParentConfigurationID,
		ChildID:   req.ChildConfigurationID,
		Condition: req.Condition,
		Action:    req.Action,
	}
	if err := s.repo.CreateDependency(ctx, dep); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create dependency")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return dep, nil
}

// DeleteDependency removes a dependency edge.
func (s *ConfigurationService) DeleteDependency(ctx context.Context, id string) error {
	if err := s.repo.DeleteDependency(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete dependency")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

// ValidateValue runs the validation engine against a candidate value.
func (s *ConfigurationService) ValidateValue(ctx context.Context, req models.ValidateValueRequest) (*models.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	config, err := s.find(ctx, req.ConfigurationID)
	if err != nil {
		return nil, err
	}
	detail, err := s.hydrate(ctx, config)
	if err != nil {
		return nil, err
	}
	return EvaluateValue(detail, req.Value), nil
}

// EvaluateValue validates a value against a configuration aggregate. It is a
// pure function: every applicable rule is evaluated, errors accumulate and
// warnings never affect validity.
func EvaluateValue(detail *models.ConfigurationDetail, value string) *models.ValidationResult {
	result := &models.ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
	trimmed := strings.TrimSpace(value)

	if detail.IsRequired && value == "" {
		result.Errors = append(result.Errors, fmt.Sprintf("Configuration '%s' is required", detail.Name))
	}

	for _, rule := range detail.ValidationRules {
		if !rule.IsActive {
			continue
		}
		switch rule.RuleType {
		case models.RuleMinValue:
			number, ok := parseNumber(trimmed)
			if !ok {
				continue
			}
			bound, boundOK := parseNumber(rule.RuleValue)
			if boundOK && number < bound {
				result.Errors = append(result.Errors, rule.ErrorMessage)
			}
		case models.RuleMaxValue:
			number, ok := parseNumber(trimmed)
			if !ok {
				continue
			}
			bound, boundOK := parseNumber(rule.RuleValue)
			if boundOK && number > bound {
				result.Errors = append(result.Errors, rule.ErrorMessage)
			}
		case models.RuleRegex:
			re, err := regexp.Compile(rule.RuleValue)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("rule %s has an invalid pattern", rule.ID))
				continue
			}
			if !re.MatchString(value) {
				result.Errors = append(result.Errors, rule.ErrorMessage)
			}
		case models.RuleCustom:
			result.Warnings = append(result.Warnings, fmt.Sprintf("Custom validation for '%s' not implemented", detail.Name))
		}
	}

	if trimmed != "" {
		switch detail.Type {
		case models.ConfigTypeSingleChoice:
			if !isActiveOptionValue(detail.Options, trimmed) {
				result.Errors = append(result.Errors, fmt.Sprintf("Invalid option '%s' for configuration '%s'", trimmed, detail.Name))
			}
		case models.ConfigTypeMultipleChoice:
			for _, part := range strings.Split(trimmed, ",") {
				candidate := strings.TrimSpace(part)
				if candidate == "" {
					continue
				}
				if !isActiveOptionValue(detail.Options, candidate) {
					result.Errors = append(result.Errors, fmt.Sprintf("Invalid option '%s' for configuration '%s'", candidate, detail.Name))
				}
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func isActiveOptionValue(options []models.ConfigurationOption, value string) bool {
	for _, option := range options {
		if option.IsActive && option.Value == value {
			return true
		}
	}
	return false
}

func parseNumber(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	number, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return number, true
}

func (s *ConfigurationService) hydrate(ctx context.Context, config *models.Configuration) (*models.ConfigurationDetail, error) {
	options, err := s.repo.ListOptions(ctx, config.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list options")
	}
	rules, err := s.repo.ListRules(ctx, config.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	if options == nil {
		options = []models.ConfigurationOption{}
	}
	if rules == nil {
		rules = []models.ValidationRule{}
	}
	return &models.ConfigurationDetail{Configuration: *config, Options: options, ValidationRules: rules}, nil
}

func (s *ConfigurationService) find(ctx context.Context, id string) (*models.Configuration, error) {
	config, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	return config, nil
}
