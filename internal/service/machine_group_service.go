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

type machineGroupRepository interface {
	ListGroups(ctx context.Context) ([]models.MachineGroup, error)
	FindGroup(ctx context.Context, id string) (*models.MachineGroup, error)
	CreateGroup(ctx context.Context, group *models.MachineGroup) error
	UpdateGroup(ctx context.Context, group *models.MachineGroup) error
	DeactivateGroup(ctx context.Context, id string) error
	CountGroupMachines(ctx context.Context, groupID string) (int, error)
	ListMachines(ctx context.Context, filter models.MachineFilter) ([]models.Machine, error)
}

// MachineGroupService manages the machine group catalog.
type MachineGroupService struct {
	repo      machineGroupRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMachineGroupService constructs a MachineGroupService instance.
func NewMachineGroupService(repo machineGroupRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *MachineGroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MachineGroupService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns all active groups with their machines.
func (s *MachineGroupService) List(ctx context.Context) ([]models.MachineGroupWithMachines, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list machine groups")
	}

	result := make([]models.MachineGroupWithMachines, 0, len(groups))
	for _, group := range groups {
		machines, err := s.repo.ListMachines(ctx, models.MachineFilter{GroupID: group.ID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group machines")
		}
		if machines == nil {
			machines = []models.Machine{}
		}
		result = append(result, models.MachineGroupWithMachines{MachineGroup: group, Machines: machines})
	}
	return result, nil
}

// Get returns one group with its machines.
func (s *MachineGroupService) Get(ctx context.Context, id string) (*models.MachineGroupWithMachines, error) {
	group, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	machines, err := s.repo.ListMachines(ctx, models.MachineFilter{GroupID: group.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group machines")
	}
	if machines == nil {
		machines = []models.Machine{}
	}
	return &models.MachineGroupWithMachines{MachineGroup: *group, Machines: machines}, nil
}

// Create stores a new machine group.
func (s *MachineGroupService) Create(ctx context.Context, req models.MachineGroupRequest) (*models.MachineGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid machine group payload")
	}
	group := &models.MachineGroup{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create machine group")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return group, nil
}

// Update modifies a machine group.
func (s *MachineGroupService) Update(ctx context.Context, id string, req models.MachineGroupRequest) (*models.MachineGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid machine group payload")
	}
	group, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Name = req.Name
	group.Description = req.Description
	if req.IsActive != nil {
		group.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateGroup(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update machine group")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return group, nil
}

// Delete soft-deletes a group. Groups still containing machines cannot be
// removed.
func (s *MachineGroupService) Delete(ctx context.Context, id string) error {
	group, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountGroupMachines(ctx, group.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group machines")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "machine group still contains machines")
	}
	if err := s.repo.DeactivateGroup(ctx, group.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete machine group")
	}
	s.cache.Invalidate(ctx, "catalog:*")
	return nil
}

func (s *MachineGroupService) find(ctx context.Context, id string) (*models.MachineGroup, error) {
	group, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "machine group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load machine group")
	}
	return group, nil
}
