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

type customerRepository interface {
	ListForUser(ctx context.Context, userID string, filter models.CustomerFilter) ([]models.Customer, error)
	ListAll(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error)
	FindForUser(ctx context.Context, userID, customerID string) (*models.Customer, error)
	FindByID(ctx context.Context, id string) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, userID string, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Deactivate(ctx context.Context, id string) error
	CountQuotations(ctx context.Context, customerID string) (int, error)
}

type customerQuotationRepository interface {
	List(ctx context.Context, filter models.QuotationFilter) ([]models.QuotationSummary, error)
}

// Actor identifies the caller of a service operation.
type Actor struct {
	UserID string
	Roles  []string
}

// IsAdmin reports whether the actor holds a role with cross-tenant visibility.
func (a Actor) IsAdmin() bool {
	for _, role := range a.Roles {
		for _, admin := range models.AdminRoles {
			if role == admin {
				return true
			}
		}
	}
	return false
}

// CustomerService provides customer management use cases. Non-admin callers
// only see customers assigned to them; violations surface as NotFound so that
// foreign customer IDs cannot be probed.
type CustomerService struct {
	customers  customerRepository
	quotations customerQuotationRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCustomerService constructs a CustomerService instance.
func NewCustomerService(customers customerRepository, quotations customerQuotationRepository, validate *validator.Validate, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CustomerService{customers: customers, quotations: quotations, validator: validate, logger: logger}
}

// List returns customers visible to the actor.
func (s *CustomerService) List(ctx context.Context, actor Actor, filter models.CustomerFilter) ([]models.Customer, error) {
	var (
		customers []models.Customer
		err       error
	)
	if actor.IsAdmin() {
		customers, err = s.customers.ListAll(ctx, filter)
	} else {
		customers, err = s.customers.ListForUser(ctx, actor.UserID, filter)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list customers")
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	return customers, nil
}

// Get returns one customer visible to the actor.
func (s *CustomerService) Get(ctx context.Context, actor Actor, customerID string) (*models.Customer, error) {
	return s.load(ctx, actor, customerID)
}

// Create stores a new customer and assigns it to the actor.
func (s *CustomerService) Create(ctx context.Context, actor Actor, req models.CustomerCreateRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid customer payload")
	}

	if _, err := s.customers.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "customer email already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check customer email")
	}

	customer := &models.Customer{
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Country:       req.Country,
		IsActive:      true,
	}
	if err := s.customers.Create(ctx, actor.UserID, customer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create customer")
	}
	return customer, nil
}

// Update modifies a customer visible to the actor.
func (s *CustomerService) Update(ctx context.Context, actor Actor, customerID string, req models.CustomerUpdateRequest) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid customer payload")
	}

	customer, err := s.load(ctx, actor, customerID)
	if err != nil {
		return nil, err
	}

	if req.Email != customer.Email {
		if existing, err := s.customers.FindByEmail(ctx, req.Email); err == nil && existing.ID != customer.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "customer email already in use")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check customer email")
		}
	}

	customer.CompanyName = req.CompanyName
	customer.ContactPerson = req.ContactPerson
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.Country = req.Country
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update customer")
	}
	return customer, nil
}

// Delete soft-deletes a customer. Customers with quotations cannot be removed.
func (s *CustomerService) Delete(ctx context.Context, actor Actor, customerID string) error {
	customer, err := s.load(ctx, actor, customerID)
	if err != nil {
		return err
	}

	count, err := s.customers.CountQuotations(ctx, customer.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count customer quotations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "customer has quotations and cannot be deleted")
	}

	if err := s.customers.Deactivate(ctx, customer.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete customer")
	}
	return nil
}

// Quotations lists the latest-version quotations of a customer visible to the
// actor.
func (s *CustomerService) Quotations(ctx context.Context, actor Actor, customerID string) ([]models.QuotationSummary, error) {
	customer, err := s.load(ctx, actor, customerID)
	if err != nil {
		return nil, err
	}

	filter := models.QuotationFilter{
		UserID:     actor.UserID,
		CustomerID: customer.ID,
		AllUsers:   actor.IsAdmin(),
	}
	quotations, err := s.quotations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list customer quotations")
	}
	if quotations == nil {
		quotations = []models.QuotationSummary{}
	}
	return quotations, nil
}

func (s *CustomerService) load(ctx context.Context, actor Actor, customerID string) (*models.Customer, error) {
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
