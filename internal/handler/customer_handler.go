package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// CustomerHandler wires HTTP endpoints to the customer service.
type CustomerHandler struct {
	service *service.CustomerService
}

// NewCustomerHandler creates a new handler.
func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: svc}
}

// List godoc
// @Summary List customers
// @Description List customers visible to the current user
// @Tags Customers
// @Produce json
// @Param search query string false "Search in company name and contact person"
// @Param country query string false "Filter by country"
// @Param is_active query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.CustomerFilter{
		Search:  c.Query("search"),
		Country: c.Query("country"),
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "is_active must be a boolean"))
			return
		}
		filter.IsActive = &active
	}

	customers, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, customers, nil)
}

// Get godoc
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	customer, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, customer, nil)
}

// Create godoc
// @Summary Create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param payload body models.CustomerCreateRequest true "Customer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CustomerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid customer payload"))
		return
	}

	customer, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, customer)
}

// Update godoc
// @Summary Update customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param payload body models.CustomerUpdateRequest true "Customer payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CustomerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid customer payload"))
		return
	}

	customer, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, customer, nil)
}

// Delete godoc
// @Summary Deactivate customer
// @Description Customers with quotations cannot be removed
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Quotations godoc
// @Summary List customer quotations
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /customers/{id}/quotations [get]
func (h *CustomerHandler) Quotations(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	quotations, err := h.service.Quotations(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, quotations, nil)
}
