package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// QuotationHandler wires HTTP endpoints to the quotation workflow.
type QuotationHandler struct {
	service *service.QuotationService
	exports *service.ExportService
}

// NewQuotationHandler creates a new handler.
func NewQuotationHandler(svc *service.QuotationService, exports *service.ExportService) *QuotationHandler {
	return &QuotationHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List quotations
// @Description Lists latest-version quotations visible to the current user
// @Tags Quotations
// @Produce json
// @Param status query string false "Filter by status"
// @Param customer_id query string false "Filter by customer"
// @Param machine_id query string false "Filter by machine"
// @Success 200 {object} response.Envelope
// @Router /quotations [get]
func (h *QuotationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.QuotationFilter{
		Status:     models.QuotationStatus(c.Query("status")),
		CustomerID: c.Query("customer_id"),
		MachineID:  c.Query("machine_id"),
	}
	quotations, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotations, nil)
}

// Get godoc
// @Summary Get quotation
// @Description Returns the quotation with its current configuration state
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id} [get]
func (h *QuotationHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	quotation, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotation, nil)
}

// Create godoc
// @Summary Create quotation
// @Description Creates a draft quotation, initializing configuration defaults when a machine is attached
// @Tags Quotations
// @Accept json
// @Produce json
// @Param payload body models.QuotationCreateRequest true "Quotation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations [post]
func (h *QuotationHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quotation payload"))
		return
	}

	quotation, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quotation)
}

// Update godoc
// @Summary Update quotation header
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationUpdateRequest true "Quotation payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id} [put]
func (h *QuotationHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quotation payload"))
		return
	}

	quotation, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotation, nil)
}

// Delete godoc
// @Summary Delete quotation
// @Description Only draft quotations can be deleted
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id} [delete]
func (h *QuotationHandler) Delete(c *gin.Context) {
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

// UpdateStatus godoc
// @Summary Update quotation status
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quotations/{id}/status [put]
func (h *QuotationHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	quotation, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotation, nil)
}

// Configurations godoc
// @Summary List current configuration values
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/configurations [get]
func (h *QuotationHandler) Configurations(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.service.Configurations(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// SetConfiguration godoc
// @Summary Write a configuration value
// @Description Writes are versioned; writing an unchanged value is a no-op
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationConfigurationRequest true "Configuration value payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/configurations [put]
func (h *QuotationHandler) SetConfiguration(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}

	row, err := h.service.SetConfiguration(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// RemoveConfiguration godoc
// @Summary Clear a configuration value
// @Description Clearing is a versioned write; the value history is preserved
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Param configurationId path string true "Configuration ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/configurations/{configurationId} [delete]
func (h *QuotationHandler) RemoveConfiguration(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveConfiguration(c.Request.Context(), actor, c.Param("id"), c.Param("configurationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ConfigurationHistory godoc
// @Summary List configuration value history
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Param configurationId path string true "Configuration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/configurations/{configurationId}/history [get]
func (h *QuotationHandler) ConfigurationHistory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	history, err := h.service.ConfigurationHistory(c.Request.Context(), actor, c.Param("id"), c.Param("configurationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Versions godoc
// @Summary List quotation versions
// @Description Returns the version chain of the quotation, newest first
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/versions [get]
func (h *QuotationHandler) Versions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	versions, err := h.service.Versions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// CreateVersion godoc
// @Summary Create next quotation version
// @Description Appends a new version and copies the current configuration state into it
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationVersionRequest true "Version payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quotations/{id}/versions [post]
func (h *QuotationHandler) CreateVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}

	next, err := h.service.CreateVersion(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, next)
}

// Clone godoc
// @Summary Clone quotation
// @Description Creates an independent copy with a fresh version chain
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationCloneRequest true "Clone payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/clone [post]
func (h *QuotationHandler) Clone(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationCloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clone payload"))
		return
	}

	clone, err := h.service.Clone(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clone)
}

// Price godoc
// @Summary Calculate quotation price
// @Description Sums selected option price modifiers and persists the total
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/price [get]
func (h *QuotationHandler) Price(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Price(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PDF godoc
// @Summary Download quotation PDF
// @Description Renders the quotation document inline
// @Tags Quotations
// @Produce application/pdf
// @Param id path string true "Quotation ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/pdf [get]
func (h *QuotationHandler) PDF(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filename, data, err := h.exports.RenderPDF(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// Export godoc
// @Summary Export quotation
// @Description Renders and stores the quotation document and returns a signed download link
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param payload body models.QuotationExportRequest true "Export payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quotations/{id}/export [post]
func (h *QuotationHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.QuotationExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	result, err := h.exports.Export(c.Request.Context(), actor, c.Param("id"), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Send godoc
// @Summary Send quotation to customer
// @Description Dispatches the quotation mail and marks the quotation SENT
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quotations/{id}/send [post]
func (h *QuotationHandler) Send(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	quotation, err := h.service.Send(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quotation, nil)
}
