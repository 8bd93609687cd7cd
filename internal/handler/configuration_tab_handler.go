package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// ConfigurationTabHandler wires HTTP endpoints to the tab service.
type ConfigurationTabHandler struct {
	service *service.ConfigurationTabService
}

// NewConfigurationTabHandler creates a new handler.
func NewConfigurationTabHandler(svc *service.ConfigurationTabService) *ConfigurationTabHandler {
	return &ConfigurationTabHandler{service: svc}
}

// List godoc
// @Summary List machine tabs
// @Tags Catalog
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id}/tabs [get]
func (h *ConfigurationTabHandler) List(c *gin.Context) {
	tabs, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tabs, nil)
}

// Create godoc
// @Summary Create tab on machine
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Machine ID"
// @Param payload body models.TabCreateRequest true "Tab payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id}/tabs [post]
func (h *ConfigurationTabHandler) Create(c *gin.Context) {
	var req models.TabCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tab payload"))
		return
	}

	tab, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tab)
}

// Update godoc
// @Summary Update tab
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tabId path string true "Tab ID"
// @Param payload body models.TabUpdateRequest true "Tab payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tabs/{tabId} [put]
func (h *ConfigurationTabHandler) Update(c *gin.Context) {
	var req models.TabUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tab payload"))
		return
	}

	tab, err := h.service.Update(c.Request.Context(), c.Param("tabId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tab, nil)
}

// Delete godoc
// @Summary Deactivate tab
// @Description Tabs with assigned configurations cannot be removed
// @Tags Catalog
// @Produce json
// @Param tabId path string true "Tab ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tabs/{tabId} [delete]
func (h *ConfigurationTabHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("tabId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assign godoc
// @Summary Assign configuration to tab
// @Tags Catalog
// @Accept json
// @Produce json
// @Param tabId path string true "Tab ID"
// @Param payload body models.TabAssignRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tabs/{tabId}/configurations [post]
func (h *ConfigurationTabHandler) Assign(c *gin.Context) {
	var req models.TabAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	item, err := h.service.Assign(c.Request.Context(), c.Param("tabId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateAssignment godoc
// @Summary Update tab assignment
// @Tags Catalog
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body models.TabAssignmentUpdateRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tab-configurations/{assignmentId} [put]
func (h *ConfigurationTabHandler) UpdateAssignment(c *gin.Context) {
	var req models.TabAssignmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	item, err := h.service.UpdateAssignment(c.Request.Context(), c.Param("assignmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RemoveAssignment godoc
// @Summary Remove configuration from tab
// @Tags Catalog
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tab-configurations/{assignmentId} [delete]
func (h *ConfigurationTabHandler) RemoveAssignment(c *gin.Context) {
	if err := h.service.RemoveAssignment(c.Request.Context(), c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
