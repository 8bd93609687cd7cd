package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// MachineHandler wires HTTP endpoints to the machine service.
type MachineHandler struct {
	service *service.MachineService
}

// NewMachineHandler creates a new handler.
func NewMachineHandler(svc *service.MachineService) *MachineHandler {
	return &MachineHandler{service: svc}
}

// List godoc
// @Summary List machines
// @Tags Catalog
// @Produce json
// @Param group_id query string false "Filter by group"
// @Param tags query string false "Comma separated tag filter, matches any"
// @Success 200 {object} response.Envelope
// @Router /machines [get]
func (h *MachineHandler) List(c *gin.Context) {
	filter := models.MachineFilter{GroupID: c.Query("group_id")}
	if raw := c.Query("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				filter.Tags = append(filter.Tags, trimmed)
			}
		}
	}

	machines, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, machines, nil)
}

// Get godoc
// @Summary Get machine
// @Description Returns the machine with its group and tab summaries
// @Tags Catalog
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id} [get]
func (h *MachineHandler) Get(c *gin.Context) {
	machine, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, machine, nil)
}

// Create godoc
// @Summary Create machine
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.MachineCreateRequest true "Machine payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /machines [post]
func (h *MachineHandler) Create(c *gin.Context) {
	var req models.MachineCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid machine payload"))
		return
	}

	machine, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, machine)
}

// Update godoc
// @Summary Update machine
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Machine ID"
// @Param payload body models.MachineUpdateRequest true "Machine payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id} [put]
func (h *MachineHandler) Update(c *gin.Context) {
	var req models.MachineUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid machine payload"))
		return
	}

	machine, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, machine, nil)
}

// Delete godoc
// @Summary Deactivate machine
// @Description Machines referenced by quotations cannot be removed
// @Tags Catalog
// @Produce json
// @Param id path string true "Machine ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id} [delete]
func (h *MachineHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Configuration godoc
// @Summary Get machine configuration aggregate
// @Description Returns tabs with configurations, options and rules for the configurator
// @Tags Catalog
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machines/{id}/configuration [get]
func (h *MachineHandler) Configuration(c *gin.Context) {
	aggregate, err := h.service.Configuration(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregate, nil)
}
