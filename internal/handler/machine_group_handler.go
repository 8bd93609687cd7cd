package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// MachineGroupHandler wires HTTP endpoints to the machine group service.
type MachineGroupHandler struct {
	service *service.MachineGroupService
}

// NewMachineGroupHandler creates a new handler.
func NewMachineGroupHandler(svc *service.MachineGroupService) *MachineGroupHandler {
	return &MachineGroupHandler{service: svc}
}

// List godoc
// @Summary List machine groups
// @Description List active machine groups with their machines
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /machine-groups [get]
func (h *MachineGroupHandler) List(c *gin.Context) {
	groups, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get machine group
// @Tags Catalog
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machine-groups/{id} [get]
func (h *MachineGroupHandler) Get(c *gin.Context) {
	group, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Create godoc
// @Summary Create machine group
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.MachineGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /machine-groups [post]
func (h *MachineGroupHandler) Create(c *gin.Context) {
	var req models.MachineGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Update machine group
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.MachineGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machine-groups/{id} [put]
func (h *MachineGroupHandler) Update(c *gin.Context) {
	var req models.MachineGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Deactivate machine group
// @Description Groups that still contain machines cannot be removed
// @Tags Catalog
// @Produce json
// @Param id path string true "Group ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /machine-groups/{id} [delete]
func (h *MachineGroupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
