package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quotecraft/machine-quote-api/internal/models"
	"github.com/quotecraft/machine-quote-api/internal/service"
	appErrors "github.com/quotecraft/machine-quote-api/pkg/errors"
	"github.com/quotecraft/machine-quote-api/pkg/response"
)

// ConfigurationHandler wires HTTP endpoints to the configuration service.
type ConfigurationHandler struct {
	service *service.ConfigurationService
}

// NewConfigurationHandler creates a new handler.
func NewConfigurationHandler(svc *service.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: svc}
}

// List godoc
// @Summary List configurations
// @Tags Configurations
// @Produce json
// @Param type query string false "Filter by configuration type"
// @Success 200 {object} response.Envelope
// @Router /configurations [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	filter := models.ConfigurationFilter{Type: models.ConfigurationType(c.Query("type"))}
	configs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Get godoc
// @Summary Get configuration
// @Description Returns the configuration with options and validation rules
// @Tags Configurations
// @Produce json
// @Param id path string true "Configuration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id} [get]
func (h *ConfigurationHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create configuration
// @Tags Configurations
// @Accept json
// @Produce json
// @Param payload body models.ConfigurationCreateRequest true "Configuration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configurations [post]
func (h *ConfigurationHandler) Create(c *gin.Context) {
	var req models.ConfigurationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}

	config, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, config)
}

// Update godoc
// @Summary Update configuration
// @Tags Configurations
// @Accept json
// @Produce json
// @Param id path string true "Configuration ID"
// @Param payload body models.ConfigurationUpdateRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id} [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req models.ConfigurationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}

	config, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Delete godoc
// @Summary Deactivate configuration
// @Description Configurations assigned to tabs cannot be removed
// @Tags Configurations
// @Produce json
// @Param id path string true "Configuration ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id} [delete]
func (h *ConfigurationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateOption godoc
// @Summary Add option to configuration
// @Tags Configurations
// @Accept json
// @Produce json
// @Param id path string true "Configuration ID"
// @Param payload body models.OptionRequest true "Option payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id}/options [post]
func (h *ConfigurationHandler) CreateOption(c *gin.Context) {
	var req models.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid option payload"))
		return
	}

	option, err := h.service.CreateOption(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, option)
}

// UpdateOption godoc
// @Summary Update option
// @Tags Configurations
// @Accept json
// @Produce json
// @Param optionId path string true "Option ID"
// @Param payload body models.OptionRequest true "Option payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configuration-options/{optionId} [put]
func (h *ConfigurationHandler) UpdateOption(c *gin.Context) {
	var req models.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid option payload"))
		return
	}

	option, err := h.service.UpdateOption(c.Request.Context(), c.Param("optionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, option, nil)
}

// DeleteOption godoc
// @Summary Deactivate option
// @Tags Configurations
// @Produce json
// @Param optionId path string true "Option ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configuration-options/{optionId} [delete]
func (h *ConfigurationHandler) DeleteOption(c *gin.Context) {
	if err := h.service.DeleteOption(c.Request.Context(), c.Param("optionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateRule godoc
// @Summary Add validation rule
// @Tags Configurations
// @Accept json
// @Produce json
// @Param id path string true "Configuration ID"
// @Param payload body models.RuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id}/rules [post]
func (h *ConfigurationHandler) CreateRule(c *gin.Context) {
	var req models.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// DeleteRule godoc
// @Summary Deactivate validation rule
// @Tags Configurations
// @Produce json
// @Param ruleId path string true "Rule ID"
// @Success 204 {object} response.Envelope
// @Router /validation-rules/{ruleId} [delete]
func (h *ConfigurationHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Dependencies godoc
// @Summary List configuration dependencies
// @Description Returns dependency edges in both directions
// @Tags Configurations
// @Produce json
// @Param id path string true "Configuration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/{id}/dependencies [get]
func (h *ConfigurationHandler) Dependencies(c *gin.Context) {
	deps, err := h.service.Dependencies(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deps, nil)
}

// CreateDependency godoc
// @Summary Create dependency edge
// @Tags Configurations
// @Accept json
// @Produce json
// @Param payload body models.DependencyRequest true "Dependency payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /configuration-dependencies [post]
func (h *ConfigurationHandler) CreateDependency(c *gin.Context) {
	var req models.DependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dependency payload"))
		return
	}

	dep, err := h.service.CreateDependency(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dep)
}

// DeleteDependency godoc
// @Summary Delete dependency edge
// @Tags Configurations
// @Produce json
// @Param dependencyId path string true "Dependency ID"
// @Success 204 {object} response.Envelope
// @Router /configuration-dependencies/{dependencyId} [delete]
func (h *ConfigurationHandler) DeleteDependency(c *gin.Context) {
	if err := h.service.DeleteDependency(c.Request.Context(), c.Param("dependencyId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ValidateValue godoc
// @Summary Validate a configuration value
// @Description Runs the validation engine without persisting anything
// @Tags Configurations
// @Accept json
// @Produce json
// @Param payload body models.ValidateValueRequest true "Validation payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /configurations/validate [post]
func (h *ConfigurationHandler) ValidateValue(c *gin.Context) {
	var req models.ValidateValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}

	result, err := h.service.ValidateValue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
