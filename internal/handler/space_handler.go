package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/kb-api/internal/models"
	"github.com/teamhub/kb-api/internal/service"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/response"
)

// SpaceHandler wires HTTP endpoints to the space service.
type SpaceHandler struct {
	service *service.SpaceService
}

// NewSpaceHandler creates a new handler.
func NewSpaceHandler(svc *service.SpaceService) *SpaceHandler {
	return &SpaceHandler{service: svc}
}

// Create godoc
// @Summary Create space
// @Description Create a space owned by the caller
// @Tags Spaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateSpaceRequest true "Space payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /spaces [post]
func (h *SpaceHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid space payload"))
		return
	}

	space, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, space)
}

// List godoc
// @Summary List spaces
// @Description List spaces visible to the caller
// @Tags Spaces
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /spaces [get]
func (h *SpaceHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	spaces, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, spaces, nil)
}

// Get godoc
// @Summary Get space
// @Tags Spaces
// @Produce json
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /spaces/{id} [get]
func (h *SpaceHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	space, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, space, nil)
}

// Update godoc
// @Summary Update space
// @Tags Spaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Param payload body models.UpdateSpaceRequest true "Space payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /spaces/{id} [put]
func (h *SpaceHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid space payload"))
		return
	}

	space, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, space, nil)
}

// Delete godoc
// @Summary Delete space
// @Description Delete a space and all of its pages. Owner only.
// @Tags Spaces
// @Produce json
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /spaces/{id} [delete]
func (h *SpaceHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
