package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/kb-api/internal/models"
	"github.com/teamhub/kb-api/internal/service"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/response"
)

// PageHandler wires HTTP endpoints to the page service.
type PageHandler struct {
	service *service.PageService
	exports *service.ExportService
}

// NewPageHandler creates a new handler.
func NewPageHandler(svc *service.PageService, exports *service.ExportService) *PageHandler {
	return &PageHandler{service: svc, exports: exports}
}

// Create godoc
// @Summary Create page
// @Description Create a published page and the first entry of its version history
// @Tags Pages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreatePageRequest true "Page payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages [post]
func (h *PageHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid page payload"))
		return
	}

	page, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, page)
}

// List godoc
// @Summary List pages
// @Description List pages, optionally filtered by space or parent. parent_id=null selects root pages.
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param space_id query string false "Space ID"
// @Param parent_id query string false "Parent page ID or the literal null"
// @Success 200 {object} response.Envelope
// @Router /pages [get]
func (h *PageHandler) List(c *gin.Context) {
	filter := models.PageFilter{SpaceID: c.Query("space_id")}
	if parentID, ok := c.GetQuery("parent_id"); ok {
		if parentID == "null" {
			filter.RootOnly = true
		} else {
			filter.ParentID = &parentID
		}
	}

	pages, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pages, nil)
}

// Get godoc
// @Summary Get page
// @Description Return a page and bump its view counter
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Page ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [get]
func (h *PageHandler) Get(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, page, nil)
}

// Update godoc
// @Summary Update page
// @Description Apply an edit and append a version history entry
// @Tags Pages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Page ID"
// @Param payload body models.UpdatePageRequest true "Page payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [put]
func (h *PageHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid page payload"))
		return
	}

	page, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, page, nil)
}

// Delete godoc
// @Summary Delete page
// @Description Delete a page together with its direct children, versions and comments
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Page ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id} [delete]
func (h *PageHandler) Delete(c *gin.Context) {
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

// Versions godoc
// @Summary Page version history
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Page ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id}/versions [get]
func (h *PageHandler) Versions(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	versions, err := h.service.Versions(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, versions, nil)
}

// Search godoc
// @Summary Search pages
// @Description Ranked full-text search over titles, content and tags
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param q query string true "Query"
// @Param space_id query string false "Space ID"
// @Success 200 {object} response.Envelope
// @Router /pages/search [get]
func (h *PageHandler) Search(c *gin.Context) {
	pages, err := h.service.Search(c.Request.Context(), c.Query("q"), c.Query("space_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pages, nil)
}

// Suggestions godoc
// @Summary Search suggestions
// @Description Up to five unique title and tag completions
// @Tags Pages
// @Produce json
// @Security BearerAuth
// @Param q query string true "Prefix, at least two characters"
// @Success 200 {object} response.Envelope
// @Router /pages/suggestions [get]
func (h *PageHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.service.Suggestions(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, suggestions, nil)
}

// ExportPDF godoc
// @Summary Export page as PDF
// @Tags Pages
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Page ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pages/{id}/export [get]
func (h *PageHandler) ExportPDF(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.exports.PagePDF(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
