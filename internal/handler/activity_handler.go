package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/kb-api/internal/service"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/response"
)

// ActivityHandler wires HTTP endpoints to the activity service.
type ActivityHandler struct {
	service *service.ActivityService
	exports *service.ExportService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService, exports *service.ExportService) *ActivityHandler {
	return &ActivityHandler{service: svc, exports: exports}
}

func feedQueryFromRequest(c *gin.Context, userID string) service.FeedQuery {
	query := service.FeedQuery{
		UserID:    userID,
		OnlyMine:  c.Query("filter") == "my",
		TimeRange: c.Query("time_range"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	return query
}

// Feed godoc
// @Summary Activity feed
// @Description Recent activity entries; filter=my restricts to the caller, time_range is day, week, month or all
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param filter query string false "my"
// @Param time_range query string false "day|week|month|all"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	activities, err := h.service.Feed(c.Request.Context(), feedQueryFromRequest(c, claims.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, activities, nil)
}

// ExportCSV godoc
// @Summary Export activity feed as CSV
// @Tags Activities
// @Produce text/csv
// @Security BearerAuth
// @Param filter query string false "my"
// @Param time_range query string false "day|week|month|all"
// @Success 200 {file} binary
// @Router /activities/export [get]
func (h *ActivityHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.exports.ActivitiesCSV(c.Request.Context(), feedQueryFromRequest(c, claims.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
