package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
)

type CalendarHandler struct {
	log             *logger.Logger
	calendarService services.CalendarService
}

func NewCalendarHandler(log *logger.Logger, calendarService services.CalendarService) *CalendarHandler {
	return &CalendarHandler{
		log:             log.With("handler", "CalendarHandler"),
		calendarService: calendarService,
	}
}

// POST /api/calendar/connect
func (h *CalendarHandler) Connect(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req struct {
		AccessToken  string     `json:"access_token"`
		RefreshToken string     `json:"refresh_token"`
		Expiry       *time.Time `json:"expiry"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	if err := h.calendarService.StoreCredentials(c.Request.Context(), rd, req.AccessToken, req.RefreshToken, req.Expiry); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"connected": true})
}

// POST /api/calendar/sync
func (h *CalendarHandler) Sync(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	result, err := h.calendarService.SyncRenewals(c.Request.Context(), rd)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// DELETE /api/calendar
func (h *CalendarHandler) Disconnect(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.calendarService.Disconnect(c.Request.Context(), rd); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
