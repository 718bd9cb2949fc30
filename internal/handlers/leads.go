package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
	"github.com/polizaflow/agency-backend/internal/types"
)

type LeadHandler struct {
	log         *logger.Logger
	leadService services.LeadService
}

func NewLeadHandler(log *logger.Logger, leadService services.LeadService) *LeadHandler {
	return &LeadHandler{
		log:         log.With("handler", "LeadHandler"),
		leadService: leadService,
	}
}

// POST /p/:slug/leads
// Unauthenticated capture from an agent's public profile page.
func (h *LeadHandler) CapturePublic(c *gin.Context) {
	var req services.LeadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	lead, err := h.leadService.CapturePublicLead(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"lead": lead})
}

// GET /api/leads?status=
func (h *LeadHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	status := types.LeadStatus(c.Query("status"))
	leads, err := h.leadService.ListLeads(c.Request.Context(), rd, status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"leads": leads})
}

// POST /api/leads/:id/move
func (h *LeadHandler) Move(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid lead id")
		return
	}
	var req struct {
		Status types.LeadStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	lead, err := h.leadService.MoveLead(c.Request.Context(), rd, leadID, req.Status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"lead": lead})
}

// PUT /api/leads/:id/notes
func (h *LeadHandler) UpdateNotes(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid lead id")
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	lead, err := h.leadService.UpdateNotes(c.Request.Context(), rd, leadID, req.Notes)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"lead": lead})
}
