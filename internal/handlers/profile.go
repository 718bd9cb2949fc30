package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
)

type ProfileHandler struct {
	log          *logger.Logger
	agentService services.AgentService
}

func NewProfileHandler(log *logger.Logger, agentService services.AgentService) *ProfileHandler {
	return &ProfileHandler{
		log:          log.With("handler", "ProfileHandler"),
		agentService: agentService,
	}
}

// GET /p/:slug
func (h *ProfileHandler) GetPublic(c *gin.Context) {
	profile, err := h.agentService.GetPublicProfile(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"profile": profile})
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	agent, err := h.agentService.UpdateProfile(c.Request.Context(), rd, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"agent": agent})
}

// PUT /api/profile/avatar
func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	header, err := c.FormFile("avatar")
	if err != nil {
		RespondBadRequest(c, "an avatar image is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		RespondBadRequest(c, "could not read uploaded image")
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		RespondBadRequest(c, "could not read uploaded image")
		return
	}

	agent, err := h.agentService.UpdateAvatar(c.Request.Context(), rd, raw)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"agent": agent})
}
