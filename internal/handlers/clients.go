package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
)

type ClientHandler struct {
	log           *logger.Logger
	clientService services.ClientService
}

func NewClientHandler(log *logger.Logger, clientService services.ClientService) *ClientHandler {
	return &ClientHandler{
		log:           log.With("handler", "ClientHandler"),
		clientService: clientService,
	}
}

// POST /api/clients
func (h *ClientHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), rd, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"client": client})
}

// GET /api/clients?search=
func (h *ClientHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	clients, err := h.clientService.ListClients(c.Request.Context(), rd, c.Query("search"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"clients": clients})
}

// GET /api/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid client id")
		return
	}
	client, err := h.clientService.GetClient(c.Request.Context(), rd, clientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"client": client})
}

// PUT /api/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid client id")
		return
	}
	var req services.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	client, err := h.clientService.UpdateClient(c.Request.Context(), rd, clientID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"client": client})
}

// DELETE /api/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid client id")
		return
	}
	if err := h.clientService.DeleteClient(c.Request.Context(), rd, clientID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
