package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
	"github.com/polizaflow/agency-backend/internal/types"
)

type WizardHandler struct {
	log           *logger.Logger
	wizardService services.WizardService
}

func NewWizardHandler(log *logger.Logger, wizardService services.WizardService) *WizardHandler {
	return &WizardHandler{
		log:           log.With("handler", "WizardHandler"),
		wizardService: wizardService,
	}
}

func parsePolicyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid policy id")
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/wizard/draft
func (h *WizardHandler) GetDraft(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	draft, err := h.wizardService.GetDraft(c.Request.Context(), rd)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"draft": draft})
}

// POST /api/policies/wizard/contractor
// Starts a new draft policy when policy_id is absent.
func (h *WizardHandler) SaveContractor(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req struct {
		PolicyID *uuid.UUID `json:"policy_id"`
		ClientID uuid.UUID  `json:"client_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	policy, err := h.wizardService.SaveStepContractor(c.Request.Context(), rd, req.PolicyID, services.ContractorStepInput{
		ClientID: req.ClientID,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// POST /api/policies/:id/wizard/insured
func (h *WizardHandler) SaveInsured(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	var req services.InsuredStepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	policy, err := h.wizardService.SaveStepInsured(c.Request.Context(), rd, policyID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// POST /api/policies/:id/wizard/details
func (h *WizardHandler) SaveDetails(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	var req services.DetailsStepInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	policy, err := h.wizardService.SaveStepDetails(c.Request.Context(), rd, policyID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// POST /api/policies/:id/wizard/beneficiaries
func (h *WizardHandler) SaveBeneficiaries(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	var req struct {
		Beneficiaries []services.BeneficiaryInput `json:"beneficiaries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	policy, err := h.wizardService.SaveStepBeneficiaries(c.Request.Context(), rd, policyID, req.Beneficiaries)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// POST /api/policies/:id/finish
func (h *WizardHandler) Finish(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	policy, err := h.wizardService.Finish(c.Request.Context(), rd, policyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// POST /api/policies/:id/save-exit
func (h *WizardHandler) SaveAndExit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	policy, err := h.wizardService.SaveAndExit(c.Request.Context(), rd, policyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// GET /api/policies/:id
func (h *WizardHandler) GetPolicy(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}
	policy, err := h.wizardService.GetPolicy(c.Request.Context(), rd, policyID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policy": policy})
}

// GET /api/policies?status=
func (h *WizardHandler) ListPolicies(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	status := types.PolicyStatus(c.Query("status"))
	policies, err := h.wizardService.ListPolicies(c.Request.Context(), rd, status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"policies": policies})
}
