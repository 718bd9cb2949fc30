package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
)

type CommissionHandler struct {
	log               *logger.Logger
	commissionService services.CommissionService
}

func NewCommissionHandler(log *logger.Logger, commissionService services.CommissionService) *CommissionHandler {
	return &CommissionHandler{
		log:               log.With("handler", "CommissionHandler"),
		commissionService: commissionService,
	}
}

func periodYearFromQuery(c *gin.Context) int {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		return time.Now().Year()
	}
	return year
}

// POST /api/commissions
func (h *CommissionHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.CommissionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body")
		return
	}
	commission, err := h.commissionService.CreateCommission(c.Request.Context(), rd, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"commission": commission})
}

// GET /api/commissions?year=&status=
func (h *CommissionHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	commissions, err := h.commissionService.ListCommissions(c.Request.Context(), rd, periodYearFromQuery(c), c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"commissions": commissions})
}

// POST /api/commissions/:id/pay
func (h *CommissionHandler) MarkPaid(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	commissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid commission id")
		return
	}
	commission, err := h.commissionService.MarkPaid(c.Request.Context(), rd, commissionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"commission": commission})
}

// GET /api/commissions/export?year=
// Streams an XLSX workbook as a download.
func (h *CommissionHandler) Export(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	year := periodYearFromQuery(c)
	data, err := h.commissionService.ExportXLSX(c.Request.Context(), rd, year)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	filename := fmt.Sprintf("comisiones-%d.xlsx", year)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
