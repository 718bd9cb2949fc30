package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/types"
)

type CommissionInput struct {
	PolicyID    uuid.UUID `json:"policy_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Percentage  float64   `json:"percentage"`
	PeriodYear  int       `json:"period_year"`
	PeriodMonth int       `json:"period_month"`
}

type CommissionService interface {
	CreateCommission(ctx context.Context, rd *requestdata.RequestData, input CommissionInput) (*types.Commission, error)
	ListCommissions(ctx context.Context, rd *requestdata.RequestData, periodYear int, status string) ([]*types.Commission, error)
	MarkPaid(ctx context.Context, rd *requestdata.RequestData, commissionID uuid.UUID) (*types.Commission, error)
	ExportXLSX(ctx context.Context, rd *requestdata.RequestData, periodYear int) ([]byte, error)
}

type commissionService struct {
	log            *logger.Logger
	db             *gorm.DB
	commissionRepo repos.CommissionRepo
	policyRepo     repos.PolicyRepo
}

func NewCommissionService(log *logger.Logger, db *gorm.DB, commissionRepo repos.CommissionRepo, policyRepo repos.PolicyRepo) CommissionService {
	return &commissionService{
		log:            log.With("service", "CommissionService"),
		db:             db,
		commissionRepo: commissionRepo,
		policyRepo:     policyRepo,
	}
}

func (s *commissionService) CreateCommission(ctx context.Context, rd *requestdata.RequestData, input CommissionInput) (*types.Commission, error) {
	fields := map[string]string{}
	if input.PolicyID == uuid.Nil {
		fields["policy_id"] = "a policy is required"
	}
	if input.Amount < 0 {
		fields["amount"] = "must not be negative"
	}
	if input.PeriodMonth < 1 || input.PeriodMonth > 12 {
		fields["period_month"] = "must be between 1 and 12"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid commission", fields)
	}

	policy, err := s.policyRepo.GetByID(ctx, nil, input.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, ErrNotFound
	}
	if policy.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}

	commission := &types.Commission{
		ID:          uuid.New(),
		AgentID:     rd.AgentID,
		PolicyID:    policy.ID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Percentage:  input.Percentage,
		Status:      types.CommissionStatusPendiente,
		PeriodYear:  input.PeriodYear,
		PeriodMonth: input.PeriodMonth,
	}
	if _, err := s.commissionRepo.Create(ctx, nil, []*types.Commission{commission}); err != nil {
		return nil, err
	}
	return commission, nil
}

func (s *commissionService) ListCommissions(ctx context.Context, rd *requestdata.RequestData, periodYear int, status string) ([]*types.Commission, error) {
	return s.commissionRepo.ListByAgent(ctx, nil, rd.AgentID, periodYear, status)
}

func (s *commissionService) MarkPaid(ctx context.Context, rd *requestdata.RequestData, commissionID uuid.UUID) (*types.Commission, error) {
	commission, err := s.commissionRepo.GetByID(ctx, nil, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	if commission.AgentID != rd.AgentID {
		return nil, ErrForbidden
	}
	if commission.Status == types.CommissionStatusPagada {
		return nil, ErrConflict
	}
	now := time.Now()
	if err := s.commissionRepo.UpdateFields(ctx, nil, commission.ID, map[string]interface{}{
		"status":  types.CommissionStatusPagada,
		"paid_at": now,
	}); err != nil {
		return nil, err
	}
	commission.Status = types.CommissionStatusPagada
	commission.PaidAt = &now
	return commission, nil
}

// ExportXLSX renders the agent's commissions for a year as a workbook.
func (s *commissionService) ExportXLSX(ctx context.Context, rd *requestdata.RequestData, periodYear int) ([]byte, error) {
	commissions, err := s.commissionRepo.ListByAgent(ctx, nil, rd.AgentID, periodYear, "")
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Comisiones"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Periodo", "Poliza", "Compania", "Producto", "Importe", "Moneda", "Porcentaje", "Estado", "Pagada"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range commissions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, fmt.Sprintf("%04d-%02d", c.PeriodYear, c.PeriodMonth))
		if c.Policy != nil {
			write(2, c.Policy.PolicyNumber)
			write(3, c.Policy.Company)
			write(4, c.Policy.Product)
		}
		write(5, c.Amount)
		write(6, c.Currency)
		write(7, c.Percentage)
		write(8, c.Status)
		if c.PaidAt != nil {
			write(9, c.PaidAt.Format("2006-01-02"))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "D", 22)
	_ = f.SetColWidth(sheet, "E", "G", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
