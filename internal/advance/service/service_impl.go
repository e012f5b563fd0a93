package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/paybook/internal/advance/domain"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
	"github.com/smallbiznis/paybook/pkg/log"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Payroll   *config.PayrollConfigHolder
	Advances  domain.Repository
	Salaries  salarydomain.Repository
	Employees employeedomain.Repository
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	payroll   *config.PayrollConfigHolder
	advances  domain.Repository
	salaries  salarydomain.Repository
	employees employeedomain.Repository
	audit     auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("advance.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		payroll:   p.Payroll,
		advances:  p.Advances,
		salaries:  p.Salaries,
		employees: p.Employees,
		audit:     p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateAdvanceRequest) (*domain.Advance, error) {
	employeeID, err := snowflake.ParseString(req.EmployeeID)
	if err != nil {
		return nil, domain.ErrInvalidEmployee
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidMonthKey(req.DeductMonth) {
		return nil, domain.ErrInvalidDeductMonth
	}

	cfg := s.payroll.Get()
	if cfg.MaxAdvanceAmount > 0 && req.Amount > cfg.MaxAdvanceAmount {
		return nil, domain.ErrAmountLimit
	}

	if _, err := s.employees.FindByID(ctx, orgID, employeeID); err != nil {
		if errors.Is(err, employeedomain.ErrNotFound) {
			return nil, domain.ErrInvalidEmployee
		}
		return nil, err
	}

	open, err := s.advances.CountOpenByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenAdvances > 0 && open >= int64(cfg.MaxOpenAdvances) {
		return nil, domain.ErrOpenAdvanceLimit
	}

	now := s.clock.Now()
	advance := &domain.Advance{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		EmployeeID:       employeeID,
		Amount:           req.Amount,
		RemainingBalance: req.Amount,
		Status:           domain.StatusActive,
		DeductMonth:      req.DeductMonth,
		Reason:           strings.TrimSpace(req.Reason),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.advances.Insert(ctx, advance); err != nil {
		return nil, err
	}

	s.auditEvent(ctx, orgID, "advance.created", advance.ID, map[string]any{
		"employee_id":  employeeID.String(),
		"amount":       advance.Amount,
		"deduct_month": advance.DeductMonth,
	})
	return advance, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.Advance, error) {
	return s.advances.FindByID(ctx, orgID, id)
}

// Edit changes an advance. Once a paid salary consumed the advance the
// edit is rejected outright; a pending consumer is recomputed so its
// ledger snapshot stays truthful.
func (s *Service) Edit(ctx context.Context, orgID, id snowflake.ID, req domain.EditAdvanceRequest) (*domain.Advance, error) {
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.DeductMonth != nil && !domain.ValidMonthKey(*req.DeductMonth) {
		return nil, domain.ErrInvalidDeductMonth
	}
	if req.Amount != nil {
		if cfg := s.payroll.Get(); cfg.MaxAdvanceAmount > 0 && *req.Amount > cfg.MaxAdvanceAmount {
			return nil, domain.ErrAmountLimit
		}
	}

	var advance *domain.Advance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advances := s.advances.WithTx(tx)
		salaries := s.salaries.WithTx(tx)

		adv, err := advances.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}

		if !adv.Consumed() {
			if req.Amount != nil {
				adv.Amount = *req.Amount
				adv.RemainingBalance = *req.Amount
			}
			if req.DeductMonth != nil {
				adv.DeductMonth = *req.DeductMonth
			}
			if req.Reason != nil {
				adv.Reason = strings.TrimSpace(*req.Reason)
			}
			adv.UpdatedAt = s.clock.Now()
			if err := advances.Update(ctx, adv); err != nil {
				return err
			}
			advance = adv
			return nil
		}

		rec, err := s.consumingRecord(ctx, salaries, adv)
		if err != nil {
			return err
		}
		if rec != nil && rec.Status == salarydomain.StatusPaid {
			return domain.ErrPaidSalaryLock
		}
		if req.DeductMonth != nil && *req.DeductMonth != adv.DeductMonth {
			return domain.ErrConsumedMonthFixed
		}

		if req.Reason != nil {
			adv.Reason = strings.TrimSpace(*req.Reason)
		}
		if req.Amount != nil && rec != nil {
			if err := s.reapplyDeduction(ctx, salaries, rec, adv, *req.Amount); err != nil {
				return err
			}
		}
		adv.UpdatedAt = s.clock.Now()
		if err := advances.Update(ctx, adv); err != nil {
			return err
		}
		advance = adv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditEvent(ctx, orgID, "advance.updated", id, nil)
	return advance, nil
}

// Delete removes an advance. A consumed advance first has its
// deduction backed out of the pending salary record that took it; a
// paid consumer blocks the delete.
func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advances := s.advances.WithTx(tx)
		salaries := s.salaries.WithTx(tx)

		adv, err := advances.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}

		if adv.Consumed() {
			rec, err := s.consumingRecord(ctx, salaries, adv)
			if err != nil {
				return err
			}
			if rec != nil {
				if rec.Status == salarydomain.StatusPaid {
					return domain.ErrPaidSalaryLock
				}
				if err := s.removeDeduction(ctx, salaries, rec, adv.ID); err != nil {
					return err
				}
			}
		}

		return advances.Delete(ctx, orgID, id)
	})
	if err != nil {
		return err
	}

	s.auditEvent(ctx, orgID, "advance.deleted", id, nil)
	return nil
}

func (s *Service) ListByEmployee(ctx context.Context, orgID, employeeID snowflake.ID) ([]domain.Advance, error) {
	return s.advances.ListByEmployee(ctx, orgID, employeeID)
}

func (s *Service) ListByOrg(ctx context.Context, orgID snowflake.ID, status domain.Status) ([]domain.Advance, error) {
	return s.advances.ListByOrg(ctx, orgID, status)
}

// consumingRecord locks and returns the salary record that deducted
// from the advance, nil when no deduction was recorded.
func (s *Service) consumingRecord(ctx context.Context, salaries salarydomain.Repository, adv *domain.Advance) (*salarydomain.SalaryRecord, error) {
	if adv.DeductedFromMonth == nil || adv.DeductedFromYear == nil {
		return nil, nil
	}
	rec, err := salaries.FindByPeriodForUpdate(ctx, adv.EmployeeID, *adv.DeductedFromMonth, *adv.DeductedFromYear)
	if err != nil {
		if errors.Is(err, salarydomain.ErrNotFound) {
			log.L(ctx).Warn("consumed advance has no salary record",
				zap.String("advance_id", adv.ID.String()),
			)
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// reapplyDeduction replays the advance's consumption against its
// pending salary record after an amount change. The ceiling available
// to this advance excludes what the record's other advances took.
func (s *Service) reapplyDeduction(ctx context.Context, salaries salarydomain.Repository, rec *salarydomain.SalaryRecord, adv *domain.Advance, newAmount int64) error {
	idx := rec.DeductionDetails.Find(adv.ID)
	if idx < 0 {
		adv.Amount = newAmount
		adv.RemainingBalance = newAmount
		return nil
	}

	oldDeduct := rec.DeductionDetails[idx].AmountDeducted
	available := salarydomain.DeductibleCeiling(rec.Gross(), rec.Deductions) - (rec.AdvanceDeducted - oldDeduct)
	if available < 0 {
		available = 0
	}
	newDeduct := newAmount
	if newDeduct > available {
		newDeduct = available
	}

	details := make(salarydomain.DeductionDetails, len(rec.DeductionDetails))
	copy(details, rec.DeductionDetails)
	if newDeduct == 0 {
		details = append(details[:idx], details[idx+1:]...)
	} else {
		details[idx].AmountDeducted = newDeduct
		details[idx].RemainingAfter = newAmount - newDeduct
	}

	rec.DeductionDetails = details
	rec.AdvanceDeducted = rec.AdvanceDeducted - oldDeduct + newDeduct
	rec.NetPayable = rec.Gross() - rec.Deductions - rec.AdvanceDeducted
	rec.UpdatedAt = s.clock.Now()
	if err := salaries.Update(ctx, rec); err != nil {
		return err
	}

	adv.Amount = newAmount
	adv.RemainingBalance = newAmount - newDeduct
	if adv.RemainingBalance == 0 {
		adv.Status = domain.StatusSettled
	} else {
		adv.Status = domain.StatusActive
	}
	if newDeduct == 0 {
		adv.DeductedFromMonth = nil
		adv.DeductedFromYear = nil
	}
	return nil
}

// removeDeduction backs the advance's entry out of a pending salary
// record before the advance row disappears.
func (s *Service) removeDeduction(ctx context.Context, salaries salarydomain.Repository, rec *salarydomain.SalaryRecord, advanceID snowflake.ID) error {
	idx := rec.DeductionDetails.Find(advanceID)
	if idx < 0 {
		return nil
	}

	removed := rec.DeductionDetails[idx].AmountDeducted
	details := make(salarydomain.DeductionDetails, len(rec.DeductionDetails))
	copy(details, rec.DeductionDetails)
	details = append(details[:idx], details[idx+1:]...)

	rec.DeductionDetails = details
	rec.AdvanceDeducted -= removed
	rec.NetPayable = rec.Gross() - rec.Deductions - rec.AdvanceDeducted
	rec.UpdatedAt = s.clock.Now()
	return salaries.Update(ctx, rec)
}

func (s *Service) auditEvent(ctx context.Context, orgID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	target := targetID.String()
	if err := s.audit.AuditLog(ctx, &orgID, "user", nil, action, "advance", &target, metadata); err != nil {
		log.L(ctx).Warn("audit write failed", zap.Error(err))
	}
}
