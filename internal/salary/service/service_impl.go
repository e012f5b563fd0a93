package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	"github.com/smallbiznis/paybook/internal/observability/metrics"
	"github.com/smallbiznis/paybook/internal/salary/domain"
	"github.com/smallbiznis/paybook/pkg/log"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Salaries  domain.Repository
	Advances  advancedomain.Repository
	Employees employeedomain.Repository
	Audit     auditdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	salaries  domain.Repository
	advances  advancedomain.Repository
	employees employeedomain.Repository
	audit     auditdomain.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("salary.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		salaries:  p.Salaries,
		advances:  p.Advances,
		employees: p.Employees,
		audit:     p.Audit,
		metrics:   p.Metrics,
	}
}

// Generate computes one employee's salary for a period and settles
// eligible advances against it. The record insert and every advance
// balance update commit in a single transaction, with the affected
// advance rows locked for the duration.
func (s *Service) Generate(ctx context.Context, orgID snowflake.ID, req domain.GenerateSalaryRequest) (*domain.SalaryRecord, error) {
	employeeID, err := snowflake.ParseString(req.EmployeeID)
	if err != nil {
		return nil, domain.ErrInvalidEmployee
	}
	if !domain.ValidPeriod(req.Month, req.Year) {
		return nil, domain.ErrInvalidPeriod
	}
	if req.Basic < 0 || req.Bonus < 0 || req.Deductions < 0 {
		return nil, domain.ErrInvalidAmount
	}

	if _, err := s.employees.FindByID(ctx, orgID, employeeID); err != nil {
		if errors.Is(err, employeedomain.ErrNotFound) {
			return nil, domain.ErrInvalidEmployee
		}
		return nil, err
	}

	var record *domain.SalaryRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		salaries := s.salaries.WithTx(tx)
		advances := s.advances.WithTx(tx)

		existing, err := salaries.FindByPeriod(ctx, employeeID, req.Month, req.Year)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateRecord
		}

		// Balances are re-read under lock at submit time; stale UI
		// state never participates in the plan.
		monthKey := advancedomain.MonthKey(req.Year, req.Month)
		pending, err := advances.FindPendingForMonthForUpdate(ctx, employeeID, monthKey)
		if err != nil {
			return err
		}

		gross := req.Basic + req.Bonus
		ceiling := domain.DeductibleCeiling(gross, req.Deductions)
		balances := make([]domain.AdvanceBalance, 0, len(pending))
		for _, adv := range pending {
			balances = append(balances, domain.AdvanceBalance{ID: adv.ID, Remaining: adv.RemainingBalance})
		}
		details, total := domain.PlanDeductions(ceiling, balances)

		now := s.clock.Now()
		record = &domain.SalaryRecord{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			EmployeeID:       employeeID,
			Month:            req.Month,
			Year:             req.Year,
			Basic:            req.Basic,
			Bonus:            req.Bonus,
			Deductions:       req.Deductions,
			AdvanceDeducted:  total,
			NetPayable:       gross - req.Deductions - total,
			Status:           domain.StatusPending,
			DeductionDetails: details,
			Notes:            req.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := salaries.Insert(ctx, record); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateRecord
			}
			return err
		}

		byID := make(map[snowflake.ID]*advancedomain.Advance, len(pending))
		for i := range pending {
			byID[pending[i].ID] = &pending[i]
		}
		for _, e := range details {
			adv := byID[e.AdvanceID]
			adv.RemainingBalance = e.RemainingAfter
			if adv.RemainingBalance == 0 {
				adv.Status = advancedomain.StatusSettled
			}
			month, year := req.Month, req.Year
			adv.DeductedFromMonth = &month
			adv.DeductedFromYear = &year
			adv.UpdatedAt = now
			if err := advances.Update(ctx, adv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSalaryGenerated(ctx, orgID.String())
	for _, e := range record.DeductionDetails {
		s.metrics.RecordAdvanceDeduction(ctx, orgID.String(), e.AmountDeducted)
	}
	s.auditEvent(ctx, orgID, "salary.generated", record.ID, map[string]any{
		"employee_id":      employeeID.String(),
		"month":            req.Month,
		"year":             req.Year,
		"net_payable":      record.NetPayable,
		"advance_deducted": record.AdvanceDeducted,
	})
	return record, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.SalaryRecord, error) {
	return s.salaries.FindByID(ctx, orgID, id)
}

// Edit changes basic, bonus, deductions or notes on a pending record.
// The advance total is locked: its ledger side-effects already
// happened, so it is carried into the recomputed net unchanged.
func (s *Service) Edit(ctx context.Context, orgID, id snowflake.ID, req domain.EditSalaryRequest) (*domain.SalaryRecord, error) {
	var record *domain.SalaryRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		salaries := s.salaries.WithTx(tx)

		rec, err := salaries.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if rec.Status == domain.StatusPaid {
			return domain.ErrImmutableRecord
		}

		if req.Basic != nil {
			if *req.Basic < 0 {
				return domain.ErrInvalidAmount
			}
			rec.Basic = *req.Basic
		}
		if req.Bonus != nil {
			if *req.Bonus < 0 {
				return domain.ErrInvalidAmount
			}
			rec.Bonus = *req.Bonus
		}
		if req.Deductions != nil {
			if *req.Deductions < 0 {
				return domain.ErrInvalidAmount
			}
			rec.Deductions = *req.Deductions
		}
		if req.Notes != nil {
			rec.Notes = *req.Notes
		}

		net := rec.Gross() - rec.Deductions - rec.AdvanceDeducted
		if net < 0 {
			return domain.ErrNegativeNetPayable
		}
		rec.NetPayable = net
		rec.UpdatedAt = s.clock.Now()

		if err := salaries.Update(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete reverses every advance consumption recorded at generation
// time and only then removes the record. Reversal order is load
// bearing: a record must never disappear while advances still carry
// its deductions.
func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		salaries := s.salaries.WithTx(tx)
		advances := s.advances.WithTx(tx)

		rec, err := salaries.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if rec.Status == domain.StatusPaid {
			return domain.ErrImmutableRecord
		}

		for _, e := range rec.DeductionDetails {
			adv, err := advances.FindByIDForUpdate(ctx, orgID, e.AdvanceID)
			if err != nil {
				if errors.Is(err, advancedomain.ErrNotFound) {
					log.L(ctx).Warn("advance missing during salary reversal",
						zap.String("salary_id", rec.ID.String()),
						zap.String("advance_id", e.AdvanceID.String()),
					)
					continue
				}
				return err
			}
			adv.RemainingBalance += e.AmountDeducted
			adv.Status = advancedomain.StatusActive
			adv.DeductedFromMonth = nil
			adv.DeductedFromYear = nil
			adv.UpdatedAt = s.clock.Now()
			if err := advances.Update(ctx, adv); err != nil {
				return err
			}
		}

		return salaries.Delete(ctx, orgID, rec.ID)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordSalaryReversed(ctx, orgID.String())
	s.auditEvent(ctx, orgID, "salary.deleted", id, nil)
	return nil
}

// MarkPaid moves a pending record to its terminal paid state.
func (s *Service) MarkPaid(ctx context.Context, orgID, id snowflake.ID) (*domain.SalaryRecord, error) {
	var record *domain.SalaryRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		salaries := s.salaries.WithTx(tx)

		rec, err := salaries.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if rec.Status == domain.StatusPaid {
			return domain.ErrImmutableRecord
		}

		now := s.clock.Now()
		rec.Status = domain.StatusPaid
		rec.PaidAt = &now
		rec.UpdatedAt = now
		if err := salaries.Update(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditEvent(ctx, orgID, "salary.paid", id, map[string]any{"net_payable": record.NetPayable})
	return record, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.SalaryRecord, error) {
	return s.salaries.ListByOrg(ctx, orgID, filter)
}

func (s *Service) auditEvent(ctx context.Context, orgID snowflake.ID, action string, targetID snowflake.ID, metadata map[string]any) {
	target := targetID.String()
	if err := s.audit.AuditLog(ctx, &orgID, "user", nil, action, "salary_record", &target, metadata); err != nil {
		log.L(ctx).Warn("audit write failed", zap.Error(err))
	}
}
