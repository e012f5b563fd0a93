package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/paybook/internal/advance/domain"
	advancerepo "github.com/smallbiznis/paybook/internal/advance/repository"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	employeerepo "github.com/smallbiznis/paybook/internal/employee/repository"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
	salaryrepo "github.com/smallbiznis/paybook/internal/salary/repository"
	salaryservice "github.com/smallbiznis/paybook/internal/salary/service"
)

type noopAudit struct{}

func (noopAudit) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (noopAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type ledgerFixture struct {
	db         *gorm.DB
	svc        domain.Service
	salarySvc  salarydomain.Service
	advances   domain.Repository
	salaries   salarydomain.Repository
	node       *snowflake.Node
	clk        *clock.FakeClock
	orgID      snowflake.ID
	employeeID snowflake.ID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&employeedomain.Employee{},
		&domain.Advance{},
		&salarydomain.SalaryRecord{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	payroll, err := config.NewPayrollConfigHolder()
	require.NoError(t, err)

	f := &ledgerFixture{
		db:       db,
		advances: advancerepo.NewRepository(db),
		salaries: salaryrepo.NewRepository(db),
		node:     node,
		clk:      clk,
		orgID:    node.Generate(),
	}

	f.employeeID = node.Generate()
	employees := employeerepo.NewRepository(db)
	require.NoError(t, employees.Insert(context.Background(), &employeedomain.Employee{
		ID:          f.employeeID,
		OrgID:       f.orgID,
		FullName:    "Meera Shah",
		BasicSalary: 1000,
		IsActive:    true,
	}))

	f.svc = NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Payroll:   payroll,
		Advances:  f.advances,
		Salaries:  f.salaries,
		Employees: employees,
		Audit:     noopAudit{},
	})
	f.salarySvc = salaryservice.NewService(salaryservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Salaries:  f.salaries,
		Advances:  f.advances,
		Employees: employees,
		Audit:     noopAudit{},
	})
	return f
}

func (f *ledgerFixture) create(t *testing.T, amount int64, deductMonth string) *domain.Advance {
	t.Helper()
	adv, err := f.svc.Create(context.Background(), f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.employeeID.String(),
		Amount:      amount,
		DeductMonth: deductMonth,
	})
	require.NoError(t, err)
	f.clk.Advance(time.Minute)
	return adv
}

func (f *ledgerFixture) generateSalary(t *testing.T, basic int64) *salarydomain.SalaryRecord {
	t.Helper()
	rec, err := f.salarySvc.Generate(context.Background(), f.orgID, salarydomain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      basic,
	})
	require.NoError(t, err)
	return rec
}

func TestCreateAdvance(t *testing.T) {
	f := newLedgerFixture(t)

	adv := f.create(t, 500, "2024-03")
	assert.Equal(t, int64(500), adv.Amount)
	assert.Equal(t, int64(500), adv.RemainingBalance)
	assert.Equal(t, domain.StatusActive, adv.Status)
}

func TestCreateAdvanceValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.employeeID.String(),
		Amount:      0,
		DeductMonth: "2024-03",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(ctx, f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.employeeID.String(),
		Amount:      100,
		DeductMonth: "2024-13",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDeductMonth)

	_, err = f.svc.Create(ctx, f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.node.Generate().String(),
		Amount:      100,
		DeductMonth: "2024-03",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmployee)

	_, err = f.svc.Create(ctx, f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.employeeID.String(),
		Amount:      100_000_00,
		DeductMonth: "2024-03",
	})
	assert.ErrorIs(t, err, domain.ErrAmountLimit)
}

func TestCreateAdvanceOpenLimit(t *testing.T) {
	f := newLedgerFixture(t)

	for i := 0; i < 5; i++ {
		f.create(t, 100, "2024-03")
	}
	_, err := f.svc.Create(context.Background(), f.orgID, domain.CreateAdvanceRequest{
		EmployeeID:  f.employeeID.String(),
		Amount:      100,
		DeductMonth: "2024-03",
	})
	assert.ErrorIs(t, err, domain.ErrOpenAdvanceLimit)
}

func TestEditUnconsumedAdvanceResetsBalance(t *testing.T) {
	f := newLedgerFixture(t)

	adv := f.create(t, 500, "2024-03")

	newAmount := int64(700)
	newMonth := "2024-04"
	edited, err := f.svc.Edit(context.Background(), f.orgID, adv.ID, domain.EditAdvanceRequest{
		Amount:      &newAmount,
		DeductMonth: &newMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(700), edited.Amount)
	assert.Equal(t, int64(700), edited.RemainingBalance)
	assert.Equal(t, "2024-04", edited.DeductMonth)
}

func TestEditConsumedAdvanceRecomputesPendingSalary(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	adv := f.create(t, 200, "2024-03")
	rec := f.generateSalary(t, 1000)
	assert.Equal(t, int64(800), rec.NetPayable)

	newAmount := int64(300)
	edited, err := f.svc.Edit(ctx, f.orgID, adv.ID, domain.EditAdvanceRequest{Amount: &newAmount})
	require.NoError(t, err)

	assert.Equal(t, int64(300), edited.Amount)
	assert.Equal(t, int64(0), edited.RemainingBalance)
	assert.Equal(t, domain.StatusSettled, edited.Status)

	reloaded, err := f.salaries.FindByID(ctx, f.orgID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), reloaded.AdvanceDeducted)
	assert.Equal(t, int64(700), reloaded.NetPayable)
	require.Len(t, reloaded.DeductionDetails, 1)
	assert.Equal(t, int64(300), reloaded.DeductionDetails[0].AmountDeducted)
}

func TestEditConsumedAdvanceShrinkBelowDeducted(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	adv := f.create(t, 200, "2024-03")
	rec := f.generateSalary(t, 1000)

	newAmount := int64(50)
	edited, err := f.svc.Edit(ctx, f.orgID, adv.ID, domain.EditAdvanceRequest{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, int64(0), edited.RemainingBalance)
	assert.Equal(t, domain.StatusSettled, edited.Status)

	reloaded, err := f.salaries.FindByID(ctx, f.orgID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), reloaded.AdvanceDeducted)
	assert.Equal(t, int64(950), reloaded.NetPayable)
}

func TestEditConsumedAdvanceMonthIsLocked(t *testing.T) {
	f := newLedgerFixture(t)

	adv := f.create(t, 200, "2024-03")
	f.generateSalary(t, 1000)

	newMonth := "2024-05"
	_, err := f.svc.Edit(context.Background(), f.orgID, adv.ID, domain.EditAdvanceRequest{DeductMonth: &newMonth})
	assert.ErrorIs(t, err, domain.ErrConsumedMonthFixed)
}

func TestEditAdvanceLockedByPaidSalary(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	adv := f.create(t, 200, "2024-03")
	rec := f.generateSalary(t, 1000)

	_, err := f.salarySvc.MarkPaid(ctx, f.orgID, rec.ID)
	require.NoError(t, err)

	newAmount := int64(300)
	_, err = f.svc.Edit(ctx, f.orgID, adv.ID, domain.EditAdvanceRequest{Amount: &newAmount})
	assert.ErrorIs(t, err, domain.ErrPaidSalaryLock)

	err = f.svc.Delete(ctx, f.orgID, adv.ID)
	assert.ErrorIs(t, err, domain.ErrPaidSalaryLock)

	reloaded, err := f.advances.FindByID(ctx, f.orgID, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.RemainingBalance)
}

func TestDeleteConsumedAdvanceBacksOutDeduction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	adv := f.create(t, 200, "2024-03")
	rec := f.generateSalary(t, 1000)
	assert.Equal(t, int64(800), rec.NetPayable)

	require.NoError(t, f.svc.Delete(ctx, f.orgID, adv.ID))

	_, err := f.advances.FindByID(ctx, f.orgID, adv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	reloaded, err := f.salaries.FindByID(ctx, f.orgID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.AdvanceDeducted)
	assert.Equal(t, int64(1000), reloaded.NetPayable)
	assert.Empty(t, reloaded.DeductionDetails)
}

func TestDeleteUnconsumedAdvance(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	adv := f.create(t, 200, "2024-06")
	require.NoError(t, f.svc.Delete(ctx, f.orgID, adv.ID))

	_, err := f.advances.FindByID(ctx, f.orgID, adv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
