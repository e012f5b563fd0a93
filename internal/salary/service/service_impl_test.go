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

	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
	advancerepo "github.com/smallbiznis/paybook/internal/advance/repository"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	employeerepo "github.com/smallbiznis/paybook/internal/employee/repository"
	"github.com/smallbiznis/paybook/internal/salary/domain"
	salaryrepo "github.com/smallbiznis/paybook/internal/salary/repository"
)

type noopAudit struct{}

func (noopAudit) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (noopAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type engineFixture struct {
	db         *gorm.DB
	svc        domain.Service
	advances   advancedomain.Repository
	salaries   domain.Repository
	node       *snowflake.Node
	clk        *clock.FakeClock
	orgID      snowflake.ID
	employeeID snowflake.ID
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&employeedomain.Employee{},
		&advancedomain.Advance{},
		&domain.SalaryRecord{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	f := &engineFixture{
		db:       db,
		advances: advancerepo.NewRepository(db),
		salaries: salaryrepo.NewRepository(db),
		node:     node,
		clk:      clk,
		orgID:    node.Generate(),
	}

	f.employeeID = node.Generate()
	require.NoError(t, employeerepo.NewRepository(db).Insert(context.Background(), &employeedomain.Employee{
		ID:          f.employeeID,
		OrgID:       f.orgID,
		FullName:    "Ravi Kumar",
		BasicSalary: 1000,
		IsActive:    true,
	}))

	f.svc = NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Salaries:  f.salaries,
		Advances:  f.advances,
		Employees: employeerepo.NewRepository(db),
		Audit:     noopAudit{},
	})
	return f
}

func (f *engineFixture) createAdvance(t *testing.T, amount int64, deductMonth string) *advancedomain.Advance {
	t.Helper()
	adv := &advancedomain.Advance{
		ID:               f.node.Generate(),
		OrgID:            f.orgID,
		EmployeeID:       f.employeeID,
		Amount:           amount,
		RemainingBalance: amount,
		Status:           advancedomain.StatusActive,
		DeductMonth:      deductMonth,
		CreatedAt:        f.clk.Now(),
		UpdatedAt:        f.clk.Now(),
	}
	require.NoError(t, f.advances.Insert(context.Background(), adv))
	f.clk.Advance(time.Minute)
	return adv
}

func (f *engineFixture) reloadAdvance(t *testing.T, id snowflake.ID) *advancedomain.Advance {
	t.Helper()
	adv, err := f.advances.FindByID(context.Background(), f.orgID, id)
	require.NoError(t, err)
	return adv
}

func TestGenerateConsumesAdvanceOldestFirst(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.createAdvance(t, 200, "2024-03")
	second := f.createAdvance(t, 200, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      300,
		Bonus:      0,
		Deductions: 0,
	})
	require.NoError(t, err)

	// Ceiling is 300: the older advance is drained fully, the newer
	// one only partially.
	assert.Equal(t, int64(300), rec.AdvanceDeducted)
	assert.Equal(t, int64(0), rec.NetPayable)
	require.Len(t, rec.DeductionDetails, 2)
	assert.Equal(t, first.ID, rec.DeductionDetails[0].AdvanceID)
	assert.Equal(t, int64(200), rec.DeductionDetails[0].AmountDeducted)
	assert.Equal(t, second.ID, rec.DeductionDetails[1].AdvanceID)
	assert.Equal(t, int64(100), rec.DeductionDetails[1].AmountDeducted)

	assert.Equal(t, advancedomain.StatusSettled, f.reloadAdvance(t, first.ID).Status)
	reloaded := f.reloadAdvance(t, second.ID)
	assert.Equal(t, advancedomain.StatusActive, reloaded.Status)
	assert.Equal(t, int64(100), reloaded.RemainingBalance)
	require.NotNil(t, reloaded.DeductedFromMonth)
	assert.Equal(t, 3, *reloaded.DeductedFromMonth)
}

func TestGenerateRespectsDeductibleCeiling(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.createAdvance(t, 500, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      400,
		Deductions: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.AdvanceDeducted)
	assert.Equal(t, int64(0), rec.NetPayable)
}

func TestGenerateZeroCeilingDeductsNothing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 500, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      200,
		Deductions: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.AdvanceDeducted)
	assert.Empty(t, rec.DeductionDetails)
	assert.Equal(t, int64(-100), rec.NetPayable)

	reloaded := f.reloadAdvance(t, adv.ID)
	assert.Equal(t, int64(500), reloaded.RemainingBalance)
	assert.Nil(t, reloaded.DeductedFromMonth)
}

func TestGenerateStrictMonthEquality(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 100, "2024-02")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.AdvanceDeducted)
	assert.Equal(t, int64(100), f.reloadAdvance(t, adv.ID).RemainingBalance)
}

func TestGenerateDuplicatePeriodFailsWithoutMutation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 100, "2024-03")

	_, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)

	balanceAfterFirst := f.reloadAdvance(t, adv.ID).RemainingBalance

	_, err = f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      2000,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRecord)
	assert.Equal(t, balanceAfterFirst, f.reloadAdvance(t, adv.ID).RemainingBalance)
}

func TestDeleteRestoresAdvanceRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 500, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec.AdvanceDeducted)
	assert.Equal(t, advancedomain.StatusSettled, f.reloadAdvance(t, adv.ID).Status)

	require.NoError(t, f.svc.Delete(ctx, f.orgID, rec.ID))

	restored := f.reloadAdvance(t, adv.ID)
	assert.Equal(t, int64(500), restored.RemainingBalance)
	assert.Equal(t, advancedomain.StatusActive, restored.Status)
	assert.Nil(t, restored.DeductedFromMonth)

	_, err = f.salaries.FindByID(ctx, f.orgID, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditRecomputesNetWithLockedAdvance(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.createAdvance(t, 200, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(800), rec.NetPayable)

	newBasic := int64(1200)
	newDeductions := int64(100)
	edited, err := f.svc.Edit(ctx, f.orgID, rec.ID, domain.EditSalaryRequest{
		Basic:      &newBasic,
		Deductions: &newDeductions,
	})
	require.NoError(t, err)

	// advance stays 200 even though a recompute over the ledger would
	// now have room for more
	assert.Equal(t, int64(200), edited.AdvanceDeducted)
	assert.Equal(t, int64(900), edited.NetPayable)
}

func TestEditRejectsNegativeNetPayable(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.createAdvance(t, 200, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)

	newBasic := int64(100)
	_, err = f.svc.Edit(ctx, f.orgID, rec.ID, domain.EditSalaryRequest{Basic: &newBasic})
	assert.ErrorIs(t, err, domain.ErrNegativeNetPayable)
}

func TestPaidRecordIsImmutable(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 200, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, f.orgID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	newBasic := int64(2000)
	_, err = f.svc.Edit(ctx, f.orgID, rec.ID, domain.EditSalaryRequest{Basic: &newBasic})
	assert.ErrorIs(t, err, domain.ErrImmutableRecord)

	err = f.svc.Delete(ctx, f.orgID, rec.ID)
	assert.ErrorIs(t, err, domain.ErrImmutableRecord)

	_, err = f.svc.MarkPaid(ctx, f.orgID, rec.ID)
	assert.ErrorIs(t, err, domain.ErrImmutableRecord)

	assert.Equal(t, int64(0), f.reloadAdvance(t, adv.ID).RemainingBalance)
}

func TestGenerateValidation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: "not-a-number",
		Month:      3,
		Year:       2024,
		Basic:      100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmployee)

	_, err = f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      13,
		Year:       2024,
		Basic:      100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.node.Generate().String(),
		Month:      3,
		Year:       2024,
		Basic:      100,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmployee)
}

func TestDeductionDetailsSurviveReload(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	adv := f.createAdvance(t, 150, "2024-03")

	rec, err := f.svc.Generate(ctx, f.orgID, domain.GenerateSalaryRequest{
		EmployeeID: f.employeeID.String(),
		Month:      3,
		Year:       2024,
		Basic:      1000,
	})
	require.NoError(t, err)

	reloaded, err := f.salaries.FindByID(ctx, f.orgID, rec.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.DeductionDetails, 1)
	assert.Equal(t, adv.ID, reloaded.DeductionDetails[0].AdvanceID)
	assert.Equal(t, int64(150), reloaded.DeductionDetails[0].AmountDeducted)
	assert.Equal(t, int64(0), reloaded.DeductionDetails[0].RemainingAfter)
}
