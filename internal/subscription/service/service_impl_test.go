package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	"github.com/smallbiznis/paybook/internal/subscription/domain"
	"github.com/smallbiznis/paybook/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type subFixture struct {
	node *snowflake.Node
	clk  *clock.FakeClock
	svc  domain.Service
}

func newSubFixture(t *testing.T) *subFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subscription{}))

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	payroll, err := config.NewPayrollConfigHolder()
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	return &subFixture{
		node: node,
		clk:  clk,
		svc:  NewService(zap.NewNop(), repository.NewRepository(db), node, clk, payroll),
	}
}

func TestStartTrialCreatesFreeTrial(t *testing.T) {
	f := newSubFixture(t)
	orgID := f.node.Generate()

	sub, err := f.svc.StartTrial(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, sub.Plan)
	assert.Equal(t, domain.StatusTrial, sub.Status)
	require.NotNil(t, sub.TrialEndsAt)
	assert.Equal(t, f.clk.Now().Add(14*24*time.Hour), *sub.TrialEndsAt)

	assert.True(t, sub.IsActive(f.clk.Now()))

	_, err = f.svc.StartTrial(context.Background(), orgID)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestTrialLapsesWithClock(t *testing.T) {
	f := newSubFixture(t)
	orgID := f.node.Generate()

	sub, err := f.svc.StartTrial(context.Background(), orgID)
	require.NoError(t, err)

	f.clk.Advance(15 * 24 * time.Hour)

	got, err := f.svc.GetByOrg(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.False(t, got.IsActive(f.clk.Now()))
}

func TestChangePlanActivatesAndClearsTrial(t *testing.T) {
	f := newSubFixture(t)
	orgID := f.node.Generate()

	_, err := f.svc.StartTrial(context.Background(), orgID)
	require.NoError(t, err)

	sub, err := f.svc.ChangePlan(context.Background(), orgID, domain.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, sub.Plan)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Nil(t, sub.TrialEndsAt)
	assert.True(t, sub.IsActive(f.clk.Now().Add(1000*time.Hour)))
}

func TestChangePlanValidation(t *testing.T) {
	f := newSubFixture(t)
	orgID := f.node.Generate()

	_, err := f.svc.ChangePlan(context.Background(), orgID, domain.Plan("platinum"))
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	_, err = f.svc.ChangePlan(context.Background(), orgID, domain.PlanBasic)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.ChangePlan(context.Background(), 0, domain.PlanBasic)
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestMarkExpiredBlocksMutationsButNotViews(t *testing.T) {
	f := newSubFixture(t)
	orgID := f.node.Generate()

	_, err := f.svc.StartTrial(context.Background(), orgID)
	require.NoError(t, err)
	_, err = f.svc.ChangePlan(context.Background(), orgID, domain.PlanBasic)
	require.NoError(t, err)

	sub, err := f.svc.MarkExpired(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, sub.Status)
	assert.Equal(t, domain.PlanBasic, sub.Plan)
	assert.False(t, sub.IsActive(f.clk.Now()))
}
