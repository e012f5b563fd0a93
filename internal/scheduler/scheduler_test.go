package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	a.actions = append(a.actions, action)
	return nil
}

func (a *recordingAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type schedulerFixture struct {
	db    *gorm.DB
	clk   *clock.FakeClock
	audit *recordingAudit
	sched *Scheduler
	node  *snowflake.Node
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&subdomain.Subscription{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	audit := &recordingAudit{}

	sched, err := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		AuditSvc: audit,
		Clock:    clk,
	})
	require.NoError(t, err)

	return &schedulerFixture{db: db, clk: clk, audit: audit, sched: sched, node: node}
}

func (f *schedulerFixture) addSubscription(t *testing.T, status subdomain.Status, trialEndsAt *time.Time) subdomain.Subscription {
	t.Helper()
	sub := subdomain.Subscription{
		ID:          f.node.Generate(),
		OrgID:       f.node.Generate(),
		Plan:        subdomain.PlanBasic,
		Status:      status,
		TrialEndsAt: trialEndsAt,
		CreatedAt:   f.clk.Now(),
		UpdatedAt:   f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

func TestExpireTrialsJobFlipsDueTrials(t *testing.T) {
	f := newSchedulerFixture(t)

	past := f.clk.Now().Add(-time.Hour)
	future := f.clk.Now().Add(48 * time.Hour)
	due := f.addSubscription(t, subdomain.StatusTrial, &past)
	running := f.addSubscription(t, subdomain.StatusTrial, &future)
	active := f.addSubscription(t, subdomain.StatusActive, nil)

	require.NoError(t, f.sched.ExpireTrialsJob(context.Background()))

	var got subdomain.Subscription
	require.NoError(t, f.db.First(&got, "id = ?", due.ID).Error)
	assert.Equal(t, subdomain.StatusExpired, got.Status)

	got = subdomain.Subscription{}
	require.NoError(t, f.db.First(&got, "id = ?", running.ID).Error)
	assert.Equal(t, subdomain.StatusTrial, got.Status)

	got = subdomain.Subscription{}
	require.NoError(t, f.db.First(&got, "id = ?", active.ID).Error)
	assert.Equal(t, subdomain.StatusActive, got.Status)

	assert.Equal(t, []string{"subscription.trial_expired"}, f.audit.actions)
}

func TestExpireTrialsJobPicksUpAdvancedClock(t *testing.T) {
	f := newSchedulerFixture(t)

	endsAt := f.clk.Now().Add(14 * 24 * time.Hour)
	sub := f.addSubscription(t, subdomain.StatusTrial, &endsAt)

	require.NoError(t, f.sched.ExpireTrialsJob(context.Background()))
	var got subdomain.Subscription
	require.NoError(t, f.db.First(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, subdomain.StatusTrial, got.Status)

	f.clk.Advance(15 * 24 * time.Hour)
	require.NoError(t, f.sched.ExpireTrialsJob(context.Background()))
	require.NoError(t, f.db.First(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, subdomain.StatusExpired, got.Status)
}

func TestPurgeSessionsJobRemovesOnlyStaleSessions(t *testing.T) {
	f := newSchedulerFixture(t)
	now := f.clk.Now()

	stale := authdomain.Session{
		ID:               f.node.Generate(),
		UserID:           f.node.Generate(),
		SessionTokenHash: "stale",
		ExpiresAt:        now.Add(-48 * time.Hour),
		CreatedAt:        now.Add(-72 * time.Hour),
		LastSeenAt:       now.Add(-48 * time.Hour),
	}
	live := authdomain.Session{
		ID:               f.node.Generate(),
		UserID:           f.node.Generate(),
		SessionTokenHash: "live",
		ExpiresAt:        now.Add(24 * time.Hour),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	recentlyExpired := authdomain.Session{
		ID:               f.node.Generate(),
		UserID:           f.node.Generate(),
		SessionTokenHash: "recent",
		ExpiresAt:        now.Add(-time.Hour),
		CreatedAt:        now.Add(-2 * time.Hour),
		LastSeenAt:       now.Add(-time.Hour),
	}
	require.NoError(t, f.db.Create(&stale).Error)
	require.NoError(t, f.db.Create(&live).Error)
	require.NoError(t, f.db.Create(&recentlyExpired).Error)

	require.NoError(t, f.sched.PurgeSessionsJob(context.Background()))

	var count int64
	require.NoError(t, f.db.Model(&authdomain.Session{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var remaining []authdomain.Session
	require.NoError(t, f.db.Order("session_token_hash asc").Find(&remaining).Error)
	assert.Equal(t, "live", remaining[0].SessionTokenHash)
	assert.Equal(t, "recent", remaining[1].SessionTokenHash)
}

func TestRunOnceSurvivesEmptyTables(t *testing.T) {
	f := newSchedulerFixture(t)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Empty(t, f.audit.actions)
}
