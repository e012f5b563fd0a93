// Package scheduler runs the periodic maintenance jobs: expiring
// finished trials and purging dead sessions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/clock"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler requires db, log, audit and clock")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	AuditSvc auditdomain.Service
	Clock    clock.Clock
	Config   Config `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.AuditSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "expire_trials", 30*time.Second, s.ExpireTrialsJob))
	err = errors.Join(err, s.runJob(parent, "purge_sessions", 30*time.Second, s.PurgeSessionsJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpireTrialsJob flips trial subscriptions whose trial window has
// closed to expired. The access layer already treats a lapsed trial as
// inactive; this keeps the stored status in line with what checks see.
func (s *Scheduler) ExpireTrialsJob(ctx context.Context) error {
	now := s.clock.Now().UTC()

	var due []subdomain.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?", subdomain.StatusTrial, now).
		Order("trial_ends_at asc").
		Limit(s.cfg.BatchSize).
		Find(&due).Error
	if err != nil {
		return err
	}

	for _, sub := range due {
		res := s.db.WithContext(ctx).
			Model(&subdomain.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, subdomain.StatusTrial).
			Updates(map[string]any{"status": subdomain.StatusExpired, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		s.log.Info("trial expired",
			zap.String("org_id", sub.OrgID.String()),
			zap.String("subscription_id", sub.ID.String()),
		)
		targetID := sub.ID.String()
		orgID := sub.OrgID
		if err := s.auditSvc.AuditLog(ctx, &orgID, string(auditdomain.ActorTypeSystem), nil, "subscription.trial_expired", "subscription", &targetID, map[string]any{
			"plan":          string(sub.Plan),
			"trial_ends_at": sub.TrialEndsAt,
		}); err != nil {
			s.log.Warn("audit write failed", zap.Error(err))
		}
	}
	return nil
}

// PurgeSessionsJob deletes sessions that expired or were revoked longer
// ago than the retention window.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	cutoff := s.clock.Now().UTC().Add(-s.cfg.SessionRetention)

	res := s.db.WithContext(ctx).
		Where("expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)", cutoff, cutoff).
		Delete(&authdomain.Session{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("purged sessions", zap.Int64("count", res.RowsAffected))
	}
	return nil
}
