package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/clock"
	"github.com/smallbiznis/paybook/internal/config"
	"github.com/smallbiznis/paybook/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/paybook/pkg/db"
	"go.uber.org/zap"
)

type service struct {
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	payroll *config.PayrollConfigHolder
}

func NewService(log *zap.Logger, repo domain.Repository, genID *snowflake.Node, clk clock.Clock, payroll *config.PayrollConfigHolder) domain.Service {
	return &service{
		log:     log.Named("subscription.service"),
		repo:    repo,
		genID:   genID,
		clock:   clk,
		payroll: payroll,
	}
}

// StartTrial creates the free-plan trial subscription for a new organization.
func (s *service) StartTrial(ctx context.Context, orgID snowflake.ID) (*domain.Subscription, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	if existing, err := s.repo.FindByOrg(ctx, orgID); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	trialEnds := now.Add(time.Duration(s.payroll.Get().TrialDays) * 24 * time.Hour)
	sub := &domain.Subscription{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		Plan:        domain.PlanFree,
		Status:      domain.StatusTrial,
		TrialEndsAt: &trialEnds,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, sub); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	return sub, nil
}

func (s *service) GetByOrg(ctx context.Context, orgID snowflake.ID) (*domain.Subscription, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.FindByOrg(ctx, orgID)
}

// ChangePlan moves the organization to the given plan and activates it.
func (s *service) ChangePlan(ctx context.Context, orgID snowflake.ID, plan domain.Plan) (*domain.Subscription, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}

	sub, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sub.Plan = plan
	sub.Status = domain.StatusActive
	sub.TrialEndsAt = nil
	sub.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Info("subscription plan changed",
		zap.String("org_id", orgID.String()),
		zap.String("plan", string(plan)),
	)
	return sub, nil
}

func (s *service) MarkExpired(ctx context.Context, orgID snowflake.ID) (*domain.Subscription, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	sub, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sub.Status = domain.StatusExpired
	sub.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
