package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, subscription *Subscription) error
	FindByOrg(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
}

type Service interface {
	StartTrial(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
	GetByOrg(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
	ChangePlan(ctx context.Context, orgID snowflake.ID, plan Plan) (*Subscription, error)
	MarkExpired(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPlan         = errors.New("invalid_plan")
	ErrNotFound            = errors.New("subscription_not_found")
	ErrAlreadyExists       = errors.New("subscription_exists")
)
