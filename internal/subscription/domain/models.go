// Package domain contains persistence models for organization subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan identifies the subscription tier of an organization.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Rank orders plans from free (0) upward. Unknown plans rank below free.
func (p Plan) Rank() int {
	switch p {
	case PlanFree:
		return 0
	case PlanBasic:
		return 1
	case PlanPro:
		return 2
	case PlanEnterprise:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the plan is a known tier.
func (p Plan) Valid() bool {
	return p.Rank() >= 0
}

// PlansAscending lists all plans from lowest to highest tier.
func PlansAscending() []Plan {
	return []Plan{PlanFree, PlanBasic, PlanPro, PlanEnterprise}
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription captures an organization's plan and billing state.
type Subscription struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;uniqueIndex:ux_subscriptions_org" json:"org_id"`
	Plan        Plan         `gorm:"type:text;not null" json:"plan"`
	Status      Status       `gorm:"type:text;not null" json:"status"`
	TrialEndsAt *time.Time   `gorm:"" json:"trial_ends_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// IsActive reports whether the subscription currently permits mutating
// operations: active outright, or trialing with time remaining.
func (s Subscription) IsActive(now time.Time) bool {
	if s.Status == StatusActive {
		return true
	}
	if s.Status == StatusTrial && s.TrialEndsAt != nil && s.TrialEndsAt.After(now) {
		return true
	}
	return false
}
