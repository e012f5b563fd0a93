package access

import (
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
)

// Feature identifies a plan-gated capability.
type Feature string

const (
	FeatureInvoicing        Feature = "invoicing"
	FeatureAttendance       Feature = "attendance"
	FeaturePayroll          Feature = "payroll"
	FeatureAdvances         Feature = "advances"
	FeatureDeliveryChallans Feature = "delivery_challans"
	FeatureReports          Feature = "reports"
	FeatureAuditTrail       Feature = "audit_trail"
	FeatureAPIAccess        Feature = "api_access"
)

// featureAdditions lists what each tier adds on top of the tier below it.
// Plan feature sets are built cumulatively, so every higher plan is a
// strict superset of the lower ones.
var featureAdditions = map[subdomain.Plan][]Feature{
	subdomain.PlanFree:       {FeatureInvoicing, FeatureAttendance},
	subdomain.PlanBasic:      {FeaturePayroll, FeatureAdvances},
	subdomain.PlanPro:        {FeatureDeliveryChallans, FeatureReports},
	subdomain.PlanEnterprise: {FeatureAuditTrail, FeatureAPIAccess},
}

var planFeatures = buildPlanFeatures()

func buildPlanFeatures() map[subdomain.Plan]map[Feature]struct{} {
	out := make(map[subdomain.Plan]map[Feature]struct{}, 4)
	acc := make(map[Feature]struct{})
	for _, plan := range subdomain.PlansAscending() {
		for _, f := range featureAdditions[plan] {
			acc[f] = struct{}{}
		}
		set := make(map[Feature]struct{}, len(acc))
		for f := range acc {
			set[f] = struct{}{}
		}
		out[plan] = set
	}
	return out
}

// PlanHasFeature reports whether the plan's feature set contains the feature.
func PlanHasFeature(plan subdomain.Plan, feature Feature) bool {
	set, ok := planFeatures[plan]
	if !ok {
		return false
	}
	_, ok = set[feature]
	return ok
}

// MinimumPlanFor returns the lowest plan whose feature set contains the
// feature, and false when no plan offers it.
func MinimumPlanFor(feature Feature) (subdomain.Plan, bool) {
	for _, plan := range subdomain.PlansAscending() {
		if PlanHasFeature(plan, feature) {
			return plan, true
		}
	}
	return "", false
}
