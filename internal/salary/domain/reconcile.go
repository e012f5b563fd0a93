package domain

import "github.com/bwmarrin/snowflake"

// AdvanceBalance is the slice of an advance the planner needs.
type AdvanceBalance struct {
	ID        snowflake.ID
	Remaining int64
}

// DeductibleCeiling is the most that advances may recoup from one
// salary: gross minus other deductions, floored at zero.
func DeductibleCeiling(gross, deductions int64) int64 {
	ceiling := gross - deductions
	if ceiling < 0 {
		return 0
	}
	return ceiling
}

// PlanDeductions greedily consumes advances in the given order until
// the ceiling is exhausted. Advances with no remaining balance are
// skipped; consumption stops early once the ceiling reaches zero.
func PlanDeductions(ceiling int64, advances []AdvanceBalance) (DeductionDetails, int64) {
	details := DeductionDetails{}
	var total int64
	remaining := ceiling
	for _, adv := range advances {
		if remaining <= 0 {
			break
		}
		if adv.Remaining <= 0 {
			continue
		}
		deduct := adv.Remaining
		if deduct > remaining {
			deduct = remaining
		}
		details = append(details, DeductionDetail{
			AdvanceID:      adv.ID,
			AmountDeducted: deduct,
			RemainingAfter: adv.Remaining - deduct,
		})
		total += deduct
		remaining -= deduct
	}
	return details, total
}
