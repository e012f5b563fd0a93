package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestDeductibleCeiling(t *testing.T) {
	assert.Equal(t, int64(300), DeductibleCeiling(300, 0))
	assert.Equal(t, int64(100), DeductibleCeiling(400, 300))
	assert.Equal(t, int64(0), DeductibleCeiling(200, 300))
}

func TestPlanDeductionsGreedyOrder(t *testing.T) {
	advances := []AdvanceBalance{
		{ID: snowflake.ID(1), Remaining: 200},
		{ID: snowflake.ID(2), Remaining: 200},
	}
	details, total := PlanDeductions(300, advances)
	assert.Equal(t, int64(300), total)
	if assert.Len(t, details, 2) {
		assert.Equal(t, int64(200), details[0].AmountDeducted)
		assert.Equal(t, int64(0), details[0].RemainingAfter)
		assert.Equal(t, int64(100), details[1].AmountDeducted)
		assert.Equal(t, int64(100), details[1].RemainingAfter)
	}
}

func TestPlanDeductionsStopsAtZeroCeiling(t *testing.T) {
	advances := []AdvanceBalance{
		{ID: snowflake.ID(1), Remaining: 100},
		{ID: snowflake.ID(2), Remaining: 100},
	}
	details, total := PlanDeductions(100, advances)
	assert.Equal(t, int64(100), total)
	assert.Len(t, details, 1)

	details, total = PlanDeductions(0, advances)
	assert.Zero(t, total)
	assert.Empty(t, details)
}

func TestPlanDeductionsSkipsDrainedAdvances(t *testing.T) {
	advances := []AdvanceBalance{
		{ID: snowflake.ID(1), Remaining: 0},
		{ID: snowflake.ID(2), Remaining: 50},
	}
	details, total := PlanDeductions(100, advances)
	assert.Equal(t, int64(50), total)
	if assert.Len(t, details, 1) {
		assert.Equal(t, snowflake.ID(2), details[0].AdvanceID)
	}
}

func TestDeductionDetailsScanStrict(t *testing.T) {
	var d DeductionDetails
	assert.Error(t, d.Scan("{not json"))

	assert.NoError(t, d.Scan(`[{"advance_id":"7","amount_deducted":10,"remaining_after":0}]`))
	if assert.Len(t, d, 1) {
		assert.Equal(t, snowflake.ID(7), d[0].AdvanceID)
	}

	assert.NoError(t, d.Scan(nil))
	assert.Empty(t, d)
}
