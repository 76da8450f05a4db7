package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityReasonWeights(t *testing.T) {
	cases := []struct {
		reason Reason
		want   float64
	}{
		{ReasonHarmfulContent, 40},
		{ReasonPIIDetected, 35},
		{ReasonPromptInjection, 30},
		{ReasonValidationFailure, 25},
		{ReasonUserRequest, 20},
		{ReasonLowConfidence, 15},
		{ReasonOutOfScope, 10},
		{Reason("something_else"), 15},
	}
	for _, c := range cases {
		// Free tier adds 5; no wait, no confidence.
		got := Priority(c.reason, 0, "free", nil)
		assert.Equal(t, c.want+5, got, "reason %s", c.reason)
	}
}

func TestPriorityWaitTimeScaling(t *testing.T) {
	// 30 minutes of wait is half the 30-point wait budget.
	got := Priority(ReasonLowConfidence, 30, "free", nil)
	assert.InDelta(t, 15+15+5, got, 0.001)

	// Saturates at 60 minutes.
	atCap := Priority(ReasonLowConfidence, 60, "free", nil)
	beyondCap := Priority(ReasonLowConfidence, 600, "free", nil)
	assert.InDelta(t, 15+30+5, atCap, 0.001)
	assert.Equal(t, atCap, beyondCap)
}

func TestPriorityMonotonicInWaitTime(t *testing.T) {
	prev := -1.0
	for wait := 0.0; wait <= 120; wait += 7.5 {
		got := Priority(ReasonUserRequest, wait, "standard", nil)
		assert.GreaterOrEqual(t, got, prev, "wait %.1f", wait)
		prev = got
	}
}

func TestPriorityUserTiers(t *testing.T) {
	base := Priority(ReasonOutOfScope, 0, "free", nil)       // 10 + 5
	standard := Priority(ReasonOutOfScope, 0, "standard", nil) // 10 + 10
	premium := Priority(ReasonOutOfScope, 0, "premium", nil)  // 10 + 15
	enterprise := Priority(ReasonOutOfScope, 0, "enterprise", nil)
	unknown := Priority(ReasonOutOfScope, 0, "mystery", nil)

	assert.Equal(t, 15.0, base)
	assert.Equal(t, 20.0, standard)
	assert.Equal(t, 25.0, premium)
	assert.Equal(t, 30.0, enterprise)
	assert.Equal(t, 20.0, unknown)
}

func TestPriorityConfidenceGap(t *testing.T) {
	low := 0.2
	high := 0.9

	withLow := Priority(ReasonLowConfidence, 0, "free", &low)
	withHigh := Priority(ReasonLowConfidence, 0, "free", &high)

	assert.InDelta(t, 15+5+(1-0.2)*10, withLow, 0.001)
	assert.InDelta(t, 15+5+(1-0.9)*10, withHigh, 0.001)
	assert.Greater(t, withLow, withHigh)
}

func TestPriorityClampedToHundred(t *testing.T) {
	zero := 0.0
	got := Priority(ReasonHarmfulContent, 600, "enterprise", &zero)
	assert.LessOrEqual(t, got, 100.0)
	assert.Equal(t, 100.0, got)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusQueued, StatusAssigned))
	assert.True(t, CanTransition(StatusQueued, StatusCancelled))
	assert.True(t, CanTransition(StatusAssigned, StatusInProgress))
	assert.True(t, CanTransition(StatusAssigned, StatusCancelled))
	assert.True(t, CanTransition(StatusInProgress, StatusResolved))

	assert.False(t, CanTransition(StatusQueued, StatusResolved))
	assert.False(t, CanTransition(StatusInProgress, StatusCancelled))
	assert.False(t, CanTransition(StatusResolved, StatusQueued))
	assert.False(t, CanTransition(StatusCancelled, StatusAssigned))
}
