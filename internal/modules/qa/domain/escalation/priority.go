package escalation

import "strings"

// Priority factor weights. Reason severity contributes up to 40 points, wait
// time up to 30 (reaching the maximum at 60 minutes), user tier up to 20, and
// the confidence gap up to 10.
var reasonWeights = map[Reason]float64{
	ReasonHarmfulContent:    40.0,
	ReasonPIIDetected:       35.0,
	ReasonPromptInjection:   30.0,
	ReasonValidationFailure: 25.0,
	ReasonUserRequest:       20.0,
	ReasonLowConfidence:     15.0,
	ReasonOutOfScope:        10.0,
}

var tierWeights = map[string]float64{
	"enterprise": 20.0,
	"premium":    15.0,
	"standard":   10.0,
	"free":       5.0,
}

const (
	defaultReasonWeight = 15.0
	defaultTierWeight   = 10.0
	maxWaitScore        = 30.0
	waitSaturationMin   = 60.0
)

// Priority computes the hand-off priority score in [0, 100]. confidence may
// be nil when no answer was generated before escalating. Pure function, no
// I/O; deterministic for fixed inputs.
func Priority(reason Reason, waitMinutes float64, userTier string, confidence *float64) float64 {
	priority := 0.0

	if w, ok := reasonWeights[reason]; ok {
		priority += w
	} else {
		priority += defaultReasonWeight
	}

	if waitMinutes < 0 {
		waitMinutes = 0
	}
	waitScore := (waitMinutes / waitSaturationMin) * maxWaitScore
	if waitScore > maxWaitScore {
		waitScore = maxWaitScore
	}
	priority += waitScore

	if w, ok := tierWeights[strings.ToLower(strings.TrimSpace(userTier))]; ok {
		priority += w
	} else {
		priority += defaultTierWeight
	}

	if confidence != nil {
		gap := 1.0 - *confidence
		if gap < 0 {
			gap = 0
		}
		priority += gap * 10.0
	}

	if priority > 100.0 {
		return 100.0
	}
	if priority < 0.0 {
		return 0.0
	}
	return priority
}
