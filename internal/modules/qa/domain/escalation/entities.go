package escalation

import (
	"database/sql"
	"time"
)

// Reason identifies why a query was handed off to a human reviewer.
type Reason string

const (
	ReasonHarmfulContent    Reason = "harmful_content"
	ReasonPIIDetected       Reason = "pii_detected"
	ReasonPromptInjection   Reason = "prompt_injection_detected"
	ReasonValidationFailure Reason = "validation_failure"
	ReasonUserRequest       Reason = "user_request"
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonOutOfScope        Reason = "out_of_scope"
)

// AssignmentStatus tracks the hand-off state machine:
// QUEUED -> ASSIGNED -> IN_PROGRESS -> RESOLVED, with CANCELLED reachable
// from QUEUED or ASSIGNED.
type AssignmentStatus string

const (
	StatusQueued     AssignmentStatus = "queued"
	StatusAssigned   AssignmentStatus = "assigned"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusResolved   AssignmentStatus = "resolved"
	StatusCancelled  AssignmentStatus = "cancelled"
)

// CanTransition reports whether moving from one assignment status to another
// is a legal step of the state machine.
func CanTransition(from, to AssignmentStatus) bool {
	switch from {
	case StatusQueued:
		return to == StatusAssigned || to == StatusCancelled
	case StatusAssigned:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusResolved
	default:
		return false
	}
}

type EscalationRequest struct {
	Id              string           `gorm:"column:id;type:char(36);primaryKey"`
	QueryId         string           `gorm:"column:query_id;type:char(36);not null;index:idx_qa_escalation_query"`
	AnswerId        sql.NullString   `gorm:"column:answer_id;type:char(36)"`
	Reason          Reason           `gorm:"column:reason;type:varchar(40);not null"`
	ConfidenceScore sql.NullFloat64  `gorm:"column:confidence_score;type:double"`
	PriorityScore   float64          `gorm:"column:priority_score;type:double;not null;default:50"`
	Status          AssignmentStatus `gorm:"column:status;type:varchar(20);not null;default:queued;index:idx_qa_escalation_status"`
	AssignedAgentId sql.NullString   `gorm:"column:assigned_agent_id;type:varchar(64)"`
	EscalatedAt     time.Time        `gorm:"column:escalated_at;type:datetime;not null"`
	AssignedAt      sql.NullTime     `gorm:"column:assigned_at;type:datetime"`
	ResolvedAt      sql.NullTime     `gorm:"column:resolved_at;type:datetime"`
}

func (EscalationRequest) TableName() string { return "qa_escalation_request" }
