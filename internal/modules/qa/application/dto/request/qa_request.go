package request

// SubmitQueryRequest is the async submission body. Optional fields fall back
// to configured defaults.
type SubmitQueryRequest struct {
	QueryText           string  `json:"query_text" binding:"required"`
	CollectionName      string  `json:"collection_name"`
	MaxChunks           int     `json:"max_chunks"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// UpdateEscalationStatusRequest moves an escalation through its assignment
// state machine. AgentID is required when assigning.
type UpdateEscalationStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	AgentID string `json:"agent_id"`
}
