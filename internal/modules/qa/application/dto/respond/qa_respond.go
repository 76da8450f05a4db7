package respond

import "time"

type SubmitQueryRespond struct {
	QueryID   string `json:"query_id"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

type AnswerRespond struct {
	AnswerID         string  `json:"answer_id"`
	AnswerText       string  `json:"answer_text"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ModelName        string  `json:"model_name"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	RetrievalMs      int64   `json:"retrieval_ms"`
	GenerationMs     int64   `json:"generation_ms"`
	TotalMs          int64   `json:"total_ms"`
	CacheHit         bool    `json:"cache_hit"`
	ValidationStatus string  `json:"validation_status"`
	EscalationFlag   bool    `json:"escalation_flag"`
}

type SourceRespond struct {
	ChunkID         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	RankPosition    int     `json:"rank_position"`
}

type QueryStatusRespond struct {
	QueryID        string          `json:"query_id"`
	QueryText      string          `json:"query_text"`
	CollectionName string          `json:"collection_name"`
	Status         string          `json:"status"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Answer         *AnswerRespond  `json:"answer,omitempty"`
	Sources        []SourceRespond `json:"sources,omitempty"`
}

type EscalationStatusRespond struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type EscalationRespond struct {
	ID              string    `json:"id"`
	QueryID         string    `json:"query_id"`
	Reason          string    `json:"reason"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	PriorityScore   float64   `json:"priority_score"`
	Status          string    `json:"status"`
	EscalatedAt     time.Time `json:"escalated_at"`
}
