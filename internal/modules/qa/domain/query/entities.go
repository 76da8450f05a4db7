package query

import (
	"database/sql"
	"time"
)

// Query lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusEscalated  = "escalated"
)

// Answer validation statuses.
const (
	ValidationPassed   = "passed"
	ValidationFailed   = "failed"
	ValidationWarnings = "warnings"
)

type Query struct {
	Id             string         `gorm:"column:id;type:char(36);primaryKey"`
	QueryText      string         `gorm:"column:query_text;type:text;not null"`
	CollectionName string         `gorm:"column:collection_name;type:varchar(100);not null;index:idx_qa_query_collection"`
	Status         string         `gorm:"column:status;type:varchar(20);not null;default:pending;index:idx_qa_query_status"`
	SubmittedAt    time.Time      `gorm:"column:submitted_at;type:datetime;not null;index:idx_qa_query_submitted"`
	CompletedAt    sql.NullTime   `gorm:"column:completed_at;type:datetime"`
	WorkerId       sql.NullString `gorm:"column:worker_id;type:varchar(64)"`
	Attempts       int            `gorm:"column:attempts;type:int;not null;default:0"`
	LastError      string         `gorm:"column:last_error;type:varchar(255)"`
}

func (Query) TableName() string { return "qa_query" }

type Answer struct {
	Id               string    `gorm:"column:id;type:char(36);primaryKey"`
	QueryId          string    `gorm:"column:query_id;type:char(36);not null;index:idx_qa_answer_query"`
	AnswerText       string    `gorm:"column:answer_text;type:text;not null"`
	ConfidenceScore  float64   `gorm:"column:confidence_score;type:double;not null"`
	ModelName        string    `gorm:"column:model_name;type:varchar(100);not null"`
	PromptTokens     int       `gorm:"column:prompt_tokens;type:int;not null;default:0"`
	CompletionTokens int       `gorm:"column:completion_tokens;type:int;not null;default:0"`
	RetrievalMs      int64     `gorm:"column:retrieval_ms;type:bigint;not null;default:0"`
	GenerationMs     int64     `gorm:"column:generation_ms;type:bigint;not null;default:0"`
	TotalMs          int64     `gorm:"column:total_ms;type:bigint;not null;default:0"`
	CacheHit         bool      `gorm:"column:cache_hit;not null;default:false"`
	ValidationStatus string    `gorm:"column:validation_status;type:varchar(20);not null;default:passed"`
	EscalationFlag   bool      `gorm:"column:escalation_flag;not null;default:false"`
	RedactionFlag    bool      `gorm:"column:redaction_flag;not null;default:false"`
	GeneratedAt      time.Time `gorm:"column:generated_at;type:datetime;not null"`
}

func (Answer) TableName() string { return "qa_answer" }

type QueryResult struct {
	Id              string          `gorm:"column:id;type:char(36);primaryKey"`
	QueryId         string          `gorm:"column:query_id;type:char(36);not null;index:idx_qa_result_query"`
	ChunkId         string          `gorm:"column:chunk_id;type:char(36);not null"`
	SimilarityScore float64         `gorm:"column:similarity_score;type:double;not null"`
	RerankingScore  sql.NullFloat64 `gorm:"column:reranking_score;type:double"`
	RankPosition    int             `gorm:"column:rank_position;type:int;not null"`
	RetrievedAt     time.Time       `gorm:"column:retrieved_at;type:datetime;not null"`
}

func (QueryResult) TableName() string { return "qa_query_result" }

// Chunk rows are written by the ingestion side; this pipeline only reads them
// to enrich vector hits with canonical text and metadata.
type Chunk struct {
	Id               string    `gorm:"column:id;type:char(36);primaryKey"`
	DocumentId       string    `gorm:"column:document_id;type:char(36);not null;index:idx_qa_chunk_document"`
	CollectionName   string    `gorm:"column:collection_name;type:varchar(100);not null;index:idx_qa_chunk_collection"`
	TextContent      string    `gorm:"column:text_content;type:mediumtext;not null"`
	SequencePosition int       `gorm:"column:sequence_position;type:int;not null"`
	TokenCount       int       `gorm:"column:token_count;type:int;not null;default:0"`
	MetadataJson     string    `gorm:"column:metadata_json;type:json"`
	CreatedAt        time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Chunk) TableName() string { return "qa_chunk" }

type Collection struct {
	Id             string    `gorm:"column:id;type:char(36);primaryKey"`
	Name           string    `gorm:"column:name;type:varchar(100);not null;uniqueIndex:uniq_qa_collection_name"`
	Description    string    `gorm:"column:description;type:text"`
	VectorDim      int       `gorm:"column:vector_dim;type:int;not null;default:1536"`
	DistanceMetric string    `gorm:"column:distance_metric;type:varchar(20);not null;default:cosine"`
	DocumentCount  int       `gorm:"column:document_count;type:int;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Collection) TableName() string { return "qa_collection" }
