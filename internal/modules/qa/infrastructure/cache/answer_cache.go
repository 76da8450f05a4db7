package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"ReviewQA/pkg/zlog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type CachedPassage struct {
	ChunkID         string  `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	RankPosition    int     `json:"rank_position"`
}

type CachedAnswer struct {
	AnswerText       string          `json:"answer_text"`
	ConfidenceScore  float64         `json:"confidence_score"`
	Model            string          `json:"model"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	ValidationStatus string          `json:"validation_status"`
	Passages         []CachedPassage `json:"passages"`
}

// AnswerCache keeps finished answers keyed by collection and normalized query
// text. Cache errors are logged and treated as misses; redis being down must
// never fail a query.
type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnswerCache(rdb *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnswerCache{rdb: rdb, ttl: ttl}
}

func (c *AnswerCache) Get(ctx context.Context, collection, query string) (*CachedAnswer, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(collection, query)).Result()
	if err != nil {
		if err != redis.Nil {
			zlog.Warn("answer cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var cached CachedAnswer
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		zlog.Warn("answer cache entry corrupt, ignoring", zap.Error(err))
		return nil, false
	}
	return &cached, true
}

func (c *AnswerCache) Set(ctx context.Context, collection, query string, answer *CachedAnswer) {
	if c == nil || c.rdb == nil || answer == nil {
		return
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		zlog.Warn("answer cache marshal failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(collection, query), raw, c.ttl).Err(); err != nil {
		zlog.Warn("answer cache write failed", zap.Error(err))
	}
}

func cacheKey(collection, query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(collection + "|" + normalized))
	return "qa:answer:" + hex.EncodeToString(sum[:])
}
