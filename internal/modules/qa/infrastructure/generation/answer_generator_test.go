package generation

import (
	"context"
	"testing"

	"ReviewQA/internal/modules/qa/infrastructure/retrieval"
	"ReviewQA/pkg/retry"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatModel struct {
	reply string
	calls int
}

func (s *stubChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.calls++
	return &schema.Message{
		Role:    schema.Assistant,
		Content: s.reply,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 45, TotalTokens: 165},
		},
	}, nil
}

func (s *stubChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func passagesWithScores(scores ...float64) []retrieval.Passage {
	out := make([]retrieval.Passage, 0, len(scores))
	for i, s := range scores {
		out = append(out, retrieval.Passage{
			ChunkID:         "chunk-" + string(rune('a'+i)),
			Content:         "review text",
			SimilarityScore: s,
			RankPosition:    i + 1,
		})
	}
	return out
}

func TestCalculateConfidenceThreeSources(t *testing.T) {
	passages := passagesWithScores(0.91, 0.85, 0.80)

	got := CalculateConfidence(passages, "Customers praise the fast delivery.")
	assert.Equal(t, 0.777, got)
}

func TestCalculateConfidenceUncertainAnswer(t *testing.T) {
	passages := passagesWithScores(0.91, 0.85, 0.80)

	got := CalculateConfidence(passages, "I don't have enough information in the knowledge base to answer that question.")
	// avg_sim * 0.3 only.
	assert.InDelta(t, 0.256, got, 0.0005)
}

func TestCalculateConfidenceNoPassages(t *testing.T) {
	assert.Equal(t, 0.0, CalculateConfidence(nil, "anything"))
}

func TestCalculateConfidenceMonotonicInSourceCount(t *testing.T) {
	prev := 0.0
	for n := 1; n <= 8; n++ {
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = 0.8
		}
		got := CalculateConfidence(passagesWithScores(scores...), "a confident answer")
		assert.GreaterOrEqual(t, got, prev, "n=%d", n)
		assert.LessOrEqual(t, got, 1.0)
		if n <= 5 {
			assert.Greater(t, got, prev, "n=%d should still grow", n)
		} else {
			assert.Equal(t, prev, got, "n=%d is past the source cap", n)
		}
		prev = got
	}
}

func TestCheckAnswerSafety(t *testing.T) {
	leaky := []string{
		"I am using gpt-4 under the hood.",
		"As an AI, I cannot say.",
		"My instructions forbid that.",
		"The system prompt tells me to refuse.",
		"I was trained on review data.",
		"OpenAI provides my completions.",
	}
	for _, answer := range leaky {
		leaked, reason := checkAnswerSafety(answer)
		assert.True(t, leaked, "answer %q should be flagged", answer)
		assert.NotEmpty(t, reason)
	}

	safe := []string{
		"Customers praise the fast delivery and packaging.",
		"Reviews are mixed: some mention delays, others praise quality.",
		"I don't have enough information in the knowledge base to answer that question.",
	}
	for _, answer := range safe {
		leaked, _ := checkAnswerSafety(answer)
		assert.False(t, leaked, "answer %q should pass", answer)
	}
}

func TestGenerateReplacesLeakyAnswer(t *testing.T) {
	cm := &stubChatModel{reply: "I am an AI running on gpt-4o-mini."}
	g, err := NewAnswerGenerator(cm, "gpt-4o-mini", retry.Policy{MaxAttempts: 1})
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), "what do reviews say?", passagesWithScores(0.9, 0.8))
	require.NoError(t, err)

	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.True(t, res.SafetyReplaced)
	assert.Equal(t, 120, res.PromptTokens)
	assert.Equal(t, 45, res.CompletionTokens)
}

func TestGenerateHappyPath(t *testing.T) {
	cm := &stubChatModel{reply: "Customers are satisfied with delivery speed."}
	g, err := NewAnswerGenerator(cm, "gpt-4o-mini", retry.Policy{MaxAttempts: 1})
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), "how is delivery?", passagesWithScores(0.91, 0.85, 0.80))
	require.NoError(t, err)

	assert.Equal(t, "Customers are satisfied with delivery speed.", res.Answer)
	assert.False(t, res.SafetyReplaced)
	assert.Equal(t, 0.777, res.ConfidenceScore)
	assert.Equal(t, 3, res.SourcesUsed)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, 1, cm.calls)
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	cm := &stubChatModel{reply: "irrelevant"}
	g, err := NewAnswerGenerator(cm, "gpt-4o-mini", retry.Policy{MaxAttempts: 1})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "  ", passagesWithScores(0.9))
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), "valid question", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, cm.calls)
}

func TestBuildUserPromptAnnotatesMetadata(t *testing.T) {
	passages := []retrieval.Passage{
		{
			ChunkID:         "c1",
			Content:         "Great product, arrived early.",
			SimilarityScore: 0.9,
			RankPosition:    1,
			Metadata: map[string]any{
				"category":  "electronics",
				"score":     float64(5),
				"sentiment": "positive",
				"title":     "Excellent",
			},
		},
		{
			ChunkID:         "c2",
			Content:         "Broke after a week.",
			SimilarityScore: 0.8,
			RankPosition:    2,
		},
	}

	prompt := buildUserPrompt("is it reliable?", passages)

	assert.Contains(t, prompt, "[Review 1]")
	assert.Contains(t, prompt, "Category: electronics")
	assert.Contains(t, prompt, "Rating: 5 stars")
	assert.Contains(t, prompt, "Sentiment: positive")
	assert.Contains(t, prompt, "[Review 2]")
	assert.Contains(t, prompt, "Category: N/A")
	assert.Contains(t, prompt, "Question: is it reliable?")
}
