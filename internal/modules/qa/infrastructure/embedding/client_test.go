package embedding

import (
	"context"
	"errors"
	"testing"

	"ReviewQA/pkg/retry"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	dim   int
	calls int
	fail  int // fail the first N calls
}

func (e *countingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoEmbedding.Option) ([][]float64, error) {
	e.calls++
	if e.calls <= e.fail {
		return nil, errors.New("transient upstream error")
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = make([]float64, e.dim)
	}
	return out, nil
}

func newTestClient(t *testing.T, embedder einoEmbedding.Embedder, dim int) *Client {
	t.Helper()
	c, err := NewClient(embedder, EmbedderMeta{Provider: "mock", Model: "mock", Dim: dim}, retry.Policy{MaxAttempts: 3, BaseDelay: 1, MaxDelay: 1})
	require.NoError(t, err)
	return c
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	c := newTestClient(t, NewMockEmbedder(8), 8)

	_, err := c.Embed(context.Background(), "")
	assert.Error(t, err)
	_, err = c.Embed(context.Background(), "   \t")
	assert.Error(t, err)
}

func TestEmbedValidatesDimension(t *testing.T) {
	// Embedder produces 4-dim vectors while 8 is expected.
	c := newTestClient(t, NewMockEmbedder(4), 8)

	_, err := c.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dim mismatch")
}

func TestEmbedReturnsFloat32Vector(t *testing.T) {
	c := newTestClient(t, NewMockEmbedder(8), 8)

	vec, err := c.Embed(context.Background(), "what do customers say?")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestEmbedIsDeterministicPerText(t *testing.T) {
	c := newTestClient(t, NewMockEmbedder(8), 8)

	a1, err := c.Embed(context.Background(), "same text")
	require.NoError(t, err)
	a2, err := c.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "different text")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	e := &countingEmbedder{dim: 8, fail: 2}
	c := newTestClient(t, e, 8)

	_, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, 3, e.calls)
}

func TestEmbedBatchRejectsEmptyBatch(t *testing.T) {
	c := newTestClient(t, NewMockEmbedder(8), 8)

	_, err := c.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.EmbedBatch(context.Background(), []string{"", "  "})
	assert.Error(t, err)
}

func TestEmbedBatchSkipsBlankEntriesKeepingPositions(t *testing.T) {
	c := newTestClient(t, NewMockEmbedder(8), 8)

	out, err := c.EmbedBatch(context.Background(), []string{"first", "", "third"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Len(t, out[0], 8)
	assert.Nil(t, out[1])
	assert.Len(t, out[2], 8)
}
