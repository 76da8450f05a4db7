package embedding

import (
	"context"
	"fmt"
	"strings"

	"ReviewQA/pkg/retry"
	"ReviewQA/pkg/zlog"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"
)

// Client wraps an embedder with input validation, dimension checks and a
// retry policy, and converts vectors to the float32 layout the vector index
// stores.
type Client struct {
	embedder embedding.Embedder
	meta     EmbedderMeta
	policy   retry.Policy
}

func NewClient(embedder embedding.Embedder, meta EmbedderMeta, policy retry.Policy) (*Client, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if meta.Dim <= 0 {
		return nil, fmt.Errorf("embedding dim must be positive, got %d", meta.Dim)
	}
	return &Client{embedder: embedder, meta: meta, policy: policy}, nil
}

func (c *Client) Meta() EmbedderMeta { return c.meta }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vecs, err := retry.DoWithResult(ctx, c.policy, "embed", func() ([][]float64, error) {
		return c.embedder.EmbedStrings(ctx, []string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 input", len(vecs))
	}
	return c.toFloat32(vecs[0])
}

// EmbedBatch embeds all non-empty texts and returns one vector per input
// position. Blank inputs are skipped and reported at their index as nil.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("cannot embed empty batch")
	}

	kept := make([]string, 0, len(texts))
	keptIdx := make([]int, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			zlog.Warn("skipping blank text in embedding batch", zap.Int("index", i))
			continue
		}
		kept = append(kept, t)
		keptIdx = append(keptIdx, i)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("cannot embed batch: all texts blank")
	}

	vecs, err := retry.DoWithResult(ctx, c.policy, "embed_batch", func() ([][]float64, error) {
		return c.embedder.EmbedStrings(ctx, kept)
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(kept) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(kept))
	}

	out := make([][]float32, len(texts))
	for j, vec := range vecs {
		v, err := c.toFloat32(vec)
		if err != nil {
			return nil, err
		}
		out[keptIdx[j]] = v
	}
	return out, nil
}

func (c *Client) toFloat32(vec []float64) ([]float32, error) {
	if len(vec) != c.meta.Dim {
		return nil, fmt.Errorf("embedding dim mismatch: got %d, want %d", len(vec), c.meta.Dim)
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}
