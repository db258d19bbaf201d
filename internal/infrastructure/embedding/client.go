// Package embedding 提供文本向量化客户端
package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"ilka-rag-api/internal/application/retrieval"
)

const defaultBatchSize = 32

// Client 向量化客户端，按批次调用底层 Embedder
type Client struct {
	embedder  embedding.Embedder
	batchSize int
}

// NewClient 创建向量化客户端
func NewClient(embedder embedding.Embedder, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Client{
		embedder:  embedder,
		batchSize: batchSize,
	}
}

var _ retrieval.Embedder = (*Client)(nil)

// EmbedStrings 向量化一组文本，保持输入顺序
func (c *Client) EmbedStrings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	all := make([][]float64, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedder.EmbedStrings(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch failed: %w", err)
		}
		if len(vectors) != end-i {
			return nil, fmt.Errorf("embed batch returned %d vectors for %d texts", len(vectors), end-i)
		}
		all = append(all, vectors...)
	}

	return all, nil
}
