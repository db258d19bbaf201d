package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/utils"
)

const (
	contextTemperature = 0.4
	contextMaxTokens   = 2000
	// contextPreviewLen 提示词中每段正文的预览长度
	contextPreviewLen = 200
)

// GenerateContexts 为每个段落生成定位上下文（contextual retrieval）
// 生成的上下文在向量化时拼在段落正文前面
func (p *Pipeline) GenerateContexts(ctx context.Context, userID, documentID string) error {
	if !p.cfg.EnrichPassages {
		if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusEmbedding); err != nil {
			return err
		}
		return p.advance(ctx, StageGenerateEmbeddings, userID, documentID)
	}

	doc, err := p.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.ErrDocumentNotFound
	}

	summaryText := ""
	if summary, err := p.summaries.GetByDocument(ctx, documentID); err == nil && summary != nil {
		summaryText = summary.Summary
	}

	passages, err := p.passages.GetByDocument(ctx, documentID)
	if err != nil {
		return err
	}

	for start := 0; start < len(passages); start += p.cfg.ContextBatch {
		end := start + p.cfg.ContextBatch
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		contexts := p.generateContextBatch(ctx, batch, doc.FileName, summaryText)
		for i, passage := range batch {
			if err := p.passages.UpdateContext(ctx, passage.ID, contexts[i]); err != nil {
				return err
			}
		}
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusEmbedding); err != nil {
		return err
	}
	return p.advance(ctx, StageGenerateEmbeddings, userID, documentID)
}

// generateContextBatch 为一批段落生成上下文
// 解析失败时退回通用占位上下文，不让单批失败卡住整个阶段
func (p *Pipeline) generateContextBatch(ctx context.Context, batch []*entity.Passage, fileName, summary string) []string {
	previews := make([]string, 0, len(batch))
	for i, passage := range batch {
		text := passage.Text
		if len(text) > contextPreviewLen {
			text = text[:contextPreviewLen]
		}
		previews = append(previews, fmt.Sprintf("%d. %s", i+1, text))
	}

	prompt := fmt.Sprintf(`Generate a 1-2 sentence context for each chunk below.

Document: %s
Summary: %s

Chunks:
%s

For each chunk, provide context that situates it within the document.

Return JSON array:
[
  {"chunk_index": 1, "context": "..."},
  {"chunk_index": 2, "context": "..."},
  ...
]`, fileName, summary, strings.Join(previews, "\n\n"))

	fallback := fmt.Sprintf("This passage is from %s.", fileName)
	out := make([]string, len(batch))
	for i := range out {
		out[i] = fallback
	}

	raw, err := p.gen.Generate(ctx, "", prompt, service.GenerateOptions{
		Temperature: contextTemperature,
		MaxTokens:   contextMaxTokens,
	})
	if err != nil {
		logger.Warn(ctx, "上下文生成调用失败，使用占位上下文", "error", err.Error())
		return out
	}

	var parsed []struct {
		ChunkIndex int    `json:"chunk_index"`
		Context    string `json:"context"`
	}
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(raw)), &parsed); err != nil {
		logger.Warn(ctx, "上下文结果解析失败，使用占位上下文", "error", err.Error())
		return out
	}

	for _, item := range parsed {
		if item.ChunkIndex >= 1 && item.ChunkIndex <= len(batch) && item.Context != "" {
			out[item.ChunkIndex-1] = item.Context
		}
	}
	return out
}
