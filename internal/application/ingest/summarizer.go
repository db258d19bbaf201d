package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"ilka-rag-api/internal/application/chunking"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/utils"
)

const (
	summaryTemperature  = 0.3
	summaryMaxTokens    = 2000
	keywordsTemperature = 0.3
	keywordsMaxTokens   = 500
)

// GenerateSummary 生成文档摘要与关键词并入库
func (p *Pipeline) GenerateSummary(ctx context.Context, userID, documentID string) error {
	doc, err := p.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.ErrDocumentNotFound
	}
	if doc.Content == "" {
		return errors.New(errors.CodeLLMCallFailed, "文档没有可摘要的正文")
	}

	prompt := fmt.Sprintf(`Summarize this document comprehensively in 500-1000 words.

Document: %s
Content: %s

Include:
- Main topic and purpose
- Key sections (list 8-10 major sections)
- Important entities (people, organizations, dates, numbers)
- Document type/category

Write factually, third-person.`, doc.FileName, chunking.TruncateToTokenLimit(doc.Content, p.cfg.SummaryInputTokens))

	summary, err := p.gen.Generate(ctx, "", prompt, service.GenerateOptions{
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeLLMCallFailed, "生成文档摘要失败")
	}

	// 关键词提取失败不阻塞流水线
	keywords := p.extractKeywords(ctx, summary)

	if err := p.summaries.Upsert(ctx, &entity.DocumentSummary{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		Summary:    summary,
		Keywords:   keywords,
	}); err != nil {
		return err
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusContextEnrichment); err != nil {
		return err
	}
	return p.advance(ctx, StageGenerateContexts, userID, documentID)
}

// extractKeywords 从摘要中提取关键词，返回 JSON 数组文本
func (p *Pipeline) extractKeywords(ctx context.Context, summary string) string {
	prompt := fmt.Sprintf(`Extract 15-20 important keywords from this summary.

Summary: %s

Focus on:
- Proper nouns
- Technical terms
- Key concepts
- Dates/numbers with context

Return ONLY a JSON array: ["keyword1", "keyword2", ...]`, summary)

	raw, err := p.gen.Generate(ctx, "", prompt, service.GenerateOptions{
		Temperature: keywordsTemperature,
		MaxTokens:   keywordsMaxTokens,
	})
	if err != nil {
		logger.Warn(ctx, "关键词提取调用失败", "error", err.Error())
		return "[]"
	}

	var keywords []string
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(raw)), &keywords); err != nil {
		logger.Warn(ctx, "关键词结果解析失败", "error", err.Error())
		return "[]"
	}
	data, _ := json.Marshal(keywords)
	return string(data)
}
