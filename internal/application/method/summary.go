package method

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ilka-rag-api/internal/application/chunking"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/logger"
)

const (
	// maxSummaryDocuments 未指定目标文档时最多摘要的文档数
	maxSummaryDocuments = 5
	// summaryInputTokenLimit 摘要输入正文的 token 上限
	summaryInputTokenLimit = 50000

	summaryTemperature = 0.3
	summaryMaxTokens   = 2000
)

// Summary 文档摘要管线
// 优先使用入库时预生成的摘要，缺失时现场生成
type Summary struct {
	documents repository.DocumentRepository
	summaries repository.SummaryRepository
	gen       service.TextGenerator
}

// NewSummary 创建摘要管线
func NewSummary(documents repository.DocumentRepository, summaries repository.SummaryRepository, gen service.TextGenerator) *Summary {
	return &Summary{documents: documents, summaries: summaries, gen: gen}
}

// Name 实现 Method
func (m *Summary) Name() string { return "summary" }

// documentSummary 单个文档的摘要结果
type documentSummary struct {
	fileName   string
	summary    string
	confidence entity.Confidence
	fromDB     bool
}

// Execute 实现 Method
func (m *Summary) Execute(ctx context.Context, req *Request) (*entity.Answer, error) {
	start := time.Now()

	page, err := m.documents.ListByUser(ctx, req.UserID, nil, repository.NewPagination(1, 100))
	if err != nil {
		return nil, err
	}
	docs := page.Items

	if len(docs) == 0 {
		return messageAnswer(m.Name(), start,
			"**No documents found**\n\nPlease upload documents before requesting a summary."), nil
	}

	targets, notFound := m.resolveTargets(docs, req.Analysis)
	if notFound != "" {
		var names []string
		for _, d := range docs {
			names = append(names, "- "+d.FileName)
		}
		return messageAnswer(m.Name(), start, fmt.Sprintf(
			"**Document not found**\n\nCould not find a document matching %q. Available documents:\n%s",
			notFound, strings.Join(names, "\n"))), nil
	}

	summaries := make([]documentSummary, 0, len(targets))
	for _, doc := range targets {
		summaries = append(summaries, m.summarize(ctx, doc))
	}

	answer := formatSummaries(summaries)
	answer.Method = m.Name()
	answer.LatencyMs = time.Since(start).Milliseconds()
	return answer, nil
}

// resolveTargets 选定要摘要的文档
// 指定了目标文档名时按子串匹配；未指定且文档过多时只取前 5 个
func (m *Summary) resolveTargets(docs []*entity.Document, analysis *entity.QueryAnalysis) ([]*entity.Document, string) {
	target := ""
	if analysis != nil {
		target = strings.TrimSpace(analysis.TargetDocument)
	}
	if target == "" {
		if len(docs) > maxSummaryDocuments {
			return docs[:maxSummaryDocuments], ""
		}
		return docs, ""
	}

	var matched []*entity.Document
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.FileName), strings.ToLower(target)) {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		return nil, target
	}
	return matched, ""
}

// summarize 取单个文档的摘要：处理中 → 占位；有预生成摘要 → 直接用；否则现场生成
func (m *Summary) summarize(ctx context.Context, doc *entity.Document) documentSummary {
	if !doc.IsReady() {
		return documentSummary{
			fileName:   doc.FileName,
			summary:    fmt.Sprintf("*Document is still processing (status: %s). Summary will be available shortly.*", doc.Status),
			confidence: entity.ConfidenceLow,
		}
	}

	existing, err := m.summaries.GetByDocument(ctx, doc.ID)
	if err != nil {
		logger.Warn(ctx, "读取预生成摘要失败，改为现场生成", "document_id", doc.ID, "error", err.Error())
	}
	if existing != nil && existing.Summary != "" {
		return documentSummary{
			fileName:   doc.FileName,
			summary:    existing.Summary,
			confidence: entity.ConfidenceHigh,
			fromDB:     true,
		}
	}

	summary := m.generateSummary(ctx, doc)
	return documentSummary{
		fileName:   doc.FileName,
		summary:    summary,
		confidence: entity.ConfidenceMedium,
	}
}

func (m *Summary) generateSummary(ctx context.Context, doc *entity.Document) string {
	if doc.Content == "" {
		return "*Document has no content to summarize.*"
	}

	prompt := fmt.Sprintf(`Summarize this document comprehensively in 500-800 words.

Document: %s
Content: %s

Include:
- Main topic and purpose
- Key sections and themes
- Important entities (people, organizations, dates, numbers)
- Document type/category

Write factually, third-person.`, doc.FileName, chunking.TruncateToTokenLimit(doc.Content, summaryInputTokenLimit))

	summary, err := m.gen.Generate(ctx, "", prompt, service.GenerateOptions{
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		logger.Error(ctx, "现场生成摘要失败", err, "document_id", doc.ID)
		return fmt.Sprintf("*Failed to generate summary: %s*", err.Error())
	}
	if summary == "" {
		return "*Failed to generate summary: empty response.*"
	}
	return summary
}

// formatSummaries 编排最终答案文本并聚合置信度
func formatSummaries(summaries []documentSummary) *entity.Answer {
	var text string
	citations := make([]entity.Citation, 0, len(summaries))

	excerpt := func(s string) string {
		if len(s) > 200 {
			return s[:200] + "..."
		}
		return s
	}

	if len(summaries) == 1 {
		s := summaries[0]
		text = fmt.Sprintf("## Summary: %s\n\n%s", s.fileName, s.summary)
		citations = append(citations, entity.Citation{
			Index: 1, FileName: s.fileName, StartLine: 1, EndLine: 999999, Text: excerpt(s.summary),
		})
	} else {
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Summary of %d Documents\n\n", len(summaries))
		for i, s := range summaries {
			fmt.Fprintf(&sb, "### %s\n\n%s\n\n---\n\n", s.fileName, s.summary)
			citations = append(citations, entity.Citation{
				Index: i + 1, FileName: s.fileName, StartLine: 1, EndLine: 999999, Text: excerpt(s.summary),
			})
		}
		text = sb.String()
	}

	allHigh, anyLow := true, false
	fromDB, generated := 0, 0
	for _, s := range summaries {
		if s.confidence != entity.ConfidenceHigh {
			allHigh = false
		}
		if s.confidence == entity.ConfidenceLow {
			anyLow = true
		}
		if s.fromDB {
			fromDB++
		} else {
			generated++
		}
	}
	confidence := entity.ConfidenceMedium
	switch {
	case anyLow:
		confidence = entity.ConfidenceLow
	case allHigh:
		confidence = entity.ConfidenceHigh
	}

	return &entity.Answer{
		Text:       text,
		Citations:  citations,
		Confidence: confidence,
		Metadata: &entity.AnswerMetadata{
			DocumentCount:  len(summaries),
			FromCache:      fromDB,
			GeneratedOnFly: generated,
		},
	}
}

// messageAnswer 不经检索的提示性答案
func messageAnswer(method string, start time.Time, text string) *entity.Answer {
	return &entity.Answer{
		Method:     method,
		Text:       text,
		Confidence: entity.ConfidenceHigh,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
}
