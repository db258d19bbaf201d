// Package agent 实现问答回路中的写作、校验、监督与上下文拓宽智能体
package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
)

const (
	// maxEvidencePassages 写作时注入提示词的证据段落上限
	maxEvidencePassages = 20

	writerTemperature = 0.15
	writerMaxTokens   = 1500

	citationExcerptLen = 200
)

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

const writerSystemPrompt = `You are a grounded question-answering system. Answer the user's question using ONLY the provided evidence passages.

Rules:
1. Every factual claim must cite its source with a bracketed index like [1] or [2].
2. If the evidence does not contain the answer, say so plainly instead of guessing.
3. Be concise and direct. Do not repeat the question.
4. Cite at the end of each sentence that relies on evidence.`

// Writer 基于证据段落撰写带引用的回答
type Writer struct {
	gen service.TextGenerator
}

// NewWriter 创建写作智能体
func NewWriter(gen service.TextGenerator) *Writer {
	return &Writer{gen: gen}
}

// Write 根据问题与证据段落生成回答
// 证据按 "[序号] 文件名:起止行 - 标题" 格式编排，最多取前 20 条
func (w *Writer) Write(ctx context.Context, query string, passages []*entity.ScoredPassage) (*entity.Answer, error) {
	evidence := passages
	if len(evidence) > maxEvidencePassages {
		evidence = evidence[:maxEvidencePassages]
	}

	prompt := fmt.Sprintf("Question: %s\n\nEvidence passages:\n\n%s\n\nAnswer the question using the evidence above.",
		query, FormatEvidence(evidence))

	text, err := w.gen.Generate(ctx, writerSystemPrompt, prompt, service.GenerateOptions{
		Temperature: writerTemperature,
		MaxTokens:   writerMaxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeAnswerFailed, "生成回答失败")
	}

	citations := ExtractCitations(text, evidence)

	confidence := entity.ConfidenceLow
	if len(citations) > 0 {
		confidence = entity.ConfidenceHigh
	}

	logger.Debug(ctx, "回答生成完成",
		"citations", len(citations),
		"answer_length", len(text),
	)

	return &entity.Answer{
		Text:       text,
		Citations:  citations,
		Confidence: confidence,
	}, nil
}

// FormatEvidence 将证据段落编排为提示词文本块
// 每条形如 "[1] report.txt:10-24 - Budget\n正文"，块间以分隔线连接
func FormatEvidence(passages []*entity.ScoredPassage) string {
	blocks := make([]string, 0, len(passages))
	for i, sp := range passages {
		p := sp.Passage
		header := fmt.Sprintf("[%d] %s:%d-%d", i+1, p.FileName, p.StartLine, p.EndLine)
		if p.Heading != "" {
			header += " - " + p.Heading
		}
		blocks = append(blocks, header+"\n"+p.Text)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// ExtractCitations 从回答文本中解析 [n] 引用标记
// 去重后过滤掉超出证据范围的序号，摘录前 200 字符作为引文
func ExtractCitations(text string, evidence []*entity.ScoredPassage) []entity.Citation {
	seen := make(map[int]bool)
	var citations []entity.Citation
	for _, m := range citationMarkerRe.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || seen[idx] {
			continue
		}
		seen[idx] = true
		if idx < 1 || idx > len(evidence) {
			continue
		}
		p := evidence[idx-1].Passage
		excerpt := p.Text
		if len(excerpt) > citationExcerptLen {
			excerpt = excerpt[:citationExcerptLen]
		}
		citations = append(citations, entity.Citation{
			Index:     idx,
			FileName:  p.FileName,
			StartLine: p.StartLine,
			EndLine:   p.EndLine,
			Text:      excerpt,
		})
	}
	return citations
}
