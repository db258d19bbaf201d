package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

const (
	// maxWidenedGroups 拓宽后输出的段落组上限
	maxWidenedGroups = 20

	// maxSectionPassages 标题边界策略下单个章节合并的段落上限
	maxSectionPassages = 5

	// neighborWindow 滑动窗口策略的邻居半径
	neighborWindow = 1
)

// ContextMaker 按策略拓宽检索到的段落上下文
type ContextMaker struct {
	passages repository.PassageRepository
}

// NewContextMaker 创建上下文拓宽器
func NewContextMaker(passages repository.PassageRepository) *ContextMaker {
	return &ContextMaker{passages: passages}
}

// Widen 按指定策略拓宽段落集合
// 输出保持输入的相关性排序，合并段落的得分沿用原段落
func (m *ContextMaker) Widen(ctx context.Context, input []*entity.ScoredPassage, strategy entity.WideningStrategy) ([]*entity.ScoredPassage, error) {
	metrics.ContextWideningTotal.WithLabelValues(string(strategy)).Inc()

	var (
		out []*entity.ScoredPassage
		err error
	)
	switch strategy {
	case entity.StrategyHeadingBounded:
		out, err = m.widenHeadingBounded(ctx, input)
	case entity.StrategySlidingWindow:
		out, err = m.widenSlidingWindow(ctx, input)
	case entity.StrategyFullSection:
		out, err = m.widenFullSection(ctx, input)
	default:
		return nil, errors.New(errors.CodeInvalidParam, fmt.Sprintf("未知的拓宽策略: %s", strategy))
	}
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "上下文拓宽完成",
		"strategy", string(strategy),
		"input_count", len(input),
		"output_count", len(out),
	)
	return out, nil
}

// widenHeadingBounded 将每个段落扩展为其所属章节（最多 5 段）的合并段落
// 同一章节只输出一次，章节键取 parent_section_id、heading、自身 ID 的优先序
func (m *ContextMaker) widenHeadingBounded(ctx context.Context, input []*entity.ScoredPassage) ([]*entity.ScoredPassage, error) {
	seen := make(map[string]bool)
	var out []*entity.ScoredPassage

	for _, sp := range input {
		if len(out) >= maxWidenedGroups {
			break
		}
		key := sp.Passage.SectionKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		section, err := m.sectionOf(ctx, sp.Passage)
		if err != nil {
			return nil, err
		}
		if len(section) > maxSectionPassages {
			section = section[:maxSectionPassages]
		}
		out = append(out, mergePassages(sp, section))
	}
	return out, nil
}

// widenSlidingWindow 将每个段落与文档内相邻段落（±1）合并
// 不去重也不截断，输出数量与输入一致
func (m *ContextMaker) widenSlidingWindow(ctx context.Context, input []*entity.ScoredPassage) ([]*entity.ScoredPassage, error) {
	out := make([]*entity.ScoredPassage, 0, len(input))
	for _, sp := range input {
		neighbors, err := m.passages.GetNeighbors(ctx, sp.Passage.DocumentID, sp.Passage.ChunkIndex, neighborWindow)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "获取相邻段落失败")
		}
		window := append([]*entity.Passage{sp.Passage}, neighbors...)
		sort.Slice(window, func(i, j int) bool { return window[i].ChunkIndex < window[j].ChunkIndex })
		out = append(out, mergePassages(sp, window))
	}
	return out, nil
}

// widenFullSection 将每个段落扩展为完整章节的合并段落，不限制章节内段落数
// 按 文档ID:章节键 去重，保证跨文档同名章节互不吞并
func (m *ContextMaker) widenFullSection(ctx context.Context, input []*entity.ScoredPassage) ([]*entity.ScoredPassage, error) {
	seen := make(map[string]bool)
	var out []*entity.ScoredPassage

	for _, sp := range input {
		if len(out) >= maxWidenedGroups {
			break
		}
		key := sp.Passage.DocumentID + ":" + sp.Passage.SectionKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		section, err := m.sectionOf(ctx, sp.Passage)
		if err != nil {
			return nil, err
		}
		out = append(out, mergePassages(sp, section))
	}
	return out, nil
}

// sectionOf 取段落所属章节的全部段落；无章节信息或查询为空时退回段落自身
func (m *ContextMaker) sectionOf(ctx context.Context, p *entity.Passage) ([]*entity.Passage, error) {
	key := ""
	if p.ParentSectionID != "" {
		key = p.ParentSectionID
	} else if p.Heading != "" {
		key = p.Heading
	}
	if key == "" {
		return []*entity.Passage{p}, nil
	}

	section, err := m.passages.GetBySection(ctx, p.DocumentID, key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "获取章节段落失败")
	}
	if len(section) == 0 {
		return []*entity.Passage{p}, nil
	}
	return section, nil
}

// mergePassages 将一组段落合并为单个扩展段落
// 文本按出现顺序以空行连接，行号取并集，字数与 token 数求和
func mergePassages(origin *entity.ScoredPassage, group []*entity.Passage) *entity.ScoredPassage {
	if len(group) == 1 && group[0] == origin.Passage {
		return &entity.ScoredPassage{
			Passage:     origin.Passage,
			Score:       origin.Score,
			BM25Score:   origin.BM25Score,
			VectorScore: origin.VectorScore,
			Source:      origin.Source,
		}
	}

	merged := *origin.Passage
	texts := make([]string, 0, len(group))
	start, end := group[0].StartLine, group[0].EndLine
	words, tokens := 0, 0
	for _, p := range group {
		texts = append(texts, p.Text)
		if p.StartLine < start {
			start = p.StartLine
		}
		if p.EndLine > end {
			end = p.EndLine
		}
		words += p.WordCount
		tokens += p.TokenCount
	}
	merged.Text = strings.Join(texts, "\n\n")
	merged.StartLine = start
	merged.EndLine = end
	merged.WordCount = words
	merged.TokenCount = tokens

	return &entity.ScoredPassage{
		Passage:     &merged,
		Score:       origin.Score,
		BM25Score:   origin.BM25Score,
		VectorScore: origin.VectorScore,
		Source:      "merged",
	}
}
