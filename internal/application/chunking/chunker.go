// Package chunking 提供文档切分能力
package chunking

import (
	"strings"
)

const (
	maxChunkTokens = 5000
	// 下限放得很低，避免丢弃极短文档
	minChunkTokens = 10
)

// Chunk 切分产出的段落边界
type Chunk struct {
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	Heading         string `json:"heading,omitempty"`
	HeadingLevel    int    `json:"heading_level,omitempty"`
	ParentSectionID string `json:"parent_section_id,omitempty"`
	Text            string `json:"text"`
	WordCount       int    `json:"word_count"`
	TokenCount      int    `json:"token_count"`
}

// HierarchicalChunker 层级切分器：优先按标题边界切分，超限时递归下钻，
// 最终回退到逐行贪心打包
type HierarchicalChunker struct {
	detector *HeadingDetector
}

// NewHierarchicalChunker 创建层级切分器
func NewHierarchicalChunker() *HierarchicalChunker {
	return &HierarchicalChunker{detector: NewHeadingDetector()}
}

// Chunk 将全文切分为有序段落
func (c *HierarchicalChunker) Chunk(text string) []Chunk {
	lines := strings.Split(text, "\n")
	headings := c.detector.Detect(lines)

	if len(headings) == 0 {
		return c.chunkByParagraphs(lines)
	}

	return c.chunkByHeadings(lines, headings)
}

// boundary 章节边界，文档首尾作为 level-0 哨兵参与
type boundary struct {
	lineNumber int
	level      int
	text       string
}

func (c *HierarchicalChunker) chunkByHeadings(lines []string, headings []DetectedHeading) []Chunk {
	var chunks []Chunk

	boundaries := make([]boundary, 0, len(headings)+2)
	boundaries = append(boundaries, boundary{lineNumber: 0, level: 0})
	for _, h := range headings {
		boundaries = append(boundaries, boundary{lineNumber: h.LineNumber, level: h.Level, text: h.Text})
	}
	boundaries = append(boundaries, boundary{lineNumber: len(lines), level: 0})

	for i := 0; i < len(boundaries)-1; i++ {
		start := boundaries[i].lineNumber
		end := boundaries[i+1].lineNumber
		heading := boundaries[i].text
		headingLevel := boundaries[i].level

		sectionText := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if sectionText == "" {
			continue
		}

		tokens := CountTokens(sectionText)
		if tokens <= maxChunkTokens {
			chunks = append(chunks, Chunk{
				StartLine:       start,
				EndLine:         end - 1,
				Heading:         heading,
				HeadingLevel:    headingLevel,
				ParentSectionID: findParentSection(headings, start, headingLevel),
				Text:            sectionText,
				WordCount:       CountWords(sectionText),
				TokenCount:      tokens,
			})
		} else {
			chunks = append(chunks, c.splitLargeSection(lines[start:end], start, heading, headingLevel)...)
		}
	}

	// 过滤过短段落；若全部被过滤则整体保留，避免丢失短文档
	filtered := make([]Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if ch.TokenCount >= minChunkTokens {
			filtered = append(filtered, ch)
		}
	}
	if len(filtered) == 0 && len(chunks) > 0 {
		return chunks
	}
	return filtered
}

// splitLargeSection 章节超限：先找严格更深层级的子标题切分，仍超限时按行打包
func (c *HierarchicalChunker) splitLargeSection(sectionLines []string, startLine int, heading string, headingLevel int) []Chunk {
	var chunks []Chunk

	var subHeadings []DetectedHeading
	for _, h := range c.detector.Detect(sectionLines) {
		if headingLevel == 0 || h.Level > headingLevel {
			subHeadings = append(subHeadings, h)
		}
	}

	if len(subHeadings) == 0 {
		return c.packLines(sectionLines, startLine, heading, headingLevel)
	}

	for i := range subHeadings {
		subStart := subHeadings[i].LineNumber
		if i == 0 {
			subStart = 0
		}
		subEnd := len(sectionLines)
		if i < len(subHeadings)-1 {
			subEnd = subHeadings[i+1].LineNumber
		}

		text := strings.TrimSpace(strings.Join(sectionLines[subStart:subEnd], "\n"))
		tokens := CountTokens(text)

		if tokens <= maxChunkTokens {
			chunks = append(chunks, Chunk{
				StartLine:       startLine + subStart,
				EndLine:         startLine + subEnd - 1,
				Heading:         subHeadings[i].Text,
				HeadingLevel:    subHeadings[i].Level,
				ParentSectionID: heading,
				Text:            text,
				WordCount:       CountWords(text),
				TokenCount:      tokens,
			})
		} else {
			chunks = append(chunks, c.packLines(sectionLines[subStart:subEnd], startLine+subStart, subHeadings[i].Text, subHeadings[i].Level)...)
		}
	}

	return chunks
}

// packLines 逐行贪心打包直到 token 上限
func (c *HierarchicalChunker) packLines(lines []string, startLine int, heading string, headingLevel int) []Chunk {
	var chunks []Chunk
	var current []string
	chunkStart := startLine
	currentTokens := 0

	flush := func(endLine int) {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			chunks = append(chunks, Chunk{
				StartLine:       chunkStart,
				EndLine:         endLine,
				Heading:         heading,
				HeadingLevel:    headingLevel,
				ParentSectionID: heading,
				Text:            text,
				WordCount:       CountWords(text),
				TokenCount:      currentTokens,
			})
		}
	}

	for i, line := range lines {
		lineTokens := CountTokens(line)
		if currentTokens+lineTokens > maxChunkTokens && len(current) > 0 {
			flush(startLine + i - 1)
			current = []string{line}
			chunkStart = startLine + i
			currentTokens = lineTokens
		} else {
			current = append(current, line)
			currentTokens += lineTokens
		}
	}
	if len(current) > 0 {
		flush(startLine + len(lines) - 1)
	}

	return chunks
}

// chunkByParagraphs 无标题文档：全文逐行打包
func (c *HierarchicalChunker) chunkByParagraphs(lines []string) []Chunk {
	return c.packLines(lines, 0, "", 0)
}

// findParentSection 向前扫描所有标题，找层级严格更低的最近一个
func findParentSection(headings []DetectedHeading, lineNumber, currentLevel int) string {
	if currentLevel == 0 {
		return ""
	}
	for i := len(headings) - 1; i >= 0; i-- {
		if headings[i].LineNumber < lineNumber && headings[i].Level < currentLevel {
			return headings[i].Text
		}
	}
	return ""
}
