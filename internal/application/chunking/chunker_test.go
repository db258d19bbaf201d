package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkByHeadings(t *testing.T) {
	c := NewHierarchicalChunker()

	text := strings.Join([]string{
		"BUDGET",
		"",
		"The budget is five hundred dollars allocated for the first project phase.",
		"",
		"TIMELINE",
		"",
		"The project ends in June after the final review has been completed.",
	}, "\n")

	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "BUDGET", chunks[0].Heading)
	assert.Equal(t, 1, chunks[0].HeadingLevel)
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Equal(t, "TIMELINE", chunks[1].Heading)
	assert.Equal(t, 4, chunks[1].StartLine)
	assert.Equal(t, 6, chunks[1].EndLine)
}

func TestChunkParentSection(t *testing.T) {
	c := NewHierarchicalChunker()

	text := strings.Join([]string{
		"INTRODUCTION",
		"",
		"Opening remarks about the overall document structure and its intent.",
		"",
		"1.1 Background",
		"",
		"Details about prior work and the context leading up to this effort.",
	}, "\n")

	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "1.1 Background", chunks[1].Heading)
	assert.Equal(t, 2, chunks[1].HeadingLevel)
	assert.Equal(t, "INTRODUCTION", chunks[1].ParentSectionID)
}

// 各段落行区间互不重叠，且覆盖全部非空行
func TestChunkPartitionInvariant(t *testing.T) {
	c := NewHierarchicalChunker()

	text := strings.Join([]string{
		"OVERVIEW",
		"",
		"First paragraph with a reasonable amount of words inside of it today.",
		"Second line of the first section with more filler words to count.",
		"",
		"DETAILS",
		"",
		"Another block of body text that belongs to the second section here.",
	}, "\n")

	lines := strings.Split(text, "\n")
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	covered := make(map[int]int)
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.StartLine, ch.EndLine)
		for l := ch.StartLine; l <= ch.EndLine; l++ {
			covered[l]++
		}
	}

	for lineNo, count := range covered {
		assert.Equal(t, 1, count, "line %d covered more than once", lineNo)
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		assert.Equal(t, 1, covered[i], "non-blank line %d not covered", i)
	}
}

// 无标题且低于 token 下限的短文档仍要产出至少一个段落
func TestChunkShortDocument(t *testing.T) {
	c := NewHierarchicalChunker()

	chunks := c.Chunk("hello world")

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartLine)
	assert.Empty(t, chunks[0].Heading)
}

// 仅由短段落组成的带标题文档不能被过滤为空
func TestChunkKeepsAllWhenEverythingIsShort(t *testing.T) {
	c := NewHierarchicalChunker()

	text := strings.Join([]string{
		"BUDGET",
		"",
		"Tiny.",
	}, "\n")

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
}

func TestChunkNoHeadingsPacksByTokenBudget(t *testing.T) {
	c := NewHierarchicalChunker()

	// 构造远超 5000 token 预算的纯文本
	line := strings.Repeat("word ", 200)
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	chunks := c.Chunk(sb.String())

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, ch.TokenCount, maxChunkTokens)
	}
}
