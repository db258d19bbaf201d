package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAllCapsHeading(t *testing.T) {
	d := NewHeadingDetector()

	lines := []string{"INTRODUCTION", "", "Some body text follows here."}
	headings := d.Detect(lines)

	require.Len(t, headings, 1)
	h := headings[0]
	assert.Equal(t, "INTRODUCTION", h.Text)
	assert.Equal(t, 0, h.LineNumber)
	assert.Equal(t, 1, h.Level)
	// all_caps(3) + title_case(2) + short(1) + blank(1)
	assert.Equal(t, 7, h.Score)
}

func TestDetectNumberedHeading(t *testing.T) {
	d := NewHeadingDetector()

	lines := []string{"1. Overview", "", "Body."}
	headings := d.Detect(lines)

	require.Len(t, headings, 1)
	assert.Equal(t, 1, headings[0].Level)
	// numbered(3) + short(1) + blank(1)
	assert.Equal(t, 5, headings[0].Score)
}

func TestDetectLevels(t *testing.T) {
	d := NewHeadingDetector()

	tests := []struct {
		line  string
		level int
	}{
		{"SECTION OVERVIEW", 1},
		{"2. Scope", 1},
		{"Chapter 3 The Middle", 1},
		{"2.1 Details", 2},
		{"Implementation Plan Overview:", 2},
	}

	for _, tt := range tests {
		headings := d.Detect([]string{tt.line, ""})
		require.Len(t, headings, 1, "line %q should qualify", tt.line)
		assert.Equal(t, tt.level, headings[0].Level, "line %q", tt.line)
	}
}

func TestQuestionsAreNotHeadings(t *testing.T) {
	d := NewHeadingDetector()

	headings := d.Detect([]string{"What is the budget?", ""})
	assert.Empty(t, headings)
}

func TestNegativeIndicatorPenalty(t *testing.T) {
	d := NewHeadingDetector()

	// 不含负面词时恰好达标，含负面词后跌破阈值
	with := d.Detect([]string{"3. Example", ""})
	without := d.Detect([]string{"3. Overview", ""})

	assert.Empty(t, with)
	assert.Len(t, without, 1)
}

func TestDetectIsDeterministic(t *testing.T) {
	d := NewHeadingDetector()

	lines := []string{
		"INTRODUCTION",
		"",
		"Some text.",
		"1. First Part",
		"more text",
		"1.1 Sub Part",
		"",
		"tail",
	}

	first := d.Detect(lines)
	second := d.Detect(lines)
	assert.Equal(t, first, second)
}

func TestBodyTextDoesNotQualify(t *testing.T) {
	d := NewHeadingDetector()

	headings := d.Detect([]string{
		"the quick brown fox jumps over the lazy dog and keeps going",
		"another plain sentence right after it",
	})
	assert.Empty(t, headings)
}
