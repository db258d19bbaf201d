// Package chunking 提供文档切分能力
package chunking

import (
	"regexp"
	"strings"
)

const (
	minHeadingScore  = 5
	maxHeadingLength = 120
)

// negativeIndicators 出现即表明大概率不是标题的词
var negativeIndicators = []string{
	"note", "important", "warning", "example", "see", "refer", "also",
}

// titleCaseArticles 标题大小写判断中豁免的冠词/短词
var titleCaseArticles = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true, "for": true,
}

var (
	numberedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\.`),
		regexp.MustCompile(`^\d+\.\d+`),
		regexp.MustCompile(`^\d+\.\d+\.\d+`),
		regexp.MustCompile(`^\(\d+\)`),
		regexp.MustCompile(`^[A-Z]\.`),
		regexp.MustCompile(`^[A-Z]\.\d+`),
		regexp.MustCompile(`(?i)^[ivxlcdm]+\.`), // 罗马数字
	}

	sectionMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^section\s+\d+`),
		regexp.MustCompile(`(?i)^chapter\s+\d+`),
		regexp.MustCompile(`(?i)^part\s+[a-z0-9]+`),
		regexp.MustCompile(`(?i)^article\s+\d+`),
		regexp.MustCompile(`(?i)^appendix\s+[a-z]`),
	}

	levelOneNumberRe   = regexp.MustCompile(`^\d+\.\s`)
	levelTwoNumberRe   = regexp.MustCompile(`^\d+\.\d+\s`)
	levelThreeNumberRe = regexp.MustCompile(`^\d+\.\d+\.\d+\s`)
	capitalStartRe     = regexp.MustCompile(`^[A-Z]`)
)

// HeadingSignals 标题判定信号
type HeadingSignals struct {
	AllCaps          bool `json:"all_caps"`
	Numbered         bool `json:"numbered"`
	TitleCase        bool `json:"title_case"`
	ShortLength      bool `json:"short_length"`
	FollowedByBlank  bool `json:"followed_by_blank"`
	ColonEnded       bool `json:"colon_ended"`
	HasSectionMarker bool `json:"contains_section_marker"`
}

// DetectedHeading 探测出的标题
type DetectedHeading struct {
	Text       string         `json:"text"`
	LineNumber int            `json:"line_number"`
	Level      int            `json:"level"`
	Score      int            `json:"score"`
	Signals    HeadingSignals `json:"signals"`
}

// HeadingDetector 基于加权启发式信号的标题探测器
type HeadingDetector struct{}

// NewHeadingDetector 创建标题探测器
func NewHeadingDetector() *HeadingDetector {
	return &HeadingDetector{}
}

// Detect 逐行打分，返回得分达标的标题列表（按行号有序）
func (d *HeadingDetector) Detect(lines []string) []DetectedHeading {
	var headings []DetectedHeading

	for i := range lines {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		var nextLine string
		if i+1 < len(lines) {
			nextLine = lines[i+1]
		}

		signals := analyzeSignals(line, nextLine)
		score := calculateScore(signals, line)

		if score >= minHeadingScore {
			headings = append(headings, DetectedHeading{
				Text:       line,
				LineNumber: i,
				Level:      determineLevel(line, signals),
				Score:      score,
				Signals:    signals,
			})
		}
	}

	return headings
}

func analyzeSignals(line, nextLine string) HeadingSignals {
	return HeadingSignals{
		AllCaps:          isAllCaps(line),
		Numbered:         isNumbered(line),
		TitleCase:        isTitleCase(line),
		ShortLength:      len(line) < maxHeadingLength,
		FollowedByBlank:  strings.TrimSpace(nextLine) == "",
		ColonEnded:       strings.HasSuffix(line, ":"),
		HasSectionMarker: hasSectionMarker(line),
	}
}

func calculateScore(signals HeadingSignals, line string) int {
	score := 0

	if signals.AllCaps {
		score += 3
	}
	if signals.Numbered {
		score += 3
	}
	if signals.TitleCase {
		score += 2
	}
	if signals.ShortLength {
		score++
	}
	if signals.FollowedByBlank {
		score++
	}
	if signals.ColonEnded {
		score++
	}
	if signals.HasSectionMarker {
		score += 3
	}

	if strings.Contains(line, "?") {
		score -= 2
	}
	if strings.Contains(line, "!") && !signals.AllCaps {
		score--
	}

	lowerLine := strings.ToLower(line)
	for _, indicator := range negativeIndicators {
		if strings.Contains(lowerLine, indicator) {
			score--
			break
		}
	}

	return score
}

// isAllCaps 字母中大写占比超过 0.8
func isAllCaps(line string) bool {
	letters := 0
	upper := 0
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
			if r >= 'A' && r <= 'Z' {
				upper++
			}
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper)/float64(letters) > 0.8
}

func isNumbered(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range numberedPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// isTitleCase 首词必须大写，冠词豁免，大写词占比超过 0.6
func isTitleCase(line string) bool {
	words := whitespaceRe.Split(line, -1)
	if len(words) == 0 {
		return false
	}

	capitalized := 0
	for idx, word := range words {
		if idx == 0 {
			if capitalStartRe.MatchString(word) {
				capitalized++
			}
			continue
		}
		if titleCaseArticles[strings.ToLower(word)] && len(word) <= 3 {
			capitalized++
			continue
		}
		if capitalStartRe.MatchString(word) {
			capitalized++
		}
	}

	return float64(capitalized)/float64(len(words)) > 0.6
}

func hasSectionMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range sectionMarkerPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// determineLevel 分级优先级：全大写/一级编号/章节标记 -> 1，二级编号 -> 2，
// 三级编号 -> 3，标题大小写 -> 2，其余 -> 3
func determineLevel(line string, signals HeadingSignals) int {
	if signals.AllCaps {
		return 1
	}
	if levelOneNumberRe.MatchString(line) {
		return 1
	}
	if signals.HasSectionMarker {
		return 1
	}
	if levelTwoNumberRe.MatchString(line) {
		return 2
	}
	if levelThreeNumberRe.MatchString(line) {
		return 3
	}
	if signals.TitleCase {
		return 2
	}
	return 3
}
