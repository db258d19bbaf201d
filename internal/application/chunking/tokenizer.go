// Package chunking 提供文档切分能力：标题探测、层级切分与 token 估算
package chunking

import (
	"math"
	"regexp"
	"strings"
)

// token 数按词数近似：平均每词约 1.3 个 token
const tokensPerWord = 1.3

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
)

// CountWords 统计词数
func CountWords(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	return len(whitespaceRe.Split(trimmed, -1))
}

// CountTokens 估算 token 数
func CountTokens(text string) int {
	return int(math.Ceil(float64(CountWords(text)) * tokensPerWord))
}

// SplitSentences 按句末标点切分为句子
func SplitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// TruncateToTokenLimit 截断文本到 token 上限
func TruncateToTokenLimit(text string, maxTokens int) string {
	if CountTokens(text) <= maxTokens {
		return text
	}
	words := whitespaceRe.Split(strings.TrimSpace(text), -1)
	target := int(float64(maxTokens) / tokensPerWord)
	if target > len(words) {
		target = len(words)
	}
	return strings.Join(words[:target], " ") + "..."
}
