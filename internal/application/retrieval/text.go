// Package retrieval 提供词法与语义检索能力
package retrieval

import (
	"regexp"
	"strings"
)

const minTermLength = 2

// stopWords BM25 分词时丢弃的停用词
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "that": true, "the": true,
	"to": true, "was": true, "will": true, "with": true, "this": true,
	"but": true, "they": true, "have": true, "had": true, "what": true,
	"when": true, "where": true, "who": true, "which": true, "why": true,
	"how": true,
}

var (
	nonWordRe      = regexp.MustCompile(`[^\w\s]`)
	spaceRe        = regexp.MustCompile(`\s+`)
	pureDigitRe    = regexp.MustCompile(`^\d+$`)
	letterDigitRe  = regexp.MustCompile(`([a-zA-Z])(\d+)`)
	digitLetterRe  = regexp.MustCompile(`(\d+)([a-zA-Z])`)
	hyphenUnderRe  = regexp.MustCompile(`[-_]`)
)

// Tokenize 分词：小写化、剔除标点、丢弃短词/停用词/纯数字
func Tokenize(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	parts := spaceRe.Split(strings.TrimSpace(cleaned), -1)

	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if len(token) < minTermLength {
			continue
		}
		if stopWords[token] {
			continue
		}
		if pureDigitRe.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// PreprocessQuery 查询归一化：拆分字母数字混排、连字符/下划线转空格、折叠空白
func PreprocessQuery(query string) string {
	normalized := letterDigitRe.ReplaceAllString(query, "$1 $2")
	normalized = digitLetterRe.ReplaceAllString(normalized, "$1 $2")
	normalized = hyphenUnderRe.ReplaceAllString(normalized, " ")
	normalized = spaceRe.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// ExpandTerms 朴素的召回扩展：单复数变体与 -ing/-ed 去后缀
func ExpandTerms(terms []string) []string {
	var expanded []string
	for _, term := range terms {
		if strings.HasSuffix(term, "s") && len(term) > 3 {
			expanded = append(expanded, term[:len(term)-1])
		}
		if !strings.HasSuffix(term, "s") && len(term) > 2 {
			expanded = append(expanded, term+"s")
		}
		if strings.HasSuffix(term, "ing") && len(term) > 5 {
			expanded = append(expanded, term[:len(term)-3])
		}
		if strings.HasSuffix(term, "ed") && len(term) > 4 {
			expanded = append(expanded, term[:len(term)-2])
		}
	}
	return expanded
}

func countTerms(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
