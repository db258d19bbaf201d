package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NEP2020", "NEP 2020"},
		{"2020NEP", "2020 NEP"},
		{"state-of-the-art", "state of the art"},
		{"snake_case_name", "snake case name"},
		{"  too   many    spaces  ", "too many spaces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PreprocessQuery(tt.in), "input %q", tt.in)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Budget, for 2020, is $500!")
	// 停用词、纯数字、单字符都被丢弃
	assert.Equal(t, []string{"budget"}, tokens)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize("the is a of"))
	assert.Empty(t, Tokenize(""))
}

func TestExpandTerms(t *testing.T) {
	expanded := ExpandTerms([]string{"budgets", "plan", "running", "funded"})

	assert.Contains(t, expanded, "budget")  // 去复数
	assert.Contains(t, expanded, "plans")   // 加复数
	assert.Contains(t, expanded, "runn")    // 去 -ing
	assert.Contains(t, expanded, "fund")    // 去 -ed
}

func TestExpandTermsLengthGuards(t *testing.T) {
	// 过短的词不做扩展变体
	assert.NotContains(t, ExpandTerms([]string{"as"}), "a")
	assert.NotContains(t, ExpandTerms([]string{"ing"}), "")
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("budget", "budget"))
	assert.Equal(t, 1, Levenshtein("budgit", "budget"))
	assert.Equal(t, 2, Levenshtein("budgt", "budgets"))
	assert.Equal(t, 8, Levenshtein("", "timeline"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
}
