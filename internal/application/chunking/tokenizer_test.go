package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "空文本",
			text: "   ",
			want: []string{},
		},
		{
			name: "混合句末标点",
			text: "The budget is $500. Is that final? Yes!",
			want: []string{"The budget is $500", "Is that final", "Yes"},
		},
		{
			name: "连续标点不产生空句",
			text: "Wait... really?! Fine.",
			want: []string{"Wait", "really", "Fine"},
		},
		{
			name: "引用标记保留在句内",
			text: "The project ends in June [2]. Funding was approved [1].",
			want: []string{"The project ends in June [2]", "Funding was approved [1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestCountTokensRoundsUp(t *testing.T) {
	// 5 词 * 1.3 = 6.5，向上取整为 7
	assert.Equal(t, 7, CountTokens("one two three four five"))
	assert.Equal(t, 0, CountTokens(""))
}
