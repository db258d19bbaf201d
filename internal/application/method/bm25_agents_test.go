package method

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ilka-rag-api/internal/domain/entity"
)

func TestExpandQuery(t *testing.T) {
	analysis := &entity.QueryAnalysis{
		Synonyms:     []string{"spending", "allocation", "funds", "money"},
		RelatedTerms: []string{"fiscal", "quarterly", "annual"},
	}

	// 同义词取前 3，相关词取前 2
	got := expandQuery("what is the budget", analysis)
	assert.Equal(t, "what is the budget spending allocation funds fiscal quarterly", got)
}

func TestExpandQueryWithoutAnalysis(t *testing.T) {
	assert.Equal(t, "what is the budget", expandQuery("what is the budget", nil))
}
