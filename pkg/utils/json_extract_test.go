package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject("noise {\"a\":1} trailing"))
	assert.Equal(t, `[1,2]`, ExtractJSONObject("prefix [1,2] suffix"))
	assert.Equal(t, `{"a":[1,2]}`, ExtractJSONObject(`{"a":[1,2]}`))
	assert.Equal(t, "plain text", ExtractJSONObject("  plain text  "))
	assert.Equal(t, "", ExtractJSONObject("   "))
}
