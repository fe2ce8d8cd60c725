package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"score\": 80}\n```",
			expected: `{"score": 80}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"score\": 80}\n```",
			expected: `{"score": 80}`,
		},
		{
			name:     "plain JSON",
			input:    `{"violations": []}`,
			expected: `{"violations": []}`,
		},
		{
			name:     "preamble before JSON object",
			input:    "Here is the diagnosis:\n{\"summary\": \"ok\"}",
			expected: `{"summary": "ok"}`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"summary\": \"ok\"}\n\nLet me know if you need anything else!",
			expected: `{"summary": "ok"}`,
		},
		{
			name:     "braces inside strings",
			input:    `Result: {"evidence": "eco {green} }"}`,
			expected: `{"evidence": "eco {green} }"}`,
		},
		{
			name:     "escaped quotes",
			input:    `{"evidence": "He said \"100% green\""}`,
			expected: `{"evidence": "He said \"100% green\""}`,
		},
		{
			name:     "no JSON",
			input:    "I cannot help with that.",
			expected: "I cannot help with that.",
		},
		{
			name:     "unbalanced",
			input:    `{"summary": "cut off`,
			expected: `{"summary": "cut off`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONValue(t *testing.T) {
	got, ok := extractJSONValue(`[{"id": 1}, {"id": 2}] extra`)
	assert.True(t, ok)
	assert.Equal(t, `[{"id": 1}, {"id": 2}]`, got)

	_, ok = extractJSONValue("")
	assert.False(t, ok)
}
