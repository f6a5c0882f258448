package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `  [{"a":1}] `, `[{"a":1}]`},
		{"json fence", "```json\n[1, 2]\n```", "[1, 2]"},
		{"bare fence", "```\n{\"x\": true}\n```", `{"x": true}`},
		{"fence without tag line", "```[1]\n```", "[1]"},
		{"single line tagged", "```json [3]```", "[3]"},
		{"unterminated", "```json\n[4]", "[4]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestRequiresJSONOutput(t *testing.T) {
	assert.True(t, requiresJSONOutput("", "Return a JSON array of tasks"))
	assert.False(t, requiresJSONOutput("", "Say hello"))
}
