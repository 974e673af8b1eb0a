package inference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fiscaldoc/internal/inference"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nThanks!", `{"a":{"b":2}}`},
		{"array", "```json\n[1,2]\n```", `[1,2]`},
		{"no json", "nothing here", "nothing here"},
		{"whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inference.StripCodeFences(tt.in))
		})
	}
}
