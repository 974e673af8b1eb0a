package multimodal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fiscaldoc/internal/multimodal"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf and tabs", "NOTA\tFISCAL\r\nN 123\r\n", "NOTA FISCAL\nN 123"},
		{"multi spaces", "Valor    total:   R$ 10,00", "Valor total: R$ 10,00"},
		{"form feed", "page one\fpage two", "page one\n\npage two"},
		{"blank lines collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"trailing spaces", "line one   \nline two  ", "line one\nline two"},
		{"rule lines removed", "header\n-----------\nbody", "header\n\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, multimodal.NormalizeText(tt.in))
		})
	}
}

func TestSignalChars(t *testing.T) {
	assert.Equal(t, 0, multimodal.SignalChars("   \n\t "))
	assert.Equal(t, 4, multimodal.SignalChars("  ação \n"))
}
