package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSSE(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "plain", "plain"},
		{"newline escaped", "a\nb", "a\\nb"},
		{"crlf escaped once", "a\r\nb", "a\\nb"},
		{"bare carriage return escaped", "a\rb", "a\\nb"},
		{"mixed terminators", "a\r\nb\rc\nd", "a\\nb\\nc\\nd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSSE(tt.input))
		})
	}
}
