package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanContent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"<b>bold</b> text", "<b>bold</b> text"},
		{"<script>alert(1)</script>", ""},
		{"a < b", "a &lt; b"},
		{"   <script>x</script>   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanContent(tt.in), "input %q", tt.in)
	}
}
