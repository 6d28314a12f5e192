package truncate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextUnderCapIsIdentity(t *testing.T) {
	assert.Equal(t, "short", Text("short", 8000))
}

func TestTextOverCapAppendsAnnotation(t *testing.T) {
	s := strings.Repeat("x", 20000)
	out := Text(s, 8000)
	assert.True(t, strings.HasSuffix(out, "... (truncated, 12000 more chars, ~3000 tokens)"))
	assert.True(t, strings.HasPrefix(out, strings.Repeat("x", 8000)))
}

func TestTextIdempotentUnderCap(t *testing.T) {
	s := strings.Repeat("x", 500)
	once := Text(s, 8000)
	twice := Text(once, 8000)
	assert.Equal(t, once, twice)
	assert.Equal(t, s, once)
}
