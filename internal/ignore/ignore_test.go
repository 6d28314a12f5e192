package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSkipDotPrefixedNames(t *testing.T) {
	assert.True(t, ShouldSkip(".git"))
	assert.True(t, ShouldSkip(".hidden"))
	assert.True(t, ShouldSkip("."))
}

func TestShouldSkipNamedDirectories(t *testing.T) {
	for _, name := range []string{"node_modules", "__pycache__", "venv", "dist", "build", "target", "vendor", ".rlm"} {
		assert.True(t, ShouldSkip(name), "expected %q to be skipped", name)
	}
}

func TestShouldSkipAllowsOrdinarySourceDirectories(t *testing.T) {
	for _, name := range []string{"src", "internal", "cmd", "pkg", "lib"} {
		assert.False(t, ShouldSkip(name), "expected %q to be traversed", name)
	}
}
