package skeleton

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrobertwright/rlm-navigator/internal/lang"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSqueezePythonClassAndMethod(t *testing.T) {
	reg := lang.NewRegistry()
	if !reg.IsAvailable(lang.Python) {
		t.Skip("python grammar unavailable in this build")
	}
	ex := NewExtractor(reg)

	src := "class A:\n    def m(self):\n        pass\n"
	path := writeTemp(t, "main.py", src)

	out, err := ex.Squeeze(path)
	require.NoError(t, err)

	assert.Contains(t, out, "class A:")
	assert.Contains(t, out, "# L1-3")
	assert.Contains(t, out, "  def m(self):")
	assert.Contains(t, out, "# L2-3")
	assert.Contains(t, out, "    ...")
}

func TestSqueezeEmptyFileYieldsHeaderOnly(t *testing.T) {
	reg := lang.NewRegistry()
	if !reg.IsAvailable(lang.Go) {
		t.Skip("go grammar unavailable in this build")
	}
	ex := NewExtractor(reg)

	path := writeTemp(t, "empty.go", "")
	out, err := ex.Squeeze(path)
	require.NoError(t, err)
	assert.Contains(t, out, "no structural elements found")
	assert.Contains(t, out, "(0 lines)")
}

func TestSqueezeIsIdempotent(t *testing.T) {
	reg := lang.NewRegistry()
	if !reg.IsAvailable(lang.Python) {
		t.Skip("python grammar unavailable in this build")
	}
	ex := NewExtractor(reg)
	path := writeTemp(t, "a.py", "def f():\n    return 1\n")

	first, err := ex.Squeeze(path)
	require.NoError(t, err)
	second, err := ex.Squeeze(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFallbackSqueezeUnsupportedExtension(t *testing.T) {
	reg := lang.NewRegistry()
	ex := NewExtractor(reg)

	lines := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		lines = append(lines, "line")
	}
	path := writeTemp(t, "data.txt", strings.Join(lines, "\n"))

	out, err := ex.Squeeze(path)
	require.NoError(t, err)
	assert.Contains(t, out, "unsupported language")
	assert.Contains(t, out, "more lines")
}

func TestCountLinesMatchesTrailingNewlineConvention(t *testing.T) {
	assert.Equal(t, 2, countLines([]byte("a\nb\n")))
	assert.Equal(t, 2, countLines([]byte("a\nb")))
	assert.Equal(t, 0, countLines([]byte("")))
}
