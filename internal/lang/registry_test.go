package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMapsKnownExtensions(t *testing.T) {
	cases := map[string]Language{
		".py":  Python,
		".go":  Go,
		".ts":  TypeScript,
		".tsx": TSX,
		".rs":  Rust,
		".h":   C,
		".cpp": Cpp,
	}
	for ext, want := range cases {
		got, ok := Detect(ext)
		assert.True(t, ok, "expected %q to be detected", ext)
		assert.Equal(t, want, got)
	}
}

func TestDetectRejectsUnknownExtension(t *testing.T) {
	_, ok := Detect(".bin")
	assert.False(t, ok)
}

func TestIsIdentifierChildType(t *testing.T) {
	assert.True(t, IsIdentifierChildType("identifier"))
	assert.True(t, IsIdentifierChildType("type_identifier"))
	assert.False(t, IsIdentifierChildType("block"))
}

func TestIsStructuralMatchesAllowList(t *testing.T) {
	kind, ok := IsStructural(Go, "function_declaration")
	assert.True(t, ok)
	assert.Equal(t, "function", kind)

	_, ok = IsStructural(Go, "import_spec")
	assert.False(t, ok)
}

func TestStructuralNodesReturnsPerLanguageAllowList(t *testing.T) {
	rules := StructuralNodes(Python)
	assert.Len(t, rules, 2)
	assert.Equal(t, "class_definition", rules[0].NodeType)
}

func TestBodyDelimiterPerLanguage(t *testing.T) {
	assert.Equal(t, byte(':'), BodyDelimiter(Python))
	assert.Equal(t, byte('{'), BodyDelimiter(Go))
	assert.Equal(t, byte('{'), BodyDelimiter(Language("unknown")))
}

func TestNewRegistryResolvesAvailableLanguagesConsistently(t *testing.T) {
	r := NewRegistry()
	available := r.AvailableLanguages()

	for _, name := range available {
		l := Language(name)
		assert.True(t, r.IsAvailable(l))
		assert.NotNil(t, r.Grammar(l))
	}

	if !r.IsAvailable(Go) {
		t.Skip("go grammar unavailable in this environment")
	}
	assert.NotNil(t, r.Grammar(Go))
}

func TestAvailableLanguagesIsStableOrder(t *testing.T) {
	r := NewRegistry()
	first := r.AvailableLanguages()
	second := r.AvailableLanguages()
	assert.Equal(t, first, second)
}
