// Package lang detects source languages by extension and holds the
// tree-sitter grammar registry used by the skeleton extractor and symbol
// locator, along with the per-language structural node allow-lists.
package lang

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is one of the eight structural-extraction targets.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Go         Language = "go"
	Rust       Language = "rust"
	Java       Language = "java"
	C          Language = "c"
	Cpp        Language = "cpp"
)

var extMap = map[string]Language{
	".py":   Python,
	".pyi":  Python,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".ts":   TypeScript,
	".mts":  TypeScript,
	".cts":  TypeScript,
	".tsx":  TSX,
	".go":   Go,
	".rs":   Rust,
	".java": Java,
	".c":    C,
	".h":    C,
	".cpp":  Cpp,
	".cc":   Cpp,
	".cxx":  Cpp,
	".hpp":  Cpp,
	".hh":   Cpp,
}

// Detect maps a file extension (including the leading dot) to a language.
// The second return value is false for unsupported extensions.
func Detect(ext string) (Language, bool) {
	l, ok := extMap[ext]
	return l, ok
}

// NodeRule pairs a tree-sitter node type with the extraction kind it maps to.
type NodeRule struct {
	NodeType string
	Kind     string // "class", "function", "method", "interface", ...
}

// structuralNodes mirrors the language table in the navigator's skeleton
// spec: the node types the extractor treats as a symbol worth a signature
// line. Order matters only for readability; matching is by set membership.
var structuralNodes = map[Language][]NodeRule{
	Python: {
		{"class_definition", "class"},
		{"function_definition", "function"},
	},
	JavaScript: {
		{"class_declaration", "class"},
		{"function_declaration", "function"},
		{"method_definition", "method"},
		{"arrow_function", "function"},
		{"export_statement", "export"},
	},
	TypeScript: {
		{"class_declaration", "class"},
		{"function_declaration", "function"},
		{"method_definition", "method"},
		{"interface_declaration", "interface"},
		{"type_alias_declaration", "type"},
		{"enum_declaration", "enum"},
		{"arrow_function", "function"},
		{"export_statement", "export"},
	},
	TSX: {
		{"class_declaration", "class"},
		{"function_declaration", "function"},
		{"method_definition", "method"},
		{"interface_declaration", "interface"},
		{"type_alias_declaration", "type"},
		{"enum_declaration", "enum"},
		{"arrow_function", "function"},
		{"export_statement", "export"},
	},
	Go: {
		{"function_declaration", "function"},
		{"method_declaration", "method"},
		{"type_declaration", "type"},
		{"interface_type", "interface"},
		{"struct_type", "struct"},
	},
	Rust: {
		{"function_item", "function"},
		{"impl_item", "class"},
		{"struct_item", "struct"},
		{"enum_item", "enum"},
		{"trait_item", "interface"},
		{"type_item", "type"},
	},
	Java: {
		{"class_declaration", "class"},
		{"method_declaration", "method"},
		{"interface_declaration", "interface"},
		{"enum_declaration", "enum"},
		{"constructor_declaration", "constructor"},
	},
	C: {
		{"function_definition", "function"},
		{"struct_specifier", "struct"},
		{"enum_specifier", "enum"},
		{"type_definition", "typedef"},
		{"declaration", "declaration"},
	},
	Cpp: {
		{"function_definition", "function"},
		{"class_specifier", "class"},
		{"struct_specifier", "struct"},
		{"enum_specifier", "enum"},
		{"namespace_definition", "namespace"},
		{"template_declaration", "template"},
	},
}

// identifierChildTypes lists the tree-sitter node types treated as a
// name-bearing child when the symbol locator looks for a match.
var identifierChildTypes = map[string]bool{
	"identifier":          true,
	"name":                true,
	"type_identifier":     true,
	"property_identifier": true,
	"field_identifier":    true,
}

// IsIdentifierChildType reports whether a node type counts as a
// name-bearing child for symbol lookup.
func IsIdentifierChildType(nodeType string) bool {
	return identifierChildTypes[nodeType]
}

// StructuralNodes returns the allow-list of (node type, kind) pairs the
// skeleton walker matches against for a language.
func StructuralNodes(l Language) []NodeRule {
	return structuralNodes[l]
}

// IsStructural reports whether a node type belongs to a language's
// structural allow-list, along with the extraction kind.
func IsStructural(l Language, nodeType string) (string, bool) {
	for _, rule := range structuralNodes[l] {
		if rule.NodeType == nodeType {
			return rule.Kind, true
		}
	}
	return "", false
}

// bodyDelimiter is the token the signature extractor scans for to find the
// end of a function/method header: ":" for python, "{" for brace languages.
var bodyDelimiter = map[Language]byte{
	Python:     ':',
	JavaScript: '{',
	TypeScript: '{',
	TSX:        '{',
	Go:         '{',
	Rust:       '{',
	Java:       '{',
	C:          '{',
	Cpp:        '{',
}

// BodyDelimiter returns the header-terminating byte for a language.
func BodyDelimiter(l Language) byte {
	if b, ok := bodyDelimiter[l]; ok {
		return b
	}
	return '{'
}

// Registry resolves (once, at construction) and caches tree-sitter grammars, reporting which
// of the eight languages are actually available at runtime (smacker's
// grammars are cgo-backed and could, in principle, fail to link on an
// exotic platform; the status action must not assume the full set).
type Registry struct {
	mu        sync.Mutex
	grammars  map[Language]*sitter.Language
	available map[Language]bool
	resolved  bool
}

// NewRegistry builds a registry and eagerly resolves every grammar so that
// Available() is cheap and consistent for the lifetime of the process.
func NewRegistry() *Registry {
	r := &Registry{
		grammars:  make(map[Language]*sitter.Language),
		available: make(map[Language]bool),
	}
	r.resolve()
	return r
}

func (r *Registry) resolve() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}
	r.resolved = true

	candidates := map[Language]func() *sitter.Language{
		Python:     python.GetLanguage,
		JavaScript: javascript.GetLanguage,
		TypeScript: typescript.GetLanguage,
		TSX:        tsx.GetLanguage,
		Go:         golang.GetLanguage,
		Rust:       rust.GetLanguage,
		Java:       java.GetLanguage,
		C:          c.GetLanguage,
		Cpp:        cpp.GetLanguage,
	}

	for l, get := range candidates {
		func() {
			defer func() {
				if recover() != nil {
					r.available[l] = false
				}
			}()
			g := get()
			if g != nil {
				r.grammars[l] = g
				r.available[l] = true
			}
		}()
	}
}

// Grammar returns the tree-sitter grammar for a language, or nil if it is
// unavailable.
func (r *Registry) Grammar(l Language) *sitter.Language {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grammars[l]
}

// IsAvailable reports whether a language's grammar resolved successfully.
func (r *Registry) IsAvailable(l Language) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available[l]
}

// AvailableLanguages returns the live set of supported languages, in a
// stable order, for reporting via the status action.
func (r *Registry) AvailableLanguages() []string {
	order := []Language{Python, JavaScript, TypeScript, TSX, Go, Rust, Java, C, Cpp}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(order))
	for _, l := range order {
		if r.available[l] {
			out = append(out, string(l))
		}
	}
	return out
}
