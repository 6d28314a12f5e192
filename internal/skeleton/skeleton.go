// Package skeleton reduces a source file to a signature-plus-docstring
// summary: the skeleton extractor, component A of the navigator (the
// grammar registry it uses lives in internal/lang).
package skeleton

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/seanrobertwright/rlm-navigator/internal/lang"
)

// Extractor parses files into skeletons. It owns one tree-sitter parser per
// language; a single mutex serializes Parse calls since go-tree-sitter
// parsers aren't safe for concurrent use.
type Extractor struct {
	registry *lang.Registry
	mu       sync.Mutex
	parsers  map[lang.Language]*sitter.Parser
}

// NewExtractor builds an extractor against a resolved grammar registry.
func NewExtractor(reg *lang.Registry) *Extractor {
	return &Extractor{
		registry: reg,
		parsers:  make(map[lang.Language]*sitter.Parser),
	}
}

// Squeeze returns the skeleton text for an absolute file path. Unsupported
// extensions, unavailable grammars, and parse failures all degrade to the
// truncated-preview fallback rather than erroring.
func (e *Extractor) Squeeze(absPath string) (string, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", absPath, err)
	}

	name := filepath.Base(absPath)

	language, ok := lang.Detect(strings.ToLower(filepath.Ext(absPath)))
	if !ok {
		return fallbackSqueeze(name, content), nil
	}
	grammar := e.registry.Grammar(language)
	if grammar == nil {
		return fallbackSqueeze(name, content), nil
	}
	rules := lang.StructuralNodes(language)
	if len(rules) == 0 {
		return fallbackSqueeze(name, content), nil
	}

	tree, err := e.parse(language, grammar, content)
	if err != nil || tree == nil {
		return fallbackSqueeze(name, content), nil
	}

	var entries []skelEntry
	walk(tree.RootNode(), content, language, &entries, 0)

	return assemble(name, entries, countLines(content)), nil
}

func (e *Extractor) parse(language lang.Language, grammar *sitter.Language, content []byte) (*sitter.Tree, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	parser, ok := e.parsers[language]
	if !ok {
		parser = sitter.NewParser()
		parser.SetLanguage(grammar)
		e.parsers[language] = parser
	}
	return parser.ParseCtx(context.Background(), nil, content)
}

type skelEntry struct {
	signature string
	startLine int
	endLine   int
	depth     int
}

// walk mirrors the Python squeezer's recursion: a matched node is emitted
// and its subtree still descended (so nested methods gain depth); a
// non-matching node recurses at the same depth.
func walk(node *sitter.Node, source []byte, language lang.Language, out *[]skelEntry, depth int) {
	if node == nil {
		return
	}
	if _, matched := lang.IsStructural(language, node.Type()); matched {
		if sig := extractSignature(node, source, language); sig != "" {
			*out = append(*out, skelEntry{
				signature: sig,
				startLine: int(node.StartPoint().Row) + 1,
				endLine:   int(node.EndPoint().Row) + 1,
				depth:     depth,
			})
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), source, language, out, depth+1)
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), source, language, out, depth)
	}
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func extractSignature(node *sitter.Node, source []byte, language lang.Language) string {
	text := nodeText(node, source)
	lines := strings.Split(text, "\n")

	if language == lang.Python {
		switch node.Type() {
		case "class_definition":
			return strings.TrimRight(lines[0], " \t\r")
		case "function_definition":
			return extractPythonFunctionSignature(node, source, lines)
		}
	}

	if node.Type() == "export_statement" {
		first := strings.TrimRight(lines[0], " \t\r")
		if len(lines) > 1 {
			return first + " ..."
		}
		return first
	}

	return extractGenericSignature(lines)
}

func extractPythonFunctionSignature(node *sitter.Node, source []byte, lines []string) string {
	var sigLines []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		sigLines = append(sigLines, trimmed)
		if (strings.Contains(line, ":") && strings.Contains(line, "):")) || strings.HasSuffix(trimmed, ":") {
			break
		}
	}
	sig := strings.Join(sigLines, "\n")

	if doc, ok := extractPythonDocstring(node, source); ok {
		indent := strings.Repeat(" ", pythonIndent(node, source))
		return sig + "\n" + indent + "    " + doc
	}
	return sig
}

// extractPythonDocstring inspects only the first "block" child of the
// function node, and within it only the first expression_statement
// encountered — matching the Python squeezer's narrow, non-exhaustive scan.
func extractPythonDocstring(node *sitter.Node, source []byte) (string, bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "block" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			stmt := child.Child(j)
			if stmt.Type() != "expression_statement" {
				continue
			}
			for k := 0; k < int(stmt.ChildCount()); k++ {
				expr := stmt.Child(k)
				if expr.Type() == "string" {
					doc := strings.TrimSpace(nodeText(expr, source))
					docLines := strings.Split(doc, "\n")
					if len(docLines) > 3 {
						doc = strings.Join(docLines[:3], "\n") + "\n    ...\"\"\""
					}
					return doc, true
				}
			}
			break
		}
		break
	}
	return "", false
}

func pythonIndent(node *sitter.Node, source []byte) int {
	lineStart := bytes.LastIndexByte(source[:node.StartByte()], '\n') + 1
	return int(node.StartByte()) - lineStart
}

func extractGenericSignature(lines []string) string {
	first := strings.TrimRight(lines[0], " \t\r")
	if !strings.Contains(first, "{") && len(lines) > 1 {
		for i := 1; i < len(lines); i++ {
			line := lines[i]
			first += "\n" + strings.TrimRight(line, " \t\r")
			if strings.Contains(line, "{") {
				break
			}
			if i >= 3 {
				first += "\n    ..."
				break
			}
		}
	}
	return first
}

func assemble(name string, entries []skelEntry, totalLines int) string {
	if len(entries) == 0 {
		return fmt.Sprintf("# %s — no structural elements found (%d lines)", name, totalLines)
	}

	lines := []string{fmt.Sprintf("# %s — %d symbols, %d lines", name, len(entries), totalLines)}
	for _, e := range entries {
		indent := strings.Repeat("  ", e.depth)
		sigLines := strings.Split(e.signature, "\n")
		lines = append(lines, fmt.Sprintf("%s%s  # L%d-%d", indent, sigLines[0], e.startLine, e.endLine))
		for _, extra := range sigLines[1:] {
			lines = append(lines, indent+extra)
		}
		lines = append(lines, indent+"    ...")
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func fallbackSqueeze(name string, content []byte) string {
	text := string(content)
	lines := strings.Split(text, "\n")
	total := len(lines)

	previewLines := lines
	if total > 20 {
		previewLines = lines[:20]
	}
	preview := strings.Join(previewLines, "\n")
	if total > 20 {
		preview += fmt.Sprintf("\n... (%d more lines)", total-20)
	}
	return fmt.Sprintf("# %s — unsupported language (%d lines)\n%s", name, total, preview)
}

// countLines matches the navigator's line-counting convention: a trailing
// newline does not count as starting a new, empty, final line.
func countLines(b []byte) int {
	n := bytes.Count(b, []byte("\n"))
	if len(b) > 0 && b[len(b)-1] != '\n' {
		n++
	}
	return n
}

// IsLikelyText reports whether the first 8 KiB of content decode as UTF-8,
// the gate the chunk store uses to decide whether a file is chunkable.
func IsLikelyText(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	return utf8.Valid(probe)
}
