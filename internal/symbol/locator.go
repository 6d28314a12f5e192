// Package symbol locates a named symbol in a source file and returns its
// line range, component B of the navigator.
package symbol

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/seanrobertwright/rlm-navigator/internal/lang"
)

// Range is an inclusive 1-based line range.
type Range struct {
	StartLine int
	EndLine   int
}

// Locator finds symbols by name. It keeps its own small parser pool rather
// than sharing the skeleton extractor's, since the two components have
// independent call patterns (search is depth-first over ALL node types,
// not just the structural allow-list).
type Locator struct {
	registry *lang.Registry
	mu       sync.Mutex
	parsers  map[lang.Language]*sitter.Parser
}

// NewLocator builds a locator against a resolved grammar registry.
func NewLocator(reg *lang.Registry) *Locator {
	return &Locator{
		registry: reg,
		parsers:  make(map[lang.Language]*sitter.Parser),
	}
}

// Find returns the line range of the first AST node with an immediate
// identifier-style child whose text equals name. For Python files where
// tree-sitter finds nothing, a regexp-based fallback scans for def/class
// headers, standing in for the original's ast-module second pass.
func (l *Locator) Find(absPath, name string) (Range, bool, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return Range{}, false, fmt.Errorf("read %s: %w", absPath, err)
	}

	language, ok := lang.Detect(strings.ToLower(filepath.Ext(absPath)))
	if ok {
		if grammar := l.registry.Grammar(language); grammar != nil {
			tree, err := l.parse(language, grammar, content)
			if err == nil && tree != nil {
				if r, found := findInTree(tree.RootNode(), content, name); found {
					return r, true, nil
				}
			}
		}
	}

	if strings.EqualFold(filepath.Ext(absPath), ".py") {
		if r, found := findPythonFallback(content, name); found {
			return r, true, nil
		}
	}

	return Range{}, false, nil
}

func (l *Locator) parse(language lang.Language, grammar *sitter.Language, content []byte) (*sitter.Tree, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	parser, ok := l.parsers[language]
	if !ok {
		parser = sitter.NewParser()
		parser.SetLanguage(grammar)
		l.parsers[language] = parser
	}
	return parser.ParseCtx(context.Background(), nil, content)
}

// findInTree checks every immediate child of a node for a name-bearing
// identifier matching name before recursing; first match wins, depth-first,
// and it searches every node type, not only the skeleton allow-list.
func findInTree(node *sitter.Node, source []byte, name string) (Range, bool) {
	if node == nil {
		return Range{}, false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if lang.IsIdentifierChildType(child.Type()) {
			text := string(source[child.StartByte():child.EndByte()])
			if text == name {
				return Range{
					StartLine: int(node.StartPoint().Row) + 1,
					EndLine:   int(node.EndPoint().Row) + 1,
				}, true
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if r, found := findInTree(node.Child(i), source, name); found {
			return r, true
		}
	}
	return Range{}, false
}

var pyDefRe = regexp.MustCompile(`^([ \t]*)(?:async\s+def|def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// findPythonFallback is a line-oriented stand-in for ast.walk over
// FunctionDef/AsyncFunctionDef/ClassDef nodes: it finds the first def/class
// header matching name and closes the range at the next line with
// indentation less than or equal to the header's own indentation.
func findPythonFallback(content []byte, name string) (Range, bool) {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		m := pyDefRe.FindStringSubmatch(line)
		if m == nil || m[2] != name {
			continue
		}
		indent := len(m[1])
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimLeft(lines[j], " \t")
			if trimmed == "" {
				continue
			}
			if len(lines[j])-len(trimmed) <= indent {
				end = j
				break
			}
		}
		for end > i+1 && strings.TrimSpace(lines[end-1]) == "" {
			end--
		}
		return Range{StartLine: i + 1, EndLine: end}, true
	}
	return Range{}, false
}
