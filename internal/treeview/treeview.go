// Package treeview builds bounded-depth directory listings and runs
// substring search over skeletons, component F of the navigator.
package treeview

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/seanrobertwright/rlm-navigator/internal/ignore"
	"github.com/seanrobertwright/rlm-navigator/internal/lang"
)

// Node is one entry in a tree listing.
type Node struct {
	Type     string `json:"type"` // "dir" or "file"
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size,omitempty"`
	Language string `json:"language,omitempty"`
	Children int    `json:"children,omitempty"`
	Entries  []Node `json:"entries,omitempty"`
}

// Match is one search hit within a file.
type Match struct {
	Path    string   `json:"path"`
	Matches []string `json:"matches"`
}

// SkeletonSource supplies the skeleton text for a file, satisfied by
// *skelcache.Cache.
type SkeletonSource interface {
	Get(absPath string) (skeleton string, ok bool, err error)
}

// Service ties tree listing and search to a project root.
type Service struct {
	root     string
	cache    SkeletonSource
	fileCap  int
	lineCap  int
}

// New builds a tree/search service.
func New(root string, cache SkeletonSource, fileCap, lineCap int) *Service {
	return &Service{root: root, cache: cache, fileCap: fileCap, lineCap: lineCap}
}

// Tree lists rel (relative to root, "" for the root itself) to maxDepth.
// Entries are sorted directories-first, then case-insensitively by name.
// Past maxDepth a directory reports only its immediate child count.
func (s *Service) Tree(rel string, maxDepth int) (Node, error) {
	absPath := filepath.Join(s.root, filepath.FromSlash(rel))
	return s.buildNode(absPath, rel, 0, maxDepth)
}

func (s *Service) buildNode(absPath, rel string, depth, maxDepth int) (Node, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return Node{}, err
	}
	name := filepath.Base(absPath)
	relPath := filepath.ToSlash(rel)

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(name))
		language := ""
		if l, ok := lang.Detect(ext); ok {
			language = string(l)
		}
		return Node{Type: "file", Name: name, Path: relPath, Size: info.Size(), Language: language}, nil
	}

	children, err := listDir(absPath)
	if err != nil {
		// permission-denied directories yield an empty entry list
		return Node{Type: "dir", Name: name, Path: relPath, Children: 0}, nil
	}

	node := Node{Type: "dir", Name: name, Path: relPath, Children: len(children)}
	if depth > maxDepth {
		return node, nil
	}

	entries := make([]Node, 0, len(children))
	for _, childInfo := range children {
		childAbs := filepath.Join(absPath, childInfo.Name())
		childRel := filepath.Join(rel, childInfo.Name())
		child, err := s.buildNode(childAbs, childRel, depth+1, maxDepth)
		if err != nil {
			continue
		}
		entries = append(entries, child)
	}
	node.Entries = entries
	return node, nil
}

func listDir(absPath string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, err
	}
	var infos []os.FileInfo
	for _, e := range entries {
		if ignore.ShouldSkip(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].IsDir() != infos[j].IsDir() {
			return infos[i].IsDir()
		}
		return strings.ToLower(infos[i].Name()) < strings.ToLower(infos[j].Name())
	})
	return infos, nil
}

// Search walks the subtree at rel, matching query case-insensitively
// against each supported file's skeleton. Up to lineCap matching lines per
// file and fileCap files total are returned; the global cap halts
// iteration rather than filtering after the fact.
func (s *Service) Search(query, rel string) ([]Match, error) {
	root := filepath.Join(s.root, filepath.FromSlash(rel))
	needle := strings.ToLower(query)

	var results []Match
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if len(results) >= s.fileCap {
			return filepath.SkipAll
		}
		if info.IsDir() {
			if path != root && ignore.ShouldSkip(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.ShouldSkip(info.Name()) {
			return nil
		}
		if _, ok := lang.Detect(strings.ToLower(filepath.Ext(path))); !ok {
			return nil
		}

		skel, ok, err := s.cache.Get(path)
		if err != nil || !ok {
			return nil
		}

		var matches []string
		for _, line := range strings.Split(skel, "\n") {
			if strings.Contains(strings.ToLower(line), needle) {
				matches = append(matches, strings.TrimSpace(line))
				if len(matches) >= s.lineCap {
					break
				}
			}
		}
		if len(matches) > 0 {
			relFile, _ := filepath.Rel(s.root, path)
			results = append(results, Match{Path: filepath.ToSlash(relFile), Matches: matches})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []Match{}
	}
	return results, nil
}

// ParseMaxDepth parses the max_depth request argument, defaulting to 4.
func ParseMaxDepth(raw string) int {
	if raw == "" {
		return 4
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 4
	}
	return n
}
