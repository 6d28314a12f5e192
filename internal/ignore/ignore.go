// Package ignore holds the directory ignore set shared by the watcher,
// chunk store, tree/search services, and the sandbox's grep helper.
package ignore

import "strings"

// Dirs is the fixed set of directory names traversal never descends into,
// taken from the original daemon's IGNORED_DIRS plus the Go-specific
// vendor/ convention and this project's own state directories.
var Dirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".env":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".nuxt":        true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
	".rlm":         true,
	"vendor":       true,
	".claude":      true,
}

// ShouldSkip reports whether a directory entry name must never be descended
// into: a member of Dirs, or any name starting with a dot.
func ShouldSkip(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return Dirs[name]
}
