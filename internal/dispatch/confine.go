package dispatch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// errOutsideRoot is returned verbatim as the handler's error message.
const errOutsideRoot = "Path outside project root"

// resolve joins rel against root and verifies the result, after symlink
// resolution, remains a descendant of root. An empty rel resolves to root
// itself. The return value is absolute and cleaned; relPath is the
// root-relative, forward-slash form handlers use for chunk store and
// sandbox lookups.
func resolve(root, rel string) (absPath, relPath string, err error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("resolve root: %w", err)
	}
	rootAbs = filepath.Clean(rootAbs)

	joined := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	if joined != rootAbs && !strings.HasPrefix(joined, rootAbs+string(filepath.Separator)) {
		return "", "", errors.New(errOutsideRoot)
	}

	resolved, symErr := filepath.EvalSymlinks(joined)
	if symErr == nil {
		resolved = filepath.Clean(resolved)
		if resolved != rootAbs && !strings.HasPrefix(resolved, rootAbs+string(filepath.Separator)) {
			return "", "", errors.New(errOutsideRoot)
		}
		joined = resolved
	}
	// A symlink-resolution failure (e.g. the path does not exist yet) is not
	// itself a confinement violation; the lexical check above already holds.

	relOut, relErr := filepath.Rel(rootAbs, joined)
	if relErr != nil {
		return "", "", errors.New(errOutsideRoot)
	}
	return joined, filepath.ToSlash(relOut), nil
}
