package sandbox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/ignore"
)

// touch is the per-call record of which source files a helper observed,
// destined to be merged additively into the namespace's dependency map.
type touch struct {
	files map[string]int64
}

func newTouch() touch {
	return touch{files: make(map[string]int64)}
}

func (t touch) record(absPath string) {
	info, err := os.Stat(absPath)
	if err != nil {
		return
	}
	t.files[absPath] = info.ModTime().UnixNano()
}

// helperError stands in for the exception a misused helper would raise in
// the original: a plain error string surfaced in the exec response.
type helperError struct{ msg string }

func (e helperError) Error() string { return e.msg }

func errf(format string, args ...interface{}) error {
	return helperError{msg: fmt.Sprintf(format, args...)}
}

// peek returns a window of lines from a file, each prefixed with its
// 1-based line number in the original's "%4d | " format.
func peek(root string, t touch, rel string, start, end int) (string, error) {
	abs, err := confine(root, rel)
	if err != nil {
		return "", err
	}
	lines, err := readAllLines(abs)
	if err != nil {
		return "", errf("peek: %v", err)
	}
	t.record(abs)

	if start < 1 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", nil
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%4d | %s\n", i, lines[i-1])
	}
	return b.String(), nil
}

// grep scans text files under root for a regular expression, skipping the
// same ignored directories as the watcher and tree-view components.
func grep(root string, t touch, pattern, under string, maxResults int) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", errf("grep: invalid pattern: %v", err)
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	searchRoot, err := confine(root, under)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	count := 0
	walkErr := filepath.Walk(searchRoot, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if count >= maxResults {
			return filepath.SkipAll
		}
		if info.IsDir() {
			if ignore.ShouldSkip(info.Name()) && p != searchRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.ShouldSkip(info.Name()) {
			return nil
		}
		lines, err := readAllLines(p)
		if err != nil {
			return nil
		}
		matchedFile := false
		for i, line := range lines {
			if count >= maxResults {
				return filepath.SkipAll
			}
			if re.MatchString(line) {
				rel, _ := filepath.Rel(root, p)
				fmt.Fprintf(&b, "%s:%d: %s\n", filepath.ToSlash(rel), i+1, line)
				count++
				matchedFile = true
			}
		}
		if matchedFile {
			t.record(p)
		}
		return nil
	})
	if walkErr != nil {
		return "", errf("grep: %v", walkErr)
	}
	return b.String(), nil
}

// chunkIndices computes the (start, end) line windows a file would be split
// into at the given size/overlap and returns the indices of the windows
// overlapping [startLine, endLine], purely from the file's current line
// count — it does not require the file to already be in the chunk store.
func chunkIndices(root string, t touch, rel string, startLine, endLine, size, overlap int) (string, error) {
	abs, err := confine(root, rel)
	if err != nil {
		return "", err
	}
	lines, err := readAllLines(abs)
	if err != nil {
		return "", errf("chunk_indices: %v", err)
	}
	t.record(abs)

	bounds := chunkstore.Boundaries(len(lines), size, overlap)
	var idx []string
	for i, b := range bounds {
		if b.End < startLine {
			continue
		}
		if endLine > 0 && b.Start > endLine {
			break
		}
		idx = append(idx, fmt.Sprintf("%d", i))
	}
	return strings.Join(idx, ","), nil
}

// writeChunks splits a file into (start, end) line windows at the given
// size/overlap and materializes each window to its own file under outDir
// (the sandbox scratch directory by default), each beginning with a
// "# <path> lines <start>-<end>" header. It returns the list of written
// paths, comma-joined.
func writeChunks(root, stateDir string, t touch, rel, outDir string, size, overlap int) (string, error) {
	abs, err := confine(root, rel)
	if err != nil {
		return "", err
	}
	lines, err := readAllLines(abs)
	if err != nil {
		return "", errf("write_chunks: %v", err)
	}
	t.record(abs)

	if outDir == "" {
		outDir = filepath.Join(stateDir, "scratch")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", errf("write_chunks: %v", err)
	}

	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	bounds := chunkstore.Boundaries(len(lines), size, overlap)
	var paths []string
	for i, b := range bounds {
		outPath := filepath.Join(outDir, fmt.Sprintf("%s_chunk_%d.txt", base, i))
		var body strings.Builder
		fmt.Fprintf(&body, "# %s lines %d-%d\n", filepath.ToSlash(rel), b.Start, b.End)
		for _, line := range lines[b.Start-1 : b.End] {
			body.WriteString(line)
			body.WriteByte('\n')
		}
		if err := os.WriteFile(outPath, []byte(body.String()), 0644); err != nil {
			return "", errf("write_chunks: %v", err)
		}
		paths = append(paths, outPath)
	}
	return strings.Join(paths, ","), nil
}

func confine(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
	rootClean := filepath.Clean(root)
	if clean != rootClean && !strings.HasPrefix(clean, rootClean+string(filepath.Separator)) {
		return "", errf("path %q escapes project root", rel)
	}
	return clean, nil
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
