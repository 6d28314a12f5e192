// Package chunkstore maintains an on-disk mirror of fixed-size overlapping
// line windows for every text file in the project, component D of the
// navigator.
package chunkstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seanrobertwright/rlm-navigator/internal/ignore"
	"github.com/seanrobertwright/rlm-navigator/internal/skeleton"
)

// Manifest seals a file's chunk set.
type Manifest struct {
	TotalChunks int       `json:"total_chunks"`
	ChunkSize   int       `json:"chunk_size"`
	Overlap     int       `json:"overlap"`
	TotalLines  int       `json:"total_lines"`
	Mtime       time.Time `json:"mtime"`
}

// Bound is an inclusive 1-based line window.
type Bound struct {
	Start int
	End   int
}

// Boundaries replays the window recurrence: starting at line 1, windows of
// size chunkSize advance by chunkSize-overlap lines, the final window
// truncated to totalLines. Config validation already rejects
// overlap >= chunkSize, the pathological regime where this would never
// reach totalLines.
func Boundaries(totalLines, chunkSize, overlap int) []Bound {
	if totalLines <= 0 {
		return nil
	}
	var bounds []Bound
	start := 1
	for {
		end := start + chunkSize - 1
		if end > totalLines {
			end = totalLines
		}
		bounds = append(bounds, Bound{Start: start, End: end})
		if end == totalLines {
			break
		}
		start = end + 1 - overlap
	}
	return bounds
}

// Store manages chunk directories under root. No in-process lock guards
// reads and writes: per-file atomicity comes from writing to a temporary
// sibling directory and renaming it into place, so a reader never sees a
// partial write. The old directory is removed just before the rename, so
// in that short window a reader finds no chunk set (reported as not ready).
type Store struct {
	projectRoot string
	stateRoot   string
	chunkSize   int
	overlap     int
}

// New builds a store. stateRoot is the directory chunk directories are
// written under (mirroring the source tree's relative paths beneath it).
func New(projectRoot, stateRoot string, chunkSize, overlap int) *Store {
	return &Store{
		projectRoot: projectRoot,
		stateRoot:   stateRoot,
		chunkSize:   chunkSize,
		overlap:     overlap,
	}
}

func (s *Store) chunkDir(rel string) string {
	return filepath.Join(s.stateRoot, filepath.FromSlash(rel))
}

// Update (re)chunks a single file if its manifest is missing or stale.
// Non-text files (failing the UTF-8 probe) are skipped, not an error.
func (s *Store) Update(rel string) error {
	absSrc := filepath.Join(s.projectRoot, filepath.FromSlash(rel))
	info, err := os.Stat(absSrc)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	mtime := info.ModTime()

	dir := s.chunkDir(rel)
	if existing, err := readManifest(dir); err == nil && existing.Mtime.Equal(mtime) {
		return nil
	}

	probe, err := readProbe(absSrc, 8192)
	if err != nil {
		return fmt.Errorf("probe %s: %w", rel, err)
	}
	if !skeleton.IsLikelyText(probe) {
		return nil
	}

	lines, err := readLines(absSrc)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}

	bounds := Boundaries(len(lines), s.chunkSize, s.overlap)

	tmp := dir + ".tmp-" + fmt.Sprintf("%d", time.Now().UnixNano())
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("create temp chunk dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for i, b := range bounds {
		header := fmt.Sprintf("# %s lines %d-%d\n", rel, b.Start, b.End)
		body := strings.Join(lines[b.Start-1:b.End], "\n")
		if b.End-b.Start+1 > 0 {
			body += "\n"
		}
		name := fmt.Sprintf("chunk_%03d.txt", i)
		if err := os.WriteFile(filepath.Join(tmp, name), []byte(header+body), 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	manifest := Manifest{
		TotalChunks: len(bounds),
		ChunkSize:   s.chunkSize,
		Overlap:     s.overlap,
		TotalLines:  len(lines),
		Mtime:       mtime,
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "manifest.json"), manifestBytes, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fmt.Errorf("create chunk parent dir: %w", err)
	}
	os.RemoveAll(dir)
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("rename chunk dir: %w", err)
	}
	return nil
}

// Remove deletes the chunk directory for a deleted source file.
func (s *Store) Remove(rel string) error {
	if err := os.RemoveAll(s.chunkDir(rel)); err != nil {
		return fmt.Errorf("remove chunk dir for %s: %w", rel, err)
	}
	return nil
}

// Status reports whether a file's chunk set is ready, along with its
// manifest when it is.
func (s *Store) Status(rel string) (manifest Manifest, ready bool) {
	m, err := readManifest(s.chunkDir(rel))
	if err != nil {
		return Manifest{}, false
	}
	return m, true
}

// Read returns a chunk's raw bytes and the line range it covers, the range
// reconstructed by replaying the boundary recurrence up to index i.
func (s *Store) Read(rel string, index int) (content []byte, bound Bound, manifest Manifest, err error) {
	manifest, ready := s.Status(rel)
	if !ready {
		return nil, Bound{}, Manifest{}, fmt.Errorf("chunk set not ready for %s", rel)
	}
	if index < 0 || index >= manifest.TotalChunks {
		return nil, Bound{}, Manifest{}, fmt.Errorf("chunk index %d out of range (0-%d)", index, manifest.TotalChunks-1)
	}

	bounds := Boundaries(manifest.TotalLines, manifest.ChunkSize, manifest.Overlap)
	if index >= len(bounds) {
		return nil, Bound{}, Manifest{}, fmt.Errorf("chunk index %d out of range", index)
	}

	name := fmt.Sprintf("chunk_%03d.txt", index)
	content, err = os.ReadFile(filepath.Join(s.chunkDir(rel), name))
	if err != nil {
		return nil, Bound{}, Manifest{}, fmt.Errorf("read chunk %d for %s: %w", index, rel, err)
	}
	return content, bounds[index], manifest, nil
}

// ScanAll walks the project tree honoring the ignore set and submits every
// text file to Update. Intended to run in its own goroutine at startup; it
// does not block request serving, and individual file errors are logged by
// the caller rather than aborting the scan.
func (s *Store) ScanAll(onError func(rel string, err error)) {
	filepath.Walk(s.projectRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name := info.Name()
		if info.IsDir() {
			if path != s.projectRoot && ignore.ShouldSkip(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore.ShouldSkip(name) {
			return nil
		}
		rel, err := filepath.Rel(s.projectRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if err := s.Update(rel); err != nil && onError != nil {
			onError(rel, err)
		}
		return nil
	})
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func readProbe(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
