// Package sandbox implements the navigator's persisted scripting surface
// (component G): a small, fixed menu of file-probing operations dispatched
// through a restricted expression DSL, with per-variable dependency
// tracking so callers can detect when a previously computed value has gone
// stale because its source files changed underneath it.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/truncate"
)

const maxOutputChars = 8000

// Sandbox holds one project's persisted namespace plus the plumbing its
// helpers need: the project root for path confinement, and the directory
// scratch files (write_chunks) and the namespace snapshot are written
// under. The chunk store handle is kept for parity with the navigator's
// construction order even though the current helper set computes chunk
// boundaries directly rather than reading the store.
type Sandbox struct {
	root     string
	stateDir string
	nsPath   string
	store    *chunkstore.Store

	mu sync.Mutex
	ns namespace
}

// New constructs a sandbox bound to a project root and its chunk store.
// Call Init before the first Exec to load any persisted namespace.
func New(root, stateDir string, store *chunkstore.Store) *Sandbox {
	return &Sandbox{
		root:     root,
		stateDir: stateDir,
		nsPath:   filepath.Join(stateDir, "namespace.json"),
		store:    store,
		ns:       newNamespace(),
	}
}

// Init loads the persisted namespace, or starts a fresh one if none exists
// or the existing one cannot be parsed.
func (s *Sandbox) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ns = loadNamespace(s.nsPath)
	return nil
}

// ExecResult is the outcome of one DSL call: either a variable binding, a
// bare side effect, or an error in place of a raised exception.
type ExecResult struct {
	Variable string `json:"variable,omitempty"`
	Value    string `json:"value,omitempty"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Exec parses and runs one DSL expression, updating the namespace and its
// dependency tracking, then persists the namespace to disk.
func (s *Sandbox) Exec(code string) ExecResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := parseCall(code)
	if err != nil {
		return ExecResult{Error: err.Error()}
	}

	now := time.Now()
	s.ns.Meta.ExecCount++
	s.ns.Meta.LastExec = &now

	t := newTouch()
	result, err := s.dispatch(c, t)
	if err != nil {
		s.save()
		return ExecResult{Error: truncate.Text(err.Error(), maxOutputChars)}
	}

	if c.assignTo != "" {
		s.ns.Variables[c.assignTo] = result
		dep := s.ns.Deps.Variables[c.assignTo]
		if dep.Files == nil {
			dep = newFileDep()
		}
		dep.merge(t.files)
		s.ns.Deps.Variables[c.assignTo] = dep
	}

	s.save()

	out := ExecResult{Variable: c.assignTo}
	switch v := result.(type) {
	case string:
		out.Output = truncate.Text(v, maxOutputChars)
	default:
		out.Output = truncate.Text(fmt.Sprintf("%v", v), maxOutputChars)
	}
	return out
}

func (s *Sandbox) dispatch(c call, t touch) (interface{}, error) {
	switch c.helper {
	case "peek":
		rel := s.argString(c, 0, "path", "")
		start := s.argInt(c, 1, "start", 1)
		end := s.argInt(c, 2, "end", 0)
		return peek(s.root, t, rel, start, end)

	case "grep":
		pattern := s.argString(c, 0, "pattern", "")
		under := s.argString(c, 1, "under", "")
		maxResults := s.argInt(c, 2, "max_results", 50)
		return grep(s.root, t, pattern, under, maxResults)

	case "chunk_indices":
		rel := s.argString(c, 0, "path", "")
		size := s.argInt(c, 1, "size", 200)
		overlap := s.argInt(c, 2, "overlap", 20)
		start := s.argInt(c, 3, "start_line", 1)
		end := s.argInt(c, 4, "end_line", 0)
		return chunkIndices(s.root, t, rel, start, end, size, overlap)

	case "write_chunks":
		rel := s.argString(c, 0, "path", "")
		outDir := s.argString(c, 1, "out_dir", "")
		size := s.argInt(c, 2, "size", 200)
		overlap := s.argInt(c, 3, "overlap", 20)
		return writeChunks(s.root, s.stateDir, t, rel, outDir, size, overlap)

	case "add_buffer":
		name := s.argString(c, 0, "name", "")
		content := s.argString(c, 1, "content", "")
		sourceFile := s.argString(c, 2, "source_file", "")
		return s.addBuffer(t, name, content, sourceFile)

	default:
		return nil, errf("unknown helper %q", c.helper)
	}
}

func (s *Sandbox) addBuffer(t touch, name, content, sourceFile string) (interface{}, error) {
	if name == "" {
		return nil, errf("add_buffer: name is required")
	}
	s.ns.Buffers[name] = append(s.ns.Buffers[name], content)
	if sourceFile != "" {
		abs, err := confine(s.root, sourceFile)
		if err == nil {
			t.record(abs)
		}
	}
	dep := s.ns.Deps.Buffers[name]
	if dep.Files == nil {
		dep = newFileDep()
	}
	dep.merge(t.files)
	s.ns.Deps.Buffers[name] = dep
	return fmt.Sprintf("buffer %q now has %d entries", name, len(s.ns.Buffers[name])), nil
}

func (s *Sandbox) argString(c call, pos int, key, def string) string {
	if v, ok := c.kwargs[key]; ok {
		return v.asString(def)
	}
	if pos < len(c.args) {
		return c.args[pos].asString(def)
	}
	return def
}

func (s *Sandbox) argInt(c call, pos int, key string, def int) int {
	if v, ok := c.kwargs[key]; ok {
		return v.asInt(def)
	}
	if pos < len(c.args) {
		return c.args[pos].asInt(def)
	}
	return def
}

func (s *Sandbox) save() {
	_ = s.ns.save(s.nsPath)
}

// StatusResult summarizes the namespace's contents and whether any tracked
// dependency has gone stale since it was recorded.
type StatusResult struct {
	ExecCount int                 `json:"exec_count"`
	Variables []string            `json:"variables"`
	Buffers   []string            `json:"buffers"`
	Staleness map[string][]Stale  `json:"staleness"`
}

// Stale names one dependency entry found to have changed or disappeared.
type Stale struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Status reports the namespace's current contents plus a staleness scan:
// any tracked file whose mtime no longer matches the value recorded when
// its dependent variable or buffer was produced is surfaced as stale.
func (s *Sandbox) Status() StatusResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := StatusResult{
		ExecCount: s.ns.Meta.ExecCount,
		Staleness: map[string][]Stale{
			"variables": {},
			"buffers":   {},
		},
	}
	for name := range s.ns.Variables {
		res.Variables = append(res.Variables, name)
	}
	for name := range s.ns.Buffers {
		res.Buffers = append(res.Buffers, name)
	}

	res.Staleness["variables"] = s.checkStaleness(s.ns.Deps.Variables)
	res.Staleness["buffers"] = s.checkStaleness(s.ns.Deps.Buffers)
	return res
}

func (s *Sandbox) checkStaleness(deps map[string]fileDep) []Stale {
	var stale []Stale
	for name, dep := range deps {
		for file, recordedMtime := range dep.Files {
			info, err := os.Stat(file)
			if err != nil {
				stale = append(stale, Stale{Name: name, File: file, Reason: "deleted"})
				continue
			}
			if info.ModTime().UnixNano() != recordedMtime {
				stale = append(stale, Stale{Name: name, File: file, Reason: "modified"})
			}
		}
	}
	return stale
}

// Reset discards the namespace entirely and persists the empty state.
func (s *Sandbox) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ns = newNamespace()
	s.save()
}

// ExportBuffers returns every buffer's accumulated entries keyed by name,
// straight from the namespace — no scratch files are written.
func (s *Sandbox) ExportBuffers() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.ns.Buffers))
	for name, entries := range s.ns.Buffers {
		out[name] = append([]string(nil), entries...)
	}
	return out
}

// InvalidateDependencies implements watcher.DependencyNotifier: when rel
// changes on disk, every variable or buffer that recorded it as a
// dependency is reported back, prefixed "var:" or "buffer:". The records
// themselves are left as they are; staleness is detected by the mtime
// comparison at the next Status call.
func (s *Sandbox) InvalidateDependencies(rel string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	var touched []string
	for name, dep := range s.ns.Deps.Variables {
		if _, ok := dep.Files[abs]; ok {
			touched = append(touched, "var:"+name)
		}
	}
	for name, dep := range s.ns.Deps.Buffers {
		if _, ok := dep.Files[abs]; ok {
			touched = append(touched, "buffer:"+name)
		}
	}
	return touched
}
