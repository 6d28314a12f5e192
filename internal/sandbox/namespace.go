package sandbox

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// fileDep is a dependency record: the source files a name observed, each
// keyed by the mtime (as Unix nanoseconds) recorded at observation time.
type fileDep struct {
	Files map[string]int64 `json:"files"`
}

func newFileDep() fileDep {
	return fileDep{Files: make(map[string]int64)}
}

// merge additively folds other's entries into d: prior entries retained,
// new entries added, overlapping entries updated to the latest value.
func (d fileDep) merge(other map[string]int64) {
	for k, v := range other {
		d.Files[k] = v
	}
}

type deps struct {
	Variables map[string]fileDep `json:"variables"`
	Buffers   map[string]fileDep `json:"buffers"`
}

func newDeps() deps {
	return deps{
		Variables: make(map[string]fileDep),
		Buffers:   make(map[string]fileDep),
	}
}

type meta struct {
	ExecCount int        `json:"exec_count"`
	LastExec  *time.Time `json:"last_exec"`
}

// namespace is the JSON-safe snapshot persisted across process restarts,
// replacing the original's pickled reflective object graph with an
// explicit schema: a typed bag of JSON values, the buffers map, and the
// dependency map. Helper functions are never part of it; they are
// re-installed (as DSL dispatch targets) on every load.
type namespace struct {
	Variables map[string]interface{} `json:"variables"`
	Buffers   map[string][]string    `json:"buffers"`
	Meta      meta                   `json:"meta"`
	Deps      deps                   `json:"deps"`
}

func newNamespace() namespace {
	return namespace{
		Variables: make(map[string]interface{}),
		Buffers:   make(map[string][]string),
		Meta:      meta{},
		Deps:      newDeps(),
	}
}

func loadNamespace(path string) namespace {
	data, err := os.ReadFile(path)
	if err != nil {
		return newNamespace()
	}
	var ns namespace
	if err := json.Unmarshal(data, &ns); err != nil {
		return newNamespace()
	}
	if ns.Variables == nil {
		ns.Variables = make(map[string]interface{})
	}
	if ns.Buffers == nil {
		ns.Buffers = make(map[string][]string)
	}
	if ns.Deps.Variables == nil {
		ns.Deps.Variables = make(map[string]fileDep)
	}
	if ns.Deps.Buffers == nil {
		ns.Deps.Buffers = make(map[string]fileDep)
	}
	return ns
}

// save persists the namespace. Every value in Variables was constructed by
// a DSL helper from the fixed menu, so it is JSON-safe by construction;
// unlike the pickle original, there is no need to drop unserializable
// entries key-by-key, only to guard against a whole-snapshot failure.
func (n namespace) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
