package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/skelcache"
)

type stubExtractor struct{ calls int }

func (e *stubExtractor) Squeeze(absPath string) (string, error) {
	e.calls++
	return "skeleton", nil
}

func TestCacheSinkInvalidatesByAbsolutePath(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	extractor := &stubExtractor{}
	cache := skelcache.New(extractor)
	_, _, err := cache.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	sink := CacheSink{Cache: cache, Root: root}
	sink.OnModified("a.txt")
	assert.Equal(t, 0, cache.Len())
}

type stubDependencyNotifier struct {
	lastRel string
	result  []string
}

func (s *stubDependencyNotifier) InvalidateDependencies(rel string) []string {
	s.lastRel = rel
	return s.result
}

func TestSandboxSinkForwardsRelPath(t *testing.T) {
	stub := &stubDependencyNotifier{result: []string{"var:x"}}
	sink := SandboxSink{Sandbox: stub}
	sink.OnModified("a.txt")
	assert.Equal(t, "a.txt", stub.lastRel)
}

func TestChunkSinkUpdatesOnModifyAndRemovesOnDelete(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0644))
	store := chunkstore.New(root, filepath.Join(root, ".rlm", "chunks"), 200, 20)

	sink := ChunkSink{Store: store, Log: arbor.NewLogger()}
	sink.OnModified("a.txt")
	_, found := store.Status("a.txt")
	assert.True(t, found)

	sink.OnDeleted("a.txt")
	_, found = store.Status("a.txt")
	assert.False(t, found)
}
