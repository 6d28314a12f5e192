package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/lang"
	"github.com/seanrobertwright/rlm-navigator/internal/sandbox"
	"github.com/seanrobertwright/rlm-navigator/internal/skelcache"
	"github.com/seanrobertwright/rlm-navigator/internal/skeleton"
	"github.com/seanrobertwright/rlm-navigator/internal/symbol"
	"github.com/seanrobertwright/rlm-navigator/internal/treeview"
)

func buildNavigator(t *testing.T, root string) *Navigator {
	t.Helper()
	reg := lang.NewRegistry()
	extractor := skeleton.NewExtractor(reg)
	cache := skelcache.New(extractor)
	locator := symbol.NewLocator(reg)
	store := chunkstore.New(root, filepath.Join(root, ".rlm", "chunks"), 200, 20)
	tree := treeview.New(root, cache, 50, 10)
	sb := sandbox.New(root, filepath.Join(root, ".claude", "rlm_state"), store)
	require.NoError(t, sb.Init())

	return &Navigator{
		Root:          root,
		Languages:     reg.AvailableLanguages,
		Cache:         cache,
		Locator:       locator,
		Store:         store,
		Tree:          tree,
		Sandbox:       sb,
		MaxTreeDepth:  4,
		SearchFileCap: 50,
	}
}

func TestHandleSqueezeReturnsSkeleton(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\nworld\n"), 0644))
	nav := buildNavigator(t, root)

	res := handleSqueeze(nav, map[string]interface{}{"path": "a.txt"})
	require.Contains(t, res.body, "skeleton")
	assert.Greater(t, res.fullLen, int64(0))
}

func TestHandleSqueezePathEscapeFails(t *testing.T) {
	root := t.TempDir()
	nav := buildNavigator(t, root)
	res := handleSqueeze(nav, map[string]interface{}{"path": "../../etc/passwd"})
	assert.Equal(t, errOutsideRoot, res.body["error"])
}

func TestHandleFindMissingSymbol(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("class A:\n    def m(self):\n        pass\n"), 0644))
	nav := buildNavigator(t, root)

	res := handleFind(nav, map[string]interface{}{"path": "main.py", "symbol": "Z"})
	assert.Equal(t, "Symbol 'Z' not found in main.py", res.body["error"])
}

func TestHandleTreeZeroDepthOmitsNestedEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "x.go"), []byte("package x"), 0644))
	nav := buildNavigator(t, root)

	res := handleTree(nav, map[string]interface{}{"path": "", "max_depth": float64(0)})
	entries := res.body["tree"].([]treeview.Node)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Entries)
}

func TestHandleChunksListPendingBeforeIndexing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi\n"), 0644))
	nav := buildNavigator(t, root)

	res := handleChunksList(nav, map[string]interface{}{"path": "a.txt"})
	assert.Equal(t, "pending", res.body["status"])
}

func TestDispatchActionUnknownAction(t *testing.T) {
	root := t.TempDir()
	nav := buildNavigator(t, root)
	res := dispatchAction(nav, newSessionStats(), "bogus", map[string]interface{}{})
	assert.Equal(t, "Unknown action: bogus", res.body["error"])
}

func TestReplExecLifecycle(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one\ntwo\n"), 0644))
	nav := buildNavigator(t, root)

	res := handleReplExec(nav, map[string]interface{}{"code": `x = peek("a.txt", 1, 1)`})
	assert.Equal(t, true, res.body["success"])

	status := handleReplStatus(nav)
	vars := status.body["variables"].([]string)
	assert.Contains(t, vars, "x")
}
