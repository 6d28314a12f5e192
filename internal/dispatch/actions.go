package dispatch

import (
	"fmt"
	"os"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/sandbox"
	"github.com/seanrobertwright/rlm-navigator/internal/skelcache"
	"github.com/seanrobertwright/rlm-navigator/internal/symbol"
	"github.com/seanrobertwright/rlm-navigator/internal/treeview"
)

// Navigator bundles every subsystem the dispatcher routes requests to. It
// is assembled by internal/navigator and handed to the server whole, so
// the dispatcher itself holds no construction-order knowledge of C/D/E/G.
type Navigator struct {
	Root      string
	Languages func() []string
	Cache     *skelcache.Cache
	Locator   *symbol.Locator
	Store     *chunkstore.Store
	Tree      *treeview.Service
	Sandbox   *sandbox.Sandbox

	MaxTreeDepth  int
	SearchFileCap int
}

// actionResult is what a handler returns before the server applies
// truncation and accounts for bytes served/avoided.
type actionResult struct {
	body    map[string]interface{}
	fullLen int64 // full source bytes the action inspected, for avoided-bytes accounting
}

func ok(body map[string]interface{}) actionResult { return actionResult{body: body} }

func errBody(msg string) actionResult {
	return actionResult{body: map[string]interface{}{"error": msg}}
}

// dispatchAction routes one decoded request to its handler. action-unknown
// and malformed-argument cases are reported as values, not Go errors: per
// the error handling design every failure surfaces as {error: "..."}
// inside a normal protocol response.
func dispatchAction(nav *Navigator, stats *SessionStats, action string, req map[string]interface{}) actionResult {
	switch action {
	case "status":
		return handleStatus(nav, stats)
	case "squeeze":
		return handleSqueeze(nav, req)
	case "find":
		return handleFind(nav, req)
	case "tree":
		return handleTree(nav, req)
	case "search":
		return handleSearch(nav, req)
	case "chunks_list":
		return handleChunksList(nav, req)
	case "chunks_read":
		return handleChunksRead(nav, req)
	case "repl_init":
		return handleReplInit(nav)
	case "repl_exec":
		return handleReplExec(nav, req)
	case "repl_status":
		return handleReplStatus(nav)
	case "repl_reset":
		return handleReplReset(nav)
	case "repl_export_buffers":
		return handleReplExportBuffers(nav)
	default:
		return errBody(fmt.Sprintf("Unknown action: %s", action))
	}
}

func stringArg(req map[string]interface{}, key string) (string, bool) {
	v, ok := req[key].(string)
	return v, ok
}

func intArg(req map[string]interface{}, key string, def int) int {
	switch v := req[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func handleStatus(nav *Navigator, stats *SessionStats) actionResult {
	return ok(map[string]interface{}{
		"status":    "alive",
		"root":      nav.Root,
		"cache_size": nav.Cache.Len(),
		"languages": nav.Languages(),
		"session":   stats.snapshot(),
	})
}

func handleSqueeze(nav *Navigator, req map[string]interface{}) actionResult {
	rel, _ := stringArg(req, "path")
	abs, _, err := resolve(nav.Root, rel)
	if err != nil {
		return errBody(err.Error())
	}
	info, statErr := os.Stat(abs)
	if statErr != nil {
		return errBody("file not found")
	}
	skeleton, found, err := nav.Cache.Get(abs)
	if err != nil {
		return errBody(err.Error())
	}
	if !found {
		return errBody("file not found")
	}
	return actionResult{
		body:    map[string]interface{}{"skeleton": skeleton},
		fullLen: info.Size(),
	}
}

func handleFind(nav *Navigator, req map[string]interface{}) actionResult {
	rel, _ := stringArg(req, "path")
	symbolName, _ := stringArg(req, "symbol")
	abs, _, err := resolve(nav.Root, rel)
	if err != nil {
		return errBody(err.Error())
	}
	info, statErr := os.Stat(abs)
	if statErr != nil {
		return errBody("file not found")
	}
	rng, found, err := nav.Locator.Find(abs, symbolName)
	if err != nil {
		return errBody(err.Error())
	}
	if !found {
		return errBody(fmt.Sprintf("Symbol '%s' not found in %s", symbolName, rel))
	}
	return actionResult{
		body: map[string]interface{}{
			"start_line": rng.StartLine,
			"end_line":   rng.EndLine,
		},
		fullLen: info.Size(),
	}
}

func handleTree(nav *Navigator, req map[string]interface{}) actionResult {
	rel, _ := stringArg(req, "path")
	maxDepth := nav.MaxTreeDepth
	if raw, ok := stringArg(req, "max_depth"); ok {
		maxDepth = treeview.ParseMaxDepth(raw)
	} else if _, exists := req["max_depth"]; exists {
		maxDepth = intArg(req, "max_depth", maxDepth)
	}
	node, err := nav.Tree.Tree(rel, maxDepth)
	if err != nil {
		return errBody(err.Error())
	}
	entries := node.Entries
	if entries == nil {
		entries = []treeview.Node{}
	}
	return ok(map[string]interface{}{"tree": entries})
}

func handleSearch(nav *Navigator, req map[string]interface{}) actionResult {
	query, _ := stringArg(req, "query")
	rel, _ := stringArg(req, "path")
	results, err := nav.Tree.Search(query, rel)
	if err != nil {
		return errBody(err.Error())
	}
	var fullLen int64
	for _, m := range results {
		if abs, _, cerr := resolve(nav.Root, m.Path); cerr == nil {
			if info, statErr := os.Stat(abs); statErr == nil {
				fullLen += info.Size()
			}
		}
	}
	if results == nil {
		results = []treeview.Match{}
	}
	return actionResult{
		body:    map[string]interface{}{"results": results},
		fullLen: fullLen,
	}
}

func handleChunksList(nav *Navigator, req map[string]interface{}) actionResult {
	rel, _ := stringArg(req, "path")
	_, relPath, err := resolve(nav.Root, rel)
	if err != nil {
		return errBody(err.Error())
	}
	manifest, found := nav.Store.Status(relPath)
	if !found {
		return ok(map[string]interface{}{"status": "pending"})
	}
	return ok(map[string]interface{}{"status": "ready", "manifest": manifest})
}

func handleChunksRead(nav *Navigator, req map[string]interface{}) actionResult {
	rel, _ := stringArg(req, "path")
	abs, relPath, err := resolve(nav.Root, rel)
	if err != nil {
		return errBody(err.Error())
	}
	chunk := intArg(req, "chunk", -1)
	content, bound, manifest, readErr := nav.Store.Read(relPath, chunk)
	if readErr != nil {
		return errBody("chunk not found")
	}
	var fullLen int64
	if info, statErr := os.Stat(abs); statErr == nil {
		fullLen = info.Size()
	}
	return actionResult{
		body: map[string]interface{}{
			"content":      string(content),
			"chunk":        chunk,
			"total_chunks": manifest.TotalChunks,
			"lines":        fmt.Sprintf("%d-%d", bound.Start, bound.End),
		},
		fullLen: fullLen,
	}
}

func handleReplInit(nav *Navigator) actionResult {
	if nav.Sandbox == nil {
		return errBody("not available")
	}
	nav.Sandbox.Reset()
	return ok(map[string]interface{}{"status": "initialized"})
}

func handleReplExec(nav *Navigator, req map[string]interface{}) actionResult {
	if nav.Sandbox == nil {
		return errBody("not available")
	}
	code, _ := stringArg(req, "code")
	res := nav.Sandbox.Exec(code)
	body := map[string]interface{}{
		"success": res.Error == "",
		"output":  res.Output,
	}
	if res.Variable != "" {
		body["variable"] = res.Variable
	}
	if res.Error != "" {
		body["error"] = res.Error
	}
	body["staleness"] = nav.Sandbox.Status().Staleness
	return ok(body)
}

func handleReplStatus(nav *Navigator) actionResult {
	if nav.Sandbox == nil {
		return errBody("not available")
	}
	status := nav.Sandbox.Status()
	return ok(map[string]interface{}{
		"exec_count": status.ExecCount,
		"variables":  status.Variables,
		"buffers":    status.Buffers,
		"staleness":  status.Staleness,
	})
}

func handleReplReset(nav *Navigator) actionResult {
	if nav.Sandbox == nil {
		return errBody("not available")
	}
	nav.Sandbox.Reset()
	return ok(map[string]interface{}{"status": "reset"})
}

func handleReplExportBuffers(nav *Navigator) actionResult {
	if nav.Sandbox == nil {
		return errBody("not available")
	}
	return ok(map[string]interface{}{"buffers": nav.Sandbox.ExportBuffers()})
}
