// Package navigator wires together the skeleton cache, chunk store,
// sandbox, watcher, and dispatcher into one running daemon. Construction
// order follows the design notes' resolution of the cyclic cache/sandbox/
// watcher graph: build the sinks (cache, store, sandbox) first, then build
// the watcher and hand it sink handles — the watcher never holds a strong
// reference back to a controller.
package navigator

import (
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/config"
	"github.com/seanrobertwright/rlm-navigator/internal/dispatch"
	"github.com/seanrobertwright/rlm-navigator/internal/lang"
	"github.com/seanrobertwright/rlm-navigator/internal/sandbox"
	"github.com/seanrobertwright/rlm-navigator/internal/skelcache"
	"github.com/seanrobertwright/rlm-navigator/internal/skeleton"
	"github.com/seanrobertwright/rlm-navigator/internal/symbol"
	"github.com/seanrobertwright/rlm-navigator/internal/treeview"
	"github.com/seanrobertwright/rlm-navigator/internal/watcher"
)

// Navigator owns the full set of running subsystems for one project root:
// the watcher thread, the background chunk scan, and the TCP dispatcher.
type Navigator struct {
	cfg     *config.Config
	log     arbor.ILogger
	watcher *watcher.Watcher
	server  *dispatch.Server
	store   *chunkstore.Store
}

// New constructs every subsystem and wires the watcher's sinks, but does
// not yet start the watcher or begin serving.
func New(cfg *config.Config, log arbor.ILogger) (*Navigator, error) {
	registry := lang.NewRegistry()
	extractor := skeleton.NewExtractor(registry)
	cache := skelcache.New(extractor)
	locator := symbol.NewLocator(registry)
	store := chunkstore.New(cfg.Service.Root, cfg.ChunkRootDir(), cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	treeSvc := treeview.New(cfg.Service.Root, cache, cfg.Index.SearchFileCap, cfg.Index.SearchLineCap)
	sb := sandbox.New(cfg.Service.Root, cfg.SandboxStateDir(), store)
	if err := sb.Init(); err != nil {
		return nil, err
	}

	w, err := watcher.New(cfg.Service.Root, log)
	if err != nil {
		return nil, err
	}
	w.AddSink(watcher.CacheSink{Cache: cache, Root: cfg.Service.Root})
	w.AddSink(watcher.ChunkSink{Store: store, Log: log})
	w.AddSink(watcher.SandboxSink{Sandbox: sb})

	nav := &dispatch.Navigator{
		Root:          cfg.Service.Root,
		Languages:     registry.AvailableLanguages,
		Cache:         cache,
		Locator:       locator,
		Store:         store,
		Tree:          treeSvc,
		Sandbox:       sb,
		MaxTreeDepth:  cfg.Index.MaxTreeDepth,
		SearchFileCap: cfg.Index.SearchFileCap,
	}
	server := dispatch.NewServer(cfg, nav, log)

	return &Navigator{cfg: cfg, log: log, watcher: w, server: server, store: store}, nil
}

// Run starts the watcher, kicks off the background full chunk scan, and
// blocks serving requests until the dispatcher shuts down (idle timeout
// or an explicit Stop).
func (n *Navigator) Run() error {
	if err := n.watcher.Start(); err != nil {
		return err
	}
	defer n.watcher.Stop()

	go n.store.ScanAll(func(rel string, err error) {
		n.log.Warn().Str("path", rel).Err(err).Msg("chunk scan error")
	})

	return n.server.Run()
}

// Stop shuts down the dispatcher; Run's deferred watcher.Stop then runs as
// Run returns.
func (n *Navigator) Stop() {
	n.server.Stop()
}

// PortFilePath exposes where the bound port is (or would be) recorded, for
// callers that want to report it without depending on internal/config.
func (n *Navigator) PortFilePath() string {
	return filepath.Join(n.cfg.Service.Root, ".rlm", "port")
}
