package watcher

import (
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/seanrobertwright/rlm-navigator/internal/chunkstore"
	"github.com/seanrobertwright/rlm-navigator/internal/skelcache"
)

// CacheSink invalidates the skeleton cache on modify and delete. Skeletons
// are populated lazily on next read, so creation needs no action.
type CacheSink struct {
	Cache *skelcache.Cache
	Root  string
}

func (c CacheSink) OnModified(rel string) { c.Cache.Invalidate(c.abs(rel)) }
func (c CacheSink) OnCreated(rel string)  {}
func (c CacheSink) OnDeleted(rel string)  { c.Cache.Invalidate(c.abs(rel)) }

func (c CacheSink) abs(rel string) string { return filepath.Join(c.Root, filepath.FromSlash(rel)) }

// ChunkSink re-chunks a file on modify and create, and removes its chunk
// directory on delete.
type ChunkSink struct {
	Store *chunkstore.Store
	Log   arbor.ILogger
}

func (c ChunkSink) OnModified(rel string) {
	if err := c.Store.Update(rel); err != nil {
		c.Log.Warn().Err(err).Str("path", rel).Msg("failed to re-chunk modified file")
	}
}

func (c ChunkSink) OnCreated(rel string) {
	if err := c.Store.Update(rel); err != nil {
		c.Log.Warn().Err(err).Str("path", rel).Msg("failed to chunk created file")
	}
}

func (c ChunkSink) OnDeleted(rel string) {
	if err := c.Store.Remove(rel); err != nil {
		c.Log.Warn().Err(err).Str("path", rel).Msg("failed to remove chunk directory")
	}
}

// DependencyNotifier is satisfied by the sandbox: it reports which sandbox
// names observed the given file, without clearing their records (actual
// staleness is detected lazily at the next status/exec).
type DependencyNotifier interface {
	InvalidateDependencies(rel string) []string
}

// SandboxSink notifies the sandbox's dependency tracker on modify and
// delete; creation cannot stale anything the sandbox could have already
// observed.
type SandboxSink struct {
	Sandbox DependencyNotifier
}

func (s SandboxSink) OnModified(rel string) { s.Sandbox.InvalidateDependencies(rel) }
func (s SandboxSink) OnCreated(rel string)  {}
func (s SandboxSink) OnDeleted(rel string)  { s.Sandbox.InvalidateDependencies(rel) }
