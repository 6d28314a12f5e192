// Package watcher observes the project tree and translates filesystem
// events into invalidations against the skeleton cache, chunk store, and
// sandbox, component E of the navigator.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"

	"github.com/seanrobertwright/rlm-navigator/internal/ignore"
)

// Sink receives translated filesystem events. The watcher holds a list of
// sinks rather than strong references to a controller, so cache, chunk
// store, and sandbox can be constructed independently and wired in after
// the fact, per the navigator's own cyclic-dependency resolution.
type Sink interface {
	OnModified(rel string)
	OnCreated(rel string)
	OnDeleted(rel string)
}

// Watcher recursively observes root and notifies sinks of relevant events.
// fsnotify has no native recursive mode, so every directory under root gets
// its own watch, added at startup and whenever a new directory is created.
type Watcher struct {
	root   string
	sinks  []Sink
	fsw    *fsnotify.Watcher
	log    arbor.ILogger
	stopCh chan struct{}
}

// New builds a watcher. Call AddSink before Start to register invalidation
// targets.
func New(root string, log arbor.ILogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		root:   root,
		fsw:    fsw,
		log:    log,
		stopCh: make(chan struct{}),
	}, nil
}

// AddSink registers a sink to receive translated events.
func (w *Watcher) AddSink(s Sink) {
	w.sinks = append(w.sinks, s)
}

// Start adds watches for every directory under root (honoring the ignore
// set) and begins processing events on its own goroutine.
func (w *Watcher) Start() error {
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && ignore.ShouldSkip(info.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", w.root, err)
	}

	go w.loop()
	return nil
}

// Stop closes the underlying fsnotify watcher and halts the event loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if ignore.ShouldSkip(name) {
		return
	}

	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir && (event.Op&fsnotify.Create != 0) {
		if err := w.fsw.Add(event.Name); err != nil {
			w.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
		}
		return
	}
	if isDir {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case event.Op&fsnotify.Write != 0:
		for _, s := range w.sinks {
			s.OnModified(rel)
		}
	case event.Op&fsnotify.Create != 0:
		for _, s := range w.sinks {
			s.OnCreated(rel)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		for _, s := range w.sinks {
			s.OnDeleted(rel)
		}
	}
}
