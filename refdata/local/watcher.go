//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/refdata"
)

// Watcher keeps a live index over a bundle directory. File changes
// trigger a debounced full rebuild; the swap is atomic, so readers
// always see a complete index. A rebuild that fails keeps the last
// good index in place.
type Watcher struct {
	dir  string
	opts *options
	fsw  *fsnotify.Watcher

	current atomic.Pointer[refdata.Index]

	// reloadCh carries the debounce timer's signal into the loop;
	// rebuilds run on the loop goroutine only.
	reloadCh chan struct{}
	timerMu  sync.Mutex
	timer    *time.Timer

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewWatcher loads the directory once and starts watching it and its
// subdirectories. The initial load must succeed.
func NewWatcher(dir string, opt ...Option) (*Watcher, error) {
	opts := newOptions(opt...)
	idx, err := load(dir, opts)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create reference data watcher: %w", err)
	}
	if err := watchTree(fsw, dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		opts:     opts,
		fsw:      fsw,
		reloadCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	w.current.Store(idx)
	go w.loop()
	return w, nil
}

// watchTree registers dir and every subdirectory; fsnotify watches are
// not recursive.
func watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk reference data directory %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch reference data directory %s: %w", path, err)
		}
		return nil
	})
}

// Index returns the current index snapshot. The snapshot stays valid
// after later swaps; callers should resolve it once per evaluation.
func (w *Watcher) Index() *refdata.Index {
	return w.current.Load()
}

// Close stops watching. The last index stays readable.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
		<-w.done
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
	return w.closeErr
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("reference data watcher: %v", err)
		case <-w.reloadCh:
			w.reload()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// A created subdirectory needs its own watch before its files
		// produce events. The rebuild below still sees any files that
		// landed in it first.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Warnf("watch new reference data directory %s: %v", event.Name, err)
			}
			w.scheduleReload()
			return
		}
	}
	if !w.isBundleDocument(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.scheduleReload()
	}
}

// scheduleReload coalesces bursts of events into one rebuild.
func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.debounce, func() {
		select {
		case w.reloadCh <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) reload() {
	idx, err := load(w.dir, w.opts)
	if err != nil {
		log.Errorf("reference data reload failed, keeping last good index: %v", err)
		return
	}
	w.current.Store(idx)
	log.Infof("reference data reloaded from %s", w.dir)
	if w.opts.onSwap != nil {
		w.opts.onSwap(idx)
	}
}

// isBundleDocument reports whether the changed path matches the
// configured document glob. Dotfiles never count; editors write them as
// swap files during saves.
func (w *Watcher) isBundleDocument(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	rel, err := filepath.Rel(w.dir, name)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.opts.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
