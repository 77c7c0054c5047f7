/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/objectkey"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
)

const DEFAULT_DEBOUNCE = 500 * time.Millisecond

type Runner interface {
	Run(ctx context.Context, event trigger.Event) (*pipeline.Result, error)
}

type Options struct {
	Keys        objectkey.Options
	Debounce    time.Duration
	Parallelism int
	// Also trigger for metadata files present when watching starts.
	ProcessExisting bool
}

// Watcher triggers an invocation for every metadata file created or written
// under the root of a local store, once the file has been quiet for the
// debounce interval.
type Watcher struct {
	store  *datastore.LocalStore
	runner Runner
	opts   Options

	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   chan string
}

func New(store *datastore.LocalStore, runner Runner, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DEFAULT_DEBOUNCE
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = pipeline.DEFAULT_PARALLEL_JOBS
	}
	return &Watcher{
		store:  store,
		runner: runner,
		opts:   opts,
		timers: make(map[string]*time.Timer),
		fire:   make(chan string, 64),
	}
}

// Watch blocks until ctx is done. Invocations still running then are waited for.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	existing, err := w.addTree(fsw, w.store.Root())
	if err != nil {
		return err
	}
	log.Infof("watching %s for *%s", w.store.Root(), w.suffix())
	if w.opts.ProcessExisting {
		for _, p := range existing {
			w.schedule(ctx, p)
		}
	}

	var dispatcher sync.WaitGroup
	dispatcher.Add(1)
	go func() {
		defer dispatcher.Done()
		w.dispatch(ctx)
	}()
	defer func() {
		w.stopTimers()
		dispatcher.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) suffix() string {
	if w.opts.Keys.MetadataSuffix != "" {
		return w.opts.Keys.MetadataSuffix
	}
	return objectkey.DEFAULT_METADATA_SUFFIX
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		// gone already
		return
	}
	if info.IsDir() {
		// Files may have been created before the directory was added.
		found, err := w.addTree(fsw, event.Name)
		if err != nil {
			log.Warnf("watch %s: %v", event.Name, err)
		}
		for _, p := range found {
			w.schedule(ctx, p)
		}
		return
	}
	if w.isMetadataFile(event.Name) {
		w.schedule(ctx, event.Name)
	}
}

// addTree watches dir and its subdirectories and returns the metadata files in them.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(p); err != nil {
				return fmt.Errorf("watch dir %q: %w", p, err)
			}
			return nil
		}
		if w.isMetadataFile(p) {
			found = append(found, p)
		}
		return nil
	})
	return found, err
}

func (w *Watcher) isMetadataFile(p string) bool {
	key, err := w.store.KeyOf(p)
	if err != nil {
		return false
	}
	return objectkey.IsMetadataKey(key, w.opts.Keys)
}

func (w *Watcher) schedule(ctx context.Context, p string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[p]; ok {
		t.Stop()
	}
	w.timers[p] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, p)
		w.mu.Unlock()
		select {
		case w.fire <- p:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	workers := pool.New().WithMaxGoroutines(w.opts.Parallelism)
	defer workers.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-w.fire:
			key, err := w.store.KeyOf(p)
			if err != nil {
				log.Warnf("skipping %s: %v", p, err)
				continue
			}
			event := trigger.Event{Key: key}
			log.Infof("metadata file changed %q, running invocation", p)
			workers.Go(func() {
				if _, err := w.runner.Run(ctx, event); err != nil {
					log.Errorf("invocation for %s failed: %v", key, err)
				}
			})
		}
	}
}
