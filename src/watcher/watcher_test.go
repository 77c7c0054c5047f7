package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-tokenizer/src/datastore"
	"github.com/yugabyte/yb-tokenizer/src/pipeline"
	"github.com/yugabyte/yb-tokenizer/src/trigger"
)

type fakeRunner struct {
	mu     sync.Mutex
	events []trigger.Event
	ch     chan trigger.Event
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ch: make(chan trigger.Event, 16)}
}

func (r *fakeRunner) Run(ctx context.Context, event trigger.Event) (*pipeline.Result, error) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.ch <- event
	return &pipeline.Result{Event: event}, nil
}

func (r *fakeRunner) wait(t *testing.T) trigger.Event {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no invocation")
		return trigger.Event{}
	}
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func startWatcher(t *testing.T, runner Runner, opts Options) string {
	root := t.TempDir()
	store, err := datastore.NewLocalStore(root)
	require.NoError(t, err)
	w := New(store, runner, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// let the watcher add the tree
	time.Sleep(100 * time.Millisecond)
	return store.Root()
}

func writeFile(t *testing.T, p, data string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0644))
}

func TestWatchTriggersOnMetadataFile(t *testing.T) {
	runner := newFakeRunner()
	root := startWatcher(t, runner, Options{Debounce: 50 * time.Millisecond})

	writeFile(t, filepath.Join(root, "raw", "x.csv"), "a,b\n")
	writeFile(t, filepath.Join(root, "x_pii_fields.json"), "['a']")

	e := runner.wait(t)
	assert.Equal(t, trigger.Event{Key: "x_pii_fields.json"}, e)
}

func TestWatchDebouncesWrites(t *testing.T) {
	runner := newFakeRunner()
	root := startWatcher(t, runner, Options{Debounce: 200 * time.Millisecond})

	p := filepath.Join(root, "x_pii_fields.json")
	for i := 0; i < 5; i++ {
		writeFile(t, p, "['a']")
	}
	runner.wait(t)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, runner.count())
}

func TestWatchNewSubdirectory(t *testing.T) {
	runner := newFakeRunner()
	root := startWatcher(t, runner, Options{Debounce: 50 * time.Millisecond})

	writeFile(t, filepath.Join(root, "incoming", "today", "y_pii_fields.json"), "['a']")
	e := runner.wait(t)
	assert.Equal(t, "incoming/today/y_pii_fields.json", e.Key)
}

func TestWatchProcessExisting(t *testing.T) {
	runner := newFakeRunner()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "meta", "z_pii_fields.json"), "['a']")
	writeFile(t, filepath.Join(root, "meta", "notes.json"), "{}")
	store, err := datastore.NewLocalStore(root)
	require.NoError(t, err)
	w := New(store, runner, Options{Debounce: 10 * time.Millisecond, ProcessExisting: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	e := runner.wait(t)
	assert.Equal(t, "meta/z_pii_fields.json", e.Key)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, runner.count())
}
