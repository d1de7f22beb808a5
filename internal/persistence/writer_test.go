package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/slicetally/internal/models"
)

type fakeBackend struct {
	mu      sync.Mutex
	saves   int
	last    *models.State
	saveErr error
	loadErr error
	saved   chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{saved: make(chan struct{}, 64)}
}

func (b *fakeBackend) SaveState(_ context.Context, state *models.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.last = state
	b.saved <- struct{}{}
	return nil
}

func (b *fakeBackend) LoadState(context.Context) (*models.State, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	state := models.NewState()
	state.Groups["ABC234"] = models.Group{Code: "ABC234"}
	return state, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

type staticSource struct{ groups int }

func (s staticSource) Snapshot() *models.State {
	state := models.NewState()
	for i := 0; i < s.groups; i++ {
		code := string(rune('A' + i))
		state.Groups[code] = models.Group{Code: code}
	}
	return state
}

type snapshotRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (r *snapshotRecorder) ObserveSnapshot(_ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.fail++
	} else {
		r.ok++
	}
}

func TestWriterCoalescesBurst(t *testing.T) {
	backend := newFakeBackend()
	w := NewWriter(staticSource{groups: 2}, backend, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 100; i++ {
		w.Schedule()
	}

	select {
	case <-backend.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot written")
	}
	time.Sleep(150 * time.Millisecond)

	if n := backend.count(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if n := backend.count(); n != 1 {
		t.Errorf("saves after clean shutdown = %d, want 1", n)
	}
}

func TestWriterFlushesOnShutdown(t *testing.T) {
	backend := newFakeBackend()
	w := NewWriter(staticSource{groups: 1}, backend, WithDebounce(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Schedule()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if n := backend.count(); n != 1 {
		t.Errorf("saves = %d, want 1 final flush", n)
	}
	if len(backend.last.Groups) != 1 {
		t.Errorf("saved groups = %d, want 1", len(backend.last.Groups))
	}
}

func TestFlushKeepsDirtyOnError(t *testing.T) {
	backend := newFakeBackend()
	backend.saveErr = errors.New("disk full")
	rec := &snapshotRecorder{}
	w := NewWriter(staticSource{}, backend, WithRecorder(rec))
	ctx := context.Background()

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush with nothing dirty returned %v", err)
	}

	w.Schedule()
	if err := w.Flush(ctx); err == nil {
		t.Fatal("expected write error")
	}

	backend.mu.Lock()
	backend.saveErr = nil
	backend.mu.Unlock()

	if err := w.Flush(ctx); err != nil {
		t.Fatalf("retry Flush failed: %v", err)
	}
	if n := backend.count(); n != 1 {
		t.Errorf("saves = %d, want 1", n)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ok != 1 || rec.fail != 1 {
		t.Errorf("recorder ok=%d fail=%d, want 1 and 1", rec.ok, rec.fail)
	}
}

func TestLoadOrEmpty(t *testing.T) {
	backend := newFakeBackend()
	if state := LoadOrEmpty(context.Background(), backend); len(state.Groups) != 1 {
		t.Errorf("groups = %d, want 1", len(state.Groups))
	}

	backend.loadErr = errors.New("corrupt")
	state := LoadOrEmpty(context.Background(), backend)
	if state == nil || len(state.Groups) != 0 {
		t.Errorf("expected empty state on load error, got %+v", state)
	}
}
