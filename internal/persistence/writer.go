// Package persistence writes debounced snapshots of the group store.
package persistence

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/models"
	"github.com/mmynk/slicetally/internal/storage"
)

// DefaultDebounce is the delay between the first unsaved change and the write.
const DefaultDebounce = 250 * time.Millisecond

// finalFlushTimeout bounds the write performed when Run is stopped.
const finalFlushTimeout = 10 * time.Second

// Source provides the state to persist.
type Source interface {
	Snapshot() *models.State
}

// Recorder observes snapshot writes. err is nil on success.
type Recorder interface {
	ObserveSnapshot(d time.Duration, err error)
}

// Writer coalesces bursts of mutations into one snapshot write.
//
// The debounce window is not extended by further changes, so a steady stream
// of mutations still produces a write every debounce interval.
type Writer struct {
	source   Source
	backend  storage.Store
	debounce time.Duration
	recorder Recorder

	dirty   atomic.Bool
	trigger chan struct{}
	writeMu sync.Mutex
}

// Option configures a Writer.
type Option func(*Writer)

// WithDebounce sets the write delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecorder reports every write to rec.
func WithRecorder(rec Recorder) Option {
	return func(w *Writer) { w.recorder = rec }
}

// NewWriter creates a Writer. Nothing is written until Run is started.
func NewWriter(source Source, backend storage.Store, opts ...Option) *Writer {
	w := &Writer{
		source:   source,
		backend:  backend,
		debounce: DefaultDebounce,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// GroupChanged implements groupstore.Observer.
func (w *Writer) GroupChanged(groupstore.Change) {
	w.Schedule()
}

// Schedule marks the state dirty. It never blocks.
func (w *Writer) Schedule() {
	w.dirty.Store(true)
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run writes scheduled snapshots until ctx is done, then flushes any
// remaining change once more before returning.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.finalFlush()
		case <-w.trigger:
		}

		timer := time.NewTimer(w.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return w.finalFlush()
		case <-timer.C:
		}

		if err := w.Flush(ctx); err != nil {
			slog.Error("Snapshot write failed", "error", err)
		}
	}
}

func (w *Writer) finalFlush() error {
	if !w.dirty.Load() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		slog.Error("Final snapshot write failed", "error", err)
		return err
	}
	slog.Info("Final snapshot written")
	return nil
}

// Flush writes the current state now if anything changed since the last
// successful write. A failed write leaves the state dirty so the next
// change retries it.
func (w *Writer) Flush(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if !w.dirty.Swap(false) {
		return nil
	}

	start := time.Now()
	state := w.source.Snapshot()
	err := w.backend.SaveState(ctx, state)
	elapsed := time.Since(start)
	if w.recorder != nil {
		w.recorder.ObserveSnapshot(elapsed, err)
	}
	if err != nil {
		w.dirty.Store(true)
		return err
	}

	slog.Debug("Snapshot written", "groups", len(state.Groups), "duration", elapsed)
	return nil
}

// LoadOrEmpty reads the persisted state. Any error is logged and an empty
// state is returned so the service can still start.
func LoadOrEmpty(ctx context.Context, backend storage.Store) *models.State {
	state, err := backend.LoadState(ctx)
	if err != nil {
		slog.Error("Failed to load snapshot, starting empty", "error", err)
		return models.NewState()
	}
	slog.Info("Snapshot loaded", "groups", len(state.Groups))
	return state
}
