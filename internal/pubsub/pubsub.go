// Package pubsub fans group projections out to connected observers.
//
// Publishing never blocks: each subscription keeps only the newest projection
// it has not yet delivered, and the transport goroutine that owns the
// subscription drains it through Serve. A slow observer therefore skips
// intermediate versions but never sees them out of order, and never holds up
// a mutation.
package pubsub

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/slicetally/internal/models"
)

const (
	// DefaultSendTimeout bounds a single delivery to one observer.
	DefaultSendTimeout = 5 * time.Second
	// DefaultKeepAlive is the interval between pings on idle connections.
	DefaultKeepAlive = 25 * time.Second
)

// Sink delivers projections to one observer over some transport.
type Sink interface {
	Send(ctx context.Context, p models.Projection) error
}

// Pinger is implemented by sinks whose transport needs keepalive traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder observes delivery outcomes. err is nil on success.
type Recorder interface {
	ObserveDelivery(err error)
}

// Registry maps group codes to their subscriptions.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	sendTimeout time.Duration
	keepAlive   time.Duration
	recorder    Recorder
}

// Option configures a Registry.
type Option func(*Registry)

// WithSendTimeout bounds each delivery. Observers that exceed it are dropped.
func WithSendTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

// WithKeepAlive sets the ping interval. Zero disables pings.
func WithKeepAlive(d time.Duration) Option {
	return func(r *Registry) { r.keepAlive = d }
}

// WithRecorder reports every delivery attempt to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		subs:        make(map[string]map[*Subscription]struct{}),
		sendTimeout: DefaultSendTimeout,
		keepAlive:   DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers sink for code. The caller must run Serve on the
// returned subscription, or Close it.
func (r *Registry) Subscribe(code string, sink Sink) *Subscription {
	sub := &Subscription{
		reg:  r,
		code: code,
		sink: sink,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	set, ok := r.subs[code]
	if !ok {
		set = make(map[*Subscription]struct{})
		r.subs[code] = set
	}
	set[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

// Publish offers p to every subscription of code.
func (r *Registry) Publish(code string, p models.Projection) {
	r.mu.RLock()
	subs := make([]*Subscription, 0, len(r.subs[code]))
	for sub := range r.subs[code] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.Offer(p)
	}
}

// Count returns the number of live subscriptions across all groups.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.subs {
		n += len(set)
	}
	return n
}

// CountFor returns the number of live subscriptions for code.
func (r *Registry) CountFor(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[code])
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.subs[sub.code]
	delete(set, sub)
	if len(set) == 0 {
		delete(r.subs, sub.code)
	}
}

func (r *Registry) record(err error) {
	if r.recorder != nil {
		r.recorder.ObserveDelivery(err)
	}
}

// Subscription is one observer of one group.
type Subscription struct {
	reg  *Registry
	code string
	sink Sink

	mu      sync.Mutex
	pending *models.Projection
	last    uint64
	seen    bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Code returns the group code this subscription watches.
func (s *Subscription) Code() string { return s.code }

// Offer queues p for delivery unless a projection at least as new has
// already been queued. An undelivered older projection is replaced.
func (s *Subscription) Offer(p models.Projection) {
	s.mu.Lock()
	if s.seen && p.Version <= s.last {
		s.mu.Unlock()
		return
	}
	s.pending = &p
	s.last = p.Version
	s.seen = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) take() (models.Projection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return models.Projection{}, false
	}
	p := *s.pending
	s.pending = nil
	return p, true
}

// Serve delivers queued projections until ctx is done, the subscription is
// closed, or a delivery fails. The subscription is closed when Serve returns.
// It returns nil after Close and the delivery or context error otherwise.
func (s *Subscription) Serve(ctx context.Context) error {
	defer s.Close()

	var tick <-chan time.Time
	if _, ok := s.sink.(Pinger); ok && s.reg.keepAlive > 0 {
		t := time.NewTicker(s.reg.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-s.wake:
			p, ok := s.take()
			if !ok {
				continue
			}
			err := s.send(ctx, p)
			s.reg.record(err)
			if err != nil {
				return err
			}
		case <-tick:
			if err := s.ping(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Subscription) send(ctx context.Context, p models.Projection) error {
	ctx, cancel := context.WithTimeout(ctx, s.reg.sendTimeout)
	defer cancel()
	return s.sink.Send(ctx, p)
}

func (s *Subscription) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.reg.sendTimeout)
	defer cancel()
	return s.sink.(Pinger).Ping(ctx)
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.reg.remove(s)
		close(s.done)
	})
}

// Done is closed once the subscription has been closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }
