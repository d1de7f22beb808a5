// Package broadcast connects group mutations to the subscription registry.
package broadcast

import (
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/pubsub"
)

// Broadcaster publishes every accepted mutation to the group's observers and
// gives new observers the current state.
type Broadcaster struct {
	store    *groupstore.Store
	registry *pubsub.Registry
}

// New creates a Broadcaster. It must be registered with store.Observe.
func New(store *groupstore.Store, registry *pubsub.Registry) *Broadcaster {
	return &Broadcaster{store: store, registry: registry}
}

// GroupChanged implements groupstore.Observer.
func (b *Broadcaster) GroupChanged(c groupstore.Change) {
	b.registry.Publish(c.Code, c.Projection)
}

// Subscribe registers sink for the group and queues its current projection.
// The caller owns the returned subscription and must Serve or Close it.
func (b *Broadcaster) Subscribe(code string, sink pubsub.Sink) (*pubsub.Subscription, error) {
	current, err := b.store.Projection(code)
	if err != nil {
		return nil, err
	}

	// Register before re-reading so no mutation falls between the initial
	// projection and the first published change.
	sub := b.registry.Subscribe(current.Code, sink)
	current, err = b.store.Projection(current.Code)
	if err != nil {
		sub.Close()
		return nil, err
	}
	sub.Offer(current)
	return sub, nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	return b.registry.Count()
}
