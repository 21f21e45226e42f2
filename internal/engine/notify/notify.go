// Package notify delivers history change events to registered observers.
//
// The engine publishes an Event after every state change (recorded edits,
// undo/redo, checkpoint creation and deletion, imports). Observers register
// for all events or for the events of a single slide. Delivery is synchronous
// on the publishing goroutine, in subscription order.
package notify

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// EventType represents the kind of history change.
type EventType int

const (
	// EventRecorded indicates a new version was recorded for a slide.
	EventRecorded EventType = iota

	// EventUndo indicates a slide's cursor moved back.
	EventUndo

	// EventRedo indicates a slide's cursor moved forward.
	EventRedo

	// EventCleared indicates a slide's history was dropped.
	EventCleared

	// EventReset indicates all slide history was dropped.
	EventReset

	// EventCheckpointCreated indicates a checkpoint was created.
	EventCheckpointCreated

	// EventCheckpointDeleted indicates a checkpoint was deleted or pruned.
	EventCheckpointDeleted

	// EventCheckpointRestored indicates a checkpoint was read for restore.
	EventCheckpointRestored

	// EventImported indicates a backup document was imported.
	EventImported
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventRecorded:
		return "recorded"
	case EventUndo:
		return "undo"
	case EventRedo:
		return "redo"
	case EventCleared:
		return "cleared"
	case EventReset:
		return "reset"
	case EventCheckpointCreated:
		return "checkpoint-created"
	case EventCheckpointDeleted:
		return "checkpoint-deleted"
	case EventCheckpointRestored:
		return "checkpoint-restored"
	case EventImported:
		return "imported"
	default:
		return "unknown"
	}
}

// Event describes a history change.
type Event struct {
	Type EventType

	// UnitID is the affected slide. Empty for deck-wide events.
	UnitID string

	// VersionID is set for recorded, undo and redo events.
	VersionID string

	// CheckpointID is set for checkpoint and import events.
	CheckpointID string

	// Label carries the version label or checkpoint name.
	Label string

	// AutoSave is true when a checkpoint event concerns an auto-save.
	AutoSave bool
}

// Observer is called when history changes.
type Observer func(event Event)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	unitID   string
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// UnitID returns the slide filter of the subscription, empty for global ones.
func (s *Subscription) UnitID() string {
	return s.unitID
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger used to report panicking observers.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

type entry struct {
	unitID   string
	observer Observer
}

// Notifier manages history change subscriptions.
type Notifier struct {
	mu        sync.RWMutex
	observers map[uint64]entry
	nextID    uint64
	logger    *slog.Logger
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		observers: make(map[uint64]entry),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers an observer for all events.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.subscribe("", observer)
}

// SubscribeUnit registers an observer for events of one slide.
// Deck-wide events (reset, checkpoints, imports) are delivered too.
func (n *Notifier) SubscribeUnit(unitID string, observer Observer) *Subscription {
	return n.subscribe(unitID, observer)
}

func (n *Notifier) subscribe(unitID string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = entry{unitID: unitID, observer: observer}

	return &Subscription{id: id, unitID: unitID, notifier: n}
}

// Count returns the number of active subscriptions.
func (n *Notifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Notify sends an event to all matching observers.
func (n *Notifier) Notify(event Event) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.observers))
	for id, e := range n.observers {
		if e.unitID == "" || event.UnitID == "" || e.unitID == event.UnitID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = n.observers[id].observer
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		n.deliver(obs, event)
	}
}

// deliver calls one observer, containing any panic it raises.
func (n *Notifier) deliver(obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("history observer panicked",
				"event", event.Type.String(),
				"unit", event.UnitID,
				"panic", fmt.Sprint(r))
		}
	}()
	obs(event)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}
