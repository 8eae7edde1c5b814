package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// Tracker is the observer registry keyed by table name.
//
// The store calls notify after every successful commit with the set of
// tables the transaction wrote. Each matching observer receives a signal on
// its channel. Signals coalesce: an observer that has not drained its channel
// sees one pending signal no matter how many commits happened since.
//
// Thread-safety: all methods are safe for concurrent use. notify never
// blocks on an observer.
type Tracker struct {
	mu        sync.Mutex
	nextID    uint64
	observers map[uint64]*Observer
	known     map[string]struct{}

	// generation counts commits that touched at least one table.
	generation atomic.Int64
}

func newTracker(tables []string) *Tracker {
	known := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		known[t] = struct{}{}
	}
	return &Tracker{
		observers: make(map[uint64]*Observer),
		known:     known,
	}
}

// Observer receives a signal whenever a commit touches one of its tables.
type Observer struct {
	id      uint64
	tables  map[string]struct{}
	signal  chan struct{} // buffered, size 1
	tracker *Tracker
	once    sync.Once
}

// Observe registers an observer for the given tables. At least one table is
// required and every table must be a known record table.
func (t *Tracker) Observe(tables ...string) (*Observer, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("observe: no tables")
	}

	set := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		if _, ok := t.known[name]; !ok {
			return nil, fmt.Errorf("observe: unknown table %q", name)
		}
		set[name] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	o := &Observer{
		id:      t.nextID,
		tables:  set,
		signal:  make(chan struct{}, 1),
		tracker: t,
	}
	t.observers[o.id] = o
	return o, nil
}

// C returns the channel signalled after relevant commits. It is never closed.
func (o *Observer) C() <-chan struct{} {
	return o.signal
}

// Tables returns the observed table names, sorted.
func (o *Observer) Tables() []string {
	out := make([]string, 0, len(o.tables))
	for name := range o.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close unregisters the observer. Safe to call more than once.
func (o *Observer) Close() {
	o.once.Do(func() {
		o.tracker.mu.Lock()
		delete(o.tracker.observers, o.id)
		o.tracker.mu.Unlock()
	})
}

// Generation returns the number of commits that touched any table.
func (t *Tracker) Generation() int64 {
	return t.generation.Load()
}

// Len returns the number of registered observers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.observers)
}

// notify signals every observer that depends on any of tables.
func (t *Tracker) notify(tables []string) {
	if len(tables) == 0 {
		return
	}
	t.generation.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()

	signalled := 0
	for _, o := range t.observers {
		if !o.dependsOn(tables) {
			continue
		}
		// Non-blocking: a pending signal already covers this commit.
		select {
		case o.signal <- struct{}{}:
		default:
		}
		signalled++
	}

	slog.Debug("tables invalidated", "tables", tables, "observers", signalled)
}

func (o *Observer) dependsOn(tables []string) bool {
	for _, name := range tables {
		if _, ok := o.tables[name]; ok {
			return true
		}
	}
	return false
}
