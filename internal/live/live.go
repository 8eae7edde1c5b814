package live

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/scribe/internal/store"
)

// Source publishes table invalidations. Implemented by *store.Store.
type Source interface {
	Observe(tables ...string) (*store.Observer, error)
	Generation() int64
}

// QueryFunc computes one result. It must honour ctx: cancellation should
// stop the scan and release the cursor.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// Result is one emission of a subscription.
type Result[T any] struct {
	Value T
	// Err is the query failure, if any. The subscription stays active and
	// re-evaluates on the next relevant commit.
	Err error
	// Generation is the store commit count observed before the query ran.
	Generation int64
}

// Subscription is a live, cancellable result sequence.
type Subscription[T any] struct {
	out    chan Result[T]
	done   chan struct{}
	cancel context.CancelFunc
	obs    *store.Observer
}

// Subscribe registers for commits touching tables and starts evaluating
// query. The observer is registered before the initial evaluation so no
// commit can fall between the two.
func Subscribe[T any](ctx context.Context, src Source, tables []string, query QueryFunc[T]) (*Subscription[T], error) {
	obs, err := src.Observe(tables...)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		out:    make(chan Result[T]),
		done:   make(chan struct{}),
		cancel: cancel,
		obs:    obs,
	}
	go s.run(ctx, src, query)
	return s, nil
}

// C returns the emission channel. It is closed once the subscription ends.
func (s *Subscription[T]) C() <-chan Result[T] {
	return s.out
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Next blocks until the next emission, the end of the subscription, or ctx
// cancellation. ok is false when no emission was received.
func (s *Subscription[T]) Next(ctx context.Context) (r Result[T], ok bool) {
	select {
	case r, ok = <-s.out:
		return r, ok
	case <-ctx.Done():
		return r, false
	}
}

// Cancel ends the subscription and waits for its goroutine to exit. No
// emission is delivered after Cancel returns. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

func (s *Subscription[T]) run(ctx context.Context, src Source, query QueryFunc[T]) {
	defer close(s.done)
	defer close(s.out)
	defer s.obs.Close()

	for {
		gen := src.Generation()
		value, err := query(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("live query failed", "tables", s.obs.Tables(), "error", err)
		}

		select {
		case s.out <- Result[T]{Value: value, Err: err, Generation: gen}:
		case <-ctx.Done():
			return
		}

		// Wait for the next relevant commit. Signals received while the
		// emission above was blocked are already pending here.
		select {
		case <-ctx.Done():
			return
		case <-s.obs.C():
		}
	}
}
