package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/overlay"
)

// ErrAwaitTimeout is returned by Await when no resolution arrives in time.
var ErrAwaitTimeout = errors.New("settlement: timed out waiting for resolution")

// DefaultRetained is how many entries Waiters keeps unclaimed resolutions
// for.
const DefaultRetained = 1024

// Waiters hands entry resolutions to goroutines blocked in Await.
// Resolutions that arrive before anyone waits are queued per entry, up to a
// limit of entries, so the order of Notify and Await does not matter and
// each Await returns the oldest resolution not yet claimed.
type Waiters struct {
	clock    quartz.Clock
	timeout  time.Duration
	retained int

	mu      sync.Mutex
	waiting map[overlay.EntryID][]chan Resolution
	done    map[overlay.EntryID][]Resolution
	order   []overlay.EntryID
}

// NewWaiters creates a registry whose Await calls give up after timeout as
// measured by clock.
func NewWaiters(clock quartz.Clock, timeout time.Duration) *Waiters {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Waiters{
		clock:    clock,
		timeout:  timeout,
		retained: DefaultRetained,
		waiting:  make(map[overlay.EntryID][]chan Resolution),
		done:     make(map[overlay.EntryID][]Resolution),
	}
}

// Timeout returns the await timeout.
func (w *Waiters) Timeout() time.Duration {
	return w.timeout
}

// Await blocks until id resolves, the timeout elapses or ctx is done.
func (w *Waiters) Await(ctx context.Context, id overlay.EntryID) (Resolution, error) {
	timeoutFired := make(chan struct{})
	timer := w.clock.AfterFunc(w.timeout, func() {
		close(timeoutFired)
	})
	defer timer.Stop()

	ch := make(chan Resolution, 1)
	w.mu.Lock()
	if queued := w.done[id]; len(queued) > 0 {
		if len(queued) == 1 {
			delete(w.done, id)
		} else {
			w.done[id] = queued[1:]
		}
		w.mu.Unlock()
		return queued[0], nil
	}
	w.waiting[id] = append(w.waiting[id], ch)
	w.mu.Unlock()

	select {
	case r := <-ch:
		return r, nil
	case <-timeoutFired:
		w.drop(id, ch)
		return Resolution{}, fmt.Errorf("%w: %s after %s", ErrAwaitTimeout, id, w.timeout)
	case <-ctx.Done():
		w.drop(id, ch)
		return Resolution{}, ctx.Err()
	}
}

// Notify delivers r to everyone waiting on r.ID, or queues it behind any
// earlier unclaimed resolution of the same entry if nobody is.
func (w *Waiters) Notify(r Resolution) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if chans, ok := w.waiting[r.ID]; ok {
		delete(w.waiting, r.ID)
		for _, ch := range chans {
			ch <- r
		}
		return
	}

	if _, ok := w.done[r.ID]; !ok {
		w.order = append(w.order, r.ID)
	}
	w.done[r.ID] = append(w.done[r.ID], r)
	for len(w.done) > w.retained && len(w.order) > 0 {
		delete(w.done, w.order[0])
		w.order = w.order[1:]
	}
	if len(w.order) > 2*w.retained {
		live := w.order[:0]
		for _, id := range w.order {
			if _, ok := w.done[id]; ok {
				live = append(live, id)
			}
		}
		w.order = live
	}
}

// Len returns the number of goroutines currently waiting.
func (w *Waiters) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, chans := range w.waiting {
		n += len(chans)
	}
	return n
}

func (w *Waiters) drop(id overlay.EntryID, ch chan Resolution) {
	w.mu.Lock()
	defer w.mu.Unlock()
	chans := w.waiting[id]
	for i, c := range chans {
		if c == ch {
			chans = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(chans) == 0 {
		delete(w.waiting, id)
	} else {
		w.waiting[id] = chans
	}
}
