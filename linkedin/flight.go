package linkedin

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// flightGroup serialises browse operations per owner: the upstream
// authenticated identity is shared, so at most one in-flight browse runs
// for an owner at a time. Different owners proceed in parallel. A slot
// with no holder and no waiters is evicted so the map stays bounded by
// the number of owners currently browsing.
type flightGroup struct {
	mu    sync.Mutex
	slots map[string]*flightSlot
}

type flightSlot struct {
	sem *semaphore.Weighted
	// refs counts the holder plus queued waiters; the slot is evicted
	// when it drops to zero.
	refs int
}

func newFlightGroup() *flightGroup {
	return &flightGroup{slots: map[string]*flightSlot{}}
}

// acquire blocks until the owner's slot is free or ctx is done. The
// returned release must be called on every exit path.
func (f *flightGroup) acquire(ctx context.Context, ownerID string) (release func(), err error) {
	f.mu.Lock()
	s, ok := f.slots[ownerID]
	if !ok {
		s = &flightSlot{sem: semaphore.NewWeighted(1)}
		f.slots[ownerID] = s
	}
	s.refs++
	f.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		f.drop(ownerID, s)
		return nil, fmt.Errorf("linkedin: browse slot for %s: %w", ownerID, err)
	}
	return func() {
		s.sem.Release(1)
		f.drop(ownerID, s)
	}, nil
}

func (f *flightGroup) drop(ownerID string, s *flightSlot) {
	f.mu.Lock()
	s.refs--
	if s.refs == 0 && f.slots[ownerID] == s {
		delete(f.slots, ownerID)
	}
	f.mu.Unlock()
}
