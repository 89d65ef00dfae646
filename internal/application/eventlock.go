package application

import (
	"sort"
	"sync"
)

// eventLocks serializes the read-occupancy, decide, write sequence per event.
// Operations on different events proceed in parallel; two concurrent requests
// for the last seat of one event are forced through here one at a time.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *eventLocks) lockFor(eventID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[eventID] = lock
	}
	return lock
}

// Lock acquires the lock for a single event and returns the unlock function.
func (l *eventLocks) Lock(eventID string) func() {
	lock := l.lockFor(eventID)
	lock.Lock()
	return lock.Unlock
}

// LockPair acquires the locks for two events in lexical id order, so a
// reschedule from A to B and one from B to A can never deadlock. Both ids
// naming the same event acquires the lock once.
func (l *eventLocks) LockPair(firstID, secondID string) func() {
	if firstID == secondID {
		return l.Lock(firstID)
	}
	ids := []string{firstID, secondID}
	sort.Strings(ids)

	first := l.lockFor(ids[0])
	second := l.lockFor(ids[1])
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
