package service

import "sync"

// groupLocks serializes mutations that must evaluate a balance precondition
// and apply the change as one atomic unit (member leave/removal, group
// delete). One mutex per group id; entries are never pruned.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the group and returns its unlock function.
func (g *groupLocks) Lock(groupID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[groupID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
