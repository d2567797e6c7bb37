package workflow

import "sync"

// threadLocks hands out one mutex per thread id so state transitions for
// a thread never interleave. Entries are kept for the process lifetime;
// the set is bounded by the number of active threads.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a thread id and returns its unlock func.
func (t *threadLocks) lock(threadID string) func() {
	t.mu.Lock()
	m, ok := t.locks[threadID]
	if !ok {
		m = &sync.Mutex{}
		t.locks[threadID] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
