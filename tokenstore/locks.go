package tokenstore

import "sync"

// characterLocks serializes credential read-modify-write sequences per
// character. Operations on different characters proceed concurrently;
// within one character's partition two callers can never both observe an
// expired token and both issue a refresh.
type characterLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newCharacterLocks() *characterLocks {
	return &characterLocks{locks: make(map[int64]*sync.Mutex)}
}

func (cl *characterLocks) lock(characterID int64) *sync.Mutex {
	cl.mu.Lock()
	m, ok := cl.locks[characterID]
	if !ok {
		m = &sync.Mutex{}
		cl.locks[characterID] = m
	}
	cl.mu.Unlock()

	m.Lock()
	return m
}
