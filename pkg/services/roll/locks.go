package roll

import (
	"sync"

	"github.com/fadedpez/pitbot/pkg/entities"
)

// userLocks hands out one mutex per user and forgets it once nobody holds or waits on it
type userLocks struct {
	mu    sync.Mutex
	locks map[entities.UserID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[entities.UserID]*userLock)}
}

// lock blocks until user's mutex is held and returns its release func
func (l *userLocks) lock(user entities.UserID) func() {
	l.mu.Lock()
	entry, ok := l.locks[user]
	if !ok {
		entry = &userLock{}
		l.locks[user] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, user)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
