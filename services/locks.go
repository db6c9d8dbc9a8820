package services

import "sync"

// TournamentLocker serializes mutations of one tournament inside this process. The tournament
// and match services must share the same instance.
type TournamentLocker interface {
	// Lock blocks until the tournament's mutex is held and returns its release function.
	Lock(tournamentID int) func()
}

// tournamentLocks hands out one mutex per tournament. Entries are reference counted and
// dropped once nobody holds or waits for them.
type tournamentLocks struct {
	mu    sync.Mutex
	locks map[int]*tournamentLock
}

type tournamentLock struct {
	mu   sync.Mutex
	refs int
}

func NewTournamentLocker() TournamentLocker {
	return newTournamentLocks()
}

func newTournamentLocks() *tournamentLocks {
	return &tournamentLocks{locks: make(map[int]*tournamentLock)}
}

func (l *tournamentLocks) Lock(tournamentID int) func() {
	l.mu.Lock()
	entry, ok := l.locks[tournamentID]
	if !ok {
		entry = &tournamentLock{}
		l.locks[tournamentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, tournamentID)
		}
		l.mu.Unlock()
	}
}

func (l *tournamentLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
