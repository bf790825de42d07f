package storage

import (
	"slices"
	"sync"
)

// PathLocker hands out one advisory mutex per path, created on demand.
// Mutexes are never released; the set is bounded by the number of distinct
// entities touched during the process lifetime.
type PathLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathLocker returns an empty locker.
func NewPathLocker() *PathLocker {
	return &PathLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *PathLocker) get(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	return m
}

// Lock acquires the mutexes of every distinct path in sorted order and
// returns a function releasing them.
func (l *PathLocker) Lock(paths ...string) (unlock func()) {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, p := range sorted {
		m := l.get(p)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
