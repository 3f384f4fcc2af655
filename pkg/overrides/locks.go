package overrides

import "sync"

// Locks hands out one mutex per override file so concurrent patches of the same file are serialized.
type Locks struct {
	mutex sync.Mutex
	files map[string]*sync.Mutex
}

// NewLocks creates an empty lock set.
func NewLocks() *Locks {
	return &Locks{files: make(map[string]*sync.Mutex)}
}

// For returns the mutex guarding path.
func (l *Locks) For(path string) *sync.Mutex {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	lock, ok := l.files[path]
	if !ok {
		lock = &sync.Mutex{}
		l.files[path] = lock
	}

	return lock
}
