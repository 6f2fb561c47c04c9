package conversation

import "sync"

// shardLocks serializes read-modify-write cycles on a shard. The in-process
// mutex covers goroutines sharing a Store; the file lock covers other processes
// pointed at the same root.
type shardLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newShardLocks() *shardLocks {
	return &shardLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires both locks for the shard at path and returns the release func.
func (l *shardLocks) lock(path string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	l.mu.Unlock()

	m.Lock()
	release, err := lockFile(path + ".lock")
	if err != nil {
		m.Unlock()
		return nil, err
	}

	return func() {
		release()
		m.Unlock()
	}, nil
}
