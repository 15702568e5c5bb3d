package reindex

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
)

// aliasLocks serializes rebuilds per alias within the process.
type aliasLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newAliasLocks() *aliasLocks {
	return &aliasLocks{held: make(map[string]struct{})}
}

// tryAcquire claims the alias, returning false if a rebuild already
// holds it.
func (l *aliasLocks) tryAcquire(alias string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[alias]; ok {
		return false
	}
	l.held[alias] = struct{}{}
	return true
}

func (l *aliasLocks) release(alias string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, alias)
}

// fileLock guards a rebuild across processes via a lock file. Used
// only when a lock directory is configured.
type fileLock struct {
	fl *flock.Flock
}

func newFileLock(dir, alias string) *fileLock {
	return &fileLock{
		fl: flock.New(filepath.Join(dir, alias+".rebuild.lock")),
	}
}

// tryAcquire attempts a non-blocking exclusive lock. A held lock in
// another process yields a conflict error, not a wait.
func (l *fileLock) tryAcquire() error {
	locked, err := l.fl.TryLock()
	if err != nil {
		return lifterrors.InternalError(
			fmt.Sprintf("failed to probe rebuild lock %s", l.fl.Path()), err)
	}
	if !locked {
		return lifterrors.ConflictError(fmt.Sprintf(
			"another process is rebuilding (lock %s)", l.fl.Path()))
	}
	return nil
}

func (l *fileLock) release() error {
	return l.fl.Unlock()
}
