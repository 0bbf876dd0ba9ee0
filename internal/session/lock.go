package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/flock"

	"batchenc/internal/config"
	"batchenc/internal/services"
)

// ErrLocked reports that another process holds the run lock.
var ErrLocked = errors.New("another batchenc run is already active")

// Lock is a held run lock.
type Lock struct {
	path string
	lock *flock.Flock

	once sync.Once
	err  error
}

// Acquire takes the run lock for cfg's state directory without waiting.
func Acquire(cfg *config.Config) (*Lock, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "acquire", "ensure state directory", err)
	}
	return AcquirePath(cfg.LockPath())
}

// AcquirePath takes the lock at path without waiting.
func AcquirePath(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path is the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		l.err = l.lock.Unlock()
	})
	return l.err
}
