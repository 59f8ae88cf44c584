// Package lock provides an advisory exclusive lock backed by a lock
// file. Creation uses O_EXCL, so exactly one holder wins even when
// several processes race for the same path.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when the lock file already exists.
var ErrLockHeld = errors.New("lock: already held")

// ErrNotHeld is returned when releasing a lock this holder does not own.
var ErrNotHeld = errors.New("lock: not held")

// Lock identifies one acquisition of the lock file at Path. The token
// written into the file ties the file to this holder.
type Lock struct {
	path  string
	token string
}

// Acquire creates the lock file at path. ErrLockHeld if someone else
// got there first.
func Acquire(path string) (*Lock, error) {
	token := uuid.NewString()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
	}
	if err != nil {
		return nil, err
	}
	if _, err := f.WriteString(token + "\n"); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &Lock{path: path, token: token}, nil
}

// Path returns the lock file's path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. The file must still carry this
// holder's token; if it carries another token or is gone, the lock was
// broken and ErrNotHeld is returned.
func (l *Lock) Release() error {
	b, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotHeld, l.path)
	}
	if err != nil {
		return err
	}
	if string(b) != l.token+"\n" {
		return fmt.Errorf("%w: %s held by someone else", ErrNotHeld, l.path)
	}
	return os.Remove(l.path)
}

// Held reports whether the lock file still carries this holder's token.
func (l *Lock) Held() bool {
	b, err := os.ReadFile(l.path)
	return err == nil && string(b) == l.token+"\n"
}
