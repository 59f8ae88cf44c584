// Package transaction caches the objects loaded during one logical
// operation, so that asking twice for the same weave returns the same
// instance instead of a second copy with its own state.
package transaction

import (
	"errors"
	"fmt"
	"sync"
)

// ErrReadOnly is returned when a dirty object is registered in a
// read-only transaction.
var ErrReadOnly = errors.New("transaction: read only")

// ErrIDInUse is returned when an id is registered twice with different
// objects. An id maps to at most one live instance.
var ErrIDInUse = errors.New("transaction: id already registered")

// Transaction is an identity map over the objects touched by one
// operation. Clean entries may be evicted to bound memory; precious and
// dirty entries never are.
type Transaction struct {
	mu        sync.Mutex
	writeable bool

	objects  map[string]any
	precious map[string]bool
	dirty    map[string]bool

	// Eviction order for plain clean entries.
	queue []string
	limit int
}

const defaultCacheSize = 100

// NewReadOnly returns a transaction that rejects dirty registrations.
func NewReadOnly() *Transaction {
	return newTransaction(false)
}

// NewWrite returns a transaction that accepts dirty registrations and
// pins them until the transaction is finished.
func NewWrite() *Transaction {
	return newTransaction(true)
}

func newTransaction(writeable bool) *Transaction {
	return &Transaction{
		writeable: writeable,
		objects:   make(map[string]any),
		precious:  make(map[string]bool),
		dirty:     make(map[string]bool),
		limit:     defaultCacheSize,
	}
}

// Writeable reports whether dirty objects may be registered.
func (t *Transaction) Writeable() bool {
	return t.writeable
}

// Find returns the object registered under id, if any.
func (t *Transaction) Find(id string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.objects[id]
	return obj, ok
}

// RegisterClean records obj under id. Precious objects are exempt from
// cache eviction. Registering the same object again is a no-op;
// registering a different object under a live id is ErrIDInUse.
func (t *Transaction) RegisterClean(id string, obj any, precious bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.put(id, obj); err != nil {
		return err
	}
	if precious {
		t.precious[id] = true
	} else if !t.precious[id] && !t.dirty[id] {
		t.queue = append(t.queue, id)
		t.evictLocked()
	}
	return nil
}

// RegisterDirty records obj under id as modified. Dirty objects are
// pinned for the life of the transaction.
func (t *Transaction) RegisterDirty(id string, obj any) error {
	if !t.writeable {
		return fmt.Errorf("%w: cannot register %q dirty", ErrReadOnly, id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.put(id, obj); err != nil {
		return err
	}
	t.dirty[id] = true
	return nil
}

// Forget drops the entry for id, if any.
func (t *Transaction) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.objects, id)
	delete(t.precious, id)
	delete(t.dirty, id)
}

// SetCacheSize bounds the number of plain clean entries kept alive.
// Precious and dirty entries do not count against the limit.
func (t *Transaction) SetCacheSize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = n
	t.evictLocked()
}

// Finish releases everything the transaction holds.
func (t *Transaction) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects = make(map[string]any)
	t.precious = make(map[string]bool)
	t.dirty = make(map[string]bool)
	t.queue = nil
}

func (t *Transaction) put(id string, obj any) error {
	if prev, ok := t.objects[id]; ok {
		if prev != obj {
			return fmt.Errorf("%w: %q", ErrIDInUse, id)
		}
		return nil
	}
	t.objects[id] = obj
	return nil
}

func (t *Transaction) evictLocked() {
	for len(t.queue) > t.limit {
		id := t.queue[0]
		t.queue = t.queue[1:]
		if t.precious[id] || t.dirty[id] {
			continue
		}
		delete(t.objects, id)
	}
}
