// Package lock provides in-process mutual exclusion keyed by aggregate.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// KeyedMutex serializes callers that share at least one key while letting
// callers with disjoint key sets run concurrently.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// ProjectKey returns the lock key of a project aggregate.
func ProjectKey(id uint64) string {
	return fmt.Sprintf("project:%d", id)
}

// UserKey returns the lock key of a user aggregate.
func UserKey(id uint64) string {
	return fmt.Sprintf("user:%d", id)
}

// EmailKey returns the lock key guarding the uniqueness of an email address.
func EmailKey(email string) string {
	return "email:" + email
}

// Lock acquires every key, in sorted order, and returns a function releasing them.
// If ctx is done before all keys are held, the keys taken so far are released
// and ctx.Err() is returned.
func (m *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	held := make([]string, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.unlock(held[i])
		}
	}

	for _, key := range keys {
		s := m.acquireSlot(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			m.releaseSlot(key)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (m *KeyedMutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *KeyedMutex) releaseSlot(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

func (m *KeyedMutex) unlock(key string) {
	m.mu.Lock()
	s, ok := m.slots[key]
	m.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key " + key)
	}
	<-s.ch
	m.releaseSlot(key)
}

// held reports the number of keys with a live slot.
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
