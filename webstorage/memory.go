package webstorage

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Area. Quota counts len(key)+len(value) over all
// entries; 0 disables the limit.
type Memory struct {
	mu     sync.RWMutex
	m      map[string][]byte
	used   int
	quota  int
	closed bool
}

var _ Area = (*Memory)(nil)

func NewMemory(quota int) *Memory {
	return &Memory{m: make(map[string][]byte), quota: quota}
}

func (a *Memory) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, false, ErrClosed
	}
	v, ok := a.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (a *Memory) SetItem(_ context.Context, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	used := a.used + len(key) + len(value)
	if old, ok := a.m[key]; ok {
		used -= len(key) + len(old)
	}
	if a.quota > 0 && used > a.quota {
		return ErrQuotaExceeded
	}
	a.m[key] = append([]byte(nil), value...)
	a.used = used
	return nil
}

func (a *Memory) RemoveItem(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if old, ok := a.m[key]; ok {
		a.used -= len(key) + len(old)
		delete(a.m, key)
	}
	return nil
}

func (a *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}
	out := make([]string, 0, len(a.m))
	for k := range a.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Len returns the number of entries.
func (a *Memory) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.m)
}

func (a *Memory) Close() error {
	a.mu.Lock()
	a.closed = true
	a.m = nil
	a.mu.Unlock()
	return nil
}
