// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package driver

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is an opaque reference to an engine object held by a host.
// Handles are unique across all object kinds, zero is never valid.
type Handle uintptr

var handles uint64

// registry maps handles of one object kind to their objects.
type registry[T any] struct {
	kind  string
	mutex sync.RWMutex
	items map[Handle]T
}

func newRegistry[T any](kind string) registry[T] {
	return registry[T]{kind: kind, items: make(map[Handle]T)}
}

func (r *registry[T]) add(v T) Handle {
	h := Handle(atomic.AddUint64(&handles, 1))
	r.mutex.Lock()
	r.items[h] = v
	r.mutex.Unlock()
	return h
}

func (r *registry[T]) get(h Handle) (T, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	v, ok := r.items[h]
	if !ok {
		return v, fmt.Errorf("%w: %s %d", ErrInvalidHandle, r.kind, h)
	}
	return v, nil
}

// optional resolves h, the zero handle resolves to the zero value.
func (r *registry[T]) optional(h Handle) (T, error) {
	if h == 0 {
		var zero T
		return zero, nil
	}
	return r.get(h)
}

func (r *registry[T]) remove(h Handle) (T, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	v, ok := r.items[h]
	if !ok {
		return v, fmt.Errorf("%w: %s %d", ErrInvalidHandle, r.kind, h)
	}
	delete(r.items, h)
	return v, nil
}

func (r *registry[T]) len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.items)
}

// drain removes and returns every object.
func (r *registry[T]) drain() []T {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]T, 0, len(r.items))
	for h, v := range r.items {
		out = append(out, v)
		delete(r.items, h)
	}
	return out
}
