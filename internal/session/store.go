package session

import (
	"fmt"
	"sync/atomic"
)

// Registry holds the live PlayerSession for every connection slot. It is a
// fixed-size table allocated once the host reports its slot count; each
// entry is an atomic pointer, so handlers for different players never
// contend with each other.
type Registry struct {
	slots []atomic.Pointer[PlayerSession]
}

// NewRegistry allocates a registry with size slots.
func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		return nil, fmt.Errorf("registry size must be positive, got %d", size)
	}
	return &Registry{slots: make([]atomic.Pointer[PlayerSession], size)}, nil
}

// Size returns the number of slots.
func (r *Registry) Size() int {
	return len(r.slots)
}

func (r *Registry) inRange(index int) bool {
	return index >= 0 && index < len(r.slots)
}

// Login starts a fresh session for index, replacing any session left over
// from a previous connection on the same slot. It returns false when index
// is outside the registry.
func (r *Registry) Login(index int) (*PlayerSession, bool) {
	if !r.inRange(index) {
		return nil, false
	}
	s := NewPlayerSession(index)
	r.slots[index].Store(s)
	return s, true
}

// Leave drops the session for index, if any.
func (r *Registry) Leave(index int) {
	if !r.inRange(index) {
		return
	}
	r.slots[index].Store(nil)
}

// Get returns the session for index. Unallocated or out-of-range slots
// report false.
func (r *Registry) Get(index int) (*PlayerSession, bool) {
	if !r.inRange(index) {
		return nil, false
	}
	s := r.slots[index].Load()
	return s, s != nil
}

// ActiveCount returns the number of slots with a session.
func (r *Registry) ActiveCount() int {
	count := 0
	for i := range r.slots {
		if r.slots[i].Load() != nil {
			count++
		}
	}
	return count
}

// Snapshots returns a copy of every live session in slot order.
func (r *Registry) Snapshots() []Snapshot {
	result := make([]Snapshot, 0)
	for i := range r.slots {
		if s := r.slots[i].Load(); s != nil {
			result = append(result, s.Snapshot())
		}
	}
	return result
}
