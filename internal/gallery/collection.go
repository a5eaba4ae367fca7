// Package gallery implements the ordering core: an explicitly-ordered
// collection of uniquely-identified items, reconciliation against a persisted
// order, the sync engine that owns one gallery's displayed order, and the
// reorder gesture session.
package gallery

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange reports a move/insert/remove index outside the
// collection bounds. This is a programming error in the caller, not a
// user-facing condition.
var ErrIndexOutOfRange = errors.New("index out of range")

// Identifiable is anything with a stable ordering identity.
type Identifiable interface {
	Identity() string
}

// Collection is an ordered sequence of uniquely-identified items.
// Insertion order is display order. All operations are value operations:
// they return a new Collection and leave the receiver untouched.
type Collection[T Identifiable] struct {
	items []T
}

// NewCollection builds a collection from items, keeping the first occurrence
// of each identity and dropping later duplicates.
func NewCollection[T Identifiable](items []T) Collection[T] {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := it.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}
	return Collection[T]{items: out}
}

// Len returns the number of items.
func (c Collection[T]) Len() int {
	return len(c.items)
}

// Items returns a copy of the ordered items.
func (c Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// IDs returns the ordered identity sequence.
func (c Collection[T]) IDs() []string {
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = it.Identity()
	}
	return ids
}

// At returns the item at index i.
func (c Collection[T]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(c.items) {
		return zero, fmt.Errorf("at %d of %d: %w", i, len(c.items), ErrIndexOutOfRange)
	}
	return c.items[i], nil
}

// Move removes the item at from and reinserts it at to, where to is
// interpreted against the list with the item already removed: moving index 0
// to index 2 in [A,B,C,D] yields [B,C,A,D]. Moving an item onto itself
// returns an equal collection.
func (c Collection[T]) Move(from, to int) (Collection[T], error) {
	n := len(c.items)
	if from < 0 || from >= n {
		return c, fmt.Errorf("move from %d of %d: %w", from, n, ErrIndexOutOfRange)
	}
	if to < 0 || to >= n {
		return c, fmt.Errorf("move to %d of %d: %w", to, n, ErrIndexOutOfRange)
	}

	out := make([]T, 0, n)
	out = append(out, c.items...)
	if from == to {
		return Collection[T]{items: out}, nil
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return Collection[T]{items: out}, nil
}

// InsertAt inserts item at index i. i == Len() appends.
func (c Collection[T]) InsertAt(i int, item T) (Collection[T], error) {
	n := len(c.items)
	if i < 0 || i > n {
		return c, fmt.Errorf("insert at %d of %d: %w", i, n, ErrIndexOutOfRange)
	}
	out := make([]T, 0, n+1)
	out = append(out, c.items[:i]...)
	out = append(out, item)
	out = append(out, c.items[i:]...)
	return Collection[T]{items: out}, nil
}

// Append adds item at the end of the collection.
func (c Collection[T]) Append(item T) Collection[T] {
	out, _ := c.InsertAt(len(c.items), item)
	return out
}

// RemoveAt removes the item at index i.
func (c Collection[T]) RemoveAt(i int) (Collection[T], error) {
	n := len(c.items)
	if i < 0 || i >= n {
		return c, fmt.Errorf("remove at %d of %d: %w", i, n, ErrIndexOutOfRange)
	}
	out := make([]T, 0, n-1)
	out = append(out, c.items[:i]...)
	out = append(out, c.items[i+1:]...)
	return Collection[T]{items: out}, nil
}

// RemoveID removes the item with the given identity. The second return is
// false when no item matched.
func (c Collection[T]) RemoveID(id string) (Collection[T], bool) {
	for i, it := range c.items {
		if it.Identity() == id {
			out, _ := c.RemoveAt(i)
			return out, true
		}
	}
	return c, false
}

// IndexOf returns the index of the item with the given identity, or -1.
func (c Collection[T]) IndexOf(id string) int {
	for i, it := range c.items {
		if it.Identity() == id {
			return i
		}
	}
	return -1
}

// SameOrder reports whether both collections carry the same identities in
// the same order. Used to avoid state churn when inputs are re-delivered
// unchanged.
func (c Collection[T]) SameOrder(other Collection[T]) bool {
	if len(c.items) != len(other.items) {
		return false
	}
	for i := range c.items {
		if c.items[i].Identity() != other.items[i].Identity() {
			return false
		}
	}
	return true
}

// Reconcile merges a previously saved identity order with the currently
// available items: identities from canonicalIDs that still exist come first,
// in saved order, then every available item not mentioned in the saved order,
// in available order. Every available item appears exactly once; stale
// identities are dropped silently.
func Reconcile[T Identifiable](canonicalIDs []string, available []T) Collection[T] {
	byID := make(map[string]T, len(available))
	for _, it := range available {
		if _, ok := byID[it.Identity()]; !ok {
			byID[it.Identity()] = it
		}
	}

	out := make([]T, 0, len(available))
	seen := make(map[string]struct{}, len(available))
	for _, id := range canonicalIDs {
		it, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}
	for _, it := range available {
		if _, ok := seen[it.Identity()]; ok {
			continue
		}
		seen[it.Identity()] = struct{}{}
		out = append(out, it)
	}
	return Collection[T]{items: out}
}
