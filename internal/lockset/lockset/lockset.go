// Package lockset implements lock sets for the Eraser lockset algorithm.
//
// A lock set is used in two roles:
//   - L(t): the locks currently held by thread t
//   - C(v): the candidate locks believed to protect memory location v
//
// Key operations:
//   - Intersect: refinement of C(v) on every shared access, C(v) := C(v) ∩ L(t)
//   - Add/Remove: lock acquire and release on L(t), seeding of C(v)
//
// Sets are keyed by value, so membership, removal and intersection do not
// depend on insertion order and a lock can never appear twice.
package lockset

import (
	"slices"
	"strings"

	"github.com/kolkov/lockset/internal/lockset/lockid"
)

// Set is a set of lock identifiers.
//
// The zero value is an empty set ready to use. A Set must not be copied
// after first use.
type Set struct {
	locks map[lockid.LockID]struct{}
}

// New creates a set holding the given locks. Duplicates collapse.
func New(locks ...lockid.LockID) *Set {
	s := &Set{}
	for _, l := range locks {
		s.Add(l)
	}
	return s
}

// Add inserts l and reports whether it was absent before.
func (s *Set) Add(l lockid.LockID) bool {
	if s.locks == nil {
		s.locks = make(map[lockid.LockID]struct{})
	}
	if _, ok := s.locks[l]; ok {
		return false
	}
	s.locks[l] = struct{}{}
	return true
}

// Remove deletes l and reports whether it was present.
func (s *Set) Remove(l lockid.LockID) bool {
	if _, ok := s.locks[l]; !ok {
		return false
	}
	delete(s.locks, l)
	return true
}

// Contains reports whether l is in the set.
func (s *Set) Contains(l lockid.LockID) bool {
	_, ok := s.locks[l]
	return ok
}

// Len returns the number of locks in the set.
func (s *Set) Len() int {
	return len(s.locks)
}

// Empty reports whether the set has no locks.
func (s *Set) Empty() bool {
	return len(s.locks) == 0
}

// Intersect returns a new set holding the locks present in both s and other.
//
// Neither operand is modified. A nil other is treated as the empty set.
func (s *Set) Intersect(other *Set) *Set {
	out := &Set{}
	if other == nil {
		return out
	}
	// Iterate the smaller operand.
	small, large := s, other
	if large.Len() < small.Len() {
		small, large = large, small
	}
	for l := range small.locks {
		if large.Contains(l) {
			out.Add(l)
		}
	}
	return out
}

// Sorted returns the locks in ascending order.
//
// The returned slice is freshly allocated and never aliases the set.
func (s *Set) Sorted() []lockid.LockID {
	out := make([]lockid.LockID, 0, len(s.locks))
	for l := range s.locks {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// String returns a debug representation such as "{L1, L4}".
func (s *Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range s.Sorted() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.String())
	}
	b.WriteByte('}')
	return b.String()
}
