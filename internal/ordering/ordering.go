// Package ordering keeps an owner's items densely indexed 0..count-1.
//
// It only plans index changes. A plan is a Shift over one contiguous range plus the
// new index of the moved item; the store applies both in a single transaction.
package ordering

import (
	"errors"
	"fmt"
)

// MaxItems is the per-owner cap enforced on append.
const MaxItems = 50

var (
	ErrInvalidRange  = errors.New("invalid target index")
	ErrQuotaExceeded = errors.New("item limit reached")
)

// Shift adds Delta to every index in [Lo, Hi]. An empty shift has Lo > Hi.
type Shift struct {
	Lo    int
	Hi    int
	Delta int
}

// Empty reports whether the shift touches nothing.
func (s Shift) Empty() bool {
	return s.Lo > s.Hi || s.Delta == 0
}

// Contains reports whether index falls in the shifted range.
func (s Shift) Contains(index int) bool {
	return !s.Empty() && index >= s.Lo && index <= s.Hi
}

// Apply returns the index an item at index ends up at.
func (s Shift) Apply(index int) int {
	if s.Contains(index) {
		return index + s.Delta
	}
	return index
}

func (s Shift) String() string {
	if s.Empty() {
		return "shift{}"
	}
	return fmt.Sprintf("shift{[%d,%d] %+d}", s.Lo, s.Hi, s.Delta)
}

// Append returns the index for a new item given the current count.
func Append(count int) (int, error) {
	if count >= MaxItems {
		return 0, ErrQuotaExceeded
	}
	return count, nil
}

// CloseGap plans the shift after removing the item at deleted from a set of count
// items (count includes the deleted one).
func CloseGap(deleted, count int) Shift {
	return Shift{Lo: deleted + 1, Hi: count - 1, Delta: -1}
}

// Move plans moving the item at old to new in a set of count items. Items in
// (old, new] move up one slot when moving later; items in [new, old) move down one
// slot when moving earlier.
func Move(old, new, count int) (Shift, error) {
	if new < 0 || new >= count || old < 0 || old >= count || new == old {
		return Shift{}, fmt.Errorf("%w: move %d to %d of %d", ErrInvalidRange, old, new, count)
	}
	if old < new {
		return Shift{Lo: old + 1, Hi: new, Delta: -1}, nil
	}
	return Shift{Lo: new, Hi: old - 1, Delta: 1}, nil
}

// Dense reports whether indices is exactly a permutation of 0..len-1.
func Dense(indices []int) bool {
	seen := make([]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(indices) || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
