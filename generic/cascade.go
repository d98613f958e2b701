/*
cascade.go - Priority-ordered offsetting of an amount against buckets

PURPOSE:
  Several rules in this system say "take X away from A first, whatever is left
  from B, then from C". The Cascade applies that rule once, in one place.

KEY CONCEPTS:
  Bucket:
    A named total with a priority (lower = drained first).

  Cascade:
    Walks buckets in priority order. For each bucket:
      actual = total - remaining
      if actual < 0:  actual = 0, remaining -= total
      else:           remaining = 0
    Buckets never go below zero; only what a bucket could not absorb moves on.

EXAMPLE:
  Workday 5h (priority 1), Weekend 2h (priority 2), Holiday 0h (priority 3),
  offset 8h:
    Workday: 5-8 = -3 -> 0, remaining 3
    Weekend: 2-3 = -1 -> 0, remaining 1
    Holiday: 0-1 = -1 -> 0, remaining 1
  Unconsumed: 1h

SEE ALSO:
  - overtime/summary.go: Personal-leave offset against overtime hours
*/
package generic

import "sort"

// =============================================================================
// BUCKET - A named total drained in priority order
// =============================================================================

type Bucket struct {
	Name     string
	Priority int // lower = drained first
	Total    Amount
}

// Allocation is the outcome for a single bucket.
type Allocation struct {
	Name     string
	Total    Amount // before the offset
	Actual   Amount // after the offset, never negative
	Absorbed Amount // how much of the offset this bucket took
}

// CascadeResult describes how an offset was spread across buckets.
type CascadeResult struct {
	Offset      Amount
	Allocations []Allocation
	Unconsumed  Amount
}

// ByName returns the allocation for the named bucket.
func (r CascadeResult) ByName(name string) (Allocation, bool) {
	for _, a := range r.Allocations {
		if a.Name == name {
			return a, true
		}
	}
	return Allocation{}, false
}

// Cascade offsets the amount against buckets in priority order.
func Cascade(buckets []Bucket, offset Amount) CascadeResult {
	ordered := make([]Bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	result := CascadeResult{Offset: offset}
	remaining := offset

	for _, b := range ordered {
		actual := b.Total.Sub(remaining)
		before := remaining
		if actual.IsNegative() {
			actual = actual.Zero()
			remaining = remaining.Sub(b.Total)
		} else {
			remaining = remaining.Zero()
		}

		result.Allocations = append(result.Allocations, Allocation{
			Name:     b.Name,
			Total:    b.Total,
			Actual:   actual,
			Absorbed: before.Sub(remaining),
		})
	}

	result.Unconsumed = remaining
	return result
}
