package ecs

import "sort"

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(Handle, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for h, a := range sa.data {
			if b, ok := sb.data[h]; ok {
				fn(h, a, b)
			}
		}
	} else {
		for h, b := range sb.data {
			if a, ok := sa.data[h]; ok {
				fn(h, a, b)
			}
		}
	}
}

// Collect returns the handles in s matching keep, sorted so that callers
// mutating the world while walking the result see a deterministic order.
func Collect[T any](s *PtrComponentStore[T], keep func(Handle, *T) bool) []Handle {
	out := make([]Handle, 0, len(s.data))
	for h, c := range s.data {
		if keep == nil || keep(h, c) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
