package listview

import (
	"cmp"
	"strings"
	"time"
)

// CompareFunc orders two items for a column in the given direction.
type CompareFunc[T any] func(a, b T, dir Direction) int

func directed(c int, dir Direction) int {
	if dir == Desc {
		return -c
	}
	return c
}

// Text compares a string key case-insensitively.
func Text[T any](key func(T) string) CompareFunc[T] {
	return func(a, b T, dir Direction) int {
		return directed(strings.Compare(strings.ToLower(key(a)), strings.ToLower(key(b))), dir)
	}
}

// Number compares a numeric key.
func Number[T any](key func(T) float64) CompareFunc[T] {
	return func(a, b T, dir Direction) int {
		return directed(cmp.Compare(key(a), key(b)), dir)
	}
}

// Time compares a time key.
func Time[T any](key func(T) time.Time) CompareFunc[T] {
	return func(a, b T, dir Direction) int {
		return directed(key(a).Compare(key(b)), dir)
	}
}

// UpcomingFirst orders by start time with upcoming items (start >= now) always ahead of
// past ones. In ascending order upcoming items run soonest-first and past items run
// most-recent-first; descending inverts the order inside each group only.
func UpcomingFirst[T any](key func(T) time.Time, now func() time.Time) CompareFunc[T] {
	if now == nil {
		now = time.Now
	}
	return func(a, b T, dir Direction) int {
		n := now()
		ta, tb := key(a), key(b)
		upA, upB := !ta.Before(n), !tb.Before(n)
		switch {
		case upA && !upB:
			return -1
		case !upA && upB:
			return 1
		case upA:
			return directed(ta.Compare(tb), dir)
		default:
			return directed(tb.Compare(ta), dir)
		}
	}
}
