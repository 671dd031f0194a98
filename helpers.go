package qdash

import (
	"math"
	"time"
)

// *********** Other ***********

func has[C comparable](needle C, haystack []C) bool {
	return position(needle, haystack) >= 0
}

func position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

func toTime(x any) time.Time {
	if t, ok := x.(time.Time); ok {
		return t
	}

	return time.Time{}
}

// Near reports whether two quantile levels are the same level.
func Near(a, b float64) bool {
	const tol = 1e-9

	return math.Abs(a-b) < tol
}

// seq is 0..n-1.
func seq(n int) []int {
	s := make([]int, n)
	for ind := range s {
		s[ind] = ind
	}

	return s
}
