// Package enums holds the closed string sets stored in the database and
// exchanged with clients.
package enums

import (
	"fmt"
	"slices"
)

func valid[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

func parse[T ~string](kind string, set []T, raw string) (T, error) {
	if v := T(raw); valid(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
