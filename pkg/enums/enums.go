// Package enums holds the string enums persisted in signboard, history and
// outbox rows.
package enums

import (
	"fmt"
	"slices"
)

// parseEnum returns the member of values equal to raw.
func parseEnum[T ~string](values []T, raw, kind string) (T, error) {
	if i := slices.Index(values, T(raw)); i >= 0 {
		return values[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
