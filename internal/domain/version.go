package domain

import "fmt"

// CheckVersion compares the caller's expected version against the
// stored one. Storage repeats the comparison atomically on write.
func CheckVersion(current, expected int64) error {
	if expected < 1 {
		return ErrInvalidVersion
	}
	if current != expected {
		return fmt.Errorf("%w: expected version %d, current is %d", ErrVersionConflict, expected, current)
	}
	return nil
}
