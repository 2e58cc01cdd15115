package platform

import (
	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// IsID reports whether s is a canonical UUID string as produced by NewID.
func IsID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
