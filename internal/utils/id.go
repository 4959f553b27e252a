package utils

import (
	"github.com/google/uuid"
)

// NewID returns a unique identifier whose lexical order follows creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String()
	}

	// Fallback to a random id if the v7 generator is unavailable.
	return uuid.NewString()
}
