package model

import (
	"fmt"

	"github.com/google/uuid"
)

// StorageError reports a failed load, save or clear of a transcript.
type StorageError struct {
	Op     string
	UserID uuid.UUID
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s transcript of user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
