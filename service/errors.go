package service

import (
	"errors"
	"fmt"

	"github.com/cppla/anonbbs/attachments"
)

var (
	// ErrValidation marks input the board refuses to store (empty content).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown thread or parent id.
	ErrNotFound = errors.New("not found")
	// ErrStore marks a persistence failure; the underlying error stays in the chain.
	ErrStore = errors.New("store failure")
	// ErrAttachmentRejected is returned in strict mode when the upload fails validation.
	ErrAttachmentRejected = attachments.ErrRejected
)

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
