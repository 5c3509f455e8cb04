package model

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientRead marks a remote read that may succeed when retried.
	ErrTransientRead = errors.New("transient remote read failure")
	// ErrWriteVerification marks a write the read-back did not confirm.
	ErrWriteVerification = errors.New("write verification failed")
	// ErrMalformedRecord marks a remote record missing its join key.
	ErrMalformedRecord = errors.New("malformed remote record")
	// ErrConnection marks a lost or unusable store connection.
	ErrConnection = errors.New("store connection failure")
	// ErrSkipped is returned when a variant is not sellable and nothing was written.
	ErrSkipped = fmt.Errorf("%w: variant has no sku", ErrMalformedRecord)
)

type WriteVerificationError struct {
	Table     string
	ID        int64
	Attempted int64
	Actual    int64
	Found     bool
}

func (e *WriteVerificationError) Error() string {
	if !e.Found {
		return fmt.Sprintf("%s id=%d: row not found after writing %d", e.Table, e.ID, e.Attempted)
	}
	return fmt.Sprintf("%s id=%d: wrote %d, read back %d", e.Table, e.ID, e.Attempted, e.Actual)
}

func (e *WriteVerificationError) Unwrap() error { return ErrWriteVerification }
