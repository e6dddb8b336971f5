package protocol

import (
	"errors"
	"fmt"
)

// ErrShortTransfer is wrapped by TransportError when the transport moved
// fewer bytes than requested.
var ErrShortTransfer = errors.New("short transfer")

// TransportError represents a failed USB control transfer.
type TransportError struct {
	// Op is the driver operation that failed, e.g. "getStatus"
	Op string

	// Err is the transport error, or ErrShortTransfer
	Err error

	// Got and Want are the transferred and expected byte counts
	Got  int
	Want int
}

func (e *TransportError) Error() string {
	if errors.Is(e.Err, ErrShortTransfer) {
		return fmt.Sprintf("USB failed during %s: %v (got %d bytes, want %d)", e.Op, e.Err, e.Got, e.Want)
	}
	return fmt.Sprintf("USB failed during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
