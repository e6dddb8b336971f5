package dfuse

import (
	"errors"
	"fmt"
)

// Validation failures reported by Parse. Every ParseError wraps exactly one
// of these, so callers can test with errors.Is.
var (
	ErrTruncated       = errors.New("file too short")
	ErrSignature       = errors.New("file signature error")
	ErrVersion         = errors.New("unsupported DfuSe version")
	ErrTargetSignature = errors.New("target signature error")
	ErrImageBounds     = errors.New("image element exceeds file")
	ErrChecksum        = errors.New("CRC check failed")
	ErrSuffix          = errors.New("file suffix error")
	ErrSuffixField     = errors.New("file suffix field error")
)

// ParseError describes why a DfuSe file was rejected.
type ParseError struct {
	// Err is one of the Err* sentinels of this package
	Err error

	// Detail gives the offending values
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "dfuse: " + e.Err.Error()
	}
	return fmt.Sprintf("dfuse: %s: %s", e.Err, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(sentinel error, format string, args ...interface{}) error {
	return &ParseError{Err: sentinel, Detail: fmt.Sprintf(format, args...)}
}
