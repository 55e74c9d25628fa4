package mfreader

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no response is received in time.
	ErrTimeout = errors.New("command timeout")
	// ErrInvalidResponse indicates a malformed response from the reader.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrOutOfRange indicates a block or sector number out of range.
	ErrOutOfRange = errors.New("out of range")
	// ErrInvalidBlockData indicates block data is not BlockSize bytes.
	ErrInvalidBlockData = errors.New("invalid block data")
	// ErrInvalidKey indicates a key with wrong length.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidAccessBits indicates corrupted access bits in a sector trailer.
	ErrInvalidAccessBits = errors.New("invalid access bits")
)

// CommandError is returned when the reader reports a failed command.
type CommandError struct {
	Command CommandCode
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed", e.Command)
}

// IsCommandFailed determines if err is reported by the reader.
func IsCommandFailed(err error) bool {
	_, ok := err.(*CommandError)
	return ok
}

var (
	errNoCard         = errors.New("no card")
	errUnknownCommand = errors.New("unknown command")
)
