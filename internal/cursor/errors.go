package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is matched by every *InsufficientDataError. It is a
	// signal to supply more bytes and retry, not a failure.
	ErrInsufficientData = errors.New("cursor: insufficient data")
	ErrEndOfStream      = errors.New("cursor: unexpected end of stream")
	ErrPutbackFailed    = errors.New("cursor: putback failed")
)

// InsufficientDataError reports how many bytes a read is still missing.
type InsufficientDataError struct {
	Missing int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cursor: insufficient data, need %d more bytes", e.Missing)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Missing extracts the missing byte count from an insufficient-data signal.
func Missing(err error) (int, bool) {
	var ins *InsufficientDataError
	if errors.As(err, &ins) {
		return ins.Missing, true
	}
	return 0, false
}
