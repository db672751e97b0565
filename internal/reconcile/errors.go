package reconcile

import (
	"errors"
	"fmt"
)

// ErrNoData aborts a run in which no ticker yielded a value. It usually
// means the source site changed its markup.
var ErrNoData = errors.New("reconcile: no dividend data extracted")

// LocatorError reports a header cell that could not be found.
type LocatorError struct {
	Column  string
	FromRow int
	Err     error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("reconcile: header %q not found at or after row %d: %v", e.Column, e.FromRow, e.Err)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// BlockExhaustedError reports that the active block has no empty value
// cell left for a ticker that must be written.
type BlockExhaustedError struct {
	Ticker string
	Limit  int
}

func (e *BlockExhaustedError) Error() string {
	return fmt.Sprintf("reconcile: no empty row before row %d for %s", e.Limit, e.Ticker)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var le *LocatorError
	var be *BlockExhaustedError
	return errors.As(err, &le) || errors.As(err, &be)
}
