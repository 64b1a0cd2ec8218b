package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSameFile is returned when the output path resolves to the input.
var ErrSameFile = errors.New("output path resolves to the input file")

// GuardError reports a refused write.
type GuardError struct {
	Input  string
	Output string
	Err    error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("refusing to write %s (input %s): %v", e.Output, e.Input, e.Err)
}

func (e *GuardError) Unwrap() error { return e.Err }

// CheckPaths verifies that out is usable as an output for in: it must be set
// and must not name the input, directly or through a link.
func CheckPaths(in, out string) error {
	if out == "" {
		return &GuardError{Input: in, Output: out, Err: errors.New("output path is empty")}
	}
	absIn, err := filepath.Abs(in)
	if err != nil {
		return &GuardError{Input: in, Output: out, Err: err}
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return &GuardError{Input: in, Output: out, Err: err}
	}
	if filepath.Clean(absIn) == filepath.Clean(absOut) {
		return &GuardError{Input: in, Output: out, Err: ErrSameFile}
	}
	inInfo, errIn := os.Stat(absIn)
	outInfo, errOut := os.Stat(absOut)
	if errIn == nil && errOut == nil && os.SameFile(inInfo, outInfo) {
		return &GuardError{Input: in, Output: out, Err: ErrSameFile}
	}
	return nil
}
