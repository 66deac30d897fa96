// internal/errs/errs.go
//
// Sentinel errors shared by the artifact and template packages.
//
// Context
// -------
// Every failure that leaves the core is classified into one of a handful
// of kinds so the serving layer can map it without knowing which package
// produced it:
//
//   - ErrNotFound           template, site, or token absent or expired.
//   - ErrProcessFailed      build or screenshot subprocess failed.
//   - ErrIO                 copy, read, write, or mkdir failure.
//   - ErrMalformedMetadata  metadata.json missing or invalid.
//   - ErrEncoding           subprocess output was not valid UTF-8.
//
// Callers wrap with fmt.Errorf("…: %w", err) and classify with errors.Is.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProcessFailed indicates an external build or render process failed.
	ErrProcessFailed = errors.New("process failed")

	// ErrIO indicates a filesystem operation failed.
	ErrIO = errors.New("io failure")

	// ErrMalformedMetadata indicates a template descriptor could not be used.
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrEncoding indicates subprocess output was not valid text.
	ErrEncoding = errors.New("invalid output encoding")

	// ErrDuplicateName indicates two template directories declare one name.
	ErrDuplicateName = errors.New("duplicate template name")
)

// ProcessError carries the captured stderr of a failed subprocess.
type ProcessError struct {
	Op     string // "assemble" or "render"
	Stderr string
	Err    error // exec error, may be nil when only the exit code was bad
}

func (e *ProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	switch {
	case msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, msg)
	case msg != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": process failed"
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProcessFailed) match any *ProcessError.
func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }

// IO wraps err as an ErrIO failure with an operation label.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}
