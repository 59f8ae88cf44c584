package weave

import (
	"errors"
	"fmt"
)

// Lookup and mutation errors. All are raised synchronously to the
// caller; the engine never retries, logs, or swallows anything.
var (
	// ErrUnknownVersion indicates a version index that is not present.
	ErrUnknownVersion = errors.New("unknown version")

	// ErrUnknownName indicates a symbolic version name that is not present.
	ErrUnknownName = errors.New("unknown version name")

	// ErrNameConflict indicates a re-add of an existing version name with
	// different parents or different text.
	ErrNameConflict = errors.New("version already present with different content")

	// ErrBadParent indicates a parent index that is not strictly smaller
	// than its version's own index.
	ErrBadParent = errors.New("circular or forward parent")

	// ErrTextDisagreement indicates that two weaves being joined hold
	// different texts for the same version name. This is never resolved
	// silently.
	ErrTextDisagreement = errors.New("weaves disagree on text")
)

func unknownVersion(v int) error {
	return fmt.Errorf("%w: %d", ErrUnknownVersion, v)
}

func unknownName(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownName, name)
}

// FormatError indicates a structurally invalid weave: a malformed
// serialized stream, or bracketing that cannot be walked (such as an
// insertion or deletion left open at the end of the representation).
type FormatError struct {
	// Line is the 1-based line number in the serialized stream, or 0
	// when the error was detected on an in-memory weave.
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("weave format error at line %d: %s", e.Line, e.Msg)
	}
	return "weave format error: " + e.Msg
}

func formatErrf(format string, args ...interface{}) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// IntegrityError indicates that a version's reconstructed text does not
// hash to its stored sha1. Either the stored bytes were corrupted or the
// weave was mis-spliced; in both cases history can no longer be trusted.
type IntegrityError struct {
	Version int
	Name    string
	Want    string // stored sha1
	Got     string // recomputed sha1
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("mismatched sha1 for version %d %q: got %s, expected %s",
		e.Version, e.Name, e.Got, e.Want)
}
