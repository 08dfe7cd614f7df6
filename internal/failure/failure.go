// Package failure classifies installer errors so that workflow boundaries can
// decide what to abort and what to report.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies which part of an install run failed.
type Kind int

const (
	// Network covers download and size-probe failures.
	Network Kind = iota + 1
	// ArchiveFormat covers version-gate failures and unrecognized archive layouts.
	ArchiveFormat
	// Patch covers a failure reported by the external patcher for one target.
	Patch
	// Filesystem covers backup, restore, cache and extraction I/O failures.
	Filesystem
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case ArchiveFormat:
		return "archive format"
	case Patch:
		return "patch"
	case Filesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err. A nil err with a non-empty op still yields an error,
// which is how callers report conditions that have no underlying cause.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// New returns a classified error with a formatted message and no cause.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Op: fmt.Sprintf(format, args...)}
}

// Is reports whether any error in err's chain is a failure of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	for fe != nil {
		if fe.Kind == kind {
			return true
		}
		var next *Error
		if !errors.As(fe.Err, &next) {
			return false
		}
		fe = next
	}
	return false
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or 0 if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
