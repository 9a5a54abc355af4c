// Package hlerr defines the caller-visible error taxonomy shared by every
// stage of the ingest-to-output pipeline.
//
// Errors are classified by Kind so that callers can decide policy (abort,
// skip-and-count, retry-once) without parsing error strings.
package hlerr

import "errors"

// Kind identifies which policy bucket an error belongs to.
type Kind int

const (
	// KindConfig covers invalid CLI/env/config values. Policy: abort
	// before any processing, exit 1.
	KindConfig Kind = iota
	// KindOpen covers a source that cannot be opened or read. Policy:
	// abort only if no inputs remain.
	KindOpen
	// KindParse covers a malformed record. Policy: skip, count, and
	// optionally pass through raw.
	KindParse
	// KindOverflow covers an entry exceeding max-message-size. Policy:
	// truncate and mark invalid.
	KindOverflow
	// KindQueryCompile covers bad -f/-q syntax. Policy: abort, exit 1.
	KindQueryCompile
	// KindIndex covers a sidecar inconsistency. Policy: invalidate and
	// rebuild silently.
	KindIndex
	// KindIO covers a sink write failure. Policy: broken pipe is
	// success, otherwise retry once then exit 2.
	KindIO
	// KindInterrupted covers cancellation. Policy: drain nothing, exit
	// cleanly.
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindOpen:
		return "OpenError"
	case KindParse:
		return "ParseError"
	case KindOverflow:
		return "OverflowError"
	case KindQueryCompile:
		return "QueryCompileError"
	case KindIndex:
		return "IndexError"
	case KindIO:
		return "IoError"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "UnknownError"
	}
}

// Error wraps an underlying cause with a Kind so policy can be decided by
// inspection instead of string matching.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given Kind wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel causes reused across packages, mirroring the teacher's
// detectParser sentinel-error style (ErrFileEmpty, ErrBinaryFile, ...).
var (
	ErrFileEmpty       = errors.New("input is empty")
	ErrBinaryInput     = errors.New("input appears to be binary")
	ErrUnknownFormat   = errors.New("unable to detect input format")
	ErrUnsupportedExt  = errors.New("unsupported compression or archive suffix")
	ErrMessageTooLarge = errors.New("entry exceeds max-message-size")
	ErrNoValidRecords  = errors.New("no records could be parsed from any input")
	ErrBrokenPipe      = errors.New("downstream pipe closed")
)
