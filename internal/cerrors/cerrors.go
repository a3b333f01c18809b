// Package cerrors defines the domain error taxonomy shared by the library,
// media, project, upload, and engine packages. Every domain failure is an
// *Error carrying a Kind, which KindOf recovers from a wrapped error chain.
package cerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the error taxonomy an error belongs to.
type Kind string

const (
	// KindNonExistentItem means a uuid was not found, or was found in the
	// wrong trash state.
	KindNonExistentItem Kind = "non_existent_item"

	// KindFileIntegrity means an upload's MD5 did not match what the
	// client announced. Fatal for the upload session.
	KindFileIntegrity Kind = "file_integrity"

	// KindNotTimecode means the duration prober's output could not be
	// parsed as a timecode. Aborts ingest.
	KindNotTimecode Kind = "not_timecode"

	// KindEngine means the playback engine returned a non-OK response, a
	// shape violation, or the request timed out.
	KindEngine Kind = "engine"

	// KindConflict means a name/unix_name uniqueness constraint was
	// violated.
	KindConflict Kind = "conflict"

	// KindTransient means a filesystem or subprocess step failed.
	// Triggers compensating rollback.
	KindTransient Kind = "transient"
)

// Error is a typed domain error carrying enough context for the session
// dispatcher to build a reply frame without re-inspecting the underlying
// cause.
type Error struct {
	Kind    Kind
	Message string
	UUID    string // originating entity uuid, if any
	Cause   error
}

func (e *Error) Error() string {
	if e.UUID != "" {
		return fmt.Sprintf("%s: %s (uuid=%s)", e.Kind, e.Message, e.UUID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is comparisons against a bare Kind-tagged sentinel
// (an *Error with only Kind set).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NonExistentItem builds a KindNonExistentItem error for the given uuid.
func NonExistentItem(uuid string) *Error {
	return &Error{Kind: KindNonExistentItem, Message: fmt.Sprintf("item with uuid %s does not exist", uuid), UUID: uuid}
}

// FileIntegrity builds a KindFileIntegrity error.
func FileIntegrity(message string) *Error {
	return &Error{Kind: KindFileIntegrity, Message: message}
}

// NotTimecode builds a KindNotTimecode error wrapping the parse failure.
func NotTimecode(cause error) *Error {
	return &Error{Kind: KindNotTimecode, Message: "duration output is not a parseable timecode", Cause: cause}
}

// Engine builds a KindEngine error.
func Engine(message string) *Error {
	return &Error{Kind: KindEngine, Message: message}
}

// Conflict builds a KindConflict error for a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Transient wraps a filesystem or subprocess failure.
func Transient(message string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
