package amf

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds. Codec failures unwrap to exactly one of these via
// errors.Is, matching the closed set of error kinds. The exceptions are the
// "unsupported value type" error the encoders return for a Value type they
// do not handle, and errors returned by registered externalizable readers
// and writers, which are passed through as they are.
var (
	// ErrTruncated means the input ended mid-structure.
	ErrTruncated = errors.New("amf: truncated input")
	// ErrUnknownMarker means a marker byte is not defined for the active version.
	ErrUnknownMarker = errors.New("amf: unknown marker")
	// ErrOutOfRange means a U29 encode overflowed, or a length field exceeds
	// the buffer or a configured ceiling.
	ErrOutOfRange = errors.New("amf: value out of range")
	// ErrBadReference means a reference index was >= the table length at
	// the moment it was read.
	ErrBadReference = errors.New("amf: bad reference")
	// ErrMalformedTrait means a trait header was internally inconsistent.
	ErrMalformedTrait = errors.New("amf: malformed trait")
	// ErrExternalizableNotRegistered means a decode encountered an
	// externalizable class with no registered reader.
	ErrExternalizableNotRegistered = errors.New("amf: externalizable class not registered")
	// ErrBufferTooSmall means an encode target buffer was exhausted.
	ErrBufferTooSmall = errors.New("amf: buffer too small")
	// ErrInvalidUTF8 means string bytes were not valid UTF-8.
	ErrInvalidUTF8 = errors.New("amf: invalid utf-8")
)

// RefKind names which reference table a BadReference error came from.
type RefKind string

const (
	RefString RefKind = "string"
	RefObject RefKind = "object"
	RefTrait  RefKind = "trait"
)

// BadReferenceError carries the offending table and index.
type BadReferenceError struct {
	Kind  RefKind
	Index int
	Len   int
}

func (e *BadReferenceError) Error() string {
	return fmt.Sprintf("amf: %s reference %d out of bounds (table has %d entries)", e.Kind, e.Index, e.Len)
}

func (e *BadReferenceError) Unwrap() error { return ErrBadReference }

func badRef(kind RefKind, index, length int) error {
	return &BadReferenceError{Kind: kind, Index: index, Len: length}
}

// UnknownMarkerError carries the offending marker byte and AMF version.
type UnknownMarkerError struct {
	Marker  byte
	Version int
}

func (e *UnknownMarkerError) Error() string {
	return fmt.Sprintf("amf: unknown AMF%d marker 0x%02x", e.Version, e.Marker)
}

func (e *UnknownMarkerError) Unwrap() error { return ErrUnknownMarker }

func unknownMarker(version int, marker byte) error {
	return &UnknownMarkerError{Marker: marker, Version: version}
}

// ExternalizableNotRegisteredError carries the class name that had no
// registered reader.
type ExternalizableNotRegisteredError struct {
	ClassName string
}

func (e *ExternalizableNotRegisteredError) Error() string {
	return fmt.Sprintf("amf: externalizable class %q not registered", e.ClassName)
}

func (e *ExternalizableNotRegisteredError) Unwrap() error { return ErrExternalizableNotRegistered }

func externalizableNotRegistered(className string) error {
	return &ExternalizableNotRegisteredError{ClassName: className}
}

// wrap attaches call-site context to a sentinel error while preserving
// errors.Is/As against both the sentinel and any stack trace pkg/errors
// recorded at the original failure site.
func wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "amf: %s", context)
}
