// Package calerr defines the closed error vocabulary exposed to callers
// and the total mapping from native store error codes into it. No native
// error type crosses the use-case boundary untranslated.
package calerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the taxonomy variants.
type Kind string

const (
	KindPermissionDenied     Kind = "PERMISSION_DENIED"
	KindCalendarNotFound     Kind = "CALENDAR_NOT_FOUND"
	KindEventNotFound        Kind = "EVENT_NOT_FOUND"
	KindInvalidArgument      Kind = "INVALID_ARGUMENT"
	KindUnsupportedOperation Kind = "UNSUPPORTED_OPERATION"
	KindPlatformError        Kind = "PLATFORM_ERROR"
)

// Error is the single error type surfaced by the use-case layer. Callers
// dispatch on Kind, not on native code strings.
type Error struct {
	Kind    Kind
	Message string
	Details string // typically the offending identifier or native code
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func PermissionDenied() *Error {
	return &Error{Kind: KindPermissionDenied, Message: "calendar access has not been granted"}
}

func CalendarNotFound(calendarID string) *Error {
	return &Error{Kind: KindCalendarNotFound, Message: "calendar not found", Details: calendarID}
}

func EventNotFound(eventID string) *Error {
	return &Error{Kind: KindEventNotFound, Message: "event not found", Details: eventID}
}

func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

func InvalidArgumentDetails(message, details string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message, Details: details}
}

func UnsupportedOperation(operation string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Message: "operation is not supported by this store", Details: operation}
}

func PlatformError(message, details string) *Error {
	return &Error{Kind: KindPlatformError, Message: message, Details: details}
}

// codeTable maps native error code strings onto taxonomy variants. Codes
// absent from the table fall through to PlatformError in FromNative.
var codeTable = map[string]Kind{
	"PERMISSION_DENIED":     KindPermissionDenied,
	"CALENDAR_NOT_FOUND":    KindCalendarNotFound,
	"EVENT_NOT_FOUND":       KindEventNotFound,
	"INVALID_ARGUMENT":      KindInvalidArgument,
	"UNSUPPORTED_OPERATION": KindUnsupportedOperation,
	"PLATFORM_ERROR":        KindPlatformError,
}

// FromNative translates a native error signal (code, message, optional
// details) into a taxonomy error. The mapping is total: an unknown code
// yields a PlatformError carrying the original message, with the native
// code folded into the details.
func FromNative(code, message, details string) *Error {
	kind, ok := codeTable[code]
	if !ok {
		d := code
		if details != "" {
			d = code + ": " + details
		}
		return &Error{Kind: KindPlatformError, Message: message, Details: d}
	}
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap coerces any error into a taxonomy error. Errors that already are
// taxonomy errors pass through unchanged; everything else becomes a
// PlatformError with the given message.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: KindPlatformError, Message: message, Details: err.Error()}
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
