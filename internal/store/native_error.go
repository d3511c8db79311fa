package store

// NativeError is the error signal shape at the native boundary: a code
// string, a human-readable message, and an optional details string
// (typically the offending identifier). The use-case layer translates
// every NativeError through the taxonomy mapping; codes it does not know
// become platform errors, never a leaked native type.
type NativeError struct {
	Code    string
	Message string
	Details string
}

func (e *NativeError) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Message + " (" + e.Details + ")"
	}
	return e.Code + ": " + e.Message
}
