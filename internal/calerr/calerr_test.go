package calerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestFromNativeKnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want Kind
	}{
		{"PERMISSION_DENIED", KindPermissionDenied},
		{"CALENDAR_NOT_FOUND", KindCalendarNotFound},
		{"EVENT_NOT_FOUND", KindEventNotFound},
		{"INVALID_ARGUMENT", KindInvalidArgument},
		{"UNSUPPORTED_OPERATION", KindUnsupportedOperation},
		{"PLATFORM_ERROR", KindPlatformError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			got := FromNative(tt.code, "msg", "det")
			if got.Kind != tt.want {
				t.Errorf("FromNative(%q).Kind = %v, want %v", tt.code, got.Kind, tt.want)
			}
			if got.Message != "msg" || got.Details != "det" {
				t.Errorf("FromNative(%q) = %+v, want message and details preserved", tt.code, got)
			}
		})
	}
}

// Unknown native codes must still map; the code is folded into details so
// it is not lost.
func TestFromNativeUnknownCode(t *testing.T) {
	t.Parallel()

	got := FromNative("XYZ_CUSTOM", "boom", "")
	if got.Kind != KindPlatformError {
		t.Fatalf("Kind = %v, want %v", got.Kind, KindPlatformError)
	}
	if got.Message != "boom" {
		t.Errorf("Message = %q, want %q", got.Message, "boom")
	}
	if got.Details != "XYZ_CUSTOM" {
		t.Errorf("Details = %q, want %q", got.Details, "XYZ_CUSTOM")
	}

	withDetails := FromNative("XYZ_CUSTOM", "boom", "row 17")
	if withDetails.Details != "XYZ_CUSTOM: row 17" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "XYZ_CUSTOM: row 17")
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	taxonomy := EventNotFound("42")
	if got := Wrap(fmt.Errorf("outer: %w", taxonomy), "msg"); got != taxonomy {
		t.Errorf("Wrap should unwrap to the existing taxonomy error, got %+v", got)
	}

	plain := errors.New("disk on fire")
	got := Wrap(plain, "native store call failed")
	if got.Kind != KindPlatformError {
		t.Errorf("Kind = %v, want %v", got.Kind, KindPlatformError)
	}
	if got.Details != "disk on fire" {
		t.Errorf("Details = %q, want original error text", got.Details)
	}
}

func TestIsKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("context: %w", CalendarNotFound("cal-1"))
	if !IsKind(err, KindCalendarNotFound) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(err, KindEventNotFound) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindPlatformError) {
		t.Error("IsKind matched a non-taxonomy error")
	}
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	if got := EventNotFound("ev-9").Error(); got != "EVENT_NOT_FOUND: event not found (ev-9)" {
		t.Errorf("Error() = %q", got)
	}
	if got := PermissionDenied().Error(); got != "PERMISSION_DENIED: calendar access has not been granted" {
		t.Errorf("Error() = %q", got)
	}
}
