package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"component load failure", ErrComponentLoadFail, true},
		{"connection lost", ErrConnectionLost, true},
		{"connection timeout", ErrConnectionTimeout, true},
		{"relay disconnected", ErrRelayDisconnected, true},
		{"partial update failed", ErrUpdateFailed, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"unknown island type", ErrUnknownIslandType, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"bus closed", ErrBusClosed, true},
		{"document detached", ErrDocumentDetached, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"invalid marker", ErrInvalidMarker, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"unknown island type", ErrUnknownIslandType, true},
		{"invalid marker", ErrInvalidMarker, true},
		{"invalid props", ErrInvalidProps, true},
		{"invalid topic", ErrInvalidTopic, true},
		{"invalid pattern", ErrInvalidPattern, true},
		{"connection lost", ErrConnectionLost, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"unknown island type", ErrUnknownIslandType, ErrorInvalid},
		{"bus closed", ErrBusClosed, ErrorFatal},
		{"component load failure", ErrComponentLoadFail, ErrorTransient},
		{"unknown error", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("boom")
	wrapped := Wrap(base, "Bridge", "Scan", "marker discovery")

	if wrapped == nil {
		t.Fatal("expected non-nil wrapped error")
	}
	expected := "Bridge.Scan: marker discovery failed: boom"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}
	if Wrap(nil, "Bridge", "Scan", "noop") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	tests := []struct {
		name     string
		wrap     func(error, string, string, string) error
		expected ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(fmt.Errorf("boom"), "Bus", "Publish", "delivery")
			if err == nil {
				t.Fatal("expected non-nil error")
			}

			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected ClassifiedError in chain")
			}
			if ce.Class != test.expected {
				t.Errorf("expected class %v, got %v", test.expected, ce.Class)
			}
			if !strings.Contains(err.Error(), "Bus.Publish: delivery failed") {
				t.Errorf("wrap pattern missing from %q", err.Error())
			}
		})
	}
}

func TestClassificationSurvivesChaining(t *testing.T) {
	inner := WrapInvalid(ErrInvalidMarker, "Document", "ParseMarker", "attribute validation")
	outer := Wrap(inner, "Bridge", "Scan", "marker parsing")

	if !IsInvalid(outer) {
		t.Error("classification should survive a further Wrap")
	}
	if !errors.Is(outer, ErrInvalidMarker) {
		t.Error("sentinel should remain reachable through the chain")
	}
}
