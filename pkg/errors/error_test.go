package errors_test

import (
	"errors"
	"fmt"
	"testing"

	. "codesandbox/pkg/errors"
)

func TestErrorCode_Message(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{Success, "Success"},
		{LanguageNotSupported, "Programming language not supported"},
		{InvalidParams, "Invalid parameters"},
		{FilesystemError, "Workspace filesystem error"},
		{ErrorCode(99999), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.code.Message(); got != tt.want {
				t.Errorf("Message() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{ValidationFailed, 400},
		{LanguageNotSupported, 400},
		{Unauthorized, 401},
		{Forbidden, 403},
		{NotFound, 404},
		{TooManyRequests, 429},
		{ExecutionQueueFull, 429},
		{RuntimeUnavailable, 503},
		{ProcessSpawnError, 500},
		{InternalServerError, 500},
	}

	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestNew(t *testing.T) {
	err := New(LanguageNotSupported)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if err.Code != LanguageNotSupported {
		t.Errorf("Code = %v, want %v", err.Code, LanguageNotSupported)
	}

	if err.Error() != LanguageNotSupported.Message() {
		t.Errorf("Error() = %v, want %v", err.Error(), LanguageNotSupported.Message())
	}
}

func TestNewf(t *testing.T) {
	err := Newf(TimeLimitExceeded, "execution timed out after %ds", 10)

	want := "execution timed out after 10s"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("permission denied")
	wrappedErr := Wrap(originalErr, FilesystemError)

	if wrappedErr.Code != FilesystemError {
		t.Errorf("Code = %v, want %v", wrappedErr.Code, FilesystemError)
	}

	if wrappedErr.Unwrap() != originalErr {
		t.Error("Unwrap() should return original error")
	}

	if Wrap(nil, FilesystemError) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("exec: \"gcc\": executable file not found in $PATH")
	err := Wrapf(originalErr, ProcessSpawnError, "start %s failed", "gcc")

	if err.Error() != "start gcc failed" {
		t.Errorf("Error() = %v", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should reach the wrapped error")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := New(ValidationFailed).
		WithDetail("field", "code").
		WithDetail("reason", "required")

	if err.Details["field"] != "code" {
		t.Error("Field detail not set correctly")
	}

	if err.Details["reason"] != "required" {
		t.Error("Reason detail not set correctly")
	}
}

func TestError_WithMessage(t *testing.T) {
	customMsg := "custom error message"
	err := New(InternalServerError).WithMessage(customMsg)

	if err.Error() != customMsg {
		t.Errorf("Error() = %v, want %v", err.Error(), customMsg)
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{
			name: "nil error",
			err:  nil,
			want: Success,
		},
		{
			name: "custom error",
			err:  New(LanguageNotSupported),
			want: LanguageNotSupported,
		},
		{
			name: "custom error wrapped by fmt",
			err:  fmt.Errorf("resolve: %w", New(LanguageNotSupported)),
			want: LanguageNotSupported,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(LanguageNotSupported)

	if !Is(err, LanguageNotSupported) {
		t.Error("Is() should return true for matching code")
	}

	if Is(err, FilesystemError) {
		t.Error("Is() should return false for non-matching code")
	}

	if Is(nil, LanguageNotSupported) {
		t.Error("Is() should return false for nil error")
	}
}

func TestCommonErrorConstructors(t *testing.T) {
	t.Run("UnsupportedLanguage", func(t *testing.T) {
		err := UnsupportedLanguage("ruby")
		if err.Code != LanguageNotSupported {
			t.Error("UnsupportedLanguage should use LanguageNotSupported code")
		}
		if err.Error() != "unsupported language: ruby" {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError("language", "required")
		if err.Code != ValidationFailed {
			t.Error("ValidationError should use ValidationFailed code")
		}
		if err.Details["field"] != "language" {
			t.Error("Field detail not set")
		}
	})
}
