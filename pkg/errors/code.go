package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 13000-13999: Execution & Sandbox errors
// 14000-14999: Isolation host errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	CacheMiss  ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Execution & Sandbox Errors (13000-13999) ==========

	// Request (13000-13099)
	CodeTooLarge         ErrorCode = 13002
	LanguageNotSupported ErrorCode = 13003
	InvalidEntryPoint    ErrorCode = 13004

	// Execution (13100-13199)
	ExecutionQueueFull ErrorCode = 13100
	SandboxSystemError ErrorCode = 13101
	CompilationError   ErrorCode = 13102
	RuntimeError       ErrorCode = 13103
	TimeLimitExceeded  ErrorCode = 13104
	FilesystemError    ErrorCode = 13110
	ProcessSpawnError  ErrorCode = 13111

	// ========== Isolation Host Errors (14000-14999) ==========

	RuntimeUnavailable   ErrorCode = 14000
	ExecutionHostError   ErrorCode = 14001
	ExecutionHostStopped ErrorCode = 14002
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",
	CacheMiss:  "Cache miss",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Request
	CodeTooLarge:         "Code is too large",
	LanguageNotSupported: "Programming language not supported",
	InvalidEntryPoint:    "Invalid entry point name",

	// Execution
	ExecutionQueueFull: "Execution queue is full, please try again later",
	SandboxSystemError: "Sandbox system error",
	CompilationError:   "Compilation error",
	RuntimeError:       "Runtime error",
	TimeLimitExceeded:  "Time limit exceeded",
	FilesystemError:    "Workspace filesystem error",
	ProcessSpawnError:  "Process could not be started",

	// Isolation
	RuntimeUnavailable:   "Container runtime is unavailable",
	ExecutionHostError:   "Execution host operation failed",
	ExecutionHostStopped: "Execution host is not running",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound:
		return 404
	case c == TooManyRequests, c == ExecutionQueueFull:
		return 429
	case c == ServiceUnavailable, c == RuntimeUnavailable, c == ExecutionHostStopped:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == CodeTooLarge, c == LanguageNotSupported, c == InvalidEntryPoint:
		return 400
	default:
		return 500
	}
}
