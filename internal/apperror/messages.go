package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// WebSocket client errors
	CodeTransport:        "transport error",
	CodeProtocol:         "protocol violation",
	CodeAuth:             "authentication failed",
	CodeSubscribe:        "subscribe failed",
	CodeInvalidPatch:     "order book patch could not be applied",
	CodeVersion:          "version continuity broken",
	CodeSeqNum:           "sequence number continuity broken",
	CodeChecksum:         "checksum mismatch",
	CodeInvalidSymbol:    "invalid symbol",
	CodeInvalidTopic:     "invalid topic",
	CodeTimeout:          "operation timed out",
	CodeExecution:        "awaitable task failed",
	CodeDuplicate:        "duplicate registration",
	CodeOrderbookFetchFailed: "failed to fetch order book snapshot",
	CodeInvalidOrderbook:     "invalid order book data",

	// Circuit breaker errors
	CodeCircuitOpen:     "circuit breaker is open",
	CodeCircuitHalfOpen: "circuit breaker is half-open",
}
