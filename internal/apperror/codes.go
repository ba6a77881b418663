package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// WebSocket client error codes (see SPEC_FULL.md Error Handling Design)
const (
	// Transport-level failures: dial, read, write, unexpected close
	CodeTransport Code = "TRANSPORT"

	// Well-formed frame that violates the exchange's documented protocol shape
	CodeProtocol Code = "PROTOCOL"

	// Login/signature rejected or credentials missing for a private topic
	CodeAuth Code = "AUTH"

	// Exchange rejected or never acknowledged a subscribe command
	CodeSubscribe Code = "SUBSCRIBE"

	// An order-book delta could not be applied to the current snapshot
	CodeInvalidPatch Code = "INVALID_PATCH"

	// A version/sequence field regressed or skipped in a way invariants forbid
	CodeVersion Code = "VERSION"

	// A u/pu/prevSeqNum continuity field broke relative to the last applied update
	CodeSeqNum Code = "SEQNUM"

	// A computed checksum did not match the exchange-supplied checksum
	CodeChecksum Code = "CHECKSUM"

	// A UXSymbol could not be converted to or from an exchange-native symbol
	CodeInvalidSymbol Code = "INVALID_SYMBOL"

	// A UXTopic could not be converted to or from an exchange-native channel
	CodeInvalidTopic Code = "INVALID_TOPIC"

	// An awaited operation exceeded its deadline
	CodeTimeout Code = "TIMEOUT"

	// A named awaitable task finished with an error (wraps the task's own error)
	CodeExecution Code = "EXECUTION"

	// A duplicate registration was attempted (task name, topic, exchange id)
	CodeDuplicate Code = "DUPLICATE"

	// Cache / REST fallback errors used by order book mergers
	CodeOrderbookFetchFailed Code = "ORDERBOOK_FETCH_FAILED"
	CodeInvalidOrderbook     Code = "INVALID_ORDERBOOK"

	// Circuit breaker errors, used around REST snapshot fetches
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
